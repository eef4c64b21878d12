// Command thumb2trace connects to a running target over the GDB remote
// protocol, single-steps it, and writes a delta-compressed trace file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/lookbusy1344/thumb2trace/internal/config"
	"github.com/lookbusy1344/thumb2trace/internal/gdbremote"
	"github.com/lookbusy1344/thumb2trace/internal/livefeed"
	"github.com/lookbusy1344/thumb2trace/internal/romimage"
	"github.com/lookbusy1344/thumb2trace/internal/tracefmt"
)

var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		romPath     = flag.String("rom", "", "ROM image file (required)")
		romBase     = flag.Uint64("rom-base", 0, "ROM base address override (default: from config)")
		ramBase     = flag.Uint64("ram-base", 0, "RAM base address override (default: from config)")
		ramSize     = flag.Uint64("ram-size", 0, "RAM size override (default: from config)")
		maxInsns    = flag.Uint64("max-insns", 0, "Instruction budget override (default: from config)")
		decimation  = flag.Uint64("decimation", 0, "Emit every Nth tracepoint (default: from config)")
		socketPath  = flag.String("socket", "", "Unix-domain socket to the target's debug port (default: from config)")
		outFile     = flag.String("out", "", "Trace output file (required)")
		emulator    = flag.String("emulator", "", "Emulator name recorded in the trace (qemu or t2sim)")
		liveFeed    = flag.Bool("livefeed", false, "Serve a live WebSocket feed of tracepoints as they're captured")
		configFile  = flag.String("config", "", "Config file path (default: platform default)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("thumb2trace %s\n", Version)
		os.Exit(0)
	}
	if *romPath == "" || *outFile == "" {
		log.Fatal("thumb2trace: -rom and -out are required")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("thumb2trace: %v", err)
	}
	applyOverrides(cfg, *romBase, *ramBase, *ramSize, *maxInsns, *decimation, *socketPath, *emulator)

	rom, err := romimage.Load(*romPath, uint32(cfg.Capture.RomBase))
	if err != nil {
		log.Fatalf("thumb2trace: %v", err)
	}

	conn, err := net.DialTimeout("unix", cfg.Capture.SocketPath, 5*time.Second)
	if err != nil {
		log.Fatalf("thumb2trace: connecting to %s: %v", cfg.Capture.SocketPath, err)
	}
	client := gdbremote.NewClient(conn)
	defer client.Close()

	romLen := uint32(len(rom.Data))
	probes := []tracefmt.Probe{
		tracefmt.NewRegisterSetProbe("regs"),
		tracefmt.NewMemoryProbe("rom", rom.Base, romLen, true),
		tracefmt.NewMemoryProbe("ram", uint32(cfg.Capture.RamBase), uint32(cfg.Capture.RamSize), false),
	}

	var feed *livefeed.Broadcaster
	if *liveFeed || cfg.LiveFeed.Enabled {
		feed = livefeed.NewBroadcaster()
		defer feed.Close()
		http.Handle("/feed", livefeed.Handler(feed))
		addr := cfg.LiveFeed.ListenAddr
		go func() {
			log.Printf("thumb2trace: live feed listening on %s", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Printf("thumb2trace: live feed server stopped: %v", err)
			}
		}()
	}

	writer := tracefmt.NewWriter(client, probes, tracefmt.Meta{
		RomBase:        rom.Base,
		RamBase:        uint32(cfg.Capture.RamBase),
		RamSize:        uint32(cfg.Capture.RamSize),
		RomImage:       rom.Data,
		RomChecksum:    rom.Checksum(),
		RomImageLength: romLen,
		Emulator:       tracefmt.Emulator(cfg.Capture.Emulator),
	}, tracefmt.WriterConfig{
		MaxInsns:   cfg.Capture.MaxInsns,
		Decimation: cfg.Capture.Decimation,
	})

	if feed != nil {
		writer.OnTracepoint = func(tp tracefmt.Tracepoint, regs map[string]uint32) {
			feed.Publish(livefeed.Event{ExecutedInsns: tp.ExecutedInsns, Registers: regs})
		}
	}

	file, err := writer.Capture()
	if err != nil {
		log.Fatalf("thumb2trace: capture: %v", err)
	}

	if err := client.KillRequest(); err != nil {
		log.Printf("thumb2trace: kill_request: %v", err)
	}

	out, err := os.Create(*outFile)
	if err != nil {
		log.Fatalf("thumb2trace: creating %s: %v", *outFile, err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	if err := enc.Encode(file); err != nil {
		log.Fatalf("thumb2trace: writing %s: %v", *outFile, err)
	}
	log.Printf("thumb2trace: wrote %d tracepoints to %s", len(file.Trace), *outFile)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func applyOverrides(cfg *config.Config, romBase, ramBase, ramSize, maxInsns, decimation uint64, socketPath, emulator string) {
	if romBase != 0 {
		cfg.Capture.RomBase = uint32(romBase)
	}
	if ramBase != 0 {
		cfg.Capture.RamBase = uint32(ramBase)
	}
	if ramSize != 0 {
		cfg.Capture.RamSize = uint32(ramSize)
	}
	if maxInsns != 0 {
		cfg.Capture.MaxInsns = maxInsns
	}
	if decimation != 0 {
		cfg.Capture.Decimation = decimation
	}
	if socketPath != "" {
		cfg.Capture.SocketPath = socketPath
	}
	if emulator != "" {
		cfg.Capture.Emulator = emulator
	}
}
