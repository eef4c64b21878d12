// Command thumb2cmp compares two trace files in lock-step and reports the
// first tracepoint where they diverge.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lookbusy1344/thumb2trace/internal/config"
	"github.com/lookbusy1344/thumb2trace/internal/decoder"
	"github.com/lookbusy1344/thumb2trace/internal/disasm"
	"github.com/lookbusy1344/thumb2trace/internal/insnset"
	"github.com/lookbusy1344/thumb2trace/internal/tracecmp"
	"github.com/lookbusy1344/thumb2trace/internal/tracefmt"
)

var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		tableFile   = flag.String("table", "", "Instruction-set XML table, for decoding the divergence's previous instruction")
		disasmTool  = flag.String("disasm-tool", "", "External disassembler binary (default: from config)")
		configFile  = flag.String("config", "", "Config file path (default: platform default)")
	)
	flag.Parse()
	args := flag.Args()

	if *showVersion {
		fmt.Printf("thumb2cmp %s\n", Version)
		os.Exit(0)
	}
	if len(args) != 2 {
		log.Fatal("thumb2cmp: usage: thumb2cmp [flags] <trace-a.json> <trace-b.json>")
	}
	if *tableFile == "" {
		log.Fatal("thumb2cmp: -table is required")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("thumb2cmp: %v", err)
	}
	tool := *disasmTool
	if tool == "" {
		tool = cfg.Compare.DisasmTool
	}

	fileA, err := loadTrace(args[0])
	if err != nil {
		log.Fatalf("thumb2cmp: %v", err)
	}
	fileB, err := loadTrace(args[1])
	if err != nil {
		log.Fatalf("thumb2cmp: %v", err)
	}

	tableFileHandle, err := os.Open(*tableFile)
	if err != nil {
		log.Fatalf("thumb2cmp: opening table: %v", err)
	}
	model, err := insnset.Load(tableFileHandle)
	tableFileHandle.Close()
	if err != nil {
		log.Fatalf("thumb2cmp: loading table: %v", err)
	}
	table := decoder.NewPartitionedTable(model)

	cmp, err := tracecmp.New(tracefmt.NewReader(fileA), tracefmt.NewReader(fileB), table, disasm.New(tool))
	if err != nil {
		log.Fatalf("thumb2cmp: %v", err)
	}

	if err := cmp.Run(); err != nil {
		if div, ok := err.(*tracecmp.Divergence); ok {
			fmt.Println(div.Report)
			os.Exit(1)
		}
		log.Fatalf("thumb2cmp: %v", err)
	}

	fmt.Printf("thumb2cmp: traces match (%d tracepoints compared)\n", cmp.Visited)
}

func loadTrace(path string) (*tracefmt.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var file tracefmt.File
	if err := json.NewDecoder(f).Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &file, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
