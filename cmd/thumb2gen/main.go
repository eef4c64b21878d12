// Command thumb2gen reads an instruction-set XML table and emits the
// generated direct Thumb-2 decoder source file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lookbusy1344/thumb2trace/internal/config"
	"github.com/lookbusy1344/thumb2trace/internal/gen"
	"github.com/lookbusy1344/thumb2trace/internal/insnset"
	"github.com/lookbusy1344/thumb2trace/internal/partition"
)

var (
	Version = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		tableFile   = flag.String("table", "", "Instruction-set XML table (required)")
		outFile     = flag.String("out", "", "Output Go source file (default: from config)")
		packageName = flag.String("package", "", "Generated package name (default: from config)")
		configFile  = flag.String("config", "", "Config file path (default: platform default)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("thumb2gen %s\n", Version)
		os.Exit(0)
	}

	if *tableFile == "" {
		log.Fatal("thumb2gen: -table is required")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("thumb2gen: %v", err)
	}

	out := *outFile
	if out == "" {
		out = cfg.Generate.OutputFile
	}
	pkg := *packageName
	if pkg == "" {
		pkg = cfg.Generate.PackageName
	}

	f, err := os.Open(*tableFile)
	if err != nil {
		log.Fatalf("thumb2gen: opening table: %v", err)
	}
	defer f.Close()

	model, err := insnset.Load(f)
	if err != nil {
		log.Fatalf("thumb2gen: loading table: %v", err)
	}
	warnAmbiguities(model)

	src, err := gen.Generate(model, pkg)
	if err != nil {
		log.Fatalf("thumb2gen: generating: %v", err)
	}

	if err := os.WriteFile(out, src, 0o644); err != nil {
		log.Fatalf("thumb2gen: writing %s: %v", out, err)
	}
	log.Printf("thumb2gen: wrote %s (%d encodings, package %s)", out, len(model.All()), pkg)
}

// warnAmbiguities logs every pair of encodings whose mask/match pairs can
// both accept the same word. The generated decoder still resolves these
// deterministically by (priority, variant) order, but a table author
// should know the overlap exists.
func warnAmbiguities(model *insnset.Model) {
	elements := make([]partition.Element, 0, len(model.All()))
	for _, e := range model.All() {
		elements = append(elements, partition.Element{ID: e.Variant, Mask: e.Mask(), Match: e.Match()})
	}
	tree := partition.Build(elements)
	for _, amb := range partition.FindAmbiguities(tree) {
		log.Printf("thumb2gen: warning: encodings %s and %s overlap; priority order decides",
			amb.Leaf[0].ID, amb.Leaf[1].ID)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
