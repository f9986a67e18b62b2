// Command make-instrument writes a synthetic instrument asset.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/instrument"
)

func main() {
	output := flag.String("o", config.DefaultInstrumentPath, "output path")
	telescopes := flag.Int("n", 4, "number of telescopes")
	rings := flag.Int("rings", 4, "pixel rings around the central pixel of each camera")
	spacing := flag.Float64("spacing", 120, "telescope grid spacing in metres")
	flag.Parse()

	fsys := fsutil.OSFileSystem{}
	if err := fsys.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	inst := instrument.SyntheticArray(*telescopes, *rings, *spacing)
	if err := instrument.Save(fsys, *output, inst); err != nil {
		log.Fatalf("failed to write instrument: %v", err)
	}
	log.Printf("✓ Created: %s (%d telescopes, %d pixels each)",
		*output, len(inst.Telescopes), len(inst.Telescopes[1].PixelX))
}
