// Command camera-plot renders the camera images of recorded events, with
// their cleaning masks and Hillas ellipses, to PNG files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/display"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/ingest"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/pipeline"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "pipeline configuration JSON")
	input := flag.String("i", "events.jsonl", "JSON-lines event file")
	outDir := flag.String("o", "plots", "output directory")
	maxEvents := flag.Int("n", 10, "number of events to render")
	flag.Parse()

	fsys := fsutil.OSFileSystem{}
	conf, err := config.LoadConfig(fsys, *configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	inst, err := instrument.Load(fsys, conf.InstrumentAssetPath())
	if err != nil {
		log.Fatalf("failed to load instrument: %v", err)
	}
	cache, err := instrument.NewGeometryCache(inst, conf.GetGeometryCacheSize())
	if err != nil {
		log.Fatalf("%v", err)
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open events: %v", err)
	}
	defer f.Close()
	dec, err := ingest.NewDecoder()
	if err != nil {
		log.Fatalf("%v", err)
	}
	src := ingest.NewJSONLSource(f, dec)

	if err := fsys.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	written := 0
	for i := 0; i < *maxEvents; i++ {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("read event: %v", err)
		}
		n, err := renderEvent(fsys, *outDir, cache, conf.CleaningParams(), ev)
		if err != nil {
			log.Printf("event %d: %v", ev.EventID, err)
		}
		written += n
	}
	log.Printf("✓ Wrote %d images to %s", written, *outDir)
}

// renderEvent writes one PNG per telescope and returns how many it wrote.
func renderEvent(fsys fsutil.FileSystem, dir string, cache *instrument.GeometryCache, params hillas.CleaningParams, ev pipeline.RawEvent) (int, error) {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	written := 0
	for _, key := range keys {
		id, err := strconv.Atoi(key)
		if err != nil {
			return written, fmt.Errorf("telescope id %q: %w", key, err)
		}
		geom, err := cache.Get(id)
		if err != nil {
			return written, err
		}
		img := ev.Data[key].ADCSums

		c := display.CameraImage{
			Title:    fmt.Sprintf("event %d, telescope %d", ev.EventID, id),
			Geometry: geom,
			Image:    img,
		}
		if mask, err := hillas.TailcutsClean(geom, img, params); err == nil {
			c.Mask = mask
			if m, err := hillas.Parameters(geom.PixX, geom.PixY, hillas.ApplyMask(img, mask)); err == nil {
				c.Moments = &m
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("event_%06d_tel_%03d.png", ev.EventID, id))
		if err := display.SavePNG(fsys, path, c); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
