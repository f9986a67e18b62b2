// Command gen-events writes synthetic raw events as JSON lines or as a
// pcap of UDP datagrams for replay through hillas-stream.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/ingest"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/synth"
	"github.com/banshee-data/hillas.stream/internal/units"
)

// captureStart is the timestamp of the first datagram in pcap output.
var captureStart = time.Unix(1700000000, 0).UTC()

type outputOptions struct {
	Format string  // jsonl or pcap
	Count  int     // events to write
	Port   int     // UDP destination port in pcap output
	Rate   float64 // events/s, spaces pcap timestamps
}

func main() {
	instPath := flag.String("instrument", config.DefaultInstrumentPath, "instrument asset")
	output := flag.String("o", "events.jsonl", "output path")
	format := flag.String("format", "jsonl", "output format: jsonl or pcap")
	count := flag.Int("n", 1000, "number of events")
	seed := flag.Uint64("seed", 1, "random seed")
	port := flag.Int("port", 2110, "UDP destination port written to pcap output")
	rate := flag.Float64("rate", 100, "event rate used for pcap timestamps (events/s)")
	az := flag.Float64("az", 0, "pointing azimuth in degrees")
	el := flag.Float64("el", 20, "pointing elevation in degrees")
	noise := flag.Float64("noise", synth.DefaultOptions().Noise, "mean background per pixel (pe)")
	flag.Parse()

	fsys := fsutil.OSFileSystem{}
	inst, err := instrument.Load(fsys, *instPath)
	if err != nil {
		log.Fatalf("failed to load instrument: %v", err)
	}

	opts := synth.DefaultOptions()
	opts.PointingAz = units.Degrees(*az)
	opts.PointingEl = units.Degrees(*el)
	opts.Noise = *noise
	gen, err := synth.New(inst, opts, *seed)
	if err != nil {
		log.Fatalf("failed to create generator: %v", err)
	}

	if err := fsys.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	out := outputOptions{Format: *format, Count: *count, Port: *port, Rate: *rate}
	if err := writeEvents(fsys, *output, gen, out); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("✓ Created: %s (%d events, %s)", *output, *count, *format)
}

// writeEvents generates out.Count events into path.
func writeEvents(fsys fsutil.FileSystem, path string, gen *synth.Generator, out outputOptions) error {
	if out.Format != "jsonl" && out.Format != "pcap" {
		return fmt.Errorf("unknown format %q (want jsonl or pcap)", out.Format)
	}
	if out.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %g", out.Rate)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	w := bufio.NewWriter(f)

	var pw *ingest.PcapWriter
	if out.Format == "pcap" {
		if pw, err = ingest.NewPcapWriter(w); err != nil {
			f.Close()
			return err
		}
	}

	step := time.Duration(float64(time.Second) / out.Rate)
	for i := 0; i < out.Count; i++ {
		ev, _, err := gen.Next()
		if err != nil {
			f.Close()
			return fmt.Errorf("event %d: %w", i, err)
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			f.Close()
			return fmt.Errorf("event %d: %w", i, err)
		}

		if pw != nil {
			err = pw.WriteDatagram(captureStart.Add(time.Duration(i)*step), out.Port, payload)
		} else {
			_, err = w.Write(append(payload, '\n'))
		}
		if err != nil {
			f.Close()
			return fmt.Errorf("write event %d: %w", i, err)
		}
		if (i+1)%1000 == 0 {
			log.Printf("%d/%d events", i+1, out.Count)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}
