package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/ingest"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/pipeline"
	"github.com/banshee-data/hillas.stream/internal/synth"
)

func newGenerator(t *testing.T) *synth.Generator {
	t.Helper()
	gen, err := synth.New(instrument.SyntheticArray(4, 4, 120), synth.DefaultOptions(), 3)
	require.NoError(t, err)
	return gen
}

func readAll(t *testing.T, src pipeline.Source) []int64 {
	t.Helper()
	var ids []int64
	for {
		ev, err := src.Next(context.Background())
		if err == io.EOF {
			return ids
		}
		require.NoError(t, err)
		ids = append(ids, ev.EventID)
	}
}

func TestWriteEvents_JSONL(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, writeEvents(fsys, "/out/events.jsonl", newGenerator(t),
		outputOptions{Format: "jsonl", Count: 5, Port: 2110, Rate: 100}))

	data, err := fsys.ReadFile("/out/events.jsonl")
	require.NoError(t, err)
	dec, err := ingest.NewDecoder()
	require.NoError(t, err)

	ids := readAll(t, ingest.NewJSONLSource(bytes.NewReader(data), dec))
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ids)
	assert.Equal(t, ingest.Stats{Accepted: 5}, dec.Stats())
}

func TestWriteEvents_Pcap(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, writeEvents(fsys, "/out/events.pcap", newGenerator(t),
		outputOptions{Format: "pcap", Count: 3, Port: 4000, Rate: 10}))

	data, err := fsys.ReadFile("/out/events.pcap")
	require.NoError(t, err)
	dec, err := ingest.NewDecoder()
	require.NoError(t, err)
	src, err := ingest.NewPcapSource(bytes.NewReader(data), 4000, dec)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2}, readAll(t, src))
}

func TestWriteEvents_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		out  outputOptions
	}{
		{"unknown format", outputOptions{Format: "csv", Count: 1, Rate: 1}},
		{"zero rate", outputOptions{Format: "pcap", Count: 1, Rate: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fsutil.NewMemoryFileSystem()
			err := writeEvents(fsys, "/out/events", newGenerator(t), tt.out)
			require.Error(t, err)
			assert.False(t, fsys.Exists("/out/events"))
		})
	}
}
