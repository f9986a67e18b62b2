package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/banshee-data/hillas.stream/internal/pipeline"
)

const maxLineBytes = 16 << 20

// JSONLSource reads one raw event per line.
type JSONLSource struct {
	dec  *Decoder
	sc   *bufio.Scanner
	line int
}

// NewJSONLSource reads events from r. Blank lines are skipped.
func NewJSONLSource(r io.Reader, dec *Decoder) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &JSONLSource{dec: dec, sc: sc}
}

// Next implements pipeline.Source.
func (s *JSONLSource) Next(ctx context.Context) (pipeline.RawEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.RawEvent{}, err
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return pipeline.RawEvent{}, fmt.Errorf("read line %d: %w", s.line+1, err)
			}
			diagf("jsonl source exhausted after %d lines", s.line)
			return pipeline.RawEvent{}, io.EOF
		}
		s.line++

		b := bytes.TrimSpace(s.sc.Bytes())
		if len(b) == 0 {
			continue
		}
		ev, err := s.dec.Decode(b)
		if err != nil {
			opsf("line %d skipped: %v", s.line, err)
			continue
		}
		tracef("line %d: event %d", s.line, ev.EventID)
		return ev, nil
	}
}
