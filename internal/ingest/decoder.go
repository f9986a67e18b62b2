package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/banshee-data/hillas.stream/internal/pipeline"
)

//go:embed event.schema.json
var eventSchema []byte

const eventSchemaURL = "https://hillas.stream/schemas/raw-event.json"

// ErrInvalidEvent wraps every payload that fails to parse or validate.
var ErrInvalidEvent = errors.New("invalid raw event")

// Decoder validates payloads against the raw-event schema and decodes
// them. It is safe for concurrent use.
type Decoder struct {
	schema *jsonschema.Schema

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// Stats counts decoded and rejected payloads.
type Stats struct {
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
}

// NewDecoder compiles the embedded schema.
func NewDecoder() (*Decoder, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(eventSchemaURL, bytes.NewReader(eventSchema)); err != nil {
		return nil, fmt.Errorf("add event schema: %w", err)
	}
	schema, err := compiler.Compile(eventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	return &Decoder{schema: schema}, nil
}

// Decode validates b and returns the event it carries.
func (d *Decoder) Decode(b []byte) (pipeline.RawEvent, error) {
	ev, err := d.decode(b)
	if err != nil {
		d.rejected.Add(1)
		return pipeline.RawEvent{}, err
	}
	d.accepted.Add(1)
	return ev, nil
}

func (d *Decoder) decode(b []byte) (pipeline.RawEvent, error) {
	var payload any
	if err := json.Unmarshal(b, &payload); err != nil {
		return pipeline.RawEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := d.schema.Validate(payload); err != nil {
		return pipeline.RawEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	var ev pipeline.RawEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return pipeline.RawEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return ev, nil
}

// Stats returns the running totals.
func (d *Decoder) Stats() Stats {
	return Stats{Accepted: d.accepted.Load(), Rejected: d.rejected.Load()}
}
