package pipeline

import (
	"errors"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
)

// Stream names.
const (
	DefaultStream = "default"
	ErrorStream   = "errors"
)

// Output field names.
const (
	FieldHillas         = "hillas"
	FieldReconstruction = "reconstruction_result"
	FieldErrors         = "errors"
)

// RecoErrorSentinel is the only value RecoStage emits on the errors stream.
const RecoErrorSentinel = 1

// UnknownEventID is emitted on the errors stream when an input tuple does
// not carry a raw event at all.
const UnknownEventID int64 = -1

// ErrMalformedInput marks events whose payload does not fit the
// instrument: bad telescope ids, missing or mis-sized pixel arrays, or no
// telescopes at all.
var ErrMalformedInput = errors.New("malformed input")

// TelescopeImage holds one telescope's integrated pixel charges.
type TelescopeImage struct {
	ADCSums []float64 `json:"adc_sums"`
}

// RawEvent is one triggered array event. Data is keyed by the decimal
// telescope id.
type RawEvent struct {
	EventID int64                     `json:"event_id"`
	Data    map[string]TelescopeImage `json:"data"`
}

// Tuple is one emission: the stream it travels on and its values, in the
// order of the stream's declared fields.
type Tuple struct {
	Stream string
	Values []any
}

// Emitter receives a stage's output.
type Emitter interface {
	Emit(stream string, values ...any)
}

// RuntimeContext is what the host hands a stage instance at startup.
type RuntimeContext struct {
	TaskIndex int
	FS        fsutil.FileSystem
}

func (rc RuntimeContext) fileSystem() fsutil.FileSystem {
	if rc.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return rc.FS
}

// Stage is one independently schedulable unit of work. Process is never
// called concurrently on the same instance.
type Stage interface {
	Name() string
	OutputFields() map[string][]string
	Initialize(conf *config.PipelineConfig, rc RuntimeContext) error
	Process(t Tuple, out Emitter)
}

// collector buffers the tuples emitted while processing one input.
type collector struct {
	tuples []Tuple
}

func (c *collector) Emit(stream string, values ...any) {
	c.tuples = append(c.tuples, Tuple{Stream: stream, Values: values})
}
