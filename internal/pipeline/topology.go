package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

const queueDepth = 64

// Source produces raw events. Next returns io.EOF when the source is
// exhausted; any other error stops the topology.
type Source interface {
	Next(ctx context.Context) (RawEvent, error)
}

// Sink receives terminal tuples.
type Sink interface {
	RecordReconstruction(ctx context.Context, result map[string]any) error
	RecordError(ctx context.Context, stage string, value any) error
}

// Observer is a side-channel consumer of a stream. Its failures never
// reach the stages.
type Observer interface {
	Observe()
}

// Topology runs HillasStage and RecoStage instances as goroutines. Events
// are partitioned across Hillas instances by event id; Hillas output is
// spread round-robin across Reco instances. Nil observers and a nil Sink
// are skipped.
type Topology struct {
	Config *config.PipelineConfig
	FS     fsutil.FileSystem
	// Codec frames tuples between the two stages; nil keeps them in process.
	Codec wire.Codec
	Sink  Sink

	// NewFitter overrides the fitter of every Reco instance.
	NewFitter func() ShowerFitter

	Throughput   Observer // reco default stream
	HillasErrors Observer // hillas errors stream
	RecoErrors   Observer // reco errors stream

	dropped atomic.Uint64
}

type routed struct {
	stage string
	tuple Tuple
}

// Dropped reports tuples lost between stages: those the codec could not
// frame and those still in flight when the context was cancelled.
func (tp *Topology) Dropped() uint64 { return tp.dropped.Load() }

// Run pulls events from src until it is exhausted or ctx is cancelled,
// then drains every stage in order. Invalid configuration and stage
// initialisation failures are returned before any event is read.
func (tp *Topology) Run(ctx context.Context, src Source) error {
	conf := tp.Config
	if conf == nil {
		conf = config.EmptyConfig()
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("topology: %w", err)
	}

	hillasStages := make([]*HillasStage, conf.GetHillasParallelism())
	for i := range hillasStages {
		s := NewHillasStage()
		if err := s.Initialize(conf, RuntimeContext{TaskIndex: i, FS: tp.FS}); err != nil {
			return err
		}
		hillasStages[i] = s
	}
	recoStages := make([]*RecoStage, conf.GetRecoParallelism())
	for i := range recoStages {
		s := NewRecoStage()
		if tp.NewFitter != nil {
			s.NewFitter = tp.NewFitter
		}
		if err := s.Initialize(conf, RuntimeContext{TaskIndex: i, FS: tp.FS}); err != nil {
			return err
		}
		recoStages[i] = s
	}

	hillasIn := make([]chan Tuple, len(hillasStages))
	for i := range hillasIn {
		hillasIn[i] = make(chan Tuple, queueDepth)
	}
	recoIn := make([]chan Tuple, len(recoStages))
	for i := range recoIn {
		recoIn[i] = make(chan Tuple, queueDepth)
	}
	terminal := make(chan routed, queueDepth)

	var hillasWG, recoWG, terminalWG sync.WaitGroup
	var nextReco atomic.Uint64

	for i, stage := range hillasStages {
		hillasWG.Add(1)
		go func() {
			defer hillasWG.Done()
			for in := range hillasIn[i] {
				var c collector
				stage.Process(in, &c)
				for _, out := range c.tuples {
					if out.Stream != DefaultStream {
						forward(ctx, tp, terminal, routed{stage: stage.Name(), tuple: out})
						continue
					}
					framed, err := tp.cross(out)
					if err != nil {
						tp.dropped.Add(1)
						opsf("topology: dropping hillas tuple at stage boundary: %v", err)
						continue
					}
					idx := (nextReco.Add(1) - 1) % uint64(len(recoIn))
					forward(ctx, tp, recoIn[idx], framed)
				}
			}
		}()
	}

	for i, stage := range recoStages {
		recoWG.Add(1)
		go func() {
			defer recoWG.Done()
			for in := range recoIn[i] {
				var c collector
				stage.Process(in, &c)
				for _, out := range c.tuples {
					forward(ctx, tp, terminal, routed{stage: stage.Name(), tuple: out})
				}
			}
		}()
	}

	terminalWG.Add(1)
	go func() {
		defer terminalWG.Done()
		for r := range terminal {
			tp.deliver(ctx, r)
		}
	}()

	runErr := tp.feed(ctx, src, hillasIn)

	for _, ch := range hillasIn {
		close(ch)
	}
	hillasWG.Wait()
	for _, ch := range recoIn {
		close(ch)
	}
	recoWG.Wait()
	close(terminal)
	terminalWG.Wait()

	for i, s := range hillasStages {
		st := s.CacheStats()
		diagf("hillas stage %d geometry cache: %d entries, %d hits, %d misses", i, st.Entries, st.Hits, st.Misses)
	}
	return runErr
}

func (tp *Topology) feed(ctx context.Context, src Source, hillasIn []chan Tuple) error {
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("source: %w", err)
		}
		idx := partition(ev.EventID, len(hillasIn))
		if !send(ctx, hillasIn[idx], Tuple{Stream: DefaultStream, Values: []any{ev}}) {
			return ctx.Err()
		}
	}
}

// cross frames t through the codec as if it left the process.
func (tp *Topology) cross(t Tuple) (Tuple, error) {
	if tp.Codec == nil {
		return t, nil
	}
	b, err := tp.Codec.Encode(wire.Message{Stream: t.Stream, Values: t.Values})
	if err != nil {
		return Tuple{}, err
	}
	m, err := tp.Codec.Decode(b)
	if err != nil {
		return Tuple{}, err
	}
	return Tuple{Stream: m.Stream, Values: m.Values}, nil
}

func (tp *Topology) deliver(ctx context.Context, r routed) {
	var value any
	if len(r.tuple.Values) > 0 {
		value = r.tuple.Values[0]
	}

	if r.tuple.Stream == ErrorStream {
		if r.stage == "hillas" {
			observe(tp.HillasErrors)
		} else {
			observe(tp.RecoErrors)
		}
		if tp.Sink != nil {
			if err := tp.Sink.RecordError(ctx, r.stage, value); err != nil {
				opsf("topology: record %s error: %v", r.stage, err)
			}
		}
		return
	}

	observe(tp.Throughput)
	result, ok := value.(map[string]any)
	if !ok {
		opsf("topology: %s emitted %T on %s", r.stage, value, r.tuple.Stream)
		return
	}
	if tp.Sink != nil {
		if err := tp.Sink.RecordReconstruction(ctx, result); err != nil {
			opsf("topology: record reconstruction: %v", err)
		}
	}
}

func observe(o Observer) {
	if o == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			opsf("topology: observer panic: %v", r)
		}
	}()
	o.Observe()
}

func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// forward sends v on ch, counting it as dropped if ctx ends first.
func forward[T any](ctx context.Context, tp *Topology, ch chan<- T, v T) {
	if !send(ctx, ch, v) {
		tp.dropped.Add(1)
		opsf("topology: dropping %T after cancellation", v)
	}
}

func partition(eventID int64, n int) int {
	p := eventID % int64(n)
	if p < 0 {
		p += int64(n)
	}
	return int(p)
}
