package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

var countPrinter = message.NewPrinter(language.English)

// HillasStage cleans each telescope image of an event and extracts its
// Hillas moments. One failing telescope drops the whole event.
type HillasStage struct {
	id       string
	inst     *instrument.Description
	cache    *instrument.GeometryCache
	params   hillas.CleaningParams
	logEvery int

	totalEvents int
}

// NewHillasStage returns an uninitialised stage instance.
func NewHillasStage() *HillasStage {
	return &HillasStage{}
}

func (s *HillasStage) Name() string { return "hillas" }

func (s *HillasStage) OutputFields() map[string][]string {
	return map[string][]string{
		DefaultStream: {FieldHillas},
		ErrorStream:   {FieldErrors},
	}
}

// Initialize loads the instrument description. A load failure is fatal to
// this instance.
func (s *HillasStage) Initialize(conf *config.PipelineConfig, rc RuntimeContext) error {
	if conf == nil {
		conf = config.EmptyConfig()
	}
	inst, err := instrument.Load(rc.fileSystem(), conf.InstrumentAssetPath())
	if err != nil {
		return fmt.Errorf("hillas stage %d: %w", rc.TaskIndex, err)
	}
	cache, err := instrument.NewGeometryCache(inst, conf.GetGeometryCacheSize())
	if err != nil {
		return fmt.Errorf("hillas stage %d: %w", rc.TaskIndex, err)
	}

	s.id = uuid.NewString()
	s.inst = inst
	s.cache = cache
	s.logEvery = conf.GetLogEveryEvents()
	s.params = conf.CleaningParams()
	diagf("hillas stage %d ready: %s with %d telescopes [instance=%s]",
		rc.TaskIndex, inst.Name, len(inst.Telescopes), s.id)
	return nil
}

// Process handles one raw-event tuple.
func (s *HillasStage) Process(t Tuple, out Emitter) {
	ev, ok := rawEventFrom(t)
	if !ok {
		opsf("hillas: tuple without a raw event (%d values) [instance=%s]", len(t.Values), s.id)
		out.Emit(ErrorStream, UnknownEventID)
		return
	}

	s.totalEvents++
	if s.logEvery > 0 && s.totalEvents%s.logEvery == 0 {
		diagf("counted [%s] events [instance=%s]", countPrinter.Sprintf("%d", s.totalEvents), s.id)
	}

	moments, err := s.extract(ev)
	if err != nil {
		if errors.Is(err, ErrMalformedInput) {
			opsf("hillas: event %d rejected: %v", ev.EventID, err)
		} else {
			opsf("hillas: event %d: could not calculate hillas parameters: %v", ev.EventID, err)
		}
		out.Emit(ErrorStream, ev.EventID)
		return
	}
	tracef("hillas: emitting event %d with %d telescopes", ev.EventID, len(moments))
	out.Emit(DefaultStream, wire.SerializeHillasDict(moments))
}

// extract computes the moments of every telescope in ev or fails on the
// first bad telescope.
func (s *HillasStage) extract(ev RawEvent) (map[int]hillas.Moments, error) {
	if len(ev.Data) == 0 {
		return nil, fmt.Errorf("%w: event has no telescopes", ErrMalformedInput)
	}

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	moments := make(map[int]hillas.Moments, len(keys))
	for _, key := range keys {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: telescope id %q", ErrMalformedInput, key)
		}
		geom, err := s.cache.Get(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		charges := ev.Data[key].ADCSums
		if len(charges) == 0 || len(charges) != geom.NumPixels() {
			return nil, fmt.Errorf("%w: telescope %d has %d charges for %d pixels",
				ErrMalformedInput, id, len(charges), geom.NumPixels())
		}

		mask, err := hillas.TailcutsClean(geom, charges, s.params)
		if err != nil {
			return nil, fmt.Errorf("%w: telescope %d: %v", ErrMalformedInput, id, err)
		}
		m, err := hillas.Parameters(geom.PixX, geom.PixY, hillas.ApplyMask(charges, mask))
		if err != nil {
			return nil, fmt.Errorf("telescope %d: %w", id, err)
		}
		moments[id] = m
	}
	return moments, nil
}

// CacheStats reports the geometry cache of this instance. Call it only
// when Process is not running.
func (s *HillasStage) CacheStats() instrument.CacheStats {
	if s.cache == nil {
		return instrument.CacheStats{}
	}
	return s.cache.Stats()
}

func rawEventFrom(t Tuple) (RawEvent, bool) {
	if len(t.Values) == 0 {
		return RawEvent{}, false
	}
	switch ev := t.Values[0].(type) {
	case RawEvent:
		return ev, true
	case *RawEvent:
		if ev != nil {
			return *ev, true
		}
	}
	return RawEvent{}, false
}
