package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/hillas.stream/internal/config"
	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/reco"
	"github.com/banshee-data/hillas.stream/internal/units"
	"github.com/banshee-data/hillas.stream/internal/wire"
)

// ShowerFitter is the geometric fit RecoStage drives. An instance is
// reused sequentially for every event of one stage instance.
type ShowerFitter interface {
	Predict(
		moments map[int]hillas.Moments,
		inst *instrument.Description,
		azimuth, elevation map[int]units.Quantity,
	) (*reco.Result, error)
}

// RecoStage fits the shower axis for each HillasDict. Every telescope is
// assumed to point at the same fixed azimuth and elevation.
type RecoStage struct {
	// NewFitter builds the instance's fitter during Initialize.
	NewFitter func() ShowerFitter

	id        string
	inst      *instrument.Description
	fitter    ShowerFitter
	azimuth   units.Quantity
	elevation units.Quantity
}

// NewRecoStage returns an uninitialised stage instance using reco.Fitter.
func NewRecoStage() *RecoStage {
	return &RecoStage{NewFitter: func() ShowerFitter { return reco.NewFitter() }}
}

func (s *RecoStage) Name() string { return "reco" }

func (s *RecoStage) OutputFields() map[string][]string {
	return map[string][]string{
		DefaultStream: {FieldReconstruction},
		ErrorStream:   {FieldErrors},
	}
}

// Initialize loads the instrument description and creates the fitter. A
// load failure is fatal to this instance.
func (s *RecoStage) Initialize(conf *config.PipelineConfig, rc RuntimeContext) error {
	if conf == nil {
		conf = config.EmptyConfig()
	}
	inst, err := instrument.Load(rc.fileSystem(), conf.InstrumentAssetPath())
	if err != nil {
		return fmt.Errorf("reco stage %d: %w", rc.TaskIndex, err)
	}
	newFitter := s.NewFitter
	if newFitter == nil {
		newFitter = func() ShowerFitter { return reco.NewFitter() }
	}

	s.id = uuid.NewString()
	s.inst = inst
	s.fitter = newFitter()
	s.azimuth = units.Degrees(conf.GetPointingAzimuthDeg())
	s.elevation = units.Degrees(conf.GetPointingElevationDeg())
	diagf("reco stage %d ready: pointing az=%s el=%s [instance=%s]",
		rc.TaskIndex, s.azimuth, s.elevation, s.id)
	return nil
}

// Process handles one HillasDict tuple.
func (s *RecoStage) Process(t Tuple, out Emitter) {
	tracef("reco: received tuple [instance=%s]", s.id)

	if len(t.Values) == 0 {
		opsf("reco: empty tuple [instance=%s]", s.id)
		out.Emit(ErrorStream, RecoErrorSentinel)
		return
	}
	moments, err := wire.DeserializeHillasDict(t.Values[0])
	if err != nil {
		opsf("reco: %v: %v", ErrMalformedInput, err)
		out.Emit(ErrorStream, RecoErrorSentinel)
		return
	}

	azimuth := make(map[int]units.Quantity, len(moments))
	elevation := make(map[int]units.Quantity, len(moments))
	for id := range moments {
		azimuth[id] = s.azimuth
		elevation[id] = s.elevation
	}

	res, err := s.fit(moments, azimuth, elevation)
	if err != nil || res == nil {
		kind := "unclassified"
		var fe *reco.FitError
		if errors.As(err, &fe) {
			kind = fe.Kind.String()
		}
		opsf("reco: event not reconstructed (%s): %v", kind, err)
		out.Emit(ErrorStream, RecoErrorSentinel)
		return
	}

	tracef("reco: emitting result for telescopes %v", res.TelIDs)
	out.Emit(DefaultStream, wire.SerializeMapping(res.AsMap()))
}

// fit runs the fitter and converts a panic into a non-convergence failure.
func (s *RecoStage) fit(moments map[int]hillas.Moments, azimuth, elevation map[int]units.Quantity) (res *reco.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &reco.FitError{Kind: reco.KindNoConvergence, Err: fmt.Errorf("fitter panic: %v", r)}
		}
	}()
	return s.fitter.Predict(moments, s.inst, azimuth, elevation)
}
