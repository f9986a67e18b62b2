package reco

import "fmt"

// Kind classifies why a fit produced no reconstruction.
type Kind int

const (
	// KindTooFewTelescopes means fewer than two usable images were supplied.
	KindTooFewTelescopes Kind = iota + 1
	// KindNoConvergence means the planes or ground traces did not intersect
	// well enough to define a solution.
	KindNoConvergence
	// KindInvalidGeometry means the instrument or pointing data for a
	// telescope was missing or unusable.
	KindInvalidGeometry
)

func (k Kind) String() string {
	switch k {
	case KindTooFewTelescopes:
		return "too_few_telescopes"
	case KindNoConvergence:
		return "no_convergence"
	case KindInvalidGeometry:
		return "invalid_geometry"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FitError is the only error type returned by Fitter.Predict.
type FitError struct {
	Kind Kind
	Err  error
}

func (e *FitError) Error() string {
	if e.Err == nil {
		return "shower fit failed: " + e.Kind.String()
	}
	return fmt.Sprintf("shower fit failed: %s: %v", e.Kind, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

func fitErrorf(kind Kind, format string, args ...any) *FitError {
	return &FitError{Kind: kind, Err: fmt.Errorf(format, args...)}
}
