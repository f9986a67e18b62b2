// Package synth generates raw camera events for straight showers seen by
// an instrument. It feeds the event generator tool and end-to-end tests.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/hillas.stream/internal/instrument"
	"github.com/banshee-data/hillas.stream/internal/pipeline"
	"github.com/banshee-data/hillas.stream/internal/reco"
	"github.com/banshee-data/hillas.stream/internal/units"
)

// pixelPitch is the pixel spacing the charge density is scaled to, metres.
const pixelPitch = 0.05

// Options control the simulated showers and the camera response.
type Options struct {
	PointingAz, PointingEl units.Quantity
	// DirectionSpread is the standard deviation of the shower direction
	// around the pointing, in degrees.
	DirectionSpread float64
	// CoreRadius bounds the core position around the array centre, metres.
	CoreRadius float64
	// Size is the mean total charge of one image, photoelectrons.
	Size float64
	// Width is the transverse spread of the image, metres on the camera.
	Width float64
	// Noise is the mean night-sky background per pixel, photoelectrons.
	Noise float64
	// Trigger is the brightest-pixel charge a telescope needs to be read
	// out. Telescopes below it are left out of the event.
	Trigger float64
}

// DefaultOptions points the array at az 0, el 20 degrees.
func DefaultOptions() Options {
	return Options{
		PointingAz:      units.Degrees(0),
		PointingEl:      units.Degrees(20),
		DirectionSpread: 1,
		CoreRadius:      150,
		Size:            400,
		Width:           0.02,
		Noise:           0.5,
		Trigger:         15,
	}
}

// Generator produces a reproducible sequence of events.
type Generator struct {
	inst *instrument.Description
	opts Options
	next int64

	dir   distuv.Normal
	core  distuv.Uniform
	noise distuv.Poisson
	size  distuv.Normal
}

// New seeds a generator for inst.
func New(inst *instrument.Description, opts Options, seed uint64) (*Generator, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(opts.PointingAz.Radians()) || math.IsNaN(opts.PointingEl.Radians()) {
		return nil, fmt.Errorf("pointing must be angles, got %v and %v", opts.PointingAz, opts.PointingEl)
	}
	if opts.Width <= 0 {
		return nil, fmt.Errorf("image width must be positive, got %g", opts.Width)
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	g := &Generator{
		inst: inst,
		opts: opts,
		dir:  distuv.Normal{Mu: 0, Sigma: math.Max(opts.DirectionSpread, 1e-9), Src: src},
		core: distuv.Uniform{Min: -opts.CoreRadius, Max: opts.CoreRadius, Src: src},
		size: distuv.Normal{Mu: opts.Size, Sigma: opts.Size / 5, Src: src},
	}
	if opts.Noise > 0 {
		g.noise = distuv.Poisson{Lambda: opts.Noise, Src: src}
	}
	return g, nil
}

// Next returns the next event and the shower that produced it.
func (g *Generator) Next() (pipeline.RawEvent, reco.Shower, error) {
	id := g.next
	g.next++

	shower := reco.Shower{
		Alt:   units.Degrees(g.opts.PointingEl.MustTo(units.Degree).Value + g.dir.Rand()),
		Az:    units.Degrees(g.opts.PointingAz.MustTo(units.Degree).Value + g.dir.Rand()),
		CoreX: g.core.Rand(),
		CoreY: g.core.Rand(),
	}

	ev := pipeline.RawEvent{EventID: id, Data: make(map[string]pipeline.TelescopeImage)}
	for _, telID := range g.inst.TelescopeIDs() {
		tel, err := g.inst.Telescope(telID)
		if err != nil {
			return pipeline.RawEvent{}, reco.Shower{}, err
		}
		tr, err := shower.Trace(tel, g.opts.PointingAz, g.opts.PointingEl)
		if err != nil {
			return pipeline.RawEvent{}, reco.Shower{}, err
		}
		img := g.image(tel, tr)
		if floats.Max(img) < g.opts.Trigger {
			continue
		}
		ev.Data[strconv.Itoa(telID)] = pipeline.TelescopeImage{ADCSums: img}
	}
	return ev, shower, nil
}

// image lays the shower's charge along its trace. The charge per unit
// length is fixed by the event size, so traces running off the camera
// lose light.
func (g *Generator) image(tel instrument.Telescope, tr reco.Trace) []float64 {
	length := math.Hypot(tr.X2-tr.X1, tr.Y2-tr.Y1)
	peak := math.Max(g.size.Rand(), 0) / math.Max(1, length/pixelPitch)

	img := make([]float64, len(tel.PixelX))
	for i := range img {
		d := tr.Distance(tel.PixelX[i], tel.PixelY[i])
		img[i] = peak * math.Exp(-d*d/(2*g.opts.Width*g.opts.Width))
		if g.opts.Noise > 0 {
			img[i] += g.noise.Rand()
		}
	}
	return img
}
