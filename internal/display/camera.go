// Package display renders camera images and their Hillas ellipses to PNG
// for offline inspection.
package display

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/hillas.stream/internal/fsutil"
	"github.com/banshee-data/hillas.stream/internal/hillas"
	"github.com/banshee-data/hillas.stream/internal/instrument"
)

// ellipseSegments is the number of line segments approximating the
// Hillas ellipse.
const ellipseSegments = 72

var (
	maskedColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	ellipseColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// CameraImage is one telescope image ready to draw.
type CameraImage struct {
	Title    string
	Geometry *instrument.CameraGeometry
	Image    []float64
	// Mask, when set, greys out pixels outside the cleaned image.
	Mask []bool
	// Moments, when set, overlays the Hillas ellipse at one length and
	// width.
	Moments *hillas.Moments
}

func (c CameraImage) validate() error {
	if c.Geometry == nil {
		return errors.New("camera image has no geometry")
	}
	n := c.Geometry.NumPixels()
	if n == 0 {
		return errors.New("camera has no pixels")
	}
	if len(c.Image) != n {
		return fmt.Errorf("image has %d pixels, camera %d has %d", len(c.Image), c.Geometry.TelID, n)
	}
	if c.Mask != nil && len(c.Mask) != n {
		return fmt.Errorf("mask has %d pixels, camera %d has %d", len(c.Mask), c.Geometry.TelID, n)
	}
	return nil
}

// Render builds the plot for one camera image.
func Render(c CameraImage) (*plot.Plot, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	g := c.Geometry

	p := plot.New()
	p.Title.Text = c.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("Telescope %d", g.TelID)
	}
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, g.NumPixels())
	for i := range pts {
		pts[i] = plotter.XY{X: g.PixX[i], Y: g.PixY[i]}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("pixel scatter: %w", err)
	}

	cmap := moreland.SmoothBlueRed()
	lo, hi := floats.Min(c.Image), floats.Max(c.Image)
	if hi <= lo {
		hi = lo + 1
	}
	cmap.SetMax(hi)
	cmap.SetMin(lo)

	radius := vg.Points(3)
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		style := draw.GlyphStyle{Shape: draw.CircleGlyph{}, Radius: radius, Color: maskedColor}
		if c.Mask != nil && !c.Mask[i] {
			return style
		}
		if col, err := cmap.At(c.Image[i]); err == nil {
			style.Color = col
		}
		return style
	}
	p.Add(scatter)

	if c.Moments != nil {
		if line, ok := ellipse(*c.Moments); ok {
			p.Add(line)
		}
	}

	// Square axes around the camera so the ellipse keeps its shape.
	extent := 0.0
	for i := range g.PixX {
		extent = math.Max(extent, math.Max(math.Abs(g.PixX[i]), math.Abs(g.PixY[i])))
	}
	extent *= 1.1
	if extent == 0 {
		extent = 1
	}
	p.X.Min, p.X.Max = -extent, extent
	p.Y.Min, p.Y.Max = -extent, extent
	return p, nil
}

func ellipse(m hillas.Moments) (*plotter.Line, bool) {
	psi := m.Psi.Radians()
	cx, cy := m.CenX.Value, m.CenY.Value
	l, w := m.Length.Value, m.Width.Value
	if !floats.HasNaN([]float64{psi, cx, cy, l, w}) && l > 0 {
		cos, sin := math.Cos(psi), math.Sin(psi)
		pts := make(plotter.XYs, ellipseSegments+1)
		for i := range pts {
			t := 2 * math.Pi * float64(i) / ellipseSegments
			a, b := l*math.Cos(t), w*math.Sin(t)
			pts[i] = plotter.XY{X: cx + a*cos - b*sin, Y: cy + a*sin + b*cos}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, false
		}
		line.Color = ellipseColor
		line.Width = vg.Points(1.5)
		return line, true
	}
	return nil, false
}

// SavePNG renders c and writes it to path on fsys.
func SavePNG(fsys fsutil.FileSystem, path string, c CameraImage) error {
	p, err := Render(c)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
