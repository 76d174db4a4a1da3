// Package diagnostics draws residual and partial-dependence plots for
// fitted models with gonum/plot.
package diagnostics

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

// Default canvas size used by Render.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Formats accepted by Render.
var Formats = []string{"png", "svg", "pdf"}

// ResidualPlot plots residuals against fitted values with a zero line.
func ResidualPlot(yPred, residuals []float64) (*plot.Plot, error) {
	const op = "diagnostics.ResidualPlot"
	if len(yPred) == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(yPred) != len(residuals) {
		return nil, errors.NewDimensionError(op, len(yPred), len(residuals), 0)
	}

	pts := make(plotter.XYs, len(yPred))
	for i := range yPred {
		pts[i].X = yPred[i]
		pts[i].Y = residuals[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	s.GlyphStyle.Radius = vg.Points(2)

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p := plot.New()
	p.Title.Text = "Residuals vs fitted"
	p.X.Label.Text = "fitted"
	p.Y.Label.Text = "residual"
	p.Add(s, zero)
	return p, nil
}

// PartialDependencePlot plots the contribution of a fitted model's term
// over its training range, sampled at points locations. Smooth terms are
// drawn as a line and factor terms as one marker per level. Tensor terms
// are not supported.
func PartialDependencePlot(model *gam.LinearGAM, term int, label string, points int) (*plot.Plot, error) {
	const op = "diagnostics.PartialDependencePlot"
	if model == nil {
		return nil, errors.NewValidationError("model", "must not be nil", nil)
	}

	grid, err := model.GenerateXGrid(term, points)
	if err != nil {
		return nil, err
	}
	t := model.Terms()[term]
	if t.Kind() == gam.KindTensor {
		return nil, errors.NewValidationError("term", "tensor terms cannot be drawn as a curve", t.String())
	}
	pd, err := model.PartialDependence(term, grid)
	if err != nil {
		return nil, err
	}

	feature := t.Features()[0]
	pts := make(plotter.XYs, len(pd))
	for i := range pd {
		pts[i].X = grid.At(i, feature)
		pts[i].Y = pd[i]
	}

	p := plot.New()
	if label == "" {
		label = fmt.Sprintf("x%d", feature)
	}
	p.Title.Text = t.String()
	p.X.Label.Text = label
	p.Y.Label.Text = "partial dependence"

	if t.Kind() == gam.KindFactor {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		return p, nil
	}

	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	p.Add(l)
	return p, nil
}

// Render writes p to w in the given format at the default size.
func Render(p *plot.Plot, w io.Writer, format string) error {
	const op = "diagnostics.Render"
	supported := false
	for _, f := range Formats {
		if f == format {
			supported = true
			break
		}
	}
	if !supported {
		return errors.NewValidationError("format", fmt.Sprintf("must be one of %v", Formats), format)
	}

	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
