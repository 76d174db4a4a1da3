package gam

import (
	"github.com/YuminosukeSato/scigam/pkg/log"
	"gonum.org/v1/gonum/floats"
)

// DefaultGamma inflates the effective degrees of freedom in the GCV score.
const DefaultGamma = 1.4

// DefaultLamGrid returns the search grid used by GridSearch: 11 points
// spaced logarithmically between 1e-3 and 1e3.
func DefaultLamGrid() []float64 {
	return floats.LogSpan(make([]float64, 11), 1e-3, 1e3)
}

// Option is a function that configures LinearGAM
type Option func(*LinearGAM)

// WithFitIntercept sets whether to add an unpenalized intercept column
func WithFitIntercept(fit bool) Option {
	return func(g *LinearGAM) {
		g.fitIntercept = fit
	}
}

// WithGamma sets the GCV gamma, values above 1 favor smoother fits
func WithGamma(gamma float64) Option {
	return func(g *LinearGAM) {
		g.gamma = gamma
	}
}

// WithLamGrid sets the candidate penalties tried by GridSearch
func WithLamGrid(lams ...float64) Option {
	return func(g *LinearGAM) {
		g.lamGrid = append([]float64(nil), lams...)
	}
}

// WithLogger sets the logger, nil keeps the default
func WithLogger(l log.Logger) Option {
	return func(g *LinearGAM) {
		if l != nil {
			g.logger = l.With(log.ModelNameKey, modelName)
		}
	}
}
