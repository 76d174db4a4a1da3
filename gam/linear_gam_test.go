package gam_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/pkg/errors"
)

func sineData(n int, noise float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := floats.Span(make([]float64, n), 0, 2*math.Pi)
	y := make([]float64, n)
	for i, v := range x {
		y[i] = math.Sin(v) + noise*rng.NormFloat64()
	}
	return mat.NewDense(n, 1, x), mat.NewDense(n, 1, y)
}

// mixedData has a smooth effect in column 0 and a three-level factor in column 1.
func mixedData(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(3, 4))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	shift := []float64{1, 5, -2}
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		level := i % 3
		X.Set(i, 0, x)
		X.Set(i, 1, float64(level))
		y.Set(i, 0, math.Cos(3*x)+shift[level]+0.05*rng.NormFloat64())
	}
	return X, y
}

func TestLinearGAMFitsSmoothFunction(t *testing.T) {
	X, y := sineData(200, 0.05)

	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	require.NoError(t, g.Fit(X, y))
	assert.True(t, g.IsFitted())

	r2, err := g.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.95)

	stats, err := g.Statistics()
	require.NoError(t, err)
	assert.Equal(t, 200, stats.NSamples)
	assert.Equal(t, 1, stats.NFeatures)
	assert.Greater(t, stats.EDoF, 1.0)
	assert.Less(t, stats.EDoF, 21.0)
	assert.InDelta(t, r2, stats.ExplainedDeviance, 1e-9)
	assert.Equal(t, [][]float64{{gam.DefaultLam}}, stats.Lam)
	assert.False(t, math.IsNaN(stats.AIC))
	assert.Len(t, g.Coef(), 21)
}

func TestLinearGAMFactorRecoversGroupMeans(t *testing.T) {
	n := 150
	rng := rand.New(rand.NewPCG(5, 6))
	means := []float64{1, 5, -2}
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%3))
		y.Set(i, 0, means[i%3]+0.1*rng.NormFloat64())
	}

	g := gam.NewLinearGAM(gam.Terms(gam.F(0)))
	require.NoError(t, g.Fit(X, y))

	pred, err := g.Predict(mat.NewDense(3, 1, []float64{0, 1, 2}))
	require.NoError(t, err)
	for level, want := range means {
		assert.InDelta(t, want, pred.At(level, 0), 0.2, "level %d", level)
	}

	levels := g.Terms()[0].(*gam.FactorTerm).Levels()
	assert.Equal(t, []float64{0, 1, 2}, levels)
}

func TestLinearGAMTensorInteraction(t *testing.T) {
	side := 20
	X := mat.NewDense(side*side, 2, nil)
	y := mat.NewDense(side*side, 1, nil)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			a, b := float64(i)/float64(side-1), float64(j)/float64(side-1)
			r := i*side + j
			X.Set(r, 0, a)
			X.Set(r, 1, b)
			y.Set(r, 0, a*b+math.Sin(3*a))
		}
	}

	terms := gam.Terms(gam.S(0), gam.S(1)).Plus(gam.TE(0, 1))
	g := gam.NewLinearGAM(terms)
	require.NoError(t, g.Fit(X, y))

	r2, err := g.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.95)
	assert.Len(t, g.Coef(), 20+20+100+1)
}

func TestPartialDependenceSumsToPrediction(t *testing.T) {
	X, y := mixedData(90)

	g := gam.NewLinearGAM(gam.Terms(gam.S(0), gam.F(1)))
	require.NoError(t, g.Fit(X, y))

	pred, err := g.Predict(X)
	require.NoError(t, err)
	pd0, err := g.PartialDependence(0, X)
	require.NoError(t, err)
	pd1, err := g.PartialDependence(1, X)
	require.NoError(t, err)

	for i := range pd0 {
		assert.InDelta(t, pred.At(i, 0), pd0[i]+pd1[i]+g.Intercept(), 1e-9)
	}

	_, err = g.PartialDependence(2, X)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestGenerateXGrid(t *testing.T) {
	X, y := mixedData(60)
	X2 := mat.NewDense(60, 3, nil)
	for i := 0; i < 60; i++ {
		X2.Set(i, 0, X.At(i, 0))
		X2.Set(i, 1, X.At(i, 1))
		X2.Set(i, 2, float64(i))
	}

	g := gam.NewLinearGAM(gam.Terms(gam.S(0), gam.F(1), gam.TE(0, 2)))
	require.NoError(t, g.Fit(X2, y))

	grid, err := g.GenerateXGrid(0, 25)
	require.NoError(t, err)
	r, c := grid.Dims()
	assert.Equal(t, 25, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.0, grid.At(0, 0))
	assert.InDelta(t, 1.0, grid.At(24, 0), 1e-12)
	assert.Equal(t, 0.0, grid.At(10, 1))

	grid, err = g.GenerateXGrid(1, 25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, mat.Col(nil, 1, grid))

	grid, err = g.GenerateXGrid(2, 5)
	require.NoError(t, err)
	r, _ = grid.Dims()
	assert.Equal(t, 25, r)
	assert.Equal(t, 59.0, grid.At(24, 2))

	// the grid is accepted by PartialDependence
	_, err = g.PartialDependence(2, grid)
	assert.NoError(t, err)

	_, err = g.GenerateXGrid(0, 1)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestGridSearchSelectsMinimumGCV(t *testing.T) {
	X, y := sineData(120, 0.2)

	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	require.NoError(t, g.GridSearch(X, y))

	scores := g.SearchScores()
	require.Len(t, scores, 11)
	assert.InDelta(t, 1e-3, scores[0].Lam, 1e-12)
	assert.InDelta(t, 1e3, scores[10].Lam, 1e-9)

	best := 0
	for i, s := range scores {
		require.NoError(t, s.Err)
		if s.GCV < scores[best].GCV {
			best = i
		}
	}

	stats, err := g.Statistics()
	require.NoError(t, err)
	assert.Equal(t, scores[best].GCV, stats.GCV)
	assert.Equal(t, scores[best].Lam, stats.Lam[0][0])

	// a plain fit clears the search history
	require.NoError(t, g.Fit(X, y))
	assert.Nil(t, g.SearchScores())
}

func TestGridSearchCustomGrid(t *testing.T) {
	X, y := sineData(80, 0.1)

	g := gam.NewLinearGAM(gam.Terms(gam.S(0), gam.S(0, gam.WithNSplines(5))), gam.WithLamGrid(0.5, 50))
	require.NoError(t, g.GridSearch(X, y))
	require.Len(t, g.SearchScores(), 2)

	stats, err := g.Statistics()
	require.NoError(t, err)
	// the same lam is applied to every term
	assert.Equal(t, stats.Lam[0], stats.Lam[1])

	for _, grid := range [][]float64{{}, {1, -1}} {
		g := gam.NewLinearGAM(gam.Terms(gam.S(0)), gam.WithLamGrid(grid...))
		err := g.GridSearch(X, y)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "grid %v: %v", grid, err)
		assert.False(t, g.IsFitted())
	}
}

func TestWithoutIntercept(t *testing.T) {
	X, y := sineData(50, 0)

	g := gam.NewLinearGAM(gam.Terms(gam.S(0)), gam.WithFitIntercept(false))
	require.NoError(t, g.Fit(X, y))
	assert.Len(t, g.Coef(), 20)
	assert.Zero(t, g.Intercept())
	assert.Equal(t, false, g.GetParams()["fit_intercept"])
}

func TestFitDoesNotMutateCallerTerms(t *testing.T) {
	X, y := sineData(40, 0.1)
	s := gam.S(0)
	terms := gam.Terms(s)

	g := gam.NewLinearGAM(terms)
	require.NoError(t, g.GridSearch(X, y))

	assert.Equal(t, [2]float64{0, 0}, s.EdgeKnots())
	assert.Equal(t, []float64{gam.DefaultLam}, s.Lams())

	fitted := g.Terms()[0].(*gam.SplineTerm)
	assert.InDelta(t, 2*math.Pi, fitted.EdgeKnots()[1], 1e-12)
}

func TestLinearGAMNotFitted(t *testing.T) {
	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	X := mat.NewDense(2, 1, []float64{1, 2})

	_, err := g.Predict(X)
	var nfErr *errors.NotFittedError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "Predict", nfErr.Method)

	_, err = g.Statistics()
	assert.True(t, errors.As(err, &nfErr))
	_, err = g.PartialDependence(0, X)
	assert.True(t, errors.As(err, &nfErr))
	_, err = g.Score(X, X)
	assert.True(t, errors.As(err, &nfErr))
}

func TestLinearGAMFitValidation(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	nan := mat.DenseCopyOf(X)
	nan.Set(2, 1, math.NaN())

	tests := []struct {
		name  string
		terms gam.TermList
		X, y  mat.Matrix
		check func(t *testing.T, err error)
	}{
		{
			name:  "no terms",
			terms: gam.Terms(),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var e *errors.ValidationError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "terms", e.ParamName)
			},
		},
		{
			name:  "feature out of range",
			terms: gam.Terms(gam.S(2)),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var e *errors.ValidationError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "feature", e.ParamName)
			},
		},
		{
			name:  "too few splines",
			terms: gam.Terms(gam.S(0, gam.WithNSplines(3))),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var e *errors.ValidationError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "n_splines", e.ParamName)
			},
		},
		{
			name:  "negative lam",
			terms: gam.Terms(gam.F(0, gam.WithLam(-1))),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var e *errors.ValidationError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, "lam", e.ParamName)
			},
		},
		{
			name:  "row mismatch",
			terms: gam.Terms(gam.S(0)),
			X:     X,
			y:     mat.NewDense(3, 1, []float64{1, 2, 3}),
			check: func(t *testing.T, err error) {
				var e *errors.DimensionError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, 4, e.Expected)
				assert.Equal(t, 3, e.Got)
			},
		},
		{
			name:  "y not a column",
			terms: gam.Terms(gam.S(0)),
			X:     X,
			y:     X,
			check: func(t *testing.T, err error) {
				var e *errors.ValueError
				assert.True(t, errors.As(err, &e))
			},
		},
		{
			name:  "non-finite input",
			terms: gam.Terms(gam.S(0)),
			X:     nan,
			y:     y,
			check: func(t *testing.T, err error) {
				var e *errors.NumericalInstabilityError
				assert.True(t, errors.As(err, &e))
			},
		},
		{
			name:  "empty",
			terms: gam.Terms(gam.S(0)),
			X:     nil,
			y:     y,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gam.NewLinearGAM(tt.terms)
			err := g.Fit(tt.X, tt.y)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, g.IsFitted())
		})
	}
}

func TestPredictFeatureMismatch(t *testing.T) {
	X, y := sineData(30, 0.1)
	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	require.NoError(t, g.Fit(X, y))

	_, err := g.Predict(mat.NewDense(2, 2, nil))
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)
}

func TestPredictClampsOutOfRange(t *testing.T) {
	X, y := sineData(60, 0)
	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	require.NoError(t, g.Fit(X, y))

	pred, err := g.Predict(mat.NewDense(2, 1, []float64{2 * math.Pi, 100}))
	require.NoError(t, err)
	assert.InDelta(t, pred.At(0, 0), pred.At(1, 0), 1e-12)
}
