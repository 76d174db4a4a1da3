package gam

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/YuminosukeSato/scigam/core/model"
	"github.com/YuminosukeSato/scigam/metrics"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const modelName = "LinearGAM"

var (
	_ model.Regressor       = (*LinearGAM)(nil)
	_ model.ParameterGetter = (*LinearGAM)(nil)
)

// Statistics summarizes a fitted LinearGAM.
type Statistics struct {
	NSamples  int
	NFeatures int

	// EDoF is the trace of the hat matrix.
	EDoF float64
	// Scale is the estimated residual variance dev/(n-edof).
	Scale float64

	Deviance     float64
	NullDeviance float64
	// ExplainedDeviance is 1 - Deviance/NullDeviance.
	ExplainedDeviance float64

	GCV float64
	AIC float64

	// Lam holds the penalties of every user term, in term order.
	Lam [][]float64
}

// LinearGAM is a generalized additive model with identity link and
// Gaussian errors, fitted by penalized least squares.
type LinearGAM struct {
	state *model.StateManager

	terms        TermList
	fitIntercept bool
	gamma        float64
	lamGrid      []float64
	logger       log.Logger

	mu       sync.RWMutex
	allTerms TermList // user terms followed by the intercept
	coef     *mat.VecDense
	stats    Statistics
	scores   []SearchScore
}

// NewLinearGAM creates a model over the given terms. The terms are copied,
// so the caller's list is never modified by fitting.
func NewLinearGAM(terms TermList, opts ...Option) *LinearGAM {
	g := &LinearGAM{
		state:        model.NewStateManager(),
		terms:        terms.clone(),
		fitIntercept: true,
		gamma:        DefaultGamma,
		lamGrid:      DefaultLamGrid(),
		logger:       log.GetLogger().With(log.ModelNameKey, modelName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// fitResult is everything a single penalized solve produces.
type fitResult struct {
	terms TermList
	coef  *mat.VecDense
	stats Statistics
}

// Fit estimates the coefficients with the configured penalties.
func (g *LinearGAM) Fit(X, y mat.Matrix) error {
	const op = "LinearGAM.Fit"
	start := time.Now()

	yVec, err := g.validate(op, X, y)
	if err != nil {
		return err
	}

	res, err := g.solve(op, g.terms, X, yVec)
	if err != nil {
		return err
	}
	g.commit(res, nil)

	g.logger.Debug("fit finished",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, res.stats.NSamples,
		log.FeaturesKey, res.stats.NFeatures,
		log.TermsKey, len(g.terms),
		log.CoefficientsKey, res.coef.Len(),
		log.EDoFKey, res.stats.EDoF,
		log.GCVKey, res.stats.GCV,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// validate checks X and y once per public call and returns y as a vector.
func (g *LinearGAM) validate(op string, X, y mat.Matrix) (*mat.VecDense, error) {
	if X == nil || y == nil {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	n, d := X.Dims()
	ny, cy := y.Dims()
	if n == 0 || d == 0 || ny == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if ny != n {
		return nil, errors.NewDimensionError(op, n, ny, 0)
	}
	if cy != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}
	if len(g.terms) == 0 {
		return nil, errors.NewValidationError("terms", "at least one term is required", len(g.terms))
	}
	for _, t := range g.terms {
		if err := t.validate(d); err != nil {
			return nil, err
		}
	}
	if g.gamma <= 0 || math.IsNaN(g.gamma) {
		return nil, errors.NewValidationError("gamma", "must be positive", g.gamma)
	}
	if err := errors.CheckMatrix(op, X, n, d, 0); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix(op, y, n, 1, 0); err != nil {
		return nil, err
	}
	return mat.NewVecDense(n, mat.Col(nil, 0, y)), nil
}

// solve fits one set of terms. The terms are cloned and compiled against X,
// so the same list can be solved concurrently with different penalties.
func (g *LinearGAM) solve(op string, terms TermList, X mat.Matrix, y *mat.VecDense) (*fitResult, error) {
	all := terms.clone()
	if g.fitIntercept {
		all = all.Plus(InterceptTerm{})
	}
	for _, t := range all {
		t.compile(X)
	}

	B := designMatrix(all, X)
	E := penaltyRows(all)
	n, p := B.Dims()
	m, _ := E.Dims()

	// augmented least squares: [B; E]β ≈ [y; 0]
	A := mat.NewDense(n+m, p, nil)
	A.Slice(0, n, 0, p).(*mat.Dense).Copy(B)
	A.Slice(n, n+m, 0, p).(*mat.Dense).Copy(E)
	b := mat.NewVecDense(n+m, nil)
	b.SliceVec(0, n).(*mat.VecDense).CopyVec(y)

	var qr mat.QR
	qr.Factorize(A)
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, b); err != nil {
		return nil, errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}
	if err := errors.CheckNumericalStability(op, beta.RawVector().Data, 0); err != nil {
		return nil, err
	}

	edof, err := effectiveDoF(op, &qr, B)
	if err != nil {
		return nil, err
	}

	var yHat mat.VecDense
	yHat.MulVec(B, beta)

	return &fitResult{
		terms: all,
		coef:  beta,
		stats: g.statistics(terms, all, y, &yHat, edof, X),
	}, nil
}

// effectiveDoF returns tr(B (AᵀA)⁻¹ Bᵀ) = ||B R⁻¹||²_F where A = QR.
func effectiveDoF(op string, qr *mat.QR, B *mat.Dense) (float64, error) {
	_, p := B.Dims()
	var full mat.Dense
	qr.RTo(&full)

	R := mat.NewTriDense(p, mat.Upper, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			R.SetTri(i, j, full.At(i, j))
		}
	}
	var rInv mat.TriDense
	if err := rInv.InverseTri(R); err != nil {
		return 0, errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}

	var M mat.Dense
	M.Mul(B, &rInv)
	f := mat.Norm(&M, 2)
	return f * f, nil
}

func (g *LinearGAM) statistics(user, all TermList, y, yHat *mat.VecDense, edof float64, X mat.Matrix) Statistics {
	n := y.Len()
	_, d := X.Dims()
	yv := y.RawVector().Data
	mean := stat.Mean(yv, nil)

	var dev, nullDev float64
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - yHat.AtVec(i)
		dev += r * r
		c := y.AtVec(i) - mean
		nullDev += c * c
	}

	fn := float64(n)
	scale := dev / (fn - edof)

	gcv := math.Inf(1)
	if denom := fn - g.gamma*edof; denom > 0 {
		gcv = fn * dev / (denom * denom)
	}

	var loglik float64
	sigma := math.Sqrt(scale)
	for i := 0; i < n; i++ {
		loglik += distuv.Normal{Mu: yHat.AtVec(i), Sigma: sigma}.LogProb(y.AtVec(i))
	}

	lams := make([][]float64, len(user))
	for i := range user {
		lams[i] = all[i].Lams()
	}

	return Statistics{
		NSamples:          n,
		NFeatures:         d,
		EDoF:              edof,
		Scale:             scale,
		Deviance:          dev,
		NullDeviance:      nullDev,
		ExplainedDeviance: 1 - dev/nullDev,
		GCV:               gcv,
		AIC:               -2*loglik + 2*(edof+1),
		Lam:               lams,
	}
}

func (g *LinearGAM) commit(res *fitResult, scores []SearchScore) {
	g.mu.Lock()
	g.allTerms = res.terms
	g.coef = res.coef
	g.stats = res.stats
	g.scores = scores
	g.mu.Unlock()

	g.state.SetDimensions(res.stats.NFeatures, res.stats.NSamples)
	g.state.SetFitted()
}

// Predict returns the fitted mean for every row of X as an n×1 matrix.
func (g *LinearGAM) Predict(X mat.Matrix) (mat.Matrix, error) {
	const op = "LinearGAM.Predict"
	if err := g.state.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	if err := g.checkX(op, X); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	B := designMatrix(g.allTerms, X)
	var yHat mat.VecDense
	yHat.MulVec(B, g.coef)

	n, _ := X.Dims()
	return mat.NewDense(n, 1, yHat.RawVector().Data), nil
}

func (g *LinearGAM) checkX(op string, X mat.Matrix) error {
	if X == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	n, d := X.Dims()
	if n == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	nFeatures, _ := g.state.GetDimensions()
	if d != nFeatures {
		return errors.NewDimensionError(op, nFeatures, d, 1)
	}
	return errors.CheckMatrix(op, X, n, d, 0)
}

// Score returns the coefficient of determination of the predictions on X.
func (g *LinearGAM) Score(X, y mat.Matrix) (float64, error) {
	const op = "LinearGAM.Score"
	if err := g.state.RequireFitted(modelName, "Score"); err != nil {
		return 0, err
	}
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := pred.Dims()
	ny, cy := y.Dims()
	if ny != n {
		return 0, errors.NewDimensionError(op, n, ny, 0)
	}
	if cy != 1 {
		return 0, errors.NewValueError(op, "y must be a column vector")
	}
	return metrics.R2Score(
		mat.NewVecDense(n, mat.Col(nil, 0, y)),
		mat.NewVecDense(n, mat.Col(nil, 0, pred)),
	)
}

// IsFitted reports whether Fit or GridSearch has succeeded.
func (g *LinearGAM) IsFitted() bool {
	return g.state.IsFitted()
}

// Coef returns a copy of all coefficients, intercept last.
func (g *LinearGAM) Coef() []float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.coef == nil {
		return nil
	}
	return append([]float64(nil), g.coef.RawVector().Data...)
}

// Intercept returns the intercept coefficient, or 0 when there is none.
func (g *LinearGAM) Intercept() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.coef == nil || !g.fitIntercept {
		return 0
	}
	return g.coef.AtVec(g.coef.Len() - 1)
}

// Terms returns a copy of the user terms. After fitting they carry the
// learned knots and levels and the selected penalties.
func (g *LinearGAM) Terms() TermList {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.allTerms == nil {
		return g.terms.clone()
	}
	return g.allTerms[:len(g.terms)].clone()
}

// Statistics returns the summary of the last successful fit.
func (g *LinearGAM) Statistics() (Statistics, error) {
	if err := g.state.RequireFitted(modelName, "Statistics"); err != nil {
		return Statistics{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.stats
	s.Lam = make([][]float64, len(g.stats.Lam))
	for i, l := range g.stats.Lam {
		s.Lam[i] = append([]float64(nil), l...)
	}
	return s, nil
}

// GetParams returns the model hyperparameters.
func (g *LinearGAM) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"terms":         g.terms.String(),
		"fit_intercept": g.fitIntercept,
		"gamma":         g.gamma,
		"lam_grid":      append([]float64(nil), g.lamGrid...),
	}
}

// PartialDependence returns the contribution of user term `term` to the
// prediction of every row of X.
func (g *LinearGAM) PartialDependence(term int, X mat.Matrix) ([]float64, error) {
	const op = "LinearGAM.PartialDependence"
	if err := g.state.RequireFitted(modelName, "PartialDependence"); err != nil {
		return nil, err
	}
	if err := g.checkTerm(term); err != nil {
		return nil, err
	}
	if err := g.checkX(op, X); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	offsets, _ := coefOffsets(g.allTerms)
	t := g.allTerms[term]
	B := designMatrix(TermList{t}, X)
	coef := g.coef.SliceVec(offsets[term], offsets[term]+t.nCoefs())

	var pd mat.VecDense
	pd.MulVec(B, coef)
	return pd.RawVector().Data, nil
}

// GenerateXGrid builds a matrix whose rows sweep the training range of
// user term `term`; all other columns are zero. Spline terms get n evenly
// spaced points, tensor terms the n×n mesh and factor terms one row per level.
func (g *LinearGAM) GenerateXGrid(term, n int) (*mat.Dense, error) {
	if err := g.state.RequireFitted(modelName, "GenerateXGrid"); err != nil {
		return nil, err
	}
	if err := g.checkTerm(term); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, errors.NewValidationError("n", "must be at least 2", n)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	t := g.allTerms[term]
	cols := t.gridColumns(n)
	rows := len(cols[0])
	nFeatures, _ := g.state.GetDimensions()
	grid := mat.NewDense(rows, nFeatures, nil)
	for k, f := range t.Features() {
		grid.SetCol(f, cols[k])
	}
	return grid, nil
}

func (g *LinearGAM) checkTerm(term int) error {
	if term < 0 || term >= len(g.terms) {
		return errors.NewValidationError("term", fmt.Sprintf("index out of range [0, %d)", len(g.terms)), term)
	}
	return nil
}
