// Package regression fits generalized additive models to tabular data,
// choosing the term type of every feature from its name, and reports
// in-sample regression metrics.
package regression

import (
	"strings"
	"time"

	"github.com/YuminosukeSato/scigam/frame"
	"github.com/YuminosukeSato/scigam/gam"
	"github.com/YuminosukeSato/scigam/metrics"
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// ErrNoNumericFeatures is returned by SimpleGAM when no numeric column is left.
var ErrNoNumericFeatures = errors.New("no numeric features")

// CategoricalPrefixes mark dummy-encoded columns that get a factor term.
var CategoricalPrefixes = []string{"sector_", "region_"}

// InteractionPair names two features that get a tensor-product term.
type InteractionPair struct {
	A, B string
}

// Result is the outcome of SimpleGAM. Slices are owned by the Result.
type Result struct {
	Model *gam.LinearGAM
	// XCols are the numeric feature names, in the column order used for fitting.
	XCols []string

	YTrue     []float64
	YPred     []float64
	Residuals []float64

	R2         float64
	AdjustedR2 float64
	RMSE       float64
	MAE        float64

	NFeatures int
}

func isCategorical(name string) bool {
	for _, p := range CategoricalPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// SplineTerms builds one term per feature, in order, followed by one tensor
// term per pair whose names are both present. Features with a categorical
// prefix get a factor term, all others a smooth. Pairs naming an unknown
// feature are skipped; a name listed twice resolves to its last position.
func SplineTerms(features []string, pairs ...InteractionPair) gam.TermList {
	var terms gam.TermList
	index := make(map[string]int, len(features))
	for i, name := range features {
		index[name] = i
		if isCategorical(name) {
			terms = terms.Plus(gam.F(i))
		} else {
			terms = terms.Plus(gam.S(i))
		}
	}

	for _, p := range pairs {
		i, okA := index[p.A]
		j, okB := index[p.B]
		if okA && okB {
			terms = terms.Plus(gam.TE(i, j))
		}
	}
	return terms
}

// Option configures SimpleGAM.
type Option func(*config)

type config struct {
	gridSearch bool
	pairs      []InteractionPair
	modelOpts  []gam.Option
	logger     log.Logger
}

// WithGridSearch selects between GridSearch (true, the default) and a
// plain Fit with default penalties.
func WithGridSearch(enabled bool) Option {
	return func(c *config) { c.gridSearch = enabled }
}

// WithInteractions adds tensor-product terms for the given feature pairs.
func WithInteractions(pairs ...InteractionPair) Option {
	return func(c *config) { c.pairs = append(c.pairs, pairs...) }
}

// WithModelOptions passes options through to gam.NewLinearGAM.
func WithModelOptions(opts ...gam.Option) Option {
	return func(c *config) { c.modelOpts = append(c.modelOpts, opts...) }
}

// WithLogger sets the logger used by SimpleGAM and the model it builds.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// SimpleGAM fits a LinearGAM on the numeric columns of X and evaluates it
// on the same rows. Non-numeric columns are dropped silently. Apart from
// ErrNoNumericFeatures, errors come unchanged from the gam and metrics
// packages. X and y are not modified.
func SimpleGAM(X *frame.Frame, y []float64, opts ...Option) (*Result, error) {
	const op = "regression.SimpleGAM"
	start := time.Now()

	cfg := config{gridSearch: true, logger: log.GetLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With(log.ComponentKey, "regression", log.OperationKey, log.OperationEvaluate)

	if X == nil {
		return nil, errors.Wrap(ErrNoNumericFeatures, op)
	}
	numeric := X.SelectNumeric()
	if numeric.NCols() == 0 {
		return nil, errors.Wrap(ErrNoNumericFeatures, op)
	}
	if dropped := X.NCols() - numeric.NCols(); dropped > 0 {
		logger.Debug("dropped non-numeric columns", log.DroppedColumnsKey, dropped)
	}

	cols := numeric.Columns()
	terms := SplineTerms(cols, cfg.pairs...)

	Xm, err := numeric.Matrix()
	if err != nil {
		return nil, err
	}
	if len(y) == 0 {
		return nil, errors.NewModelError(op, "empty target", errors.ErrEmptyData)
	}
	yTrue := append([]float64(nil), y...)
	ym := mat.NewDense(len(yTrue), 1, append([]float64(nil), yTrue...))

	model := gam.NewLinearGAM(terms, append([]gam.Option{gam.WithLogger(cfg.logger)}, cfg.modelOpts...)...)
	if cfg.gridSearch {
		err = model.GridSearch(Xm, ym)
	} else {
		err = model.Fit(Xm, ym)
	}
	if err != nil {
		return nil, err
	}

	predM, err := model.Predict(Xm)
	if err != nil {
		return nil, err
	}
	n := len(yTrue)
	yPred := mat.Col(nil, 0, predM)
	residuals := make([]float64, n)
	for i := range yTrue {
		residuals[i] = yTrue[i] - yPred[i]
	}

	trueVec := mat.NewVecDense(n, append([]float64(nil), yTrue...))
	predVec := mat.NewVecDense(n, append([]float64(nil), yPred...))
	r2, err := metrics.R2Score(trueVec, predVec)
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.RMSE(trueVec, predVec)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(trueVec, predVec)
	if err != nil {
		return nil, err
	}
	k := len(cols)

	res := &Result{
		Model:      model,
		XCols:      cols,
		YTrue:      yTrue,
		YPred:      yPred,
		Residuals:  residuals,
		R2:         r2,
		AdjustedR2: metrics.AdjustedR2(r2, n, k),
		RMSE:       rmse,
		MAE:        mae,
		NFeatures:  k,
	}

	logger.Debug("evaluation finished",
		log.PhaseKey, log.PhaseEvaluation,
		log.SamplesKey, n,
		log.FeaturesKey, k,
		log.TermsKey, len(terms),
		log.R2ScoreKey, res.R2,
		log.AdjR2ScoreKey, res.AdjustedR2,
		log.RMSEKey, res.RMSE,
		log.MAEKey, res.MAE,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}
