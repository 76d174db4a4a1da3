package gam

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/scigam/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Term defaults.
const (
	DefaultNSplines       = 20
	DefaultTensorNSplines = 10
	DefaultSplineOrder    = 3
	DefaultLam            = 0.6
)

// TermKind identifies the type of an additive term.
type TermKind int

const (
	KindSpline TermKind = iota
	KindFactor
	KindTensor
	KindIntercept
)

func (k TermKind) String() string {
	switch k {
	case KindSpline:
		return "spline"
	case KindFactor:
		return "factor"
	case KindTensor:
		return "tensor"
	case KindIntercept:
		return "intercept"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// Term is one additive component of a GAM. Terms address features by
// column index. The set of implementations is closed: SplineTerm,
// FactorTerm, TensorTerm and InterceptTerm.
type Term interface {
	Kind() TermKind
	// Features returns the column indices the term reads.
	Features() []int
	// Lams returns the smoothing penalty per penalized dimension.
	Lams() []float64
	String() string

	validate(nFeatures int) error
	// compile learns data-dependent state (edge knots, levels) from X.
	compile(X mat.Matrix)
	// nCoefs is only meaningful after compile.
	nCoefs() int
	// basisRow writes the basis of row i of X into dst, len(dst) == nCoefs().
	basisRow(X mat.Matrix, i int, dst []float64)
	// penalty returns the square-root penalty rows E with EᵀE = P, or nil.
	penalty() *mat.Dense
	clone() Term
	withLam(lam float64) Term
	// gridColumns fills the term's feature columns of an evaluation grid.
	gridColumns(n int) [][]float64
}

// TermOption configures a term.
type TermOption func(*termConfig)

type termConfig struct {
	nSplines    int
	splineOrder int
	lam         float64
}

// WithNSplines sets the number of basis functions of a spline term, or of
// each marginal of a tensor term.
func WithNSplines(n int) TermOption {
	return func(c *termConfig) { c.nSplines = n }
}

// WithSplineOrder sets the polynomial degree of the B-spline basis.
func WithSplineOrder(k int) TermOption {
	return func(c *termConfig) { c.splineOrder = k }
}

// WithLam sets the smoothing penalty strength.
func WithLam(lam float64) TermOption {
	return func(c *termConfig) { c.lam = lam }
}

func newTermConfig(nSplines int, opts []TermOption) termConfig {
	c := termConfig{nSplines: nSplines, splineOrder: DefaultSplineOrder, lam: DefaultLam}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func validateLam(lam float64) error {
	if lam < 0 || math.IsNaN(lam) || math.IsInf(lam, 0) {
		return errors.NewValidationError("lam", "must be a finite non-negative number", lam)
	}
	return nil
}

func validateFeature(feature, nFeatures int) error {
	if feature < 0 || feature >= nFeatures {
		return errors.NewValidationError("feature", fmt.Sprintf("index out of range [0, %d)", nFeatures), feature)
	}
	return nil
}

// ===========================================================================
// spline
// ===========================================================================

// SplineTerm is a penalized B-spline smooth of one continuous feature.
type SplineTerm struct {
	feature     int
	nSplines    int
	splineOrder int
	lam         float64

	lo, hi float64
}

// S returns a smooth term over feature.
func S(feature int, opts ...TermOption) *SplineTerm {
	c := newTermConfig(DefaultNSplines, opts)
	return &SplineTerm{feature: feature, nSplines: c.nSplines, splineOrder: c.splineOrder, lam: c.lam}
}

func (t *SplineTerm) Kind() TermKind  { return KindSpline }
func (t *SplineTerm) Features() []int { return []int{t.feature} }
func (t *SplineTerm) Lams() []float64 { return []float64{t.lam} }
func (t *SplineTerm) String() string  { return fmt.Sprintf("s(%d)", t.feature) }
func (t *SplineTerm) nCoefs() int     { return t.nSplines }

func (t *SplineTerm) clone() Term {
	c := *t
	return &c
}

// NSplines returns the number of basis functions.
func (t *SplineTerm) NSplines() int { return t.nSplines }

// SplineOrder returns the polynomial degree of the basis.
func (t *SplineTerm) SplineOrder() int { return t.splineOrder }

// EdgeKnots returns the feature range learned during fitting.
func (t *SplineTerm) EdgeKnots() [2]float64 { return [2]float64{t.lo, t.hi} }

func (t *SplineTerm) withLam(lam float64) Term {
	c := *t
	c.lam = lam
	return &c
}

func (t *SplineTerm) validate(nFeatures int) error {
	if err := validateFeature(t.feature, nFeatures); err != nil {
		return err
	}
	if t.splineOrder < 0 {
		return errors.NewValidationError("spline_order", "must be non-negative", t.splineOrder)
	}
	if t.nSplines <= t.splineOrder {
		return errors.NewValidationError("n_splines", "must be greater than spline_order", t.nSplines)
	}
	return validateLam(t.lam)
}

func (t *SplineTerm) compile(X mat.Matrix) {
	col := mat.Col(nil, t.feature, X)
	t.lo, t.hi = floats.Min(col), floats.Max(col)
	if t.hi == t.lo {
		t.hi = t.lo + 1
	}
}

func (t *SplineTerm) basisRow(X mat.Matrix, i int, dst []float64) {
	bsplineRow(X.At(i, t.feature), t.lo, t.hi, t.nSplines, t.splineOrder, dst)
}

func (t *SplineTerm) penalty() *mat.Dense {
	if t.lam == 0 {
		return nil
	}
	d := differenceMatrix(t.nSplines, min(2, t.nSplines-1))
	d.Scale(math.Sqrt(t.lam), d)
	return d
}

func (t *SplineTerm) gridColumns(n int) [][]float64 {
	return [][]float64{floats.Span(make([]float64, n), t.lo, t.hi)}
}

// ===========================================================================
// factor
// ===========================================================================

// FactorTerm treats a feature as categorical: one coefficient per distinct
// value seen during fitting, with a ridge penalty.
type FactorTerm struct {
	feature int
	lam     float64

	levels []float64
}

// F returns a factor term over feature. Only WithLam has an effect.
func F(feature int, opts ...TermOption) *FactorTerm {
	c := newTermConfig(0, opts)
	return &FactorTerm{feature: feature, lam: c.lam}
}

func (t *FactorTerm) Kind() TermKind  { return KindFactor }
func (t *FactorTerm) Features() []int { return []int{t.feature} }
func (t *FactorTerm) Lams() []float64 { return []float64{t.lam} }
func (t *FactorTerm) String() string  { return fmt.Sprintf("f(%d)", t.feature) }
func (t *FactorTerm) nCoefs() int     { return len(t.levels) }

// Levels returns the distinct values learned during fitting, ascending.
func (t *FactorTerm) Levels() []float64 { return append([]float64(nil), t.levels...) }

func (t *FactorTerm) clone() Term {
	c := *t
	c.levels = append([]float64(nil), t.levels...)
	return &c
}

func (t *FactorTerm) withLam(lam float64) Term {
	c := t.clone().(*FactorTerm)
	c.lam = lam
	return c
}

func (t *FactorTerm) validate(nFeatures int) error {
	if err := validateFeature(t.feature, nFeatures); err != nil {
		return err
	}
	return validateLam(t.lam)
}

func (t *FactorTerm) compile(X mat.Matrix) {
	col := mat.Col(nil, t.feature, X)
	sort.Float64s(col)
	var levels []float64
	for i, v := range col {
		if i == 0 || v != col[i-1] {
			levels = append(levels, v)
		}
	}
	t.levels = levels
}

func (t *FactorTerm) basisRow(X mat.Matrix, i int, dst []float64) {
	for k := range dst {
		dst[k] = 0
	}
	v := X.At(i, t.feature)
	if k := sort.SearchFloat64s(t.levels, v); k < len(t.levels) && t.levels[k] == v {
		dst[k] = 1
	}
}

func (t *FactorTerm) penalty() *mat.Dense {
	n := len(t.levels)
	if t.lam == 0 || n == 0 {
		return nil
	}
	p := mat.NewDense(n, n, nil)
	s := math.Sqrt(t.lam)
	for k := 0; k < n; k++ {
		p.Set(k, k, s)
	}
	return p
}

func (t *FactorTerm) gridColumns(int) [][]float64 {
	return [][]float64{t.Levels()}
}

// ===========================================================================
// tensor
// ===========================================================================

// TensorTerm is a smooth interaction surface over two features, built from
// the row-wise Kronecker product of two marginal spline bases.
type TensorTerm struct {
	marginals [2]*SplineTerm
}

// TE returns a tensor-product term over features i and j. Options apply to
// both marginals; the default marginal size is DefaultTensorNSplines.
func TE(i, j int, opts ...TermOption) *TensorTerm {
	opts = append([]TermOption{WithNSplines(DefaultTensorNSplines)}, opts...)
	return &TensorTerm{marginals: [2]*SplineTerm{S(i, opts...), S(j, opts...)}}
}

func (t *TensorTerm) Kind() TermKind { return KindTensor }

func (t *TensorTerm) Features() []int {
	return []int{t.marginals[0].feature, t.marginals[1].feature}
}

func (t *TensorTerm) Lams() []float64 {
	return []float64{t.marginals[0].lam, t.marginals[1].lam}
}

func (t *TensorTerm) String() string {
	return fmt.Sprintf("te(%d, %d)", t.marginals[0].feature, t.marginals[1].feature)
}

// Marginals returns the two marginal smooths.
func (t *TensorTerm) Marginals() [2]*SplineTerm {
	return [2]*SplineTerm{t.marginals[0].clone().(*SplineTerm), t.marginals[1].clone().(*SplineTerm)}
}

func (t *TensorTerm) nCoefs() int {
	return t.marginals[0].nSplines * t.marginals[1].nSplines
}

func (t *TensorTerm) clone() Term {
	return &TensorTerm{marginals: t.Marginals()}
}

func (t *TensorTerm) withLam(lam float64) Term {
	return &TensorTerm{marginals: [2]*SplineTerm{
		t.marginals[0].withLam(lam).(*SplineTerm),
		t.marginals[1].withLam(lam).(*SplineTerm),
	}}
}

func (t *TensorTerm) validate(nFeatures int) error {
	for _, m := range t.marginals {
		if err := m.validate(nFeatures); err != nil {
			return err
		}
	}
	return nil
}

func (t *TensorTerm) compile(X mat.Matrix) {
	t.marginals[0].compile(X)
	t.marginals[1].compile(X)
}

func (t *TensorTerm) basisRow(X mat.Matrix, i int, dst []float64) {
	a, b := t.marginals[0], t.marginals[1]
	ba := make([]float64, a.nSplines)
	bb := make([]float64, b.nSplines)
	a.basisRow(X, i, ba)
	b.basisRow(X, i, bb)
	for p, va := range ba {
		row := dst[p*b.nSplines : (p+1)*b.nSplines]
		for q, vb := range bb {
			row[q] = va * vb
		}
	}
}

// penalty stacks sqrt(lam_a)·(D_a ⊗ I) over sqrt(lam_b)·(I ⊗ D_b).
func (t *TensorTerm) penalty() *mat.Dense {
	a, b := t.marginals[0], t.marginals[1]
	var blocks []*mat.Dense
	if pa := a.penalty(); pa != nil {
		var k mat.Dense
		k.Kronecker(pa, identity(b.nSplines))
		blocks = append(blocks, &k)
	}
	if pb := b.penalty(); pb != nil {
		var k mat.Dense
		k.Kronecker(identity(a.nSplines), pb)
		blocks = append(blocks, &k)
	}
	return stackRows(blocks, t.nCoefs())
}

func (t *TensorTerm) gridColumns(n int) [][]float64 {
	xa := t.marginals[0].gridColumns(n)[0]
	xb := t.marginals[1].gridColumns(n)[0]
	ca := make([]float64, 0, n*n)
	cb := make([]float64, 0, n*n)
	for _, va := range xa {
		for _, vb := range xb {
			ca = append(ca, va)
			cb = append(cb, vb)
		}
	}
	return [][]float64{ca, cb}
}

// ===========================================================================
// intercept
// ===========================================================================

// InterceptTerm is the unpenalized constant column added by LinearGAM.
type InterceptTerm struct{}

func (InterceptTerm) Kind() TermKind                            { return KindIntercept }
func (InterceptTerm) Features() []int                           { return nil }
func (InterceptTerm) Lams() []float64                           { return nil }
func (InterceptTerm) String() string                            { return "intercept" }
func (InterceptTerm) validate(int) error                        { return nil }
func (InterceptTerm) compile(mat.Matrix)                        {}
func (InterceptTerm) nCoefs() int                               { return 1 }
func (InterceptTerm) basisRow(_ mat.Matrix, _ int, d []float64) { d[0] = 1 }
func (InterceptTerm) penalty() *mat.Dense                       { return nil }
func (InterceptTerm) clone() Term                               { return InterceptTerm{} }
func (InterceptTerm) withLam(float64) Term                      { return InterceptTerm{} }
func (InterceptTerm) gridColumns(int) [][]float64               { return nil }

// ===========================================================================
// composition
// ===========================================================================

// TermList is an ordered additive combination of terms.
type TermList []Term

// Terms starts a TermList from the given terms.
func Terms(terms ...Term) TermList {
	return TermList(nil).Plus(terms...)
}

// Plus returns a new list with terms appended, leaving tl unchanged.
func (tl TermList) Plus(terms ...Term) TermList {
	out := make(TermList, 0, len(tl)+len(terms))
	out = append(out, tl...)
	return append(out, terms...)
}

// String renders the list as "s(0) + f(1) + te(0, 1)".
func (tl TermList) String() string {
	parts := make([]string, len(tl))
	for i, t := range tl {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

func (tl TermList) clone() TermList {
	out := make(TermList, len(tl))
	for i, t := range tl {
		out[i] = t.clone()
	}
	return out
}
