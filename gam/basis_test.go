package gam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestBSplineRowPartitionOfUnity(t *testing.T) {
	tests := []struct {
		name     string
		nSplines int
		order    int
	}{
		{"cubic", 20, 3},
		{"quadratic", 8, 2},
		{"linear", 5, 1},
		{"constant", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make([]float64, tt.nSplines)
			for _, x := range []float64{-3, -1, -0.999, 0, 0.37, 1.5, 2.999, 3, 10} {
				bsplineRow(x, -1, 3, tt.nSplines, tt.order, row)
				assert.InDelta(t, 1.0, floats.Sum(row), 1e-12, "x=%v", x)
				for k, v := range row {
					assert.GreaterOrEqual(t, v, 0.0, "x=%v basis %d", x, k)
				}
			}
		})
	}
}

func TestBSplineRowLocalSupport(t *testing.T) {
	row := make([]float64, 20)
	bsplineRow(0, 0, 1, 20, 3, row)

	// at the left edge only the first order+1 functions can be non-zero
	for k := 4; k < 20; k++ {
		assert.Zero(t, row[k])
	}

	// values beyond the range are clamped to the edge
	clamped := make([]float64, 20)
	bsplineRow(-5, 0, 1, 20, 3, clamped)
	assert.Equal(t, row, clamped)
}

func TestDifferenceMatrix(t *testing.T) {
	d := differenceMatrix(5, 2)
	want := mat.NewDense(3, 5, []float64{
		1, -2, 1, 0, 0,
		0, 1, -2, 1, 0,
		0, 0, 1, -2, 1,
	})
	assert.True(t, mat.Equal(want, d))

	d1 := differenceMatrix(3, 1)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, []float64{-1, 1, 0, 0, -1, 1}), d1))
}

func TestFactorBasisIsOneHot(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{3, 1, 3, 2, 1})
	f := F(0)
	f.compile(X)
	require.Equal(t, []float64{1, 2, 3}, f.Levels())

	row := make([]float64, f.nCoefs())
	for i := 0; i < 5; i++ {
		f.basisRow(X, i, row)
		assert.Equal(t, 1.0, floats.Sum(row))
		assert.Equal(t, 1.0, row[int(X.At(i, 0))-1])
	}

	unseen := mat.NewDense(1, 1, []float64{7})
	f.basisRow(unseen, 0, row)
	assert.Equal(t, []float64{0, 0, 0}, row)
}

func TestTensorBasisAndPenaltyShape(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 2,
		0.5, 1,
		0.2, 1.7,
	})
	te := TE(0, 1)
	te.compile(X)
	require.Equal(t, 100, te.nCoefs())

	row := make([]float64, te.nCoefs())
	te.basisRow(X, 2, row)
	assert.InDelta(t, 1.0, floats.Sum(row), 1e-12)

	// each marginal contributes (10 - 2) × 10 difference rows
	r, c := te.penalty().Dims()
	assert.Equal(t, 160, r)
	assert.Equal(t, 100, c)

	assert.Nil(t, TE(0, 1, WithLam(0)).penalty())
}

func TestPenaltyRowsLayout(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{0, 1, 1, 2, 2, 1})
	terms := TermList{S(0, WithNSplines(6)), F(1, WithLam(4)), InterceptTerm{}}
	for _, tt := range terms {
		tt.compile(X)
	}

	E := penaltyRows(terms)
	r, c := E.Dims()
	// 4 difference rows, 2 factor rows and one ridge row per coefficient
	assert.Equal(t, 4+2+9, r)
	assert.Equal(t, 9, c)

	// factor block sits in columns 6..7 scaled by sqrt(lam)
	assert.Equal(t, 2.0, E.At(4, 6))
	assert.Equal(t, 2.0, E.At(5, 7))

	// the intercept column is only touched by its ridge row
	for i := 0; i < r-1; i++ {
		assert.Zero(t, E.At(i, 8))
	}
}

func TestDesignMatrixParallelMatchesSequential(t *testing.T) {
	n := parallelThreshold + 250
	data := make([]float64, n)
	floats.Span(data, 0, 10)
	X := mat.NewDense(n, 1, data)

	terms := TermList{S(0), InterceptTerm{}}
	for _, tt := range terms {
		tt.compile(X)
	}
	B := designMatrix(terms, X)

	row := make([]float64, 20)
	for _, i := range []int{0, 999, 1000, n - 1} {
		terms[0].basisRow(X, i, row)
		assert.Equal(t, row, B.RawRowView(i)[:20])
		assert.Equal(t, 1.0, B.At(i, 20))
	}
}
