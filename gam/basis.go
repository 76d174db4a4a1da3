package gam

import (
	"math"

	"github.com/YuminosukeSato/scigam/core/parallel"
	"gonum.org/v1/gonum/mat"
)

// rows above which the design matrix is built in parallel
const parallelThreshold = 1000

// ridge added to the diagonal of the penalty so the system stays solvable
// when smooths overlap the intercept
var ridge = math.Sqrt(math.Nextafter(1, 2) - 1)

// bsplineRow evaluates the nSplines B-spline basis functions of degree
// order at x. Knots are uniform over [lo, hi] and extended by order
// intervals on each side; x outside [lo, hi] is clamped to the edge.
// The non-zero functions are computed with the Cox–de Boor recurrence.
func bsplineRow(x, lo, hi float64, nSplines, order int, dst []float64) {
	for k := range dst {
		dst[k] = 0
	}

	h := (hi - lo) / float64(nSplines-order)
	knot := func(j int) float64 { return lo + float64(j-order)*h }

	switch {
	case x < lo:
		x = lo
	case x > hi:
		x = hi
	}

	// knot span containing x, the last span is closed on the right
	span := order + int(math.Floor((x-lo)/h))
	if span > nSplines-1 {
		span = nSplines - 1
	}
	if span < order {
		span = order
	}

	n := make([]float64, order+1)
	left := make([]float64, order+1)
	right := make([]float64, order+1)
	n[0] = 1
	for j := 1; j <= order; j++ {
		left[j] = x - knot(span+1-j)
		right[j] = knot(span+j) - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		n[j] = saved
	}

	copy(dst[span-order:span+1], n)
}

// differenceMatrix returns the (n-order)×n matrix of order-th differences.
func differenceMatrix(n, order int) *mat.Dense {
	// binomial coefficients with alternating sign, e.g. [1 -2 1] for order 2
	coef := make([]float64, order+1)
	for k := 0; k <= order; k++ {
		c := 1.0
		for i := 0; i < k; i++ {
			c = c * float64(order-i) / float64(i+1)
		}
		if (order-k)%2 == 1 {
			c = -c
		}
		coef[k] = c
	}

	d := mat.NewDense(n-order, n, nil)
	for i := 0; i < n-order; i++ {
		for k, c := range coef {
			d.Set(i, i+k, c)
		}
	}
	return d
}

func identity(n int) *mat.DiagDense {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return mat.NewDiagDense(n, ones)
}

// stackRows concatenates blocks vertically, or returns nil when there are none.
func stackRows(blocks []*mat.Dense, cols int) *mat.Dense {
	total := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		total += r
	}
	if total == 0 {
		return nil
	}
	out := mat.NewDense(total, cols, nil)
	row := 0
	for _, b := range blocks {
		r, _ := b.Dims()
		out.Slice(row, row+r, 0, cols).(*mat.Dense).Copy(b)
		row += r
	}
	return out
}

// coefOffsets returns the first coefficient index of every term and the
// total number of coefficients.
func coefOffsets(terms []Term) ([]int, int) {
	offsets := make([]int, len(terms))
	p := 0
	for i, t := range terms {
		offsets[i] = p
		p += t.nCoefs()
	}
	return offsets, p
}

// designMatrix evaluates every term's basis on every row of X.
func designMatrix(terms []Term, X mat.Matrix) *mat.Dense {
	n, _ := X.Dims()
	offsets, p := coefOffsets(terms)
	B := mat.NewDense(n, p, nil)

	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := B.RawRowView(i)
			for k, t := range terms {
				t.basisRow(X, i, row[offsets[k]:offsets[k]+t.nCoefs()])
			}
		}
	})
	return B
}

// penaltyRows builds E such that EᵀE = Σ P_term + ridge·I, each term's
// rows placed in its coefficient columns.
func penaltyRows(terms []Term) *mat.Dense {
	offsets, p := coefOffsets(terms)

	type block struct {
		rows *mat.Dense
		off  int
	}
	var blocks []block
	total := p
	for k, t := range terms {
		if pen := t.penalty(); pen != nil {
			r, _ := pen.Dims()
			total += r
			blocks = append(blocks, block{rows: pen, off: offsets[k]})
		}
	}

	E := mat.NewDense(total, p, nil)
	row := 0
	for _, b := range blocks {
		r, c := b.rows.Dims()
		E.Slice(row, row+r, b.off, b.off+c).(*mat.Dense).Copy(b.rows)
		row += r
	}
	s := math.Sqrt(ridge)
	for j := 0; j < p; j++ {
		E.Set(row+j, j, s)
	}
	return E
}
