// Package frame provides a minimal typed columnar table for feeding
// tabular data to models. A Frame is an ordered set of equally long,
// uniquely named Series; column order is preserved by every operation.
package frame

import (
	"github.com/YuminosukeSato/scigam/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Frame is an immutable ordered collection of columns.
type Frame struct {
	cols  []*Series
	index map[string]int
	nRows int
}

// New builds a Frame from columns. All columns must have the same length
// and distinct names.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{
		cols:  make([]*Series, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, errors.NewValidationError("cols", "nil column", i)
		}
		if i == 0 {
			f.nRows = c.Len()
		} else if c.Len() != f.nRows {
			return nil, errors.NewDimensionError("frame.New", f.nRows, c.Len(), 0)
		}
		if _, dup := f.index[c.Name()]; dup {
			return nil, errors.NewValidationError("cols", "duplicate column name", c.Name())
		}
		f.index[c.Name()] = len(f.cols)
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// NRows returns the number of rows.
func (f *Frame) NRows() int { return f.nRows }

// NCols returns the number of columns.
func (f *Frame) NCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// At returns column j.
func (f *Frame) At(j int) *Series { return f.cols[j] }

// SelectNumeric returns a Frame holding only the Float and Int columns, in
// their original order. Other columns are dropped without error.
func (f *Frame) SelectNumeric() *Frame {
	out := &Frame{index: make(map[string]int), nRows: f.nRows}
	for _, c := range f.cols {
		if !c.Kind().IsNumeric() {
			continue
		}
		out.index[c.Name()] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Matrix returns the frame as a freshly allocated NRows×NCols matrix.
// Every column must be numeric.
func (f *Frame) Matrix() (*mat.Dense, error) {
	if f.nRows == 0 || len(f.cols) == 0 {
		return nil, errors.NewModelError("frame.Matrix", "empty frame", errors.ErrEmptyData)
	}
	for _, c := range f.cols {
		if !c.Kind().IsNumeric() {
			return nil, errors.NewValidationError(c.Name(), "column is not numeric", c.Kind().String())
		}
	}

	m := mat.NewDense(f.nRows, len(f.cols), nil)
	for j, c := range f.cols {
		for i := 0; i < f.nRows; i++ {
			m.Set(i, j, c.Float(i))
		}
	}
	return m, nil
}
