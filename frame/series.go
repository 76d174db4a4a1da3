package frame

import (
	"fmt"
	"strconv"
)

// Kind is the storage type of a Series.
type Kind int

const (
	Float Kind = iota
	Int
	Bool
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float64"
	case Int:
		return "int64"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsNumeric reports whether values of this kind take part in numeric
// selection. Bool is not numeric.
func (k Kind) IsNumeric() bool {
	return k == Float || k == Int
}

// Series is a named, typed, immutable column.
type Series struct {
	name string
	kind Kind

	floats  []float64
	ints    []int64
	bools   []bool
	strings []string
}

// NewFloat returns a float64 column. values is copied.
func NewFloat(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, floats: append([]float64(nil), values...)}
}

// NewInt returns an int64 column. values is copied.
func NewInt(name string, values []int64) *Series {
	return &Series{name: name, kind: Int, ints: append([]int64(nil), values...)}
}

// NewBool returns a bool column. values is copied.
func NewBool(name string, values []bool) *Series {
	return &Series{name: name, kind: Bool, bools: append([]bool(nil), values...)}
}

// NewString returns a string column. values is copied.
func NewString(name string, values []string) *Series {
	return &Series{name: name, kind: String, strings: append([]string(nil), values...)}
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the storage type.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of rows.
func (s *Series) Len() int {
	switch s.kind {
	case Float:
		return len(s.floats)
	case Int:
		return len(s.ints)
	case Bool:
		return len(s.bools)
	default:
		return len(s.strings)
	}
}

// Float returns row i as float64. It panics for non-numeric kinds.
func (s *Series) Float(i int) float64 {
	switch s.kind {
	case Float:
		return s.floats[i]
	case Int:
		return float64(s.ints[i])
	default:
		panic(fmt.Sprintf("frame: Float called on %s column %q", s.kind, s.name))
	}
}

// Floats returns a copy of the column as float64 values, or nil if the
// column is not numeric.
func (s *Series) Floats() []float64 {
	if !s.kind.IsNumeric() {
		return nil
	}
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Float(i)
	}
	return out
}

// Value returns row i boxed in its native type.
func (s *Series) Value(i int) interface{} {
	switch s.kind {
	case Float:
		return s.floats[i]
	case Int:
		return s.ints[i]
	case Bool:
		return s.bools[i]
	default:
		return s.strings[i]
	}
}
