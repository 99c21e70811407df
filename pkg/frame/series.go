package frame

import (
	"fmt"
	"time"
)

// Series is a single named, typed column. Missing values are represented by
// nil cells and survive coercion and translation unchanged.
type Series struct {
	name   string
	dtype  DType
	values []any

	// intern pool for categorical values, shared between shallow copies.
	pool *internPool
}

// internPool deduplicates string values for categorical series.
type internPool struct {
	strings map[string]string
}

func newInternPool() *internPool {
	return &internPool{strings: make(map[string]string)}
}

func (p *internPool) intern(s string) string {
	if v, ok := p.strings[s]; ok {
		return v
	}
	p.strings[s] = s
	return s
}

// NewSeries builds a typed series from raw values, coercing every cell to
// the requested dtype. Nil cells are kept as missing.
func NewSeries(name string, dt DType, values []any) (*Series, error) {
	s := &Series{
		name:   name,
		dtype:  dt,
		values: make([]any, len(values)),
	}
	if dt == DTypeCategorical {
		s.pool = newInternPool()
	}
	for i, v := range values {
		cv, err := coerceValue(v, dt)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		if cv != nil && dt == DTypeCategorical {
			cv = s.pool.intern(cv.(string))
		}
		s.values[i] = cv
	}
	return s, nil
}

// MustSeries is NewSeries for statically known-good inputs; it panics on a
// coercion error. Intended for tests and literal vocabulary definitions.
func MustSeries(name string, dt DType, values []any) *Series {
	s, err := NewSeries(name, dt, values)
	if err != nil {
		panic(err)
	}
	return s
}

// StringSeries builds a DTypeString series from plain strings.
func StringSeries(name string, values []string) *Series {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	s, _ := NewSeries(name, DTypeString, cells)
	return s
}

// FloatSeries builds a DTypeFloat series from float64 values.
func FloatSeries(name string, values []float64) *Series {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	s, _ := NewSeries(name, DTypeFloat, cells)
	return s
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// DType returns the element type.
func (s *Series) DType() DType { return s.dtype }

// Len returns the number of cells.
func (s *Series) Len() int { return len(s.values) }

// Value returns the cell at position i (nil when missing).
func (s *Series) Value(i int) any { return s.values[i] }

// IsNA reports whether the cell at position i is missing.
func (s *Series) IsNA(i int) bool { return s.values[i] == nil }

// Values returns the raw backing cells. The slice is shared, not copied.
func (s *Series) Values() []any { return s.values }

// Strings renders every cell in canonical string form; missing cells render
// as the empty string.
func (s *Series) Strings() []string {
	out := make([]string, len(s.values))
	for i, v := range s.values {
		if v == nil {
			continue
		}
		out[i] = stringify(v)
	}
	return out
}

// Float returns the cell at i as float64. The second return is false for
// missing cells or non-numeric dtypes.
func (s *Series) Float(i int) (float64, bool) {
	switch v := s.values[i].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Set replaces the cell at position i, coercing to the series dtype.
func (s *Series) Set(i int, v any) error {
	cv, err := coerceValue(v, s.dtype)
	if err != nil {
		return fmt.Errorf("column %q row %d: %w", s.name, i, err)
	}
	if cv != nil && s.dtype == DTypeCategorical {
		cv = s.pool.intern(cv.(string))
	}
	s.values[i] = cv
	return nil
}

// Rename returns a shallow copy with a new column name.
func (s *Series) Rename(name string) *Series {
	c := *s
	c.name = name
	return &c
}

// WithDType coerces every cell to a new dtype, returning a new series.
func (s *Series) WithDType(dt DType) (*Series, error) {
	return NewSeries(s.name, dt, s.values)
}

// Copy returns a copy of the series. A shallow copy shares the backing
// cells; a deep copy duplicates them.
func (s *Series) Copy(deep bool) *Series {
	c := &Series{name: s.name, dtype: s.dtype, pool: s.pool}
	if deep {
		c.values = make([]any, len(s.values))
		copy(c.values, s.values)
		if s.pool != nil {
			c.pool = newInternPool()
			for k := range s.pool.strings {
				c.pool.intern(k)
			}
		}
	} else {
		c.values = s.values
	}
	return c
}

// Map applies fn to every non-missing cell and returns a new series of the
// same length, name and dtype. Missing cells pass through.
func (s *Series) Map(fn func(any) (any, error)) (*Series, error) {
	out := make([]any, len(s.values))
	for i, v := range s.values {
		if v == nil {
			continue
		}
		nv, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", s.name, i, err)
		}
		out[i] = nv
	}
	return NewSeries(s.name, s.dtype, out)
}

// Equal reports cell-for-cell equality of two series, including name and
// dtype.
func (s *Series) Equal(other *Series) bool {
	if other == nil || s.name != other.name || s.dtype != other.dtype ||
		len(s.values) != len(other.values) {
		return false
	}
	for i := range s.values {
		if !cellEqual(s.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return a == b
}

// RelativeChange computes the n-step relative rate of change of a numeric
// series: (x[t] - x[t-n]) / (n * x[t-n]). The divisor includes the step
// count, so the result is a per-step rate regardless of the shift distance.
// The first n cells of the result are missing.
func RelativeChange(s *Series, shift int) (*Series, error) {
	if shift < 1 {
		return nil, fmt.Errorf("shift must be positive, got %d", shift)
	}
	out := make([]any, s.Len())
	for i := shift; i < s.Len(); i++ {
		cur, ok1 := s.Float(i)
		prev, ok2 := s.Float(i - shift)
		if !ok1 || !ok2 || prev == 0 {
			continue
		}
		out[i] = (cur - prev) / (float64(shift) * prev)
	}
	return NewSeries(s.name, DTypeFloat, out)
}
