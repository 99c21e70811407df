package frame

import (
	"fmt"
)

// Frame is an ordered collection of equal-length named columns with an
// optional row index. A freshly built frame has a positional index: row
// labels are 0..n-1. Promoting one or more columns with SetIndex replaces
// the positional labels with the column values; several columns give the
// frame a multi-level index.
type Frame struct {
	// Name identifies the frame's source (e.g. the label set or loader
	// that produced it). May be empty.
	Name string

	// Attrs carries arbitrary metadata from the frame's origin, such as
	// source-file provenance or ordering flags.
	Attrs map[string]any

	cols   []*Series
	byName map[string]int
	index  []*Series // nil means positional
}

// New builds a frame from columns. All columns must have the same length
// and unique names.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{
		Attrs:  make(map[string]any),
		byName: make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if err := f.addColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Must builds a frame from columns and panics on error. Intended for tests
// and literal definitions.
func Must(cols ...*Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Frame) addColumn(c *Series) error {
	if _, exists := f.byName[c.Name()]; exists {
		return fmt.Errorf("duplicate column %q", c.Name())
	}
	if len(f.cols) > 0 && c.Len() != f.NumRows() {
		return fmt.Errorf("column %q has %d rows, frame has %d", c.Name(), c.Len(), f.NumRows())
	}
	f.byName[c.Name()] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	if len(f.cols) > 0 {
		return f.cols[0].Len()
	}
	if len(f.index) > 0 {
		return f.index[0].Len()
	}
	return 0
}

// NumCols returns the column count (index levels excluded).
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Column returns the named column. The returned series is the backing
// column itself, not a copy.
func (f *Frame) Column(name string) (*Series, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	return f.cols[i], nil
}

// SetColumn replaces an existing column of the same name, or appends a new
// one. A replacement must keep the row count.
func (f *Frame) SetColumn(c *Series) error {
	if i, ok := f.byName[c.Name()]; ok {
		if c.Len() != f.NumRows() {
			return fmt.Errorf("column %q has %d rows, frame has %d", c.Name(), c.Len(), f.NumRows())
		}
		f.cols[i] = c
		return nil
	}
	return f.addColumn(c)
}

// RenameColumn renames a column in place, keeping its position.
func (f *Frame) RenameColumn(old, new string) error {
	i, ok := f.byName[old]
	if !ok {
		return fmt.Errorf("no column %q", old)
	}
	if old == new {
		return nil
	}
	if _, exists := f.byName[new]; exists {
		return fmt.Errorf("column %q already exists", new)
	}
	f.cols[i] = f.cols[i].Rename(new)
	delete(f.byName, old)
	f.byName[new] = i
	return nil
}

// DropColumns removes the named columns. Unknown names are an error.
func (f *Frame) DropColumns(names ...string) error {
	for _, name := range names {
		if _, ok := f.byName[name]; !ok {
			return fmt.Errorf("no column %q", name)
		}
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := f.cols[:0]
	for _, c := range f.cols {
		if !drop[c.Name()] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.rebuildIndexMap()
	return nil
}

func (f *Frame) rebuildIndexMap() {
	f.byName = make(map[string]int, len(f.cols))
	for i, c := range f.cols {
		f.byName[c.Name()] = i
	}
}

// SetIndex promotes the named columns to the frame's row index, removing
// them from the column set. An empty list is a no-op: the frame keeps its
// current (by default positional) row identity.
func (f *Frame) SetIndex(names []string) error {
	if len(names) == 0 {
		return nil
	}
	levels := make([]*Series, 0, len(names))
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return fmt.Errorf("index column: %w", err)
		}
		levels = append(levels, c)
	}
	if err := f.DropColumns(names...); err != nil {
		return err
	}
	f.index = levels
	return nil
}

// ResetIndex demotes the index levels back to regular columns, placed
// before the existing columns, and restores the positional index.
func (f *Frame) ResetIndex() error {
	if f.index == nil {
		return nil
	}
	for _, lv := range f.index {
		if _, exists := f.byName[lv.Name()]; exists {
			return fmt.Errorf("column %q already exists", lv.Name())
		}
	}
	restored := make([]*Series, 0, len(f.index)+len(f.cols))
	restored = append(restored, f.index...)
	restored = append(restored, f.cols...)
	f.cols = restored
	f.index = nil
	f.rebuildIndexMap()
	return nil
}

// IndexLevels returns the names of the index levels, or nil for a
// positional index.
func (f *Frame) IndexLevels() []string {
	if f.index == nil {
		return nil
	}
	names := make([]string, len(f.index))
	for i, lv := range f.index {
		names[i] = lv.Name()
	}
	return names
}

// IndexLevel returns the index level with the given name.
func (f *Frame) IndexLevel(name string) (*Series, error) {
	for _, lv := range f.index {
		if lv.Name() == name {
			return lv, nil
		}
	}
	return nil, fmt.Errorf("no index level %q", name)
}

// SetIndexLevel replaces an existing index level.
func (f *Frame) SetIndexLevel(s *Series) error {
	for i, lv := range f.index {
		if lv.Name() == s.Name() {
			if s.Len() != f.NumRows() {
				return fmt.Errorf("index level %q has %d rows, frame has %d", s.Name(), s.Len(), f.NumRows())
			}
			f.index[i] = s
			return nil
		}
	}
	return fmt.Errorf("no index level %q", s.Name())
}

// RowLabels returns the row labels of the frame: 0..n-1 for a positional
// index, the single level's values for a one-level index, and per-row label
// tuples for a multi-level index.
func (f *Frame) RowLabels() []any {
	n := f.NumRows()
	labels := make([]any, n)
	switch len(f.index) {
	case 0:
		for i := range labels {
			labels[i] = i
		}
	case 1:
		copy(labels, f.index[0].Values())
	default:
		for i := range labels {
			tuple := make([]any, len(f.index))
			for j, lv := range f.index {
				tuple[j] = lv.Value(i)
			}
			labels[i] = tuple
		}
	}
	return labels
}

// Copy returns a copy of the frame. The default shallow copy duplicates the
// frame structure and column headers but shares cell storage; a deep copy
// duplicates cells as well.
func (f *Frame) Copy(deep bool) *Frame {
	c := &Frame{
		Name:   f.Name,
		Attrs:  make(map[string]any, len(f.Attrs)),
		cols:   make([]*Series, len(f.cols)),
		byName: make(map[string]int, len(f.byName)),
	}
	for k, v := range f.Attrs {
		c.Attrs[k] = v
	}
	for i, col := range f.cols {
		c.cols[i] = col.Copy(deep)
		c.byName[col.Name()] = i
	}
	if f.index != nil {
		c.index = make([]*Series, len(f.index))
		for i, lv := range f.index {
			c.index[i] = lv.Copy(deep)
		}
	}
	return c
}

// Compact rebuilds the frame's internal column directory. It is a
// housekeeping step with no semantic effect, run by the pipeline after each
// column's adjustments complete.
func (f *Frame) Compact() {
	f.rebuildIndexMap()
	cols := make([]*Series, len(f.cols))
	copy(cols, f.cols)
	f.cols = cols
}

// CoerceTypes applies a column-to-dtype mapping, returning a new frame.
// Columns not named in the mapping pass through unchanged. Naming an absent
// column is an error.
func (f *Frame) CoerceTypes(dtypes map[string]DType) (*Frame, error) {
	for name := range dtypes {
		if !f.HasColumn(name) {
			return nil, fmt.Errorf("dtype mapping names unknown column %q", name)
		}
	}
	out := f.Copy(false)
	for name, dt := range dtypes {
		c, _ := out.Column(name)
		nc, err := c.WithDType(dt)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(nc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppendFrame row-concatenates other onto f, returning a new frame. Both
// frames must have identical column names in identical order; rows of other
// follow rows of f.
func (f *Frame) AppendFrame(other *Frame) (*Frame, error) {
	if len(f.cols) != len(other.cols) {
		return nil, fmt.Errorf("column count mismatch: %d vs %d", len(f.cols), len(other.cols))
	}
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		oc := other.cols[i]
		if c.Name() != oc.Name() {
			return nil, fmt.Errorf("column order mismatch: %q vs %q", c.Name(), oc.Name())
		}
		merged := make([]any, 0, c.Len()+oc.Len())
		merged = append(merged, c.Values()...)
		merged = append(merged, oc.Values()...)
		nc, err := NewSeries(c.Name(), c.DType(), merged)
		if err != nil {
			return nil, err
		}
		cols[i] = nc
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.Name = f.Name
	for k, v := range f.Attrs {
		out.Attrs[k] = v
	}
	return out, nil
}

// Equal reports structural and cell-for-cell equality of two frames,
// including index levels. Attrs are not compared.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || len(f.cols) != len(other.cols) || len(f.index) != len(other.index) {
		return false
	}
	for i, c := range f.cols {
		if !c.Equal(other.cols[i]) {
			return false
		}
	}
	for i, lv := range f.index {
		if !lv.Equal(other.index[i]) {
			return false
		}
	}
	return true
}
