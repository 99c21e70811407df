package labels

import (
	"fmt"
	"sort"

	"github.com/datanorm/datanorm/pkg/frame"
)

// Orient states how a definition map is keyed.
type Orient string

const (
	// ByCode means top-level keys are canonical codes and each value is a
	// record of column values. This is the default.
	ByCode Orient = "code"

	// ByColumn means top-level keys are column names and each value maps
	// codes to that column's values.
	ByColumn Orient = "column"
)

// Options parametrize LabelMap construction. The zero value gives a by-code
// map with categorical dtypes throughout.
type Options struct {
	// Name identifies the map's source, e.g. "regions".
	Name string

	// Orient states how the definition is keyed. Defaults to ByCode.
	Orient Orient

	// CodeDType overrides the dtype of the code axis. Defaults to
	// categorical for memory efficiency over repeated label values.
	CodeDType frame.DType

	// ColumnDTypes overrides per-column dtypes. Unnamed columns default to
	// categorical.
	ColumnDTypes map[string]frame.DType

	// Columns fixes the column order. Columns absent from the definition
	// are an error; definition columns absent from the list are dropped.
	// Empty means all definition columns in sorted order.
	Columns []string

	// Attrs seeds the table's metadata bag.
	Attrs map[string]any
}

// LabelMap is a vocabulary table keyed by canonical code, with one column
// per alternate naming scheme. The backing table is owned by the map and
// treated as immutable after construction.
type LabelMap struct {
	table *frame.Frame
}

// New builds a LabelMap from a definition map. Map iteration order is not
// deterministic, so codes are sorted; use FromYAML when source order must
// be preserved.
func New(def map[string]map[string]any, opts Options) (*LabelMap, error) {
	if opts.Orient == ByColumn {
		def = transpose(def)
	} else if opts.Orient != "" && opts.Orient != ByCode {
		return nil, fmt.Errorf("unknown orientation %q", opts.Orient)
	}
	codes := make([]string, 0, len(def))
	for code := range def {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return build(codes, def, opts)
}

// transpose converts a by-column definition into by-code form.
func transpose(byColumn map[string]map[string]any) map[string]map[string]any {
	byCode := make(map[string]map[string]any)
	for col, cells := range byColumn {
		for code, v := range cells {
			if byCode[code] == nil {
				byCode[code] = make(map[string]any)
			}
			byCode[code][col] = v
		}
	}
	return byCode
}

// build assembles the backing frame from an ordered code list and a by-code
// definition.
func build(codes []string, def map[string]map[string]any, opts Options) (*LabelMap, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		seen := make(map[string]bool)
		for _, rec := range def {
			for col := range rec {
				if !seen[col] {
					seen[col] = true
					columns = append(columns, col)
				}
			}
		}
		sort.Strings(columns)
	} else {
		for _, col := range columns {
			found := false
			for _, rec := range def {
				if _, ok := rec[col]; ok {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("column %q not present in definition", col)
			}
		}
	}

	codeDType := opts.CodeDType
	if codeDType == "" {
		codeDType = frame.DTypeCategorical
	}

	cols := make([]*frame.Series, 0, len(columns)+1)
	codeCells := make([]any, len(codes))
	for i, c := range codes {
		codeCells[i] = c
	}
	codeCol, err := frame.NewSeries(string(CodeAxis), codeDType, codeCells)
	if err != nil {
		return nil, fmt.Errorf("code axis: %w", err)
	}
	cols = append(cols, codeCol)

	for _, col := range columns {
		dt := frame.DTypeCategorical
		if opts.ColumnDTypes != nil {
			if d, ok := opts.ColumnDTypes[col]; ok {
				dt = d
			}
		}
		cells := make([]any, len(codes))
		for i, code := range codes {
			if v, ok := def[code][col]; ok {
				cells[i] = v
			}
		}
		s, err := frame.NewSeries(col, dt, cells)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		cols = append(cols, s)
	}

	table, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	table.Name = opts.Name
	for k, v := range opts.Attrs {
		table.Attrs[k] = v
	}
	if err := table.SetIndex([]string{string(CodeAxis)}); err != nil {
		return nil, err
	}
	return &LabelMap{table: table}, nil
}

// Name returns the map's source identifier.
func (m *LabelMap) Name() string { return m.table.Name }

// Attrs returns the metadata bag carried from the map's definition.
func (m *LabelMap) Attrs() map[string]any { return m.table.Attrs }

// Codes returns the canonical codes in table order.
func (m *LabelMap) Codes() []string {
	lv, err := m.table.IndexLevel(string(CodeAxis))
	if err != nil {
		return nil
	}
	return lv.Strings()
}

// Columns returns the alternate axis names in table order.
func (m *LabelMap) Columns() []string { return m.table.Columns() }

// Table returns a shallow defensive copy of the backing vocabulary table.
// The copy shares cell storage; treat it as read-only.
func (m *LabelMap) Table() *frame.Frame { return m.table.Copy(false) }

// axisValues returns the cells of an axis: the code index level for
// CodeAxis, otherwise the named column.
func (m *LabelMap) axisValues(a Axis) (*frame.Series, error) {
	if a == CodeAxis {
		return m.table.IndexLevel(string(CodeAxis))
	}
	s, err := m.table.Column(string(a))
	if err != nil {
		return nil, fmt.Errorf("no axis %q", a)
	}
	return s, nil
}

// Translate maps values from one axis to another. Missing input cells (nil)
// pass through as missing. A value with no entry on the from axis that is
// already a value of the to axis passes through unchanged. A value absent
// from both axes is newly missing: an error under MissingRaise, a nil cell
// under MissingAsNA.
func (m *LabelMap) Translate(values []any, from, to Axis, onMissing MissingPolicy) ([]any, error) {
	src, err := m.axisValues(from)
	if err != nil {
		return nil, err
	}
	dst, err := m.axisValues(to)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]any, src.Len())
	inTarget := make(map[string]bool, dst.Len())
	for i := 0; i < src.Len(); i++ {
		if !src.IsNA(i) {
			mapping[cellKey(src.Value(i))] = dst.Value(i)
		}
		if !dst.IsNA(i) {
			inTarget[cellKey(dst.Value(i))] = true
		}
	}

	out := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		key := cellKey(v)
		if mapped, ok := mapping[key]; ok {
			if mapped == nil && onMissing == MissingRaise {
				return nil, &TranslationError{Value: key, From: from, To: to}
			}
			out[i] = mapped
			continue
		}
		if inTarget[key] {
			out[i] = v
			continue
		}
		if onMissing == MissingRaise {
			return nil, &TranslationError{Value: key, From: from, To: to}
		}
	}
	return out, nil
}

func cellKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// TranslateIndex applies Translate to a table's row index labels or column
// names, returning a new table. For rows on a multi-level index, level
// selects the index level to rewrite and is required; for a single-level
// index or for columns it must be empty.
func (m *LabelMap) TranslateIndex(f *frame.Frame, from, to Axis, kind AxisKind, level string, onMissing MissingPolicy) (*frame.Frame, error) {
	out := f.Copy(false)
	switch kind {
	case AxisColumns:
		if level != "" {
			return nil, fmt.Errorf("level selector %q given for column labels", level)
		}
		names := out.Columns()
		cells := make([]any, len(names))
		for i, n := range names {
			cells[i] = n
		}
		translated, err := m.Translate(cells, from, to, onMissing)
		if err != nil {
			return nil, err
		}
		for i, n := range names {
			if translated[i] == nil {
				continue
			}
			if err := out.RenameColumn(n, cellKey(translated[i])); err != nil {
				return nil, err
			}
		}
		return out, nil

	case AxisRows:
		levels := out.IndexLevels()
		if len(levels) == 0 {
			return nil, fmt.Errorf("table has a positional index, nothing to translate")
		}
		target := level
		switch {
		case len(levels) == 1 && level != "":
			return nil, fmt.Errorf("level selector %q given for a single-level index", level)
		case len(levels) == 1:
			target = levels[0]
		case level == "":
			return nil, fmt.Errorf("multi-level index %v requires a level selector", levels)
		}
		lv, err := out.IndexLevel(target)
		if err != nil {
			return nil, err
		}
		translated, err := m.Translate(lv.Values(), from, to, onMissing)
		if err != nil {
			return nil, err
		}
		nl, err := frame.NewSeries(lv.Name(), lv.DType(), translated)
		if err != nil {
			return nil, err
		}
		if err := out.SetIndexLevel(nl); err != nil {
			return nil, err
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown axis kind %d", kind)
	}
}
