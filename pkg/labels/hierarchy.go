package labels

import (
	"fmt"
	"math"
	"strconv"

	"github.com/datanorm/datanorm/pkg/frame"
)

// Hierarchy column names and sentinels.
const (
	// LevelColumn holds the nesting depth of each code.
	LevelColumn = "level"

	// ParentColumn holds the containing aggregate of each code.
	ParentColumn = "parent"

	// TotalLevel marks the root/total code of a vocabulary.
	TotalLevel = 1

	// MemoLevel is the sentinel for cross-cutting memo items that sit
	// outside the rollup tree.
	MemoLevel = 99

	// MemoParentPrefix tags the natural containing parent of a memo item,
	// e.g. "MEMO_TOTAL".
	MemoParentPrefix = "MEMO_"
)

// Hierarchy is a derived rollup view of a vocabulary table: per code, a
// nesting level and a parent code.
type Hierarchy struct {
	order   []string
	levels  map[string]int
	parents map[string]string
}

// Hierarchy derives the rollup view from the map's level and parent
// columns. Codes without a level are an error; a missing parent is allowed
// for root codes.
func (m *LabelMap) Hierarchy() (*Hierarchy, error) {
	levelCol, err := m.table.Column(LevelColumn)
	if err != nil {
		return nil, fmt.Errorf("vocabulary has no %q column", LevelColumn)
	}
	parentCol, err := m.table.Column(ParentColumn)
	if err != nil {
		return nil, fmt.Errorf("vocabulary has no %q column", ParentColumn)
	}

	codes := m.Codes()
	h := &Hierarchy{
		order:   codes,
		levels:  make(map[string]int, len(codes)),
		parents: make(map[string]string, len(codes)),
	}
	for i, code := range codes {
		if levelCol.IsNA(i) {
			return nil, fmt.Errorf("code %q has no hierarchy level", code)
		}
		lvl, err := cellInt(levelCol.Value(i))
		if err != nil {
			return nil, fmt.Errorf("code %q: %w", code, err)
		}
		h.levels[code] = lvl
		if !parentCol.IsNA(i) {
			h.parents[code] = cellKey(parentCol.Value(i))
		}
	}
	return h, nil
}

func cellInt(v any) (int, error) {
	switch t := v.(type) {
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("level %q is not an integer", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("level %v is not an integer", v)
	}
}

// Level returns the nesting level of a code (1 = total, 99 = memo).
func (h *Hierarchy) Level(code string) (int, error) {
	lvl, ok := h.levels[code]
	if !ok {
		return 0, fmt.Errorf("unknown code %q", code)
	}
	return lvl, nil
}

// Parent returns the parent of a code; memo items report their natural
// containing parent with the MEMO_ prefix intact. Root codes return "".
func (h *Hierarchy) Parent(code string) (string, error) {
	if _, ok := h.levels[code]; !ok {
		return "", fmt.Errorf("unknown code %q", code)
	}
	return h.parents[code], nil
}

// IsMemo reports whether a code is a cross-cutting memo item.
func (h *Hierarchy) IsMemo(code string) bool {
	return h.levels[code] == MemoLevel
}

// Children returns the codes whose parent is the given code, in table
// order. Memo items are excluded; see MemoChildren.
func (h *Hierarchy) Children(parent string) []string {
	var out []string
	for _, code := range h.order {
		if h.parents[code] == parent && !h.IsMemo(code) {
			out = append(out, code)
		}
	}
	return out
}

// MemoChildren returns the memo items naturally contained in the given
// code.
func (h *Hierarchy) MemoChildren(parent string) []string {
	tag := MemoParentPrefix + parent
	var out []string
	for _, code := range h.order {
		if h.parents[code] == tag {
			out = append(out, code)
		}
	}
	return out
}

// Decorate adds "<dim>_level" and "<dim>_parent" columns to a table whose
// dim column (or index level) holds codes of this hierarchy, returning a
// new table. Unknown codes get missing cells.
func (h *Hierarchy) Decorate(f *frame.Frame, dim string) (*frame.Frame, error) {
	codes, err := dimValues(f, dim)
	if err != nil {
		return nil, err
	}

	levels := make([]any, len(codes))
	parents := make([]any, len(codes))
	for i, c := range codes {
		if c == nil {
			continue
		}
		code := cellKey(c)
		if lvl, ok := h.levels[code]; ok {
			levels[i] = int64(lvl)
		}
		if p, ok := h.parents[code]; ok {
			parents[i] = p
		}
	}

	out := f.Copy(false)
	levelCol, err := frame.NewSeries(dim+"_level", frame.DTypeInt, levels)
	if err != nil {
		return nil, err
	}
	parentCol, err := frame.NewSeries(dim+"_parent", frame.DTypeCategorical, parents)
	if err != nil {
		return nil, err
	}
	if err := out.SetColumn(levelCol); err != nil {
		return nil, err
	}
	if err := out.SetColumn(parentCol); err != nil {
		return nil, err
	}
	return out, nil
}

func dimValues(f *frame.Frame, dim string) ([]any, error) {
	if f.HasColumn(dim) {
		c, _ := f.Column(dim)
		return c.Values(), nil
	}
	lv, err := f.IndexLevel(dim)
	if err != nil {
		return nil, fmt.Errorf("table has no column or index level %q", dim)
	}
	return lv.Values(), nil
}

// RollupMismatch reports a parent whose children do not sum to its value.
// Rollup reconciliation is a soft, source-dependent guarantee, so
// mismatches are informational results rather than errors.
type RollupMismatch struct {
	Parent      string
	ParentValue float64
	ChildSum    float64
}

// Diff returns the signed reconciliation gap.
func (r RollupMismatch) Diff() float64 { return r.ChildSum - r.ParentValue }

// CheckRollup sums each parent's natural children in a table and compares
// the sum against the parent's own value. The table must carry one row per
// code with the codes in dim and the figures in valueCol. Parents or
// children without values are skipped.
func (h *Hierarchy) CheckRollup(f *frame.Frame, dim, valueCol string, tolerance float64) ([]RollupMismatch, error) {
	codes, err := dimValues(f, dim)
	if err != nil {
		return nil, err
	}
	values, err := f.Column(valueCol)
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]float64, len(codes))
	for i, c := range codes {
		if c == nil {
			continue
		}
		if v, ok := values.Float(i); ok {
			byCode[cellKey(c)] = v
		}
	}

	var mismatches []RollupMismatch
	for _, parent := range h.order {
		pv, ok := byCode[parent]
		if !ok {
			continue
		}
		children := h.Children(parent)
		if len(children) == 0 {
			continue
		}
		sum, seen := 0.0, 0
		for _, child := range children {
			if cv, ok := byCode[child]; ok {
				sum += cv
				seen++
			}
		}
		if seen == 0 {
			continue
		}
		if math.Abs(sum-pv) > tolerance {
			mismatches = append(mismatches, RollupMismatch{
				Parent:      parent,
				ParentValue: pv,
				ChildSum:    sum,
			})
		}
	}
	return mismatches, nil
}
