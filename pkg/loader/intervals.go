package loader

import (
	"fmt"

	"github.com/datanorm/datanorm/pkg/frame"
)

// IntervalSpec describes one interval column to build from a pair of scalar
// bound columns.
type IntervalSpec struct {
	// Name is the output column name.
	Name string

	// Left and Right name the source bound columns.
	Left  string
	Right string

	// Closed selects which bounds are inclusive.
	Closed frame.Closed

	// DropSources removes the bound columns after the interval column is
	// built.
	DropSources bool
}

// SetIntervals combines paired left/right scalar columns into interval
// columns, one per spec. Closedness is chosen per output column; the source
// columns are dropped or kept per spec.
func SetIntervals(f *frame.Frame, specs ...IntervalSpec) (*frame.Frame, error) {
	out := f.Copy(false)
	for _, spec := range specs {
		if !spec.Closed.Valid() {
			return nil, fmt.Errorf("interval column %q: invalid closedness %q", spec.Name, spec.Closed)
		}
		left, err := out.Column(spec.Left)
		if err != nil {
			return nil, fmt.Errorf("interval column %q: %w", spec.Name, err)
		}
		right, err := out.Column(spec.Right)
		if err != nil {
			return nil, fmt.Errorf("interval column %q: %w", spec.Name, err)
		}

		cells := make([]any, left.Len())
		for i := range cells {
			if left.IsNA(i) || right.IsNA(i) {
				continue
			}
			lv, ok := left.Float(i)
			if !ok {
				return nil, fmt.Errorf("interval column %q: row %d left bound is not numeric", spec.Name, i)
			}
			rv, ok := right.Float(i)
			if !ok {
				return nil, fmt.Errorf("interval column %q: row %d right bound is not numeric", spec.Name, i)
			}
			cells[i] = frame.Interval{Left: lv, Right: rv, Closed: spec.Closed}
		}
		col, err := frame.NewSeries(spec.Name, frame.DTypeInterval, cells)
		if err != nil {
			return nil, fmt.Errorf("interval column %q: %w", spec.Name, err)
		}
		if err := out.SetColumn(col); err != nil {
			return nil, fmt.Errorf("interval column %q: %w", spec.Name, err)
		}
		if spec.DropSources {
			if err := out.DropColumns(spec.Left, spec.Right); err != nil {
				return nil, fmt.Errorf("interval column %q: %w", spec.Name, err)
			}
		}
	}
	return out, nil
}

// IntervalAdjustment wraps SetIntervals as a whole-table adjustment.
func IntervalAdjustment(specs ...IntervalSpec) FrameFunc {
	return func(f *frame.Frame) (*frame.Frame, error) {
		return SetIntervals(f, specs...)
	}
}
