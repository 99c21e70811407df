package loader

import (
	"errors"
	"fmt"

	"github.com/datanorm/datanorm/pkg/frame"
	"github.com/datanorm/datanorm/pkg/labels"
	"github.com/datanorm/datanorm/pkg/telemetry"
)

// TranslationAdjustment returns a column adjustment that translates every
// value of a column between two axes of a label map. Under MissingRaise an
// untranslatable value fails the column's stage with a translation error;
// under MissingAsNA it becomes a missing cell. tel may be nil; when set,
// translated values and misses are counted and each miss is published as a
// warning event.
func TranslationAdjustment(lm *labels.LabelMap, from, to labels.Axis, onMissing labels.MissingPolicy, tel *telemetry.Telemetry) SeriesFunc {
	return func(s *frame.Series) (*frame.Series, error) {
		in := s.Values()
		out, err := lm.Translate(in, from, to, onMissing)
		if err != nil {
			if tel != nil {
				var terr *labels.TranslationError
				if errors.As(err, &terr) {
					tel.Metrics.RecordTranslationMiss(lm.Name(), string(to))
					_ = tel.Events.PublishTranslationMiss(lm.Name(), terr.Value, string(from), string(to))
				}
			}
			return nil, err
		}

		if tel != nil {
			translated := 0
			for i := range out {
				if out[i] != nil {
					translated++
					continue
				}
				if in[i] != nil {
					tel.Metrics.RecordTranslationMiss(lm.Name(), string(to))
					_ = tel.Events.PublishTranslationMiss(lm.Name(), fmt.Sprintf("%v", in[i]), string(from), string(to))
				}
			}
			tel.Metrics.RecordTranslation(lm.Name(), translated)
		}

		return frame.NewSeries(s.Name(), s.DType(), out)
	}
}

// RollupCheckAdjustment returns a whole-table adjustment that checks a
// hierarchy's children-sum-to-parent reconciliation over the table. Rollup
// reconciliation is a soft, source-dependent guarantee, so the table passes
// through unchanged and mismatches are published as warning events on tel
// (which may be nil).
func RollupCheckAdjustment(h *labels.Hierarchy, dim, valueCol string, tolerance float64, tel *telemetry.Telemetry) FrameFunc {
	return func(f *frame.Frame) (*frame.Frame, error) {
		mismatches, err := h.CheckRollup(f, dim, valueCol, tolerance)
		if err != nil {
			return nil, err
		}
		if tel != nil {
			for _, m := range mismatches {
				_ = tel.Events.PublishRollupMismatch(f.Name, m.Parent, m.ParentValue, m.ChildSum)
			}
		}
		return f, nil
	}
}
