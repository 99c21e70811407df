package loader

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/datanorm/datanorm/pkg/frame"
)

// DefaultStarlarkTimeout bounds the evaluation of one column.
const DefaultStarlarkTimeout = 30 * time.Second

// StarlarkAdjustment compiles a Starlark expression into a column
// adjustment. The expression is evaluated once per non-missing cell with the
// cell bound as `value`; missing cells pass through. A timeout of zero means
// DefaultStarlarkTimeout.
func StarlarkAdjustment(expr string, timeout time.Duration) (SeriesFunc, error) {
	if timeout == 0 {
		timeout = DefaultStarlarkTimeout
	}
	parsed, err := syntax.ParseExpr("adjust.star", expr, 0)
	if err != nil {
		return nil, fmt.Errorf("parsing adjustment expression: %w", err)
	}

	return func(s *frame.Series) (*frame.Series, error) {
		type result struct {
			col *frame.Series
			err error
		}
		done := make(chan result, 1)

		go func() {
			col, err := s.Map(func(v any) (any, error) {
				thread := &starlark.Thread{
					Name:  "datanorm",
					Print: func(*starlark.Thread, string) {},
				}
				sv, err := toStarlark(v)
				if err != nil {
					return nil, err
				}
				out, err := starlark.EvalExpr(thread, parsed, starlark.StringDict{"value": sv})
				if err != nil {
					return nil, fmt.Errorf("evaluating adjustment: %w", err)
				}
				return fromStarlark(out)
			})
			done <- result{col, err}
		}()

		select {
		case <-time.After(timeout):
			return nil, fmt.Errorf("adjustment of column %q timed out after %v", s.Name(), timeout)
		case r := <-done:
			return r.col, r.err
		}
	}, nil
}

func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}

func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer result too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", v.Type())
	}
}
