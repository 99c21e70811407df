package frame

import (
	"fmt"
	"strconv"
	"time"
)

// DType identifies the element type of a Series.
type DType string

const (
	// DTypeString holds free-form string values.
	DTypeString DType = "string"

	// DTypeCategorical holds interned string values. Repeated label values
	// share a single backing string, which keeps vocabulary-heavy columns
	// cheap.
	DTypeCategorical DType = "categorical"

	// DTypeInt holds int64 values.
	DTypeInt DType = "int"

	// DTypeFloat holds float64 values.
	DTypeFloat DType = "float"

	// DTypeBool holds bool values.
	DTypeBool DType = "bool"

	// DTypeTime holds time.Time values.
	DTypeTime DType = "time"

	// DTypeInterval holds Interval values.
	DTypeInterval DType = "interval"
)

// timeLayouts are tried in order when coercing strings to DTypeTime.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

// coerceValue converts a single cell value to the target dtype. A nil input
// stays nil (missing values survive coercion unchanged).
func coerceValue(v any, dt DType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch dt {
	case DTypeString, DTypeCategorical:
		return stringify(v), nil
	case DTypeInt:
		return toInt(v)
	case DTypeFloat:
		return toFloat(v)
	case DTypeBool:
		return toBool(v)
	case DTypeTime:
		return toTime(v)
	case DTypeInterval:
		switch iv := v.(type) {
		case Interval:
			return iv, nil
		case string:
			return ParseInterval(iv)
		}
		return nil, fmt.Errorf("cannot coerce %T to interval", v)
	default:
		return nil, fmt.Errorf("unknown dtype %q", dt)
	}
}

// stringify renders a cell value in its canonical string form. Used both by
// coercion and by variable substitution of looked-up values.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toInt(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to int: %w", val, err)
		}
		return i, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to float: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("cannot coerce %q to bool: %w", val, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot coerce %T to bool", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot coerce %q to time", val)
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to time", v)
	}
}
