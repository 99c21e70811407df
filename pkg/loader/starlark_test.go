package loader

import (
	"strings"
	"testing"
	"time"

	"github.com/datanorm/datanorm/pkg/frame"
)

func TestStarlarkAdjustment(t *testing.T) {
	adjust, err := StarlarkAdjustment("value * 2", 0)
	if err != nil {
		t.Fatalf("StarlarkAdjustment: %v", err)
	}

	s := frame.MustSeries("value", frame.DTypeFloat, []any{1.5, nil, 3.0})
	out, err := adjust(s)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if v, _ := out.Float(0); v != 3.0 {
		t.Fatalf("out[0] = %v, want 3.0", out.Value(0))
	}
	if !out.IsNA(1) {
		t.Fatal("missing cells must pass through unadjusted")
	}
	if v, _ := out.Float(2); v != 6.0 {
		t.Fatalf("out[2] = %v, want 6.0", out.Value(2))
	}
}

func TestStarlarkAdjustmentConditional(t *testing.T) {
	adjust, err := StarlarkAdjustment(`value if value >= 0 else 0.0`, time.Second)
	if err != nil {
		t.Fatalf("StarlarkAdjustment: %v", err)
	}

	s := frame.MustSeries("value", frame.DTypeFloat, []any{-1.0, 2.0})
	out, err := adjust(s)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if v, _ := out.Float(0); v != 0.0 {
		t.Fatalf("out[0] = %v, want clamped 0", out.Value(0))
	}
	if v, _ := out.Float(1); v != 2.0 {
		t.Fatalf("out[1] = %v, want 2", out.Value(1))
	}
}

func TestStarlarkAdjustmentParseError(t *testing.T) {
	_, err := StarlarkAdjustment("value *", 0)
	if err == nil {
		t.Fatal("malformed expressions must be rejected at construction")
	}
}

func TestStarlarkAdjustmentEvalError(t *testing.T) {
	adjust, err := StarlarkAdjustment(`value + "suffix"`, 0)
	if err != nil {
		t.Fatalf("StarlarkAdjustment: %v", err)
	}
	s := frame.MustSeries("value", frame.DTypeFloat, []any{1.0})
	_, err = adjust(s)
	if err == nil || !strings.Contains(err.Error(), "evaluating adjustment") {
		t.Fatalf("expected evaluation error, got %v", err)
	}
}
