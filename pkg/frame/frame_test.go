package frame

import (
	"testing"
)

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	_, err := New(
		StringSeries("code", []string{"X"}),
		StringSeries("code", []string{"Y"}),
	)
	if err == nil {
		t.Fatal("expected error for duplicate column names")
	}
}

func TestNew_RejectsLengthMismatch(t *testing.T) {
	_, err := New(
		StringSeries("code", []string{"X", "Y"}),
		StringSeries("name", []string{"Ex"}),
	)
	if err == nil {
		t.Fatal("expected error for column length mismatch")
	}
}

func TestSetIndex_EmptyIsNoOp(t *testing.T) {
	f := Must(
		StringSeries("region", []string{"CN", "US", "EU"}),
		FloatSeries("value", []float64{1, 2, 3}),
	)
	if err := f.SetIndex(nil); err != nil {
		t.Fatalf("SetIndex(nil): %v", err)
	}
	if f.NumRows() != 3 {
		t.Errorf("expected 3 rows, got %d", f.NumRows())
	}
	labels := f.RowLabels()
	for i, l := range labels {
		if l != i {
			t.Errorf("row %d: expected positional label %d, got %v", i, i, l)
		}
	}
}

func TestSetIndex_PromotesColumns(t *testing.T) {
	f := Must(
		StringSeries("region", []string{"CN", "US"}),
		StringSeries("flow", []string{"TFC", "TFC"}),
		FloatSeries("value", []float64{10, 20}),
	)
	if err := f.SetIndex([]string{"region", "flow"}); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if f.HasColumn("region") || f.HasColumn("flow") {
		t.Error("index columns should be removed from the column set")
	}
	levels := f.IndexLevels()
	if len(levels) != 2 || levels[0] != "region" || levels[1] != "flow" {
		t.Errorf("unexpected index levels: %v", levels)
	}
	labels := f.RowLabels()
	tuple, ok := labels[0].([]any)
	if !ok || tuple[0] != "CN" || tuple[1] != "TFC" {
		t.Errorf("unexpected first row label: %v", labels[0])
	}
}

func TestCoerceTypes_UnmappedColumnsPassThrough(t *testing.T) {
	f := Must(
		StringSeries("year", []string{"2019", "2020"}),
		StringSeries("region", []string{"CN", "US"}),
	)
	out, err := f.CoerceTypes(map[string]DType{"year": DTypeInt})
	if err != nil {
		t.Fatalf("CoerceTypes: %v", err)
	}
	year, _ := out.Column("year")
	if year.DType() != DTypeInt {
		t.Errorf("expected year coerced to int, got %s", year.DType())
	}
	if year.Value(0) != int64(2019) {
		t.Errorf("expected 2019, got %v", year.Value(0))
	}
	region, _ := out.Column("region")
	if region.DType() != DTypeString {
		t.Errorf("unmapped column changed dtype: %s", region.DType())
	}
	// The input frame keeps its original dtypes.
	orig, _ := f.Column("year")
	if orig.DType() != DTypeString {
		t.Error("CoerceTypes mutated its input")
	}
}

func TestCoerceTypes_UnknownColumn(t *testing.T) {
	f := Must(StringSeries("a", []string{"1"}))
	if _, err := f.CoerceTypes(map[string]DType{"missing": DTypeInt}); err == nil {
		t.Fatal("expected error for unknown column in dtype mapping")
	}
}

func TestAppendFrame_PreservesRowOrder(t *testing.T) {
	a := Must(
		StringSeries("region", []string{"CN"}),
		FloatSeries("value", []float64{1}),
	)
	b := Must(
		StringSeries("region", []string{"US", "EU"}),
		FloatSeries("value", []float64{2, 3}),
	)
	out, err := a.AppendFrame(b)
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	region, _ := out.Column("region")
	got := region.Strings()
	want := []string{"CN", "US", "EU"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCopy_ShallowSharesCells(t *testing.T) {
	f := Must(FloatSeries("v", []float64{1, 2}))
	shallow := f.Copy(false)
	col, _ := f.Column("v")
	if err := col.Set(0, 99.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	sc, _ := shallow.Column("v")
	if got, _ := sc.Float(0); got != 99.0 {
		t.Errorf("shallow copy should share cells, got %v", got)
	}

	deep := f.Copy(true)
	if err := col.Set(0, 7.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	dc, _ := deep.Column("v")
	if got, _ := dc.Float(0); got != 99.0 {
		t.Errorf("deep copy should not share cells, got %v", got)
	}
}

func TestCompact_NoSemanticEffect(t *testing.T) {
	f := Must(
		StringSeries("region", []string{"CN", "US"}),
		FloatSeries("value", []float64{1, 2}),
	)
	before := f.Copy(true)
	f.Compact()
	if !f.Equal(before) {
		t.Error("Compact changed frame contents")
	}
}

func TestRelativeChange_TimeNormalized(t *testing.T) {
	s := FloatSeries("v", []float64{100, 110, 121})
	out, err := RelativeChange(s, 1)
	if err != nil {
		t.Fatalf("RelativeChange: %v", err)
	}
	if !out.IsNA(0) {
		t.Error("first cell should be missing")
	}
	if got, _ := out.Float(1); got != 0.1 {
		t.Errorf("expected 0.1, got %v", got)
	}

	// With shift=2 the divisor includes the step count.
	out2, err := RelativeChange(s, 2)
	if err != nil {
		t.Fatalf("RelativeChange: %v", err)
	}
	if got, _ := out2.Float(2); got != (121.0-100.0)/(2*100.0) {
		t.Errorf("expected per-step rate, got %v", got)
	}
}

func TestInterval_String(t *testing.T) {
	cases := []struct {
		iv   Interval
		want string
	}{
		{Interval{0, 10, ClosedLeft}, "[0,10)"},
		{Interval{10, 20, ClosedRight}, "(10,20]"},
		{Interval{0, 1, ClosedBoth}, "[0,1]"},
		{Interval{0, 1, ClosedNeither}, "(0,1)"},
	}
	for _, c := range cases {
		if got := c.iv.String(); got != c.want {
			t.Errorf("expected %s, got %s", c.want, got)
		}
	}
}

func TestSeries_CategoricalInterning(t *testing.T) {
	s, err := NewSeries("unit", DTypeCategorical, []any{"ktoe", "ktoe", "TJ", nil})
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	if s.Value(0) != s.Value(1) {
		t.Error("repeated categorical values should be interned to one instance")
	}
	if !s.IsNA(3) {
		t.Error("nil cell should stay missing")
	}
}
