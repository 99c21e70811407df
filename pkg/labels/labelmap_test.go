package labels

import (
	"errors"
	"reflect"
	"testing"

	"github.com/datanorm/datanorm/pkg/frame"
)

func nameMap(t *testing.T) *LabelMap {
	t.Helper()
	m, err := New(map[string]map[string]any{
		"X": {"name": "Ex"},
		"Y": {"name": "Why"},
	}, Options{Name: "letters"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestTranslate_RoundTrip(t *testing.T) {
	m := nameMap(t)

	names, err := m.Translate([]any{"X", "Y"}, CodeAxis, "name", MissingRaise)
	if err != nil {
		t.Fatalf("Translate to name: %v", err)
	}
	if !reflect.DeepEqual(names, []any{"Ex", "Why"}) {
		t.Errorf("expected [Ex Why], got %v", names)
	}

	codes, err := m.Translate(names, "name", CodeAxis, MissingRaise)
	if err != nil {
		t.Fatalf("Translate back to code: %v", err)
	}
	if !reflect.DeepEqual(codes, []any{"X", "Y"}) {
		t.Errorf("expected [X Y], got %v", codes)
	}
}

func TestTranslate_MissingPolicy(t *testing.T) {
	m := nameMap(t)

	_, err := m.Translate([]any{"X", "Z"}, CodeAxis, "name", MissingRaise)
	var terr *TranslationError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranslationError, got %v", err)
	}
	if terr.Value != "Z" {
		t.Errorf("expected the error to name Z, got %q", terr.Value)
	}

	out, err := m.Translate([]any{"X", "Z"}, CodeAxis, "name", MissingAsNA)
	if err != nil {
		t.Fatalf("Translate with MissingAsNA: %v", err)
	}
	if out[0] != "Ex" || out[1] != nil {
		t.Errorf("expected [Ex <nil>], got %v", out)
	}
}

func TestTranslate_MissingInputPassesThrough(t *testing.T) {
	m := nameMap(t)
	out, err := m.Translate([]any{nil, "Y"}, CodeAxis, "name", MissingRaise)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out[0] != nil || out[1] != "Why" {
		t.Errorf("expected [<nil> Why], got %v", out)
	}
}

func TestTranslate_AlreadyTranslatedPassesThrough(t *testing.T) {
	m := nameMap(t)
	// "Why" is not a code but already a value of the target axis.
	out, err := m.Translate([]any{"X", "Why"}, CodeAxis, "name", MissingRaise)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out[0] != "Ex" || out[1] != "Why" {
		t.Errorf("expected [Ex Why], got %v", out)
	}
}

func TestTranslate_UnknownAxis(t *testing.T) {
	m := nameMap(t)
	if _, err := m.Translate([]any{"X"}, CodeAxis, "iso3", MissingRaise); err == nil {
		t.Fatal("expected error for unknown axis")
	}
}

func TestNew_ByColumnOrientation(t *testing.T) {
	m, err := New(map[string]map[string]any{
		"name": {"X": "Ex", "Y": "Why"},
	}, Options{Orient: ByColumn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := m.Translate([]any{"X"}, CodeAxis, "name", MissingRaise)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out[0] != "Ex" {
		t.Errorf("expected Ex, got %v", out[0])
	}
}

func TestTable_DefensiveCopy(t *testing.T) {
	m := nameMap(t)
	tbl := m.Table()
	if err := tbl.RenameColumn("name", "label"); err != nil {
		t.Fatalf("RenameColumn: %v", err)
	}
	if !m.Table().HasColumn("name") {
		t.Error("mutating the returned table leaked into the map")
	}
}

func TestTranslateIndex_Rows(t *testing.T) {
	m := nameMap(t)
	f := frame.Must(
		frame.StringSeries("code", []string{"X", "Y"}),
		frame.FloatSeries("value", []float64{1, 2}),
	)
	if err := f.SetIndex([]string{"code"}); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	out, err := m.TranslateIndex(f, CodeAxis, "name", AxisRows, "", MissingRaise)
	if err != nil {
		t.Fatalf("TranslateIndex: %v", err)
	}
	lv, err := out.IndexLevel("code")
	if err != nil {
		t.Fatalf("IndexLevel: %v", err)
	}
	got := lv.Strings()
	if got[0] != "Ex" || got[1] != "Why" {
		t.Errorf("expected [Ex Why], got %v", got)
	}
	// Original frame keeps its labels.
	orig, _ := f.IndexLevel("code")
	if orig.Strings()[0] != "X" {
		t.Error("TranslateIndex mutated its input")
	}
}

func TestTranslateIndex_LevelSelectorRules(t *testing.T) {
	m := nameMap(t)

	single := frame.Must(
		frame.StringSeries("code", []string{"X"}),
		frame.FloatSeries("value", []float64{1}),
	)
	if err := single.SetIndex([]string{"code"}); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if _, err := m.TranslateIndex(single, CodeAxis, "name", AxisRows, "code", MissingRaise); err == nil {
		t.Error("expected rejection of a level selector on a single-level index")
	}

	multi := frame.Must(
		frame.StringSeries("code", []string{"X"}),
		frame.StringSeries("region", []string{"CN"}),
		frame.FloatSeries("value", []float64{1}),
	)
	if err := multi.SetIndex([]string{"code", "region"}); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if _, err := m.TranslateIndex(multi, CodeAxis, "name", AxisRows, "", MissingRaise); err == nil {
		t.Error("expected a multi-level index to require a level selector")
	}
	out, err := m.TranslateIndex(multi, CodeAxis, "name", AxisRows, "code", MissingRaise)
	if err != nil {
		t.Fatalf("TranslateIndex with level: %v", err)
	}
	lv, _ := out.IndexLevel("code")
	if lv.Strings()[0] != "Ex" {
		t.Errorf("expected Ex, got %v", lv.Strings()[0])
	}
}

func TestTranslateIndex_Columns(t *testing.T) {
	m := nameMap(t)
	f := frame.Must(
		frame.FloatSeries("X", []float64{1}),
		frame.FloatSeries("Y", []float64{2}),
	)
	out, err := m.TranslateIndex(f, CodeAxis, "name", AxisColumns, "", MissingRaise)
	if err != nil {
		t.Fatalf("TranslateIndex: %v", err)
	}
	cols := out.Columns()
	if cols[0] != "Ex" || cols[1] != "Why" {
		t.Errorf("expected [Ex Why], got %v", cols)
	}
	if _, err := m.TranslateIndex(f, CodeAxis, "name", AxisColumns, "name", MissingRaise); err == nil {
		t.Error("expected rejection of a level selector for column labels")
	}
}
