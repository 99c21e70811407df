package labels

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const labelFile = `
flows:
  TOTAL:
    name: Total
  COAL:
    name: Coal
regions:
  orient: code
  data:
    CN:
      name: China
    US:
      name: United States
`

func managerFixture(t *testing.T) *LabelfileManager {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "energy.yaml"), []byte(labelFile), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	m, err := NewLabelfileManager(dir, map[string]string{"energy": "energy.yaml"})
	if err != nil {
		t.Fatalf("NewLabelfileManager: %v", err)
	}
	return m
}

func TestManager_EagerKeysets(t *testing.T) {
	m := managerFixture(t)
	if got := m.Files(); !reflect.DeepEqual(got, []string{"energy"}) {
		t.Errorf("expected [energy], got %v", got)
	}
	sets, err := m.Labelsets("energy")
	if err != nil {
		t.Fatalf("Labelsets: %v", err)
	}
	if !reflect.DeepEqual(sets, []string{"flows", "regions"}) {
		t.Errorf("expected [flows regions], got %v", sets)
	}
	if _, err := m.Labelsets("nope"); err == nil {
		t.Error("expected error for unknown file id")
	}
}

func TestManager_GetLabelMap(t *testing.T) {
	m := managerFixture(t)

	flows, err := m.GetLabelMap("energy", "flows")
	if err != nil {
		t.Fatalf("GetLabelMap: %v", err)
	}
	out, err := flows.Translate([]any{"COAL"}, CodeAxis, "name", MissingRaise)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out[0] != "Coal" {
		t.Errorf("expected Coal, got %v", out[0])
	}

	// The metadata-prefixed set parses too.
	regions, err := m.GetLabelMap("energy", "regions")
	if err != nil {
		t.Fatalf("GetLabelMap regions: %v", err)
	}
	if got := regions.Codes(); !reflect.DeepEqual(got, []string{"CN", "US"}) {
		t.Errorf("expected [CN US], got %v", got)
	}

	if _, err := m.GetLabelMap("energy", "products"); err == nil {
		t.Error("expected error for unknown label set")
	}
	if _, err := m.GetLabelMap("nope", "flows"); err == nil {
		t.Error("expected error for unknown file id")
	}
}

func TestManager_FreshInstancePerCall(t *testing.T) {
	m := managerFixture(t)
	a, err := m.GetLabelMap("energy", "flows")
	if err != nil {
		t.Fatalf("GetLabelMap: %v", err)
	}
	b, err := m.GetLabelMap("energy", "flows")
	if err != nil {
		t.Fatalf("GetLabelMap: %v", err)
	}
	if a == b {
		t.Error("expected a fresh LabelMap instance per call")
	}
}

func TestManager_MissingFile(t *testing.T) {
	if _, err := NewLabelfileManager(t.TempDir(), map[string]string{"x": "absent.yaml"}); err == nil {
		t.Fatal("expected error for a missing label file")
	}
}
