package descriptor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const descriptorsDoc = `
paths:
  root: raw/iea
datasets:
  - id: balances
    parent_id: iea
    name: World Energy Balances
    raw_data_path:
      "2019": ${paths/root}/balances_2019.csv
      "2020": ${paths/root}/balances_2020.csv
    default_version: "2020"
    dimensions: [region, flow, product, time]
  - id: prices
    description: End-use energy prices
    raw_data_path: raw/iea/prices.csv
    dimensions: [region, product, time]
`

func writeDescriptors(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadAll(t *testing.T) {
	all, err := LoadAll(writeDescriptors(t, descriptorsDoc), "")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("loaded %d descriptors, want 2", len(all))
	}

	balances, ok := all["iea_balances"]
	if !ok {
		t.Fatal("parent-prefixed key iea_balances is missing")
	}
	// Variables must be resolved before decoding.
	path, err := balances.RawDataPath.ForVersion("2020")
	if err != nil {
		t.Fatalf("ForVersion: %v", err)
	}
	if path != "raw/iea/balances_2020.csv" {
		t.Fatalf("versioned path = %q", path)
	}
	if balances.DefaultVersion != "2020" {
		t.Fatalf("DefaultVersion = %q", balances.DefaultVersion)
	}
	if got := balances.Dimensions; len(got) != 4 || got[0] != DimRegion || got[3] != DimTime {
		t.Fatalf("Dimensions = %v", got)
	}

	prices, ok := all["prices"]
	if !ok {
		t.Fatal("unparented descriptor should be keyed by its id alone")
	}
	single, err := prices.RawDataPath.ForVersion("")
	if err != nil {
		t.Fatalf("ForVersion: %v", err)
	}
	if single != "raw/iea/prices.csv" {
		t.Fatalf("single path = %q", single)
	}
}

func TestLoadAllRejectsBadID(t *testing.T) {
	doc := "datasets:\n  - id: \"not a name\"\n"
	_, err := LoadAll(writeDescriptors(t, doc), "")
	if err == nil || !strings.Contains(err.Error(), "identifier") {
		t.Fatalf("expected identifier validation error, got %v", err)
	}
}

func TestLoadAllRejectsDanglingDefaultVersion(t *testing.T) {
	doc := `
datasets:
  - id: balances
    raw_data_path:
      "2019": balances_2019.csv
    default_version: "2020"
`
	_, err := LoadAll(writeDescriptors(t, doc), "")
	if err == nil || !strings.Contains(err.Error(), "default version") {
		t.Fatalf("expected default version error, got %v", err)
	}
}

func TestLoadAllRejectsDuplicateKeys(t *testing.T) {
	doc := `
datasets:
  - id: balances
  - id: balances
`
	_, err := LoadAll(writeDescriptors(t, doc), "")
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestWithBasePath(t *testing.T) {
	d := &Descriptor{
		ID: "balances",
		RawDataPath: RawDataPaths{
			Versioned: map[string]string{
				"2019": "balances_2019.csv",
				"2020": "/already/absolute.csv",
			},
		},
	}

	out := d.WithBasePath("/data/iea")
	if got := out.RawDataPath.Versioned["2019"]; got != "/data/iea/balances_2019.csv" {
		t.Fatalf("relative path = %q", got)
	}
	if got := out.RawDataPath.Versioned["2020"]; got != "/already/absolute.csv" {
		t.Fatalf("absolute path changed: %q", got)
	}
	if d.RawDataPath.Versioned["2019"] != "balances_2019.csv" {
		t.Fatal("input descriptor must not be mutated")
	}
}

func TestForVersionRequiresVersionWhenVersioned(t *testing.T) {
	p := RawDataPaths{Versioned: map[string]string{"2019": "a.csv"}}
	if _, err := p.ForVersion(""); err == nil {
		t.Fatal("versioned paths require an explicit version")
	}
	if _, err := p.ForVersion("1999"); err == nil {
		t.Fatal("unknown versions must error")
	}
}
