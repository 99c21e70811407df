package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleConfig = `
root_path = /data/energy

[balances]
raw_files =
	balances_2019.csv
	balances_2020.csv
index_columns =
	region
	flow
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "source.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestNew_RequiresASource(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error with neither file nor literal")
	}
	if _, err := New(Options{AllowEmpty: true}); err != nil {
		t.Fatalf("AllowEmpty should permit an empty config: %v", err)
	}
}

func TestGetList_StripsAndDropsEmpties(t *testing.T) {
	c, err := New(Options{Literal: sampleConfig})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := c.GetList("balances", "raw_files")
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	want := []string{"balances_2019.csv", "balances_2020.csv"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func TestGetPath_ResolvesAgainstRootPath(t *testing.T) {
	c, err := New(Options{Literal: sampleConfig})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.RootPath(); got != "/data/energy" {
		t.Fatalf("expected root path from default section, got %q", got)
	}
	paths, err := c.GetPaths("balances", "raw_files")
	if err != nil {
		t.Fatalf("GetPaths: %v", err)
	}
	if paths[0] != "/data/energy/balances_2019.csv" {
		t.Errorf("expected resolved path, got %q", paths[0])
	}
}

func TestRootPath_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	// Explicit option wins over the file's default section.
	c, err := New(Options{File: path, RootPath: "/override"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.RootPath() != "/override" {
		t.Errorf("expected explicit root path, got %q", c.RootPath())
	}

	// The file's default-section value wins over the file's directory.
	c, err = New(Options{File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.RootPath() != "/data/energy" {
		t.Errorf("expected file root path, got %q", c.RootPath())
	}

	// Without either, the file's directory applies.
	bare := writeConfig(t, t.TempDir(), "[balances]\nraw_files = a.csv\n")
	c, err = New(Options{File: bare})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.RootPath() != filepath.Dir(bare) {
		t.Errorf("expected config directory, got %q", c.RootPath())
	}
}

func TestNew_LiteralOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)
	c, err := New(Options{File: path, Literal: "[balances]\nraw_files = other.csv\n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := c.GetList("balances", "raw_files")
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if len(files) != 1 || files[0] != "other.csv" {
		t.Errorf("expected the literal to override the file, got %v", files)
	}
}

func TestGet_DefaultSectionFallback(t *testing.T) {
	c, err := New(Options{Literal: "timeout = 30\n[balances]\nraw_files = a.csv\n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v, err := c.Get("balances", "timeout")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "30" {
		t.Errorf("expected default-section fallback 30, got %q", v)
	}
	if _, err := c.Get("balances", "absent"); err == nil {
		t.Error("expected error for a missing option")
	}
	if !c.Has("balances", "raw_files") || c.Has("balances", "absent") {
		t.Error("Has misreports option presence")
	}
}

func TestGetList_CustomSeparator(t *testing.T) {
	c, err := New(Options{
		Literal:       "[s]\nitems = a, b , c\n",
		ListSeparator: ",",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	items, err := c.GetList("s", "items")
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if !reflect.DeepEqual(items, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", items)
	}
}
