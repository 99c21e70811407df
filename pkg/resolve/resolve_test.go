package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"
)

func TestResolve_SimpleReference(t *testing.T) {
	tree := map[string]any{
		"base": "/data",
		"raw":  "${base}/raw",
	}
	out, err := Resolve(tree)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := out.(map[string]any)
	if got["raw"] != "/data/raw" {
		t.Errorf("expected /data/raw, got %v", got["raw"])
	}
	// The input tree is untouched.
	if tree["raw"] != "${base}/raw" {
		t.Errorf("Resolve mutated its input: %v", tree["raw"])
	}
}

func TestResolveOwned_MutatesInPlace(t *testing.T) {
	tree := map[string]any{
		"base": "/data",
		"raw":  "${base}/raw",
	}
	out, err := ResolveOwned(tree)
	if err != nil {
		t.Fatalf("ResolveOwned: %v", err)
	}
	if !reflect.DeepEqual(out, any(tree)) {
		t.Error("expected the same tree back")
	}
	if tree["raw"] != "/data/raw" {
		t.Errorf("expected in-place substitution, got %v", tree["raw"])
	}
}

func TestResolve_NestedReferences(t *testing.T) {
	tree := map[string]any{
		"a": "x",
		"b": "${a}y",
		"c": "${b}z",
	}
	out, err := Resolve(tree)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := out.(map[string]any)["c"]; got != "xyz" {
		t.Errorf("expected xyz, got %v", got)
	}
}

func TestResolve_PathThroughLists(t *testing.T) {
	tree := map[string]any{
		"hosts": []any{"alpha", "beta"},
		"first": "${hosts/0}",
	}
	out, err := Resolve(tree)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := out.(map[string]any)["first"]; got != "alpha" {
		t.Errorf("expected alpha, got %v", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	tree := map[string]any{
		"base": "/data",
		"raw":  "${base}/raw",
	}
	once, err := Resolve(tree)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	twice, err := Resolve(once)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("resolution is not idempotent: %v vs %v", once, twice)
	}
}

func TestResolve_CycleExhaustsBudget(t *testing.T) {
	tree := map[string]any{
		"a": "${b}",
		"b": "${a}",
	}
	_, err := Resolve(tree)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if rerr.Passes != DefaultMaxPasses {
		t.Errorf("expected %d passes, got %d", DefaultMaxPasses, rerr.Passes)
	}
	if len(rerr.Remaining) == 0 {
		t.Error("expected unresolved references in the error")
	}
}

func TestResolve_PathErrors(t *testing.T) {
	cases := []struct {
		name string
		tree map[string]any
	}{
		{"missing key", map[string]any{"a": "${nope}"}},
		{"bad list index", map[string]any{"l": []any{"x"}, "a": "${l/first}"}},
		{"index out of range", map[string]any{"l": []any{"x"}, "a": "${l/3}"}},
		{"scalar node", map[string]any{"s": 1, "a": "${s/deeper}"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Resolve(c.tree)
			var perr *PathError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *PathError, got %v", err)
			}
		})
	}
}

func TestResolve_BareString(t *testing.T) {
	root := map[string]any{"name": "world"}
	out, err := Resolve("hello ${name}", WithRoot(root))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", out)
	}
}

func TestResolve_CustomPatternAndSeparator(t *testing.T) {
	tree := map[string]any{
		"db":  map[string]any{"host": "localhost"},
		"dsn": "%(db.host)",
	}
	out, err := Resolve(tree,
		WithPattern(regexp.MustCompile(`%\(([^)]+)\)`)),
		WithSeparator("."),
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := out.(map[string]any)["dsn"]; got != "localhost" {
		t.Errorf("expected localhost, got %v", got)
	}
}

func TestResolve_PatternMustHaveOneGroup(t *testing.T) {
	_, err := Resolve(map[string]any{}, WithPattern(regexp.MustCompile(`\$\{.+\}`)))
	if err == nil {
		t.Fatal("expected error for pattern without capture group")
	}
}

func TestResolve_NonStringLookupInsertsStringForm(t *testing.T) {
	tree := map[string]any{
		"port": 5432,
		"dsn":  "host:${port}",
	}
	out, err := Resolve(tree)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := out.(map[string]any)["dsn"]; got != "host:5432" {
		t.Errorf("expected host:5432, got %v", got)
	}
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.yaml")
	doc := "base: /data\nraw: ${base}/raw\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	out, err := ResolveFile(path)
	if err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	if got := out.(map[string]any)["raw"]; got != "/data/raw" {
		t.Errorf("expected /data/raw, got %v", got)
	}
}
