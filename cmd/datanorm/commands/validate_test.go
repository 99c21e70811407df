package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDescriptors(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "descriptors.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing descriptors: %v", err)
	}
	return path
}

func runValidate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newValidateCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateAdvisoryReportsWithoutFailing(t *testing.T) {
	path := writeDescriptors(t, `datasets:
  - id: balances
    name: Energy balances
    raw_data_path: /etc/balances.csv
    dimensions: [region, flow, time]
`)

	out, err := runValidate(t, path)
	if err != nil {
		t.Fatalf("advisory validation should not fail: %v", err)
	}
	if !strings.Contains(out, "relative-raw-paths") {
		t.Fatalf("violation not reported:\n%s", out)
	}
}

func TestValidateEnforcingBlocksOnError(t *testing.T) {
	path := writeDescriptors(t, `datasets:
  - id: balances
    raw_data_path: /etc/balances.csv
    dimensions: [region]
`)

	_, err := runValidate(t, path, "--enforcing")
	if err == nil {
		t.Fatal("enforcing validation should fail on an absolute raw path")
	}
	if !strings.Contains(err.Error(), "violation") {
		t.Fatalf("err = %v, want violation count", err)
	}
}

func TestValidateCleanDescriptors(t *testing.T) {
	path := writeDescriptors(t, `datasets:
  - id: balances
    name: Energy balances
    raw_data_path: raw/balances.csv
    dimensions: [region, flow, time]
`)

	out, err := runValidate(t, path, "--enforcing")
	if err != nil {
		t.Fatalf("clean descriptors should pass: %v", err)
	}
	if !strings.Contains(out, "no violations") {
		t.Fatalf("expected a clean report:\n%s", out)
	}
}
