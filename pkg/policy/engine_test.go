package policy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/datanorm/datanorm/pkg/descriptor"
	"github.com/datanorm/datanorm/pkg/telemetry"
)

func testEngine(t *testing.T, mode Mode) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger, mode)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func TestNewEngineLoadsBuiltins(t *testing.T) {
	eng := testEngine(t, ModeAdvisory)

	policies := eng.ListPolicies()
	if len(policies) == 0 {
		t.Fatal("no built-in policies loaded")
	}

	expected := []string{
		"dataset-id",
		"relative-raw-paths",
		"declared-dimensions",
		"canonical-dimensions",
		"versioned-default",
	}
	for _, name := range expected {
		if _, err := eng.GetPolicy(name); err != nil {
			t.Errorf("built-in policy %s not found", name)
		}
	}
}

func TestEvaluateCleanDescriptor(t *testing.T) {
	eng := testEngine(t, ModeEnforcing)
	d := &descriptor.Descriptor{
		ID:          "balances",
		RawDataPath: descriptor.RawDataPaths{Single: "raw/balances.csv"},
		Dimensions:  []string{descriptor.DimRegion, descriptor.DimFlow, descriptor.DimTime},
	}

	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if len(result.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", result.Violations)
	}
	if !result.Allowed {
		t.Fatal("clean descriptor should be allowed")
	}
}

func TestEvaluateAbsolutePathViolation(t *testing.T) {
	eng := testEngine(t, ModeEnforcing)
	d := &descriptor.Descriptor{
		ID:          "balances",
		RawDataPath: descriptor.RawDataPaths{Single: "/etc/balances.csv"},
		Dimensions:  []string{descriptor.DimRegion},
	}

	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if result.Allowed {
		t.Fatal("absolute raw path must block in enforcing mode")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "relative-raw-paths" && v.Severity == SeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("relative-raw-paths violation missing: %+v", result.Violations)
	}
}

func TestEvaluateAdvisoryModeNeverBlocks(t *testing.T) {
	eng := testEngine(t, ModeAdvisory)
	d := &descriptor.Descriptor{
		ID:          "balances",
		RawDataPath: descriptor.RawDataPaths{Single: "/etc/balances.csv"},
	}

	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if len(result.Violations) == 0 {
		t.Fatal("violations should still be reported in advisory mode")
	}
	if !result.Allowed {
		t.Fatal("advisory mode must not block")
	}
}

func TestEvaluateDimensionWarnings(t *testing.T) {
	eng := testEngine(t, ModeEnforcing)

	noDims := &descriptor.Descriptor{ID: "prices", RawDataPath: descriptor.RawDataPaths{Single: "raw/prices.csv"}}
	result, err := eng.EvaluateDescriptor(context.Background(), noDims)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if !hasViolation(result, "declared-dimensions") {
		t.Fatalf("declared-dimensions warning missing: %+v", result.Violations)
	}
	if !result.Allowed {
		t.Fatal("warnings must not block even in enforcing mode")
	}

	oddDims := &descriptor.Descriptor{
		ID:          "prices",
		RawDataPath: descriptor.RawDataPaths{Single: "raw/prices.csv"},
		Dimensions:  []string{"region", "widget"},
	}
	result, err = eng.EvaluateDescriptor(context.Background(), oddDims)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if !hasViolation(result, "canonical-dimensions") {
		t.Fatalf("canonical-dimensions warning missing: %+v", result.Violations)
	}
}

func TestEvaluateVersionedDefault(t *testing.T) {
	eng := testEngine(t, ModeEnforcing)
	d := &descriptor.Descriptor{
		ID: "balances",
		RawDataPath: descriptor.RawDataPaths{Versioned: map[string]string{
			"2019": "raw/balances_2019.csv",
			"2020": "raw/balances_2020.csv",
		}},
		Dimensions: []string{descriptor.DimRegion},
	}

	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if !hasViolation(result, "versioned-default") {
		t.Fatalf("versioned-default warning missing: %+v", result.Violations)
	}
}

func TestDisablePolicy(t *testing.T) {
	eng := testEngine(t, ModeEnforcing)
	if err := eng.DisablePolicy("relative-raw-paths"); err != nil {
		t.Fatalf("DisablePolicy: %v", err)
	}

	d := &descriptor.Descriptor{
		ID:          "balances",
		RawDataPath: descriptor.RawDataPaths{Single: "/etc/balances.csv"},
		Dimensions:  []string{descriptor.DimRegion},
	}
	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if hasViolation(result, "relative-raw-paths") {
		t.Fatal("disabled policy must not be evaluated")
	}

	if err := eng.EnablePolicy("relative-raw-paths"); err != nil {
		t.Fatalf("EnablePolicy: %v", err)
	}
	result, err = eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if !hasViolation(result, "relative-raw-paths") {
		t.Fatal("re-enabled policy must be evaluated")
	}
}

func TestEvaluatePublishesViolationEvents(t *testing.T) {
	eng := testEngine(t, ModeAdvisory)

	events, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
	if err != nil {
		t.Fatalf("NewEventPublisher: %v", err)
	}
	received := make(chan telemetry.Event, 16)
	events.Subscribe(func(ev telemetry.Event) { received <- ev },
		telemetry.FilterByType(telemetry.EventTypePolicyViolation))
	eng.SetEvents(events)

	d := &descriptor.Descriptor{
		ID:          "balances",
		RawDataPath: descriptor.RawDataPaths{Single: "/etc/balances.csv"},
		Dimensions:  []string{descriptor.DimRegion},
	}
	result, err := eng.EvaluateDescriptor(context.Background(), d)
	if err != nil {
		t.Fatalf("EvaluateDescriptor: %v", err)
	}
	if len(result.Violations) == 0 {
		t.Fatal("expected a violation to publish")
	}

	select {
	case ev := <-received:
		if ev.Dataset != "balances" {
			t.Fatalf("event dataset = %q, want balances", ev.Dataset)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no policy violation event published")
	}
}

func hasViolation(result *Result, policy string) bool {
	for _, v := range result.Violations {
		if v.Policy == policy {
			return true
		}
	}
	return false
}
