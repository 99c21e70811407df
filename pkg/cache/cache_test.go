package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/datanorm/datanorm/pkg/frame"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(DefaultConfig(filepath.Join(t.TempDir(), "cache.db")))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	region := frame.MustSeries("region", frame.DTypeCategorical, []any{"AT", "AT", "DE"})
	year := frame.MustSeries("year", frame.DTypeInt, []any{int64(2019), int64(2020), int64(2020)})
	value := frame.MustSeries("value", frame.DTypeFloat, []any{1.5, nil, 3.25})
	f := frame.Must(region, year, value)
	if err := f.SetIndex([]string{"region", "year"}); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	return f
}

func TestStorePutGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	f := testFrame(t)

	put, err := store.Put(ctx, "balances", "region=AT", "run-1", f)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if put.Rows != 3 {
		t.Fatalf("Rows = %d, want 3", put.Rows)
	}

	got, entry, err := store.Get(ctx, "balances", "region=AT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.ID != put.ID || entry.RunID != "run-1" {
		t.Fatalf("entry = %+v, want id %s run run-1", entry, put.ID)
	}
	if !got.Equal(f) {
		t.Fatal("decoded frame differs from stored frame")
	}
}

func TestStorePutReplacesExisting(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "balances", "region=AT", "run-1", testFrame(t)); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	second, err := store.Put(ctx, "balances", "region=AT", "run-2", testFrame(t))
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}

	_, entry, err := store.Get(ctx, "balances", "region=AT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.RunID != "run-2" || entry.ID != second.ID {
		t.Fatalf("entry = %+v, want the replacement", entry)
	}

	entries, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store := testStore(t)
	_, _, err := store.Get(context.Background(), "balances", "region=FR")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestStoreEvict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "balances", "region=AT", "run-1", testFrame(t)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Evict(ctx, "balances", "region=AT"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if err := store.Evict(ctx, "balances", "region=AT"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Evict error = %v, want ErrNotFound", err)
	}
}

func TestStoreEvictOlderThan(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "balances", "region=AT", "run-1", testFrame(t)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n, err := store.EvictOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("EvictOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("EvictOlderThan removed %d entries, want 1", n)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	f := testFrame(t)

	payload, indexColumns, err := encodeFrame(f)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	if len(indexColumns) != 2 || indexColumns[0] != "region" || indexColumns[1] != "year" {
		t.Fatalf("indexColumns = %v, want [region year]", indexColumns)
	}

	got, err := decodeFrame(payload, indexColumns)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if !got.Equal(f) {
		t.Fatal("round trip changed the frame")
	}

	value, err := got.Column("value")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if !value.IsNA(1) {
		t.Fatal("missing cell did not survive the round trip")
	}
}

func TestCodecRoundTripIntervals(t *testing.T) {
	bins := frame.MustSeries("bin", frame.DTypeInterval, []any{
		frame.Interval{Left: 0, Right: 10, Closed: frame.ClosedLeft},
		frame.Interval{Left: 10, Right: 20, Closed: frame.ClosedLeft},
	})
	count := frame.MustSeries("count", frame.DTypeInt, []any{int64(4), int64(7)})
	f := frame.Must(bins, count)

	payload, indexColumns, err := encodeFrame(f)
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	got, err := decodeFrame(payload, indexColumns)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if !got.Equal(f) {
		t.Fatal("interval column did not survive the round trip")
	}
}

func TestCanonicalSelector(t *testing.T) {
	a := CanonicalSelector(map[string]string{"year": "2020", "region": "AT"})
	b := CanonicalSelector(map[string]string{"region": "AT", "year": "2020"})
	if a != b {
		t.Fatalf("canonical forms differ: %q vs %q", a, b)
	}
	if a != "region=AT&year=2020" {
		t.Fatalf("CanonicalSelector = %q", a)
	}
	if CanonicalSelector(nil) != "" {
		t.Fatal("empty selector should render empty")
	}
}
