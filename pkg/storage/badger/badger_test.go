package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicktill/linecsv/pkg/storage"
)

func TestBadgerStorage_PutAndGet(t *testing.T) {
	// Use in-memory mode for tests
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	conv := storage.Conversion{
		Hash:      0xdeadbeef,
		Source:    "metrics.lp",
		CSV:       []byte("measurement,value,timestamp\ncpu,1,\n"),
		Points:    1,
		Skipped:   2,
		CreatedAt: time.Now().UTC(),
	}

	if err := store.Put(ctx, conv); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, conv.Hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.CSV) != string(conv.CSV) {
		t.Errorf("Get returned wrong CSV: %q", got.CSV)
	}
	if got.Points != 1 || got.Skipped != 2 {
		t.Errorf("Get returned wrong counters: %+v", got)
	}
}

func TestBadgerStorage_GetMissing(t *testing.T) {
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBadgerStorage_ListAndDelete(t *testing.T) {
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	conversions := []storage.Conversion{
		{Hash: 1, CreatedAt: now.Add(-72 * time.Hour), Points: 1},
		{Hash: 2, CreatedAt: now.Add(-1 * time.Hour), Points: 2},
		{Hash: 3, CreatedAt: now, Points: 3},
	}
	for _, c := range conversions {
		if err := store.Put(ctx, c); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	results, err := store.List(ctx, storage.ListRequest{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 conversions, got %d", len(results))
	}
	if results[0].Hash != 3 {
		t.Errorf("Expected newest conversion first, got hash %d", results[0].Hash)
	}

	limited, err := store.List(ctx, storage.ListRequest{Limit: 2})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 conversions with limit, got %d", len(limited))
	}

	// Retention sweep: drop everything older than a day
	if err := store.Delete(ctx, now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected hash 1 to be deleted, got %v", err)
	}
	if _, err := store.Get(ctx, 2); err != nil {
		t.Errorf("Expected hash 2 to survive: %v", err)
	}
}

func TestBadgerStorage_Stats(t *testing.T) {
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Put(ctx, storage.Conversion{Hash: 1, Points: 4, CSV: []byte("abc"), CreatedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, storage.Conversion{Hash: 2, Points: 6, CSV: []byte("defgh"), CreatedAt: now}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalConversions != 2 {
		t.Errorf("Expected 2 conversions, got %d", stats.TotalConversions)
	}
	if stats.TotalPoints != 10 {
		t.Errorf("Expected 10 total points, got %d", stats.TotalPoints)
	}
	if stats.SizeBytes != 8 {
		t.Errorf("Expected 8 bytes, got %d", stats.SizeBytes)
	}
	if !stats.NewestConversion.After(stats.OldestConversion) {
		t.Errorf("Expected newest > oldest: %+v", stats)
	}
}

func TestBadgerStorage_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	store, err := New(Config{Path: tmpDir})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	conv := storage.Conversion{Hash: 7, CSV: []byte("header\nrow\n"), Points: 1, CreatedAt: time.Now().UTC()}
	if err := store.Put(ctx, conv); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen and verify the conversion survived
	reopened, err := New(Config{Path: tmpDir})
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got.CSV) != "header\nrow\n" {
		t.Errorf("Persisted CSV mismatch: %q", got.CSV)
	}
}
