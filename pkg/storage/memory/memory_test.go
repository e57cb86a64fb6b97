package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicktill/linecsv/pkg/storage"
)

func TestMemoryStorage_PutAndGet(t *testing.T) {
	store := New()
	defer store.Close()

	ctx := context.Background()
	conv := storage.Conversion{
		Hash:      42,
		Source:    "test.lp",
		CSV:       []byte("measurement,value,timestamp\ncpu,1,\n"),
		Points:    1,
		CreatedAt: time.Now(),
	}

	if err := store.Put(ctx, conv); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.CSV) != string(conv.CSV) {
		t.Errorf("Get returned wrong CSV: %q", got.CSV)
	}
	if got.Source != "test.lp" {
		t.Errorf("Get returned wrong source: %q", got.Source)
	}
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	store := New()
	defer store.Close()

	_, err := store.Get(context.Background(), 999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorage_PutOverwrites(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, storage.Conversion{Hash: 1, Points: 1, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, storage.Conversion{Hash: 1, Points: 5, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Points != 5 {
		t.Errorf("Expected overwritten conversion with 5 points, got %d", got.Points)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalConversions != 1 {
		t.Errorf("Expected 1 conversion after overwrite, got %d", stats.TotalConversions)
	}
}

func TestMemoryStorage_ListNewestFirst(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	now := time.Now()
	for i, age := range []time.Duration{3 * time.Hour, 1 * time.Hour, 2 * time.Hour} {
		conv := storage.Conversion{
			Hash:      uint64(i + 1),
			CreatedAt: now.Add(-age),
		}
		if err := store.Put(ctx, conv); err != nil {
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
	for i := 1; i < len(results); i++ {
		if results[i].CreatedAt.After(results[i-1].CreatedAt) {
			t.Errorf("List not sorted newest first at index %d", i)
		}
	}

	// Limit and Since filters
	limited, err := store.List(ctx, storage.ListRequest{Limit: 1})
	if err != nil {
		t.Fatalf("List with limit failed: %v", err)
	}
	if len(limited) != 1 || limited[0].Hash != 2 {
		t.Errorf("Expected newest conversion (hash 2), got %v", limited)
	}

	recent, err := store.List(ctx, storage.ListRequest{Since: now.Add(-90 * time.Minute)})
	if err != nil {
		t.Fatalf("List with since failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("Expected 1 recent conversion, got %d", len(recent))
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	now := time.Now()
	old := storage.Conversion{Hash: 1, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := storage.Conversion{Hash: 2, CreatedAt: now}
	for _, c := range []storage.Conversion{old, fresh} {
		if err := store.Put(ctx, c); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if err := store.Delete(ctx, now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected old conversion to be deleted, got %v", err)
	}
	if _, err := store.Get(ctx, 2); err != nil {
		t.Errorf("Expected fresh conversion to survive: %v", err)
	}
}

func TestMemoryStorage_Stats(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalConversions != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}

	if err := store.Put(ctx, storage.Conversion{Hash: 1, Points: 3, CSV: []byte("abc"), CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, storage.Conversion{Hash: 2, Points: 2, CSV: []byte("defg"), CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalConversions != 2 {
		t.Errorf("Expected 2 conversions, got %d", stats.TotalConversions)
	}
	if stats.TotalPoints != 5 {
		t.Errorf("Expected 5 total points, got %d", stats.TotalPoints)
	}
	if stats.SizeBytes != 7 {
		t.Errorf("Expected 7 bytes, got %d", stats.SizeBytes)
	}
}
