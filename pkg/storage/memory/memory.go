package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nicktill/linecsv/pkg/storage"
)

// Storage stores conversions in memory. Data is lost on restart.
// Useful for testing and development.
type Storage struct {
	conversions map[uint64]storage.Conversion
	mu          sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		conversions: make(map[uint64]storage.Conversion),
	}
}

// Put stores a conversion, overwriting any previous one with the same hash
func (s *Storage) Put(ctx context.Context, c storage.Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversions[c.Hash] = c
	return nil
}

// Get retrieves a conversion by input hash
func (s *Storage) Get(ctx context.Context, hash uint64) (storage.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversions[hash]
	if !ok {
		return storage.Conversion{}, storage.ErrNotFound
	}
	return c, nil
}

// List retrieves conversions matching the request, newest first
func (s *Storage) List(ctx context.Context, req storage.ListRequest) ([]storage.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]storage.Conversion, 0, len(s.conversions))
	for _, c := range s.conversions {
		if !req.Since.IsZero() && c.CreatedAt.Before(req.Since) {
			continue
		}
		results = append(results, c)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

// Delete removes conversions created before the given time
func (s *Storage) Delete(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, c := range s.conversions {
		if c.CreatedAt.Before(before) {
			delete(s.conversions, hash)
		}
	}
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalConversions: uint64(len(s.conversions)),
	}
	if len(s.conversions) == 0 {
		return stats, nil
	}

	first := true
	for _, c := range s.conversions {
		stats.TotalPoints += uint64(c.Points)
		stats.SizeBytes += uint64(len(c.CSV))

		if first {
			stats.OldestConversion = c.CreatedAt
			stats.NewestConversion = c.CreatedAt
			first = false
			continue
		}
		if c.CreatedAt.Before(stats.OldestConversion) {
			stats.OldestConversion = c.CreatedAt
		}
		if c.CreatedAt.After(stats.NewestConversion) {
			stats.NewestConversion = c.CreatedAt
		}
	}

	return stats, nil
}
