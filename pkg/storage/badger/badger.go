package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nicktill/linecsv/pkg/storage"
)

// keyPrefix namespaces conversion entries inside the database.
var keyPrefix = []byte("conv:")

// Storage implements storage.Storage using BadgerDB (LSM tree)
type Storage struct {
	db *badger.DB
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = laptop-friendly defaults)
	MaxMemoryMB int64
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// SAFETY: conservative memory limits. BadgerDB defaults assume a server;
	// a converter sidecar should stay well under 64 MB.
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3 // ~33% for memtable
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumCompactors(2). // badger v4 requires at least 2 compactors
		WithValueThreshold(1024).
		WithValueLogFileSize(64 << 20) // 64 MB value log files instead of default 2GB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{db: db}, nil
}

// Put stores a conversion, overwriting any previous one with the same hash
func (s *Storage) Put(ctx context.Context, c storage.Conversion) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode conversion: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(makeKey(c.Hash), value)
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("put operation cancelled: %w", ctx.Err())
	}
}

// Get retrieves a conversion by input hash
func (s *Storage) Get(ctx context.Context, hash uint64) (storage.Conversion, error) {
	var c storage.Conversion
	if err := ctx.Err(); err != nil {
		return c, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(hash))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	return c, err
}

// List retrieves conversions matching the request, newest first
func (s *Storage) List(ctx context.Context, req storage.ListRequest) ([]storage.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type listResult struct {
		results []storage.Conversion
		err     error
	}
	done := make(chan listResult, 1)

	go func() {
		var results []storage.Conversion
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = keyPrefix
			opts.PrefetchSize = 100

			it := txn.NewIterator(opts)
			defer it.Close()

			var iterCount int
			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++
				// Check for cancellation every 1000 iterations so a large
				// store cannot block shutdown
				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				err := it.Item().Value(func(val []byte) error {
					var c storage.Conversion
					if err := json.Unmarshal(val, &c); err != nil {
						return err
					}
					if !req.Since.IsZero() && c.CreatedAt.Before(req.Since) {
						return nil
					}
					results = append(results, c)
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		done <- listResult{results: results, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		// Keys are hash-ordered on disk; sort by recency for callers
		sort.Slice(res.results, func(i, j int) bool {
			return res.results[i].CreatedAt.After(res.results[j].CreatedAt)
		})
		if req.Limit > 0 && len(res.results) > req.Limit {
			res.results = res.results[:req.Limit]
		}
		return res.results, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("list operation cancelled: %w", ctx.Err())
	}
}

// Delete removes conversions created before the given time
func (s *Storage) Delete(ctx context.Context, before time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = keyPrefix

			it := txn.NewIterator(iterOpts)
			defer it.Close()

			var keysToDelete [][]byte
			var iterCount int

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++
				if iterCount%1000 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				item := it.Item()
				var c storage.Conversion
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &c)
				}); err != nil {
					return fmt.Errorf("failed to decode conversion: %w", err)
				}
				if !c.CreatedAt.Before(before) {
					continue
				}
				keysToDelete = append(keysToDelete, item.KeyCopy(nil))
			}

			for _, key := range keysToDelete {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delete operation cancelled: %w", ctx.Err())
	}
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &storage.Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var c storage.Conversion
				if err := json.Unmarshal(val, &c); err != nil {
					return err
				}

				stats.TotalConversions++
				stats.TotalPoints += uint64(c.Points)
				stats.SizeBytes += uint64(len(c.CSV))

				if stats.OldestConversion.IsZero() || c.CreatedAt.Before(stats.OldestConversion) {
					stats.OldestConversion = c.CreatedAt
				}
				if c.CreatedAt.After(stats.NewestConversion) {
					stats.NewestConversion = c.CreatedAt
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection to reclaim disk space.
// discardRatio: run GC if this fraction of a file can be discarded.
func (s *Storage) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// makeKey builds the storage key for a conversion hash:
// "conv:" + 8-byte big-endian hash
func makeKey(hash uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], hash)
	return key
}
