package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no conversion exists for a hash.
var ErrNotFound = errors.New("conversion not found")

// Conversion is one stored document conversion. The key is the xxhash64
// of the raw input document, which makes the store double as a cache:
// converting the same document twice hits the stored result.
type Conversion struct {
	// Hash is the xxhash64 digest of the input document
	Hash uint64 `json:"hash"`

	// Source names where the document came from (filename, "http", ...)
	Source string `json:"source,omitempty"`

	// CSV is the complete conversion output
	CSV []byte `json:"csv"`

	// Points is the number of records emitted
	Points int `json:"points"`

	// Skipped is the number of malformed lines dropped
	Skipped int `json:"skipped"`

	// CreatedAt is when the conversion was performed
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for conversion storage backends.
// Implementations: memory (testing), badger (production)
type Storage interface {
	// Put stores a conversion, overwriting any previous one with the same hash
	Put(ctx context.Context, c Conversion) error

	// Get retrieves a conversion by input hash (ErrNotFound if absent)
	Get(ctx context.Context, hash uint64) (Conversion, error)

	// List retrieves conversion metadata, newest first
	List(ctx context.Context, req ListRequest) ([]Conversion, error)

	// Delete removes conversions created before the given time
	Delete(ctx context.Context, before time.Time) error

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)

	// Close cleanly shuts down the storage
	Close() error
}

// ListRequest specifies which conversions to retrieve
type ListRequest struct {
	// Only conversions created after Since (zero = no lower bound)
	Since time.Time

	// Limit number of results (0 = no limit)
	Limit int
}

// Stats provides storage health and usage info
type Stats struct {
	// Total conversions stored
	TotalConversions uint64

	// Total records across all stored conversions
	TotalPoints uint64

	// Approximate CSV payload size in bytes
	SizeBytes uint64

	// Oldest and newest conversion timestamps
	OldestConversion time.Time
	NewestConversion time.Time
}
