/*
Package storage provides the pluggable store for finished conversions.

# Storage Interface

Two backends implement the Storage interface: memory (in-memory store for
testing and ephemeral workloads) and badger (BadgerDB, LSM tree + Snappy
compression, for persistence).

	type Storage interface {
	    Put(ctx context.Context, c Conversion) error
	    Get(ctx context.Context, hash uint64) (Conversion, error)
	    List(ctx context.Context, req ListRequest) ([]Conversion, error)
	    Delete(ctx context.Context, before time.Time) error
	    Stats(ctx context.Context) (*Stats, error)
	    Close() error
	}

# Content-Hash Keys

Conversions are keyed by the xxhash64 of the raw input document. The same
document always hashes to the same key, so the store is also a conversion
cache: the HTTP API serves a stored result instead of re-converting.

# Retention

Delete(ctx, before) drops conversions older than a cutoff. The server runs
it periodically to keep the store bounded.
*/
package storage
