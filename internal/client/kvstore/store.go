// Package kvstore provides the durable local key-value store behind the
// scene cache. Two backends are available: SQLite (default, a single file
// next to the CLI) and Redis.
//
// All implementations share the same contract: Get returns (nil, nil) for
// an absent key, GetMany returns a slice aligned with its input where absent
// keys are nil, and SetMany is all-or-nothing.
package kvstore

import "context"

// Entry is a single key-value pair for SetMany.
type Entry struct {
	Key   string
	Value []byte
}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
	SetMany(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
