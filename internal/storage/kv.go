// Package storage provides the durable key-value layer that profile state is
// persisted through. Backends: in-memory, SQLite, Redis and PostgreSQL.
package storage

import (
	"context"
	"errors"
	"time"
)

const dbTimeout = 5 * time.Second

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// KV is a string key-value store. Get reports found=false for missing keys
// rather than an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
