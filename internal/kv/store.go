// Package kv is the persistent key-value layer. Every value is an opaque
// JSON blob rewritten in full on each mutation; consumers of the same key in
// other processes learn about writes through Subscribe.
package kv

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("kv store closed")

// Change describes a write to a key. Present is false when the key was
// deleted.
type Change struct {
	Key     string
	Value   []byte
	Present bool
}

type Store interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Subscribe streams changes to key until cancel is called or the store
	// is closed. The channel is closed on either.
	Subscribe(key string) (<-chan Change, func())
	Close() error
}
