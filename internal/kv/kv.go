// Package kv provides the durable key-value storage behind drafts and the
// locally persisted catalog.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable wraps every backend failure
	ErrUnavailable = errors.New("storage unavailable")
)

// Store is a string-keyed store of JSON documents
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Apply writes and deletes every key of the batch as one atomic unit
	Apply(ctx context.Context, batch *Batch) error
	Ping(ctx context.Context) error
	Close() error
}

// Batch collects writes and deletes applied together by Store.Apply
type Batch struct {
	Sets    map[string][]byte
	Deletes []string
}

// NewBatch returns an empty batch
func NewBatch() *Batch {
	return &Batch{Sets: make(map[string][]byte)}
}

// Set queues a write, cancelling a queued delete of the same key
func (b *Batch) Set(key string, value []byte) *Batch {
	b.Sets[key] = value
	kept := b.Deletes[:0]
	for _, k := range b.Deletes {
		if k != key {
			kept = append(kept, k)
		}
	}
	b.Deletes = kept
	return b
}

// Delete queues a delete, cancelling a queued write of the same key
func (b *Batch) Delete(keys ...string) *Batch {
	for _, key := range keys {
		delete(b.Sets, key)
		b.Deletes = append(b.Deletes, key)
	}
	return b
}

// Empty reports whether the batch holds no operation
func (b *Batch) Empty() bool {
	return len(b.Sets) == 0 && len(b.Deletes) == 0
}
