// Package store persists serialised game sessions keyed by session id.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrVersionConflict is returned by optimistic writes when another writer
// saved the session after it was read.
var ErrVersionConflict = errors.New("session was modified concurrently")

// Record is a stored session blob. Version starts at 1 for the first write
// and is 0 for a session that has never been saved.
type Record struct {
	Blob    []byte
	Version int64
}

// Store is the persistence boundary of the engine.
//
// Get returns (nil, nil) when nothing is stored under key. An expired session
// comes back with an empty Blob so it reads as fresh.
//
// Set writes rec.Blob under key. With optimistic locking enabled rec.Version
// must be the version returned by Get, otherwise ErrVersionConflict; without
// it the last write wins.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, rec Record) error
}

type Options struct {
	// TTL is how long a session survives without writes.
	TTL        time.Duration
	Optimistic bool
	Now        func() time.Time
}

const DefaultTTL = 30 * 24 * time.Hour

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
