package store

import (
	"context"
	"sync"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/logger"
)

type memoryEntry struct {
	blob      []byte
	version   int64
	expiresAt time.Time
}

// Memory keeps sessions in a map. State is lost when the process exits.
type Memory struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

func NewMemory(opts Options) *Memory {
	return &Memory{opts: opts.withDefaults(), sessions: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	rec := &Record{Version: e.version}
	if m.opts.Now().Before(e.expiresAt) {
		rec.Blob = append([]byte(nil), e.blob...)
	}
	return rec, nil
}

func (m *Memory) Set(ctx context.Context, key string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.sessions[key]
	if m.opts.Optimistic && current.version != rec.Version {
		return ErrVersionConflict
	}
	now := m.opts.Now()
	m.sessions[key] = memoryEntry{
		blob:      append([]byte(nil), rec.Blob...),
		version:   current.version + 1,
		expiresAt: now.Add(m.opts.TTL),
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, key)
			n++
		}
	}
	return n
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweep runs Sweep every interval until ctx ends. It stands in for the
// database cleanup job when sessions live in memory.
func (m *Memory) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.opts.Now()); n > 0 {
				logger.Info("expired sessions removed", "count", n, "remaining", m.Len())
			}
		}
	}
}
