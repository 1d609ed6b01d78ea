package store

import (
	"context"
	"sync"

	domainErrors "github.com/cassiomorais/marketsync/internal/domain/errors"
)

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, kind, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.buckets[kind]
	if !ok {
		bucket = make(map[string][]byte)
		m.buckets[kind] = bucket
	}
	bucket[id] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Get(_ context.Context, kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.buckets[kind][id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) List(_ context.Context, kind string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.buckets[kind]
	out := make([][]byte, 0, len(bucket))
	for _, data := range bucket {
		out = append(out, append([]byte(nil), data...))
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets[kind], id)
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
