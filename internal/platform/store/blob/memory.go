package blob

import (
	"context"
	"sort"
	"strings"
	"sync"

	perr "tulflow/internal/platform/errors"
)

// Memory is an in-process Store. Safe for concurrent use
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPut, when set, is returned by Put (for tests)
	FailPut error
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store
func NewMemory() *Memory { return &Memory{objects: map[string][]byte{}} }

func memKey(bucket, key string) string { return bucket + "\x00" + key }

// Get returns a copy of the stored body
func (m *Memory) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return nil, perr.Wrapf(ErrNotFound, perr.ErrorCodeNotFound, "blob: get mem://%s/%s", bucket, key)
	}
	return append([]byte(nil), b...), nil
}

// Put stores a copy of body
func (m *Memory) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	if m.FailPut != nil {
		return perr.Wrapf(m.FailPut, perr.ErrorCodeStorage, "blob: put mem://%s/%s", bucket, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = append([]byte(nil), body...)
	return nil
}

// List returns sorted keys under prefix
func (m *Memory) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		b, key, _ := strings.Cut(k, "\x00")
		if b == bucket && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key if present
func (m *Memory) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, memKey(bucket, key))
	return nil
}

// Ping always succeeds
func (m *Memory) Ping(context.Context, string) error { return nil }

// Len reports the number of stored objects across buckets
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
