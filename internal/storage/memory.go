package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Memory is an in-process Storage. The zero value is not usable; call NewMemory.
type Memory struct {
	hub

	mu     sync.Mutex
	values map[string][]byte

	// FailGet and FailSet inject errors for tests.
	FailGet error
	FailSet error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get implements Storage.
func (m *Memory) Get(ctx context.Context, keys ...string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return nil, m.FailGet
	}

	rec := make(Record)
	if len(keys) == 0 {
		for k, v := range m.values {
			rec[k] = cloneBytes(v)
		}
		return rec, nil
	}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			rec[k] = cloneBytes(v)
		}
	}
	return rec, nil
}

// Set implements Storage.
func (m *Memory) Set(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.FailSet != nil {
		m.mu.Unlock()
		return m.FailSet
	}
	changes := make(Changes)
	for k, v := range rec {
		diff(changes, k, m.values[k], v)
		m.values[k] = cloneBytes(v)
	}
	m.mu.Unlock()

	m.notify(changes)
	return nil
}

// Update implements Storage.
func (m *Memory) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.FailGet != nil {
		m.mu.Unlock()
		return m.FailGet
	}
	old := m.values[key]
	next, err := fn(cloneBytes(old))
	if errors.Is(err, ErrUnchanged) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if m.FailSet != nil {
		m.mu.Unlock()
		return m.FailSet
	}
	changes := make(Changes)
	diff(changes, key, old, next)
	m.values[key] = cloneBytes(next)
	m.mu.Unlock()

	m.notify(changes)
	return nil
}

// Raw returns the stored bytes for key, for assertions in tests.
func (m *Memory) Raw(key string) json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneBytes(m.values[key])
}
