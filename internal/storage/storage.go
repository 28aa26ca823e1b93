// Package storage is the durable key/value contract the workspace overlay
// persists through: whole-record reads and writes plus change notification.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnchanged may be returned by an UpdateFunc to skip the write.
var ErrUnchanged = errors.New("storage: unchanged")

// Record maps keys to their JSON-encoded values.
type Record map[string]json.RawMessage

// Change describes one key transition. A nil OldValue means the key was new.
type Change struct {
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Changes is delivered to listeners, keyed by record key.
type Changes map[string]Change

// Listener receives change notifications. It runs on the writer's goroutine
// and must not call back into the same Storage synchronously.
type Listener func(Changes)

// UpdateFunc maps the current value of a key (nil when absent) to its
// replacement.
type UpdateFunc func(old json.RawMessage) (json.RawMessage, error)

// Storage is a durable key/value store. Writes always replace whole values.
type Storage interface {
	// Get returns the stored values for keys. Missing keys are absent from
	// the result rather than an error.
	Get(ctx context.Context, keys ...string) (Record, error)

	// Set writes every key in rec in one transaction.
	Set(ctx context.Context, rec Record) error

	// Update atomically reads key, applies fn and writes the result.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Subscribe registers fn for change notifications. The returned func
	// unregisters it.
	Subscribe(fn Listener) (cancel func())
}

// GetJSON decodes the value under key into a T, returning def when the key is
// absent or empty.
func GetJSON[T any](ctx context.Context, s Storage, key string, def T) (T, error) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	raw, ok := rec[key]
	if !ok || len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

// UpdateJSON runs a typed read-modify-write of key. fn receives the decoded
// current value (or def) and mutates it in place. Returning ErrUnchanged
// skips the write.
func UpdateJSON[T any](ctx context.Context, s Storage, key string, def T, fn func(v *T) error) error {
	return s.Update(ctx, key, func(old json.RawMessage) (json.RawMessage, error) {
		v := def
		if len(bytes.TrimSpace(old)) > 0 && string(old) != "null" {
			var decoded T
			if err := json.Unmarshal(old, &decoded); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			v = decoded
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
}

// Encode builds a Record from plain values.
func Encode(values map[string]any) (Record, error) {
	rec := make(Record, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		rec[k] = b
	}
	return rec, nil
}

// hub fans out change notifications to subscribers.
type hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func (h *hub) Subscribe(fn Listener) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]Listener)
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) notify(changes Changes) {
	if len(changes) == 0 {
		return
	}
	h.mu.Lock()
	fns := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(changes)
	}
}

// diff records a change when before and after differ.
func diff(changes Changes, key string, before, after []byte) {
	if bytes.Equal(before, after) {
		return
	}
	changes[key] = Change{
		OldValue: cloneBytes(before),
		NewValue: cloneBytes(after),
	}
}

func cloneBytes(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
