package storage

import (
	"fmt"
	"sync"
)

// entry is a single typed value held by MemoryStore.
type entry struct {
	kind  string
	value []byte
}

// MemoryStore is an in-memory Store implementation.
//
// It is used by tests and by transient deployments that do not need
// persistence across restarts. All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
}

// NewMemory creates an empty in-memory store with the default entry budget.
func NewMemory() *MemoryStore {
	return NewMemoryWithCapacity(defaultCapacity)
}

// NewMemoryWithCapacity creates an empty in-memory store with the given
// entry budget.
func NewMemoryWithCapacity(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{
		entries:  make(map[string]entry),
		capacity: capacity,
	}
}

func (m *MemoryStore) get(key, kind string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.kind != kind {
		return nil, false
	}
	return e.value, true
}

func (m *MemoryStore) put(key, kind string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.capacity {
		return fmt.Errorf("%w: %d entries", ErrCapacityExceeded, m.capacity)
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = entry{kind: kind, value: stored}
	return nil
}

// GetBool returns the stored boolean for key, or def if absent.
func (m *MemoryStore) GetBool(key string, def bool) (bool, bool) {
	raw, found := m.get(key, kindBool)
	if !found {
		return def, false
	}
	return string(raw) == "1", true
}

// GetInt returns the stored int32 for key, or def if absent.
func (m *MemoryStore) GetInt(key string, def int32) (int32, bool) {
	raw, found := m.get(key, kindInt)
	if !found {
		return def, false
	}
	var v int32
	if _, err := fmt.Sscanf(string(raw), "%d", &v); err != nil {
		return def, false
	}
	return v, true
}

// GetFloat returns the stored float32 for key, or def if absent.
func (m *MemoryStore) GetFloat(key string, def float32) (float32, bool) {
	raw, found := m.get(key, kindFloat)
	if !found {
		return def, false
	}
	var v float32
	if _, err := fmt.Sscanf(string(raw), "%g", &v); err != nil {
		return def, false
	}
	return v, true
}

// GetString returns the stored string for key, or def if absent.
func (m *MemoryStore) GetString(key string, def string) (string, bool) {
	raw, found := m.get(key, kindString)
	if !found {
		return def, false
	}
	return string(raw), true
}

// GetBytes returns a copy of the stored blob for key, or nil if absent.
func (m *MemoryStore) GetBytes(key string) ([]byte, bool) {
	raw, found := m.get(key, kindBytes)
	if !found {
		return nil, false
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true
}

// PutBool stores a boolean value.
func (m *MemoryStore) PutBool(key string, value bool) error {
	encoded := "0"
	if value {
		encoded = "1"
	}
	return m.put(key, kindBool, []byte(encoded))
}

// PutInt stores an int32 value.
func (m *MemoryStore) PutInt(key string, value int32) error {
	return m.put(key, kindInt, []byte(fmt.Sprintf("%d", value)))
}

// PutFloat stores a float32 value.
func (m *MemoryStore) PutFloat(key string, value float32) error {
	return m.put(key, kindFloat, []byte(fmt.Sprintf("%g", value)))
}

// PutString stores a string value.
func (m *MemoryStore) PutString(key string, value string) error {
	return m.put(key, kindString, []byte(value))
}

// PutBytes stores a blob value.
func (m *MemoryStore) PutBytes(key string, value []byte) error {
	return m.put(key, kindBytes, value)
}

// Remove deletes a single key. Removing an absent key is not an error.
func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear deletes every key in the store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// Stats reports entry usage against the capacity budget.
func (m *MemoryStore) Stats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := len(m.entries)
	free := m.capacity - used
	if free < 0 {
		free = 0
	}
	return Stats{
		UsedEntries:  used,
		FreeEntries:  free,
		TotalEntries: m.capacity,
	}, nil
}
