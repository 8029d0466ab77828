package kv

import (
	"context"
	"sync"
)

// MemoryStore garde tout en RAM. Utilisé par les tests et les exécutions éphémères.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	seq     uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrKeyNotFound
	}
	// Copie : l'appelant ne doit pas pouvoir muter le blob stocké
	return Entry{Value: append([]byte(nil), e.Value...), Revision: e.Revision}, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(key, value), nil
}

func (m *MemoryStore) CompareAndSwap(_ context.Context, key string, value []byte, expected uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[key].Revision != expected {
		return 0, ErrRevisionMismatch
	}
	return m.write(key, value), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// write suppose m.mu tenu. Les révisions sont globales et strictement croissantes.
func (m *MemoryStore) write(key string, value []byte) uint64 {
	m.seq++
	m.entries[key] = Entry{Value: append([]byte(nil), value...), Revision: m.seq}
	return m.seq
}
