package store

import (
	"context"
	"sync"

	"github.com/mscandco/distribution-api/internal/apperr"
)

type memoryBackend struct {
	mu   sync.RWMutex
	docs map[string]map[string]*document
}

// NewMemory returns a process-local store. Documents are held as encoded
// JSON so callers never share state with the store.
func NewMemory() *Store {
	return &Store{
		b:      &memoryBackend{docs: make(map[string]map[string]*document)},
		driver: "memory",
	}
}

func (m *memoryBackend) get(_ context.Context, kind, id string) (*document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[kind][id]
	if !ok {
		return nil, apperr.NotFound(kind, id)
	}
	cp := *d
	return &cp, nil
}

func (m *memoryBackend) list(_ context.Context, kind string, f Filter) ([]*document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*document
	for _, d := range m.docs[kind] {
		if f.matches(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortDocuments(out)
	return out, nil
}

func (m *memoryBackend) put(_ context.Context, d *document, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.docs[d.Kind]
	if !ok {
		byID = make(map[string]*document)
		m.docs[d.Kind] = byID
	}

	var actual int64
	if cur, ok := byID[d.ID]; ok {
		actual = cur.Version
	}
	if actual != expected {
		return conflict(d, expected, actual)
	}
	cp := *d
	byID[d.ID] = &cp
	return nil
}

func (m *memoryBackend) ping(context.Context) error { return nil }

func (m *memoryBackend) close() error { return nil }
