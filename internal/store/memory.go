package store

import (
	"context"
	"sync"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
)

// MemoryStore keeps the cart in process memory. Used by tests and by
// hosts that opt out of durability.
type MemoryStore struct {
	mu    sync.RWMutex
	lines []domain.CartLine
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) ([]domain.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, ErrNotFound
	}
	return domain.CloneLines(m.lines), nil
}

func (m *MemoryStore) Save(_ context.Context, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = domain.CloneLines(lines)
	m.set = true
	return nil
}

func (m *MemoryStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
	m.set = false
	return nil
}
