package persistence

import (
	"context"
	"sync"

	"github.com/salescrm/crm-portal/internal/domain"
)

// MemoryStore keeps session records in process memory. A restart loses them.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]domain.PersistedSession
	saves   int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.PersistedSession)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*domain.PersistedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	record.User = record.User.Clone()
	return &record, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, record domain.PersistedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.User = record.User.Clone()
	m.records[key] = record
	m.saves++
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Saves counts Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
