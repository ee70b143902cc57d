package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage keeps sessions in process memory. It backs single-instance
// deployments without Redis and doubles as the test store.
type MemoryStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	pingError error
}

// sweepInterval bounds how often SaveSession scans for expired sessions.
const sweepInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Ensure MemoryStorage implements Storage interface
var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an in-memory store. A ttl <= 0 keeps sessions
// until they are deleted.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[uuid.UUID]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetPingError makes Ping fail with err; nil restores success.
func (m *MemoryStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStorage) Close() error {
	return nil
}

// SaveSession stores an encoded copy, so later changes to s do not leak in.
func (m *MemoryStorage) SaveSession(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	s.UpdatedAt = m.now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[s.ID] = entry
	return nil
}

func (m *MemoryStorage) LoadSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.sessions[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.sessions, id)
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// sweep drops expired sessions that nobody loads again. Callers hold m.mu.
func (m *MemoryStorage) sweep() {
	now := m.now()
	if m.ttl <= 0 || now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for id, entry := range m.sessions {
		if !now.Before(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
}

// Len counts stored sessions. Expired ones are included until they are
// loaded or swept by a later save.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
