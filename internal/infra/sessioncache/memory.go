package sessioncache

import (
	"context"
	"sync"

	"standup_bot/internal/domain/standup"
)

// Memory is a process-local session cache. It is the default when no
// Redis address is configured; a restart simply forces rehydration from
// the persisted response rows.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*standup.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*standup.Session)}
}

func (m *Memory) Get(_ context.Context, userID string) (*standup.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	return session, ok
}

func (m *Memory) Put(_ context.Context, userID string, session *standup.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session
}

func (m *Memory) Delete(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
