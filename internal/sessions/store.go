// Package sessions persists widget sessions between restarts.
package sessions

import (
	"context"
	"sync"

	"github.com/edgard/longopass/internal/widget"
)

// Store loads and saves widget sessions by key.
type Store interface {
	Load(ctx context.Context, key string) (widget.Session, bool, error)
	Save(ctx context.Context, key string, s widget.Session) error
	Delete(ctx context.Context, key string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]widget.Session
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]widget.Session)}
}

func (m *Memory) Load(_ context.Context, key string) (widget.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	return s, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, s widget.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
