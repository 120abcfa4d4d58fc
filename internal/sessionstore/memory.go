package sessionstore

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	attrs   map[string][]byte
	expires time.Time
}

// Memory is an in-process Store. Expired sessions are dropped lazily on access.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time

	// nextPrune is when Set next drops sessions nobody came back for
	nextPrune time.Time
}

// NewMemory creates an in-memory store. ttl <= 0 selects DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Memory) Set(ctx context.Context, sessionID, key string, value any) error {
	b, err := jsonEncode(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if now := m.now(); !now.Before(m.nextPrune) {
		for id, s := range m.sessions {
			if !now.Before(s.expires) {
				delete(m.sessions, id)
			}
		}
		m.nextPrune = now.Add(m.ttl)
	}

	s := m.live(sessionID)
	if s == nil {
		s = &memorySession{attrs: make(map[string][]byte)}
		m.sessions[sessionID] = s
	}
	s.attrs[key] = b
	s.expires = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) Get(ctx context.Context, sessionID, key string, out any) (bool, error) {
	m.mu.Lock()
	s := m.live(sessionID)
	var b []byte
	if s != nil {
		b = s.attrs[key]
	}
	m.mu.Unlock()

	if b == nil {
		return false, nil
	}
	if err := jsonDecode(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Take(ctx context.Context, sessionID, key string, out any) (bool, error) {
	m.mu.Lock()
	s := m.live(sessionID)
	var b []byte
	if s != nil {
		b = s.attrs[key]
		delete(s.attrs, key)
	}
	m.mu.Unlock()

	if b == nil {
		return false, nil
	}
	if err := jsonDecode(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Delete(ctx context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.live(sessionID); s != nil {
		delete(s.attrs, key)
	}
	return nil
}

// Len returns the number of sessions held, including expired ones not yet pruned.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// live returns the session if it exists and has not expired. Must be called with mu held.
func (m *Memory) live(sessionID string) *memorySession {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	if !m.now().Before(s.expires) {
		delete(m.sessions, sessionID)
		return nil
	}
	return s
}
