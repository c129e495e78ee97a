package floor

import (
	"context"
	"sync"
	"time"
)

// SessionHub hands out one Session per staff member.  Sessions are
// created lazily on first use and keep refreshing until dropped.
type SessionHub struct {
	mu       sync.Mutex
	cfg      SessionConfig
	backend  Backend
	sessions map[uint64]*Session
	baseCtx  context.Context
}

// NewSessionHub builds a hub; baseCtx bounds the lifetime of every
// session's refresh loop.
func NewSessionHub(baseCtx context.Context, cfg SessionConfig, backend Backend) *SessionHub {
	return &SessionHub{
		cfg:      cfg,
		backend:  backend,
		sessions: make(map[uint64]*Session),
		baseCtx:  baseCtx,
	}
}

// Get returns the staff member's session, creating and starting it on
// first use with today's date as the initial view.
func (h *SessionHub) Get(staffID uint64) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[staffID]; ok {
		return s
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	s := NewSession(staffID, h.cfg, h.backend, today)
	s.Start(h.baseCtx)
	h.sessions[staffID] = s
	return s
}

// Drop stops and removes the staff member's session if one exists.
func (h *SessionHub) Drop(staffID uint64) {
	h.mu.Lock()
	s, ok := h.sessions[staffID]
	if ok {
		delete(h.sessions, staffID)
	}
	h.mu.Unlock()
	if ok {
		s.Stop()
	}
}
