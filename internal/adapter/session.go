// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

// SessionKey is the userData key the session is persisted under.
const SessionKey = "session"

// Session is one immutable credential generation. A refresh produces a new
// Session with a higher Generation; the old one stays valid for the calls
// that still hold it.
type Session struct {
	Credentials models.Credentials
	Generation  uint64

	refs atomic.Int64
}

// InFlight is the number of calls currently holding the session.
func (s *Session) InFlight() int64 {
	return s.refs.Load()
}

// SessionManager owns the current [Session]. It persists every change to the
// record store so a background wake can pick it up.
type SessionManager struct {
	store  store.Tx
	logger *logger.Logger

	mu          sync.Mutex
	current     *Session
	generation  uint64
	subscribers map[int]func(active bool)
	nextSubID   int
}

func NewSessionManager(st store.Tx, log *logger.Logger) *SessionManager {
	return &SessionManager{
		store:       st,
		logger:      log,
		subscribers: make(map[int]func(bool)),
	}
}

// Restore loads a persisted session. It reports whether one was found.
func (m *SessionManager) Restore(ctx context.Context) (bool, error) {
	var creds models.Credentials
	err := store.GetUserData(ctx, m.store, SessionKey, &creds)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if !creds.Valid() {
		return false, nil
	}

	m.mu.Lock()
	m.generation++
	m.current = &Session{Credentials: creds, Generation: m.generation}
	m.mu.Unlock()

	m.notify(true)
	return true, nil
}

// Set installs a brand-new session, e.g. after login.
func (m *SessionManager) Set(ctx context.Context, creds models.Credentials) (*Session, error) {
	if !creds.Valid() {
		return nil, fmt.Errorf("%w: incomplete credentials", ErrAuth)
	}
	if err := store.PutUserData(ctx, m.store, SessionKey, creds); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.generation++
	s := &Session{Credentials: creds, Generation: m.generation}
	m.current = s
	m.mu.Unlock()

	m.logger.Info().Str("func", "SessionManager.Set").Uint64("generation", s.Generation).Msg("auth session installed")
	m.notify(true)
	return s, nil
}

// Replace swaps in refreshed credentials if generation is still current.
// Otherwise the session that replaced it is returned unchanged.
func (m *SessionManager) Replace(ctx context.Context, generation uint64, creds models.Credentials) (*Session, error) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrAuth, ErrNoSession)
	}
	if m.current.Generation != generation {
		cur := m.current
		m.mu.Unlock()
		return cur, nil
	}
	m.generation++
	s := &Session{Credentials: creds, Generation: m.generation}
	m.current = s
	m.mu.Unlock()

	if err := store.PutUserData(ctx, m.store, SessionKey, creds); err != nil {
		// the in-memory session is still usable; the next refresh retries persistence
		m.logger.Err(err).Str("func", "SessionManager.Replace").Msg("failed to persist refreshed session")
	}
	return s, nil
}

// Invalidate drops the session of the given generation and removes the
// persisted copy. A newer session is left untouched.
func (m *SessionManager) Invalidate(ctx context.Context, generation uint64) {
	m.mu.Lock()
	if m.current == nil || m.current.Generation != generation {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()

	if err := store.DeleteUserData(ctx, m.store, SessionKey); err != nil {
		m.logger.Err(err).Str("func", "SessionManager.Invalidate").Msg("failed to remove persisted session")
	}
	m.logger.Warn().Str("func", "SessionManager.Invalidate").Uint64("generation", generation).Msg("auth session invalidated")
	m.notify(false)
}

// Clear is an explicit logout.
func (m *SessionManager) Clear(ctx context.Context) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		m.Invalidate(ctx, cur.Generation)
	}
}

// Current returns the active session or nil.
func (m *SessionManager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Active reports whether a session exists.
func (m *SessionManager) Active() bool {
	return m.Current() != nil
}

// Acquire pins the current session for the duration of one call. release
// must be called exactly once.
func (m *SessionManager) Acquire() (*Session, func(), error) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil, func() {}, fmt.Errorf("%w: %w", ErrAuth, ErrNoSession)
	}

	s.refs.Add(1)
	var once sync.Once
	return s, func() { once.Do(func() { s.refs.Add(-1) }) }, nil
}

// Subscribe registers fn for session activation changes. fn runs on the
// goroutine that changed the session and must not block.
func (m *SessionManager) Subscribe(fn func(active bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *SessionManager) notify(active bool) {
	m.mu.Lock()
	fns := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(active)
	}
}

// IsAuthError reports whether err means the session is gone.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}
