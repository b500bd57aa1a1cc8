// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

const (
	defaultRefreshTimeout = 15 * time.Second
	defaultExpiryLeeway   = 10 * time.Second
	refreshKey            = "refresh"
)

// AuthGuard implements [RemoteAPI] on top of a [Transport] and a
// [SessionManager].
//
// Every call pins the current session. A call that receives 401 waits for a
// single shared refresh and then replays exactly once with the new token. A
// refresh that the server rejects invalidates the session and surfaces
// ErrAuth; a refresh that fails on the network keeps the session so the
// operation is retried later.
type AuthGuard struct {
	transport Transport
	sessions  *SessionManager
	group     singleflight.Group
	logger    *logger.Logger

	now            func() time.Time
	leeway         time.Duration
	refreshTimeout time.Duration
}

func NewAuthGuard(transport Transport, sessions *SessionManager, log *logger.Logger) *AuthGuard {
	return &AuthGuard{
		transport:      transport,
		sessions:       sessions,
		logger:         log,
		now:            time.Now,
		leeway:         defaultExpiryLeeway,
		refreshTimeout: defaultRefreshTimeout,
	}
}

func (g *AuthGuard) Execute(ctx context.Context, op models.PendingOperation) (models.RemoteResult, error) {
	return withAuth(ctx, g, func(ctx context.Context, token string) (models.RemoteResult, error) {
		return g.transport.Execute(ctx, token, op)
	})
}

func (g *AuthGuard) FetchAll(ctx context.Context, entityType models.EntityType) ([]models.Payload, error) {
	return withAuth(ctx, g, func(ctx context.Context, token string) ([]models.Payload, error) {
		return g.transport.FetchAll(ctx, token, entityType)
	})
}

// Login installs credentials obtained out of band (the login screen or a
// persisted session) and returns the new session.
func (g *AuthGuard) Login(ctx context.Context, creds models.Credentials) (*Session, error) {
	return g.sessions.Set(ctx, creds)
}

// Sessions exposes the underlying session manager.
func (g *AuthGuard) Sessions() *SessionManager {
	return g.sessions
}

func withAuth[T any](ctx context.Context, g *AuthGuard, call func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T

	session, release, err := g.sessions.Acquire()
	defer release()
	if err != nil {
		return zero, err
	}

	// skip a round-trip that is known to fail
	if utils.IsTokenExpired(session.Credentials.Token, g.now(), g.leeway) {
		g.logger.Debug().Str("func", "AuthGuard.withAuth").Uint64("generation", session.Generation).
			Msg("access token expired before call, refreshing")
		next, err := g.refresh(ctx, session)
		if err != nil {
			return zero, err
		}
		release()
		session, release, err = g.acquireGeneration(next)
		defer release()
		if err != nil {
			return zero, err
		}
	}

	out, err := call(ctx, session.Credentials.Token)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return out, err
	}

	next, err := g.refresh(ctx, session)
	if err != nil {
		return zero, err
	}
	release()
	session, release, err = g.acquireGeneration(next)
	defer release()
	if err != nil {
		return zero, err
	}

	out, err = call(ctx, session.Credentials.Token)
	if errors.Is(err, ErrUnauthorized) {
		// a freshly issued token was refused; the credentials are unusable
		g.sessions.Invalidate(ctx, session.Generation)
		return zero, fmt.Errorf("%w: replay rejected after refresh: %w", ErrAuth, err)
	}
	return out, err
}

// acquireGeneration pins s, which must still be the current session.
func (g *AuthGuard) acquireGeneration(s *Session) (*Session, func(), error) {
	cur, release, err := g.sessions.Acquire()
	if err != nil {
		return nil, release, err
	}
	if cur.Generation < s.Generation {
		release()
		return nil, func() {}, fmt.Errorf("%w: %w", ErrAuth, ErrNoSession)
	}
	return cur, release, nil
}

// refresh returns a session newer than stale. Concurrent callers share one
// refresh request. If another caller already replaced stale, no request is
// made.
func (g *AuthGuard) refresh(ctx context.Context, stale *Session) (*Session, error) {
	if cur := g.sessions.Current(); cur != nil && cur.Generation > stale.Generation {
		return cur, nil
	}

	ch := g.group.DoChan(refreshKey, func() (any, error) {
		if cur := g.sessions.Current(); cur == nil {
			return nil, fmt.Errorf("%w: %w", ErrAuth, ErrNoSession)
		} else if cur.Generation > stale.Generation {
			return cur, nil
		}

		// the refresh outlives any single caller's cancellation
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
		defer cancel()

		resp, err := g.transport.Refresh(rctx, stale.Credentials.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				g.logger.Err(err).Str("func", "AuthGuard.refresh").Msg("refresh token rejected")
				g.sessions.Invalidate(rctx, stale.Generation)
				return nil, err
			}
			g.logger.Warn().Err(err).Str("func", "AuthGuard.refresh").Msg("refresh failed, keeping session")
			return nil, err
		}

		user := resp.User
		if user == nil {
			user = stale.Credentials.User
		}
		return g.sessions.Replace(rctx, stale.Generation, models.Credentials{
			Token:        resp.Token,
			RefreshToken: resp.RefreshToken,
			User:         user,
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}
