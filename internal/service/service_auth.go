// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// refreshTokenLifetimeFactor sets the refresh token lifetime relative to the
// access token lifetime: a day at the default 15 minutes.
const refreshTokenLifetimeFactor = 96

type refreshGrant struct {
	subject   string
	expiresAt time.Time
}

// authService is the development implementation of AuthService. Access
// tokens are HS256 JWTs; refresh tokens are opaque single-use ids kept in
// memory, so restarting the server logs every client out.
type authService struct {
	// password, when non-empty, is the only accepted password.
	password string

	// tokenSignKey is the HMAC secret used to sign and verify JWT tokens.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	tokenIssuer string

	// tokenDuration controls how long a newly issued JWT remains valid.
	tokenDuration time.Duration

	ids *utils.UUIDGenerator
	now func() time.Time

	mu            sync.Mutex
	refreshTokens map[string]refreshGrant

	logger *logger.Logger
}

func NewAuthService(cfg config.DevServerConfig, logger *logger.Logger) AuthService {
	return newAuthService(cfg, logger)
}

func newAuthService(cfg config.DevServerConfig, logger *logger.Logger) *authService {
	return &authService{
		password:      cfg.Password,
		tokenSignKey:  cfg.TokenSignKey,
		tokenIssuer:   cfg.TokenIssuer,
		tokenDuration: cfg.TokenDuration,
		ids:           utils.NewUUIDGenerator(),
		now:           time.Now,
		refreshTokens: make(map[string]refreshGrant),
		logger:        logger,
	}
}

func (a *authService) Login(ctx context.Context, req models.LoginRequest) (models.Credentials, error) {
	log := logger.FromContext(ctx)

	if req.Login == "" || req.Password == "" {
		log.Error().Str("login", req.Login).Msg("invalid login data provided")
		return models.Credentials{}, ErrInvalidDataProvided
	}
	if a.password != "" && subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.password)) != 1 {
		log.Warn().Str("login", req.Login).Msg("wrong password")
		return models.Credentials{}, ErrWrongCredentials
	}

	return a.issue(req.Login)
}

func (a *authService) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	a.mu.Lock()
	grant, ok := a.refreshTokens[refreshToken]
	delete(a.refreshTokens, refreshToken)
	a.mu.Unlock()

	if !ok {
		logger.FromContext(ctx).Warn().Msg("unknown refresh token presented")
		return models.Credentials{}, ErrRefreshTokenRejected
	}
	if !a.now().Before(grant.expiresAt) {
		logger.FromContext(ctx).Warn().Str("subject", grant.subject).Msg("expired refresh token presented")
		return models.Credentials{}, ErrRefreshTokenRejected
	}
	return a.issue(grant.subject)
}

// ParseToken normalises every JWT validation failure to
// ErrTokenIsExpiredOrInvalid.
func (a *authService) ParseToken(ctx context.Context, token string) (string, error) {
	subject, err := utils.ValidateAndParseJWTToken(token, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenIsExpiredOrInvalid, err)
	}
	return subject, nil
}

func (a *authService) issue(subject string) (models.Credentials, error) {
	now := a.now()
	token, err := utils.GenerateJWTToken(a.tokenIssuer, subject, now, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	refresh := a.ids.Generate()
	a.mu.Lock()
	a.pruneExpiredLocked(now)
	a.refreshTokens[refresh] = refreshGrant{subject: subject, expiresAt: now.Add(a.tokenDuration * refreshTokenLifetimeFactor)}
	a.mu.Unlock()

	return models.Credentials{
		Token:        token,
		RefreshToken: refresh,
		User:         &models.User{ID: subject, Name: subject},
	}, nil
}

// pruneExpiredLocked drops refresh tokens nobody redeemed in time.
func (a *authService) pruneExpiredLocked(now time.Time) {
	for token, grant := range a.refreshTokens {
		if !now.Before(grant.expiresAt) {
			delete(a.refreshTokens, token)
		}
	}
}
