// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

func testDevServerConfig() config.DevServerConfig {
	return config.DevServerConfig{
		HTTPAddress:   "localhost:0",
		TokenSignKey:  "test-sign-key",
		TokenIssuer:   "go-offline-sync-test",
		TokenDuration: time.Minute,
		Version:       "test",
	}
}

// ─────────────────────────────────────────────
// Login
// ─────────────────────────────────────────────

func TestAuthService_Login(t *testing.T) {
	svc := NewAuthService(testDevServerConfig(), logger.Nop())

	creds, err := svc.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "any"})
	require.NoError(t, err)
	assert.True(t, creds.Valid())
	require.NotNil(t, creds.User)
	assert.Equal(t, "farmer", creds.User.ID)

	subject, err := svc.ParseToken(context.Background(), creds.Token)
	require.NoError(t, err)
	assert.Equal(t, "farmer", subject)

	exp, err := utils.TokenExpiry(creds.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)
}

func TestAuthService_Login_InvalidData(t *testing.T) {
	svc := NewAuthService(testDevServerConfig(), logger.Nop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "farmer"})
	assert.ErrorIs(t, err, ErrInvalidDataProvided)
}

func TestAuthService_Login_ConfiguredPassword(t *testing.T) {
	cfg := testDevServerConfig()
	cfg.Password = "secret"
	svc := NewAuthService(cfg, logger.Nop())

	for _, wrong := range []string{"guess", "secre", "secret2", "SECRET"} {
		_, err := svc.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: wrong})
		assert.ErrorIs(t, err, ErrWrongCredentials, wrong)
	}

	_, err := svc.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "secret"})
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────
// Refresh
// ─────────────────────────────────────────────

func TestAuthService_Refresh_RotatesOnce(t *testing.T) {
	svc := NewAuthService(testDevServerConfig(), logger.Nop())
	ctx := context.Background()

	creds, err := svc.Login(ctx, models.LoginRequest{Login: "farmer", Password: "x"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, creds.RefreshToken, next.RefreshToken)
	assert.Equal(t, "farmer", next.User.ID)

	_, err = svc.Refresh(ctx, creds.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRejected, "a refresh token is single use")

	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_Unknown(t *testing.T) {
	svc := NewAuthService(testDevServerConfig(), logger.Nop())

	_, err := svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrRefreshTokenRejected)
}

// Просроченный refresh-токен отклоняется, а неиспользованные токены
// вычищаются при выдаче новых.
func TestAuthService_Refresh_Expires(t *testing.T) {
	svc := newAuthService(testDevServerConfig(), logger.Nop())
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	stale, err := svc.Login(ctx, models.LoginRequest{Login: "farmer", Password: "x"})
	require.NoError(t, err)
	fresh, err := svc.Login(ctx, models.LoginRequest{Login: "farmer", Password: "x"})
	require.NoError(t, err)

	lifetime := testDevServerConfig().TokenDuration * refreshTokenLifetimeFactor
	now = now.Add(lifetime - time.Second)
	_, err = svc.Refresh(ctx, fresh.RefreshToken)
	require.NoError(t, err, "still valid just before expiry")

	now = now.Add(time.Second)
	_, err = svc.Refresh(ctx, stale.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRejected)

	// выдача новой пары удаляет всё, что истекло к этому моменту
	now = now.Add(lifetime)
	_, err = svc.Login(ctx, models.LoginRequest{Login: "other", Password: "x"})
	require.NoError(t, err)
	svc.mu.Lock()
	assert.Len(t, svc.refreshTokens, 1)
	svc.mu.Unlock()
}

// ─────────────────────────────────────────────
// ParseToken
// ─────────────────────────────────────────────

func TestAuthService_ParseToken_Expired(t *testing.T) {
	svc := newAuthService(testDevServerConfig(), logger.Nop())
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	creds, err := svc.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "x"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), creds.Token)
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}

func TestAuthService_ParseToken_WrongKey(t *testing.T) {
	svc := NewAuthService(testDevServerConfig(), logger.Nop())

	cfg := testDevServerConfig()
	cfg.TokenSignKey = "another-key"
	other := NewAuthService(cfg, logger.Nop())
	creds, err := other.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "x"})
	require.NoError(t, err)

	_, err = svc.ParseToken(context.Background(), creds.Token)
	assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
}
