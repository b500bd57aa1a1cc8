// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

const testPassword = "secret"

func testConfig() *config.DevServerConfig {
	return &config.DevServerConfig{
		HTTPAddress:    "localhost:0",
		RequestTimeout: 5 * time.Second,
		TokenSignKey:   "test-sign-key",
		TokenIssuer:    "go-offline-sync-test",
		TokenDuration:  time.Minute,
		Version:        "v1.2.3",
		Password:       testPassword,
	}
}

// newTestHandler собирает Handler на реальных сервисах поверх MemoryStore.
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	services, err := service.NewServices(store.NewMemoryStore(), testConfig(), logger.Nop())
	require.NoError(t, err)
	return NewHandler(services, logger.Nop())
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestHandler(t).Init()
}

func do(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// login возвращает пару токенов для пользователя "alice".
func login(t *testing.T, router http.Handler) (token, refresh string) {
	t.Helper()
	rr := do(t, router, http.MethodPost, "/auth/login", `{"login":"alice","password":"secret"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody(t, rr)
	token, _ = body["token"].(string)
	refresh, _ = body["refreshToken"].(string)
	require.NotEmpty(t, token)
	require.NotEmpty(t, refresh)
	return token, refresh
}

func bearer(token string, extra ...string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + token}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

// ─── Health / Version ──────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get(traceIDHeader))
}

func TestVersion(t *testing.T) {
	router := newTestRouter(t)

	rr := do(t, router, http.MethodGet, "/version", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "v1.2.3", decodeBody(t, rr)["version"])
}

// ─── Auth ──────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid credentials", body: `{"login":"alice","password":"secret"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"login":"alice","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "empty login", body: `{"login":"","password":"secret"}`, wantStatus: http.StatusBadRequest},
		{name: "broken json", body: `{"login":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t)
			rr := do(t, router, http.MethodPost, "/auth/login", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			body := decodeBody(t, rr)
			if tt.wantStatus == http.StatusOK {
				assert.NotEmpty(t, body["token"])
				assert.NotEmpty(t, body["refreshToken"])
				user, _ := body["user"].(map[string]any)
				assert.Equal(t, "alice", user["id"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestRefreshToken_SingleUse(t *testing.T) {
	router := newTestRouter(t)
	_, refresh := login(t, router)

	rr := do(t, router, http.MethodPost, "/auth/refresh-token", `{"refreshToken":"`+refresh+`"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.NotEmpty(t, body["token"])
	assert.NotEqual(t, refresh, body["refreshToken"])

	// второй раз тот же refresh-токен не принимается
	rr = do(t, router, http.MethodPost, "/auth/refresh-token", `{"refreshToken":"`+refresh+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "no header", headers: nil, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", headers: map[string]string{"Authorization": "Basic abc"}, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", headers: bearer("not-a-jwt"), wantStatus: http.StatusUnauthorized},
		{name: "valid token", headers: bearer(token), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodGet, "/listings", "", tt.headers)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

// ─── Records ───────────────────────────────────────────────────────────────

func TestRecords_Lifecycle(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router)

	rr := do(t, router, http.MethodPost, "/listings", `{"title":"Maize","price":12}`, bearer(token, idempotencyKeyHeader, "k-1"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created, _ := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, "L-1", created["id"])
	assert.Equal(t, "Maize", created["title"])

	rr = do(t, router, http.MethodPut, "/listings/L-1", `{"price":15}`, bearer(token, idempotencyKeyHeader, "k-2"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated, _ := decodeBody(t, rr)["data"].(map[string]any)
	assert.Equal(t, "Maize", updated["title"])
	assert.EqualValues(t, 15, updated["price"])

	rr = do(t, router, http.MethodGet, "/listings", "", bearer(token))
	require.Equal(t, http.StatusOK, rr.Code)
	list, _ := decodeBody(t, rr)["data"].([]any)
	require.Len(t, list, 1)

	rr = do(t, router, http.MethodDelete, "/listings/L-1", "", bearer(token, idempotencyKeyHeader, "k-3"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.Bytes())

	rr = do(t, router, http.MethodGet, "/listings", "", bearer(token))
	list, _ = decodeBody(t, rr)["data"].([]any)
	assert.Empty(t, list)
}

func TestRecords_IdempotentReplay(t *testing.T) {
	router := newTestRouter(t)
	token, _ := login(t, router)
	headers := bearer(token, idempotencyKeyHeader, "same-key")

	first := do(t, router, http.MethodPost, "/listings", `{"title":"Maize"}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	second := do(t, router, http.MethodPost, "/listings", `{"title":"Maize"}`, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(replayedHeader))
	assert.Equal(t, decodeBody(t, first)["data"], decodeBody(t, second)["data"])

	// повтор не создал вторую запись
	rr := do(t, router, http.MethodGet, "/listings", "", bearer(token))
	list, _ := decodeBody(t, rr)["data"].([]any)
	assert.Len(t, list, 1)

	// тот же ключ с другим телом отклоняется
	rr = do(t, router, http.MethodPost, "/listings", `{"title":"Rice"}`, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRecords_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "unknown entity", method: http.MethodGet, path: "/users", wantStatus: http.StatusNotFound},
		{name: "unknown entity on create", method: http.MethodPost, path: "/users", body: `{}`, wantStatus: http.StatusNotFound},
		{name: "create without title", method: http.MethodPost, path: "/listings", body: `{"price":1}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "broken json", method: http.MethodPost, path: "/listings", body: `{"title":`, wantStatus: http.StatusBadRequest},
		{name: "update missing record", method: http.MethodPut, path: "/listings/L-404", body: `{"title":"x"}`, wantStatus: http.StatusNotFound},
		{name: "update without fields", method: http.MethodPut, path: "/listings/L-1", body: `{}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "delete missing record", method: http.MethodDelete, path: "/transactions/T-404", wantStatus: http.StatusNotFound},
	}

	router := newTestRouter(t)
	token, _ := login(t, router)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, tt.method, tt.path, tt.body, bearer(token))
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody(t, rr)["error"])
		})
	}
}

// ─── Middleware ────────────────────────────────────────────────────────────

func TestWithTraceID(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "trace-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.NotNil(t, logger.FromRequest(r))
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.incoming != "" {
				req.Header.Set(traceIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.withTraceID(next).ServeHTTP(rr, req)

			assert.True(t, called)
			got := rr.Header().Get(traceIDHeader)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEmpty(t, got)
			}
		})
	}
}

// Тело больше лимита отклоняется с 413 и не доходит до обработчика.
func TestWithIdempotency_BodyTooLarge(t *testing.T) {
	h := newTestHandler(t)
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	body := `{"title":"` + strings.Repeat("x", maxBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(body))
	req.Header.Set(idempotencyKeyHeader, "k")
	rec := httptest.NewRecorder()
	h.withIdempotency(next).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())

	// ровно на лимите тело проходит целиком
	called = false
	req = httptest.NewRequest(http.MethodPost, "/listings", strings.NewReader(strings.Repeat(" ", maxBodySize)))
	rec = httptest.NewRecorder()
	h.withIdempotency(next).ServeHTTP(rec, req)
	assert.True(t, called)
}

func TestWithIdempotency_Fingerprint(t *testing.T) {
	h := newTestHandler(t)

	capture := func(method, path, body, key string) idempotency {
		var got idempotency
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = idempotencyFromRequest(r)
			// тело остаётся доступным следующему обработчику
			rest, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Equal(t, body, string(rest))
		})
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if key != "" {
			req.Header.Set(idempotencyKeyHeader, key)
		}
		h.withIdempotency(next).ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	a := capture(http.MethodPost, "/listings", `{"title":"a"}`, "k")
	b := capture(http.MethodPost, "/listings", `{"title":"a"}`, "k")
	c := capture(http.MethodPost, "/listings", `{"title":"b"}`, "k")
	d := capture(http.MethodPut, "/listings", `{"title":"a"}`, "k")
	none := capture(http.MethodPost, "/listings", `{"title":"a"}`, "")

	assert.Equal(t, "k", a.key)
	assert.Equal(t, a.fingerprint, b.fingerprint)
	assert.NotEqual(t, a.fingerprint, c.fingerprint)
	assert.NotEqual(t, a.fingerprint, d.fingerprint)
	assert.Empty(t, none.fingerprint)
	assert.Equal(t, `{"title":"a"}`, string(none.body))
}

func TestResponseWriter_RecordsStatusAndSize(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, status: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)
	n, err := rw.Write([]byte("hello"))

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusTeapot, rw.status)
	assert.Equal(t, 5, rw.size)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusFromError(service.ErrIdempotencyKeyReused))
	assert.Equal(t, http.StatusNotFound, statusFromError(service.ErrRemoteRecordNotFound))
	assert.Equal(t, http.StatusUnauthorized, statusFromError(service.ErrTokenIsExpiredOrInvalid))
	assert.Equal(t, http.StatusInternalServerError, statusFromError(assert.AnError))
}
