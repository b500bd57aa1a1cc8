// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/models"
)

func newTestTransport(t *testing.T, h http.HandlerFunc) *HTTPTransport {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr, err := NewHTTPTransport(config.ClientAdapter{HTTPAddress: srv.URL, RequestTimeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, err)
	return tr
}

func createOp() models.PendingOperation {
	return models.PendingOperation{
		QueueID:        7,
		EntityType:     models.Listings,
		TargetID:       "tmp_1",
		Verb:           models.Create,
		Payload:        models.Payload{"name": "Maize"},
		IdempotencyKey: "idem-7",
	}
}

// ── Execute ──────────────────────────────────────────────────────────────────

func TestHTTPTransport_Execute_Create(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/listings", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-7", r.Header.Get(HeaderIdempotencyKey))
		assert.Equal(t, "7", r.Header.Get(HeaderQueueID))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Maize", body["name"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":42,"name":"Maize"}}`)
	})

	res, err := tr.Execute(context.Background(), "tok", createOp())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "42", res.CanonicalID)
	assert.Equal(t, "Maize", res.ServerFields["name"])
}

func TestHTTPTransport_Execute_RequestLine(t *testing.T) {
	tests := []struct {
		verb       models.Verb
		wantMethod string
		wantPath   string
	}{
		{models.Update, http.MethodPut, "/transactions/srv_9"},
		{models.Delete, http.MethodDelete, "/transactions/srv_9"},
	}
	for _, tt := range tests {
		t.Run(string(tt.verb), func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				w.WriteHeader(http.StatusNoContent)
			})
			op := models.PendingOperation{QueueID: 1, EntityType: models.Transactions, TargetID: "srv_9", Verb: tt.verb, IdempotencyKey: "k"}
			res, err := tr.Execute(context.Background(), "tok", op)
			require.NoError(t, err)
			assert.Empty(t, res.CanonicalID)
		})
	}
}

func TestHTTPTransport_Execute_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
		class  ErrorClassification
	}{
		{http.StatusBadRequest, ErrValidation, NonRetryable},
		{http.StatusUnauthorized, ErrUnauthorized, AuthExpired},
		{http.StatusNotFound, ErrValidation, NonRetryable},
		{http.StatusRequestTimeout, ErrNetwork, Retryable},
		{http.StatusConflict, ErrConflict, NonRetryable},
		{http.StatusUnprocessableEntity, ErrValidation, NonRetryable},
		{http.StatusTooManyRequests, ErrServer, Retryable},
		{http.StatusInternalServerError, ErrServer, Retryable},
		{http.StatusServiceUnavailable, ErrServer, Retryable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":"nope"}`)
			})
			_, err := tr.Execute(context.Background(), "tok", createOp())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, Classify(err))

			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.status, opErr.StatusCode)
			assert.Contains(t, opErr.Body, "nope")
		})
	}
}

func TestHTTPTransport_Execute_DeleteOfMissingSucceeds(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		op := models.PendingOperation{QueueID: 2, EntityType: models.Listings, TargetID: "srv_1", Verb: models.Delete, IdempotencyKey: "k"}
		res, err := tr.Execute(context.Background(), "tok", op)
		require.NoError(t, err)
		assert.Equal(t, status, res.StatusCode)
	}
}

func TestHTTPTransport_Execute_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr, err := NewHTTPTransport(config.ClientAdapter{HTTPAddress: addr, RequestTimeout: time.Second}, logger.Nop())
	require.NoError(t, err)

	_, err = tr.Execute(context.Background(), "tok", createOp())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, Retryable, Classify(err))
}

func TestHTTPTransport_Execute_UnsupportedVerb(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	op := createOp()
	op.Verb = "patch"
	_, err := tr.Execute(context.Background(), "tok", op)
	assert.ErrorIs(t, err, ErrUnsupportedVerb)
	assert.Equal(t, NonRetryable, Classify(err))
}

func TestHTTPTransport_RateLimit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	tr, err := NewHTTPTransport(config.ClientAdapter{HTTPAddress: srv.URL, RateLimit: 1, RateBurst: 1}, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, tr.limiter)

	_, err = tr.Execute(context.Background(), "tok", createOp())
	require.NoError(t, err)

	// bucket is empty: the second call can't get a token before the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Execute(ctx, "tok", createOp())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

// ── FetchAll ─────────────────────────────────────────────────────────────────

func TestHTTPTransport_FetchAll(t *testing.T) {
	bodies := map[string]string{
		"array":    `[{"id":"a"},{"id":"b"}]`,
		"envelope": `{"data":[{"id":"a"},{"id":"b"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/listings", r.URL.Path)
				_, _ = io.WriteString(w, body)
			})
			items, err := tr.FetchAll(context.Background(), "tok", models.Listings)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "b", IDOf(items[1]))
		})
	}
}

func TestHTTPTransport_FetchAll_BadBody(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":`)
	})
	_, err := tr.FetchAll(context.Background(), "tok", models.Listings)
	assert.ErrorIs(t, err, ErrServer)
}

// ── Refresh / Health ─────────────────────────────────────────────────────────

func TestHTTPTransport_Refresh(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, refreshPath, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var req models.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "r1", req.RefreshToken)
		_, _ = io.WriteString(w, `{"token":"t2","refreshToken":"r2","user":{"id":"u1"}}`)
	})

	resp, err := tr.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Token)
	assert.Equal(t, "r2", resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestHTTPTransport_Refresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"t2"}`)
	})
	resp, err := tr.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.RefreshToken)
}

func TestHTTPTransport_Refresh_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusBadRequest} {
		tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := tr.Refresh(context.Background(), "r1")
		assert.ErrorIs(t, err, ErrAuth)
		assert.Equal(t, AuthExpired, Classify(err))
	}
}

func TestHTTPTransport_Refresh_ServerErrorIsRetryable(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := tr.Refresh(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrAuth)
}

// Тело с токенами читается независимо от заявленного Content-Type.
func TestHTTPTransport_Refresh_AnyContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType []string
		body        string
	}{
		{name: "no content type", contentType: nil, body: `{"token":"t2","refreshToken":"r2"}`},
		{name: "text plain", contentType: []string{"text/plain"}, body: `{"token":"t2","refreshToken":"r2"}`},
		{name: "octet stream", contentType: []string{"application/octet-stream"}, body: `{"token":"t2","refreshToken":"r2"}`},
		{name: "data envelope", contentType: []string{"application/json"}, body: `{"data":{"token":"t2","refreshToken":"r2"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				// nil suppresses content sniffing
				w.Header()["Content-Type"] = tt.contentType
				_, _ = io.WriteString(w, tt.body)
			})

			resp, err := tr.Refresh(context.Background(), "r1")
			require.NoError(t, err)
			assert.Equal(t, "t2", resp.Token)
			assert.Equal(t, "r2", resp.RefreshToken)
		})
	}
}

func TestHTTPTransport_Refresh_MalformedBodyIsNotAuthFailure(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":`)
	})

	_, err := tr.Refresh(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.Equal(t, Retryable, Classify(err))
}

func TestHTTPTransport_Login_NoContentType(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = io.WriteString(w, `{"token":"t1","refreshToken":"r1","user":{"id":"farmer"}}`)
	})

	creds, err := tr.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", creds.Token)
	require.NotNil(t, creds.User)
	assert.Equal(t, "farmer", creds.User.ID)
}

func TestHTTPTransport_Login(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, loginPath, r.URL.Path)
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"token":"t1","refreshToken":"r1","user":{"id":"farmer"}}`)
	})

	creds, err := tr.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", creds.Token)
	assert.Equal(t, "r1", creds.RefreshToken)

	_, err = tr.Login(context.Background(), models.LoginRequest{Login: "farmer", Password: "wrong"})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestHTTPTransport_Health(t *testing.T) {
	var healthy atomic.Bool
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthPath, r.URL.Path)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.ErrorIs(t, tr.Health(context.Background()), ErrServer)
	healthy.Store(true)
	assert.NoError(t, tr.Health(context.Background()))
}

func TestNormalizeBaseURL(t *testing.T) {
	got, err := normalizeBaseURL("localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", got)

	got, err = normalizeBaseURL(" https://api.example.com ")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", got)

	_, err = normalizeBaseURL("")
	assert.Error(t, err)
}
