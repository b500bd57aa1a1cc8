// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Request headers understood by the remote API.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderQueueID        = "X-Queue-ID"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh-token"
	healthPath  = "/health"
)

// HTTPTransport is the resty implementation of [Transport].
type HTTPTransport struct {
	client  *utils.HTTPClient
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewHTTPTransport normalises cfg.HTTPAddress into a base URL and builds the
// client. When cfg.RateLimit is positive, outbound requests are paced with a
// token bucket of cfg.RateBurst.
func NewHTTPTransport(cfg config.ClientAdapter, log *logger.Logger) (*HTTPTransport, error) {
	baseURL, err := normalizeBaseURL(cfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	t := &HTTPTransport{
		client: utils.NewHTTPClient(baseURL, cfg.RequestTimeout),
		logger: log,
	}
	if cfg.RateLimit > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return t, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *HTTPTransport) Execute(ctx context.Context, token string, op models.PendingOperation) (models.RemoteResult, error) {
	method, path, err := requestLine(op)
	if err != nil {
		return models.RemoteResult{}, err
	}
	if err = h.wait(ctx); err != nil {
		return models.RemoteResult{}, mapTransportError(method, path, err)
	}

	req := h.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader(HeaderIdempotencyKey, op.IdempotencyKey).
		SetHeader(HeaderQueueID, strconv.FormatInt(op.QueueID, 10))
	if op.Verb != models.Delete {
		payload := op.Payload
		if payload == nil {
			payload = models.Payload{}
		}
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		h.logger.Debug().Err(err).Str("func", "HTTPTransport.Execute").Int64("queue_id", op.QueueID).
			Str("method", method).Str("path", path).Msg("request failed before response")
		return models.RemoteResult{}, mapTransportError(method, path, err)
	}

	// a Delete of something already gone has reached its goal
	if op.Verb == models.Delete && (resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusGone) {
		return models.RemoteResult{StatusCode: resp.StatusCode()}, nil
	}

	if err = mapHTTPError(resp); err != nil {
		h.logger.Debug().Err(err).Str("func", "HTTPTransport.Execute").Int64("queue_id", op.QueueID).
			Int("status", resp.StatusCode()).Msg("remote rejected operation")
		return models.RemoteResult{}, err
	}

	result := models.RemoteResult{StatusCode: resp.StatusCode()}
	if fields, ok := decodeObject(resp.Body()); ok {
		result.ServerFields = fields
		result.CanonicalID = IDOf(fields)
	}
	return result, nil
}

func (h *HTTPTransport) FetchAll(ctx context.Context, token string, entityType models.EntityType) ([]models.Payload, error) {
	path := "/" + url.PathEscape(string(entityType))
	if err := h.wait(ctx); err != nil {
		return nil, mapTransportError(http.MethodGet, path, err)
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(path)
	if err != nil {
		return nil, mapTransportError(http.MethodGet, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	items, err := decodeList(resp.Body())
	if err != nil {
		return nil, &OperationError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode(), Kind: ErrServer, Body: err.Error(), Err: err}
	}
	return items, nil
}

func (h *HTTPTransport) Refresh(ctx context.Context, refreshToken string) (models.RefreshResponse, error) {
	if err := h.wait(ctx); err != nil {
		return models.RefreshResponse{}, mapTransportError(http.MethodPost, refreshPath, err)
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RefreshRequest{RefreshToken: refreshToken}).
		Post(refreshPath)
	if err != nil {
		return models.RefreshResponse{}, mapTransportError(http.MethodPost, refreshPath, err)
	}

	if err = mapHTTPError(resp); err != nil {
		var opErr *OperationError
		// the server refused the refresh token itself: the session is over
		if errors.As(err, &opErr) && (opErr.Kind == ErrUnauthorized || opErr.Kind == ErrValidation || opErr.Kind == ErrConflict) {
			opErr.Kind = ErrAuth
		}
		return models.RefreshResponse{}, err
	}

	out, err := decodeCredentials(resp.Body())
	if err != nil {
		return models.RefreshResponse{}, &OperationError{Method: http.MethodPost, Path: refreshPath, StatusCode: resp.StatusCode(), Kind: ErrServer, Body: err.Error(), Err: err}
	}
	if out.Token == "" {
		return models.RefreshResponse{}, &OperationError{Method: http.MethodPost, Path: refreshPath, StatusCode: resp.StatusCode(), Kind: ErrAuth, Body: "empty token in refresh response"}
	}
	if out.RefreshToken == "" {
		// servers that don't rotate refresh tokens
		out.RefreshToken = refreshToken
	}
	return out, nil
}

// Login exchanges user credentials for a credential pair. Wrong
// credentials are reported as ErrAuth.
func (h *HTTPTransport) Login(ctx context.Context, req models.LoginRequest) (models.Credentials, error) {
	if err := h.wait(ctx); err != nil {
		return models.Credentials{}, mapTransportError(http.MethodPost, loginPath, err)
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(loginPath)
	if err != nil {
		return models.Credentials{}, mapTransportError(http.MethodPost, loginPath, err)
	}
	if err = mapHTTPError(resp); err != nil {
		var opErr *OperationError
		if errors.As(err, &opErr) && opErr.Kind == ErrUnauthorized {
			opErr.Kind = ErrAuth
		}
		return models.Credentials{}, err
	}

	out, err := decodeCredentials(resp.Body())
	if err != nil {
		return models.Credentials{}, &OperationError{Method: http.MethodPost, Path: loginPath, StatusCode: resp.StatusCode(), Kind: ErrServer, Body: err.Error(), Err: err}
	}
	creds := models.Credentials{Token: out.Token, RefreshToken: out.RefreshToken, User: out.User}
	if !creds.Valid() {
		return models.Credentials{}, &OperationError{Method: http.MethodPost, Path: loginPath, StatusCode: resp.StatusCode(), Kind: ErrAuth, Body: "incomplete credentials in login response"}
	}
	return creds, nil
}

func (h *HTTPTransport) Health(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return mapTransportError(http.MethodGet, healthPath, err)
	}
	return mapHTTPError(resp)
}

func (h *HTTPTransport) wait(ctx context.Context) error {
	if h.limiter == nil {
		return nil
	}
	return h.limiter.Wait(ctx)
}

func requestLine(op models.PendingOperation) (method, path string, err error) {
	if !op.EntityType.Valid() {
		return "", "", fmt.Errorf("%w: entity type %q", ErrUnsupportedVerb, op.EntityType)
	}
	collection := "/" + url.PathEscape(string(op.EntityType))

	switch op.Verb {
	case models.Create:
		return http.MethodPost, collection, nil
	case models.Update:
		return http.MethodPut, collection + "/" + url.PathEscape(op.TargetID), nil
	case models.Delete:
		return http.MethodDelete, collection + "/" + url.PathEscape(op.TargetID), nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedVerb, op.Verb)
}

// decodeObject reads a JSON object body, unwrapping a {"data": {...}}
// envelope. Numbers keep their literal form.
func decodeObject(body []byte) (models.Payload, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		obj = inner
	}
	return models.Payload(obj), true
}

// decodeList reads a JSON array body or a {"data": [...]} envelope.
func decodeList(body []byte) ([]models.Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var items []models.Payload
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Data []models.Payload `json:"data"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode list envelope: %w", err)
	}
	return envelope.Data, nil
}

// IDOf extracts the "id" field of a server object as a string.
func IDOf(fields models.Payload) string {
	switch v := fields["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// decodeCredentials reads a credential pair from a 2xx body regardless of
// the declared content type. A {"data": {...}} envelope is unwrapped.
func decodeCredentials(body []byte) (models.RefreshResponse, error) {
	var out models.RefreshResponse
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return models.RefreshResponse{}, fmt.Errorf("decode credentials: %w", err)
	}
	if out.Token == "" {
		var envelope struct {
			Data models.RefreshResponse `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data.Token != "" {
			out = envelope.Data
		}
	}
	return out, nil
}
