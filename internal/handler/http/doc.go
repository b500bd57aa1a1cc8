// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http implements the development remote API the sync engine
// replays its queue against.
//
// It exposes the record envelope (POST /{entity}, PUT and DELETE
// /{entity}/{id}, GET /{entity}), the auth endpoints (/auth/login,
// /auth/refresh-token) and GET /health. Tracing, access logging, bearer
// authentication and Idempotency-Key fingerprinting are middleware in this
// package; the business rules live in the service layer.
package http
