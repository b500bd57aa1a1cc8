// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// User is the account the session belongs to, as returned by the remote
// API. The engine stores it verbatim next to the tokens.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Credentials is the persisted form of an auth session. It lives under
// userData["session"] so a background wake can restore it.
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// Valid reports whether both tokens are present.
func (c Credentials) Valid() bool {
	return c.Token != "" && c.RefreshToken != ""
}

// RefreshRequest is the body of POST /auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is the body returned by POST /auth/refresh-token.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user,omitempty"`
}

// LoginRequest is the body of POST /auth/login on the development server.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
