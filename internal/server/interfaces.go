// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"net"
)

// Server is the lifecycle contract of the development remote API.
type Server interface {
	// RunServer serves until a stop signal arrives or ctx is cancelled,
	// then shuts down gracefully.
	RunServer(ctx context.Context) error

	// Shutdown stops accepting connections and waits for in-flight
	// requests until ctx expires.
	Shutdown(ctx context.Context) error

	// Addr is the bound listener address, nil until the server listens.
	Addr() net.Addr
}
