// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

type httpServer struct {
	server *http.Server
	logger *logger.Logger

	mu   sync.Mutex
	addr net.Addr
}

// Serve listens on the configured address and blocks until the server is
// shut down. A graceful shutdown is not an error.
func (h *httpServer) Serve() error {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.addr = ln.Addr()
	h.mu.Unlock()

	h.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
	if err = h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *httpServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Addr is the bound listener address, nil before Serve.
func (h *httpServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}
