// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/version", h.version)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh-token", h.refreshToken)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/{entity}", h.listRecords)

		r.Group(func(r chi.Router) {
			r.Use(h.withIdempotency)
			r.Post("/{entity}", h.createRecord)
			r.Put("/{entity}/{id}", h.updateRecord)
			r.Delete("/{entity}/{id}", h.deleteRecord)
		})
	})

	return router
}
