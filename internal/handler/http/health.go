// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

type healthResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
}

// health is the endpoint the client's connectivity prober polls.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	_, _ = utils.WriteJSON(w, healthResponse{Status: "ok"}, http.StatusOK)
}

func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	v := h.services.AppInfoService.GetAppVersion(r.Context())
	_, _ = utils.WriteJSON(w, versionResponse{Version: v}, http.StatusOK)
}
