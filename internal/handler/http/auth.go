// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg(ErrInvalidJSON.Error())
		utils.WriteError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
		return
	}

	creds, err := h.services.AuthService.Login(r.Context(), req)
	if err != nil {
		log.Err(err).Str("login", req.Login).Msg("login failed")
		writeError(w, err)
		return
	}

	writeCredentials(w, log, creds)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg(ErrInvalidJSON.Error())
		utils.WriteError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
		return
	}

	creds, err := h.services.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		log.Err(err).Msg("refresh failed")
		writeError(w, err)
		return
	}

	writeCredentials(w, log, creds)
}

func writeCredentials(w http.ResponseWriter, log *logger.Logger, creds models.Credentials) {
	resp := models.RefreshResponse{
		Token:        creds.Token,
		RefreshToken: creds.RefreshToken,
		User:         creds.User,
	}
	if _, err := utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing credentials")
	}
}
