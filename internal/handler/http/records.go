// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	entityType, ok := entityFromRequest(w, r)
	if !ok {
		return
	}

	items, err := h.services.RecordsService.List(r.Context(), entityType)
	if err != nil {
		log.Err(err).Str("entity_type", entityType.String()).Msg("error listing records")
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.Payload{}
	}

	if _, err = utils.WriteData(w, items, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing records")
	}
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, models.Create)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, models.Update)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	h.applyMutation(w, r, models.Delete)
}

func (h *Handler) applyMutation(w http.ResponseWriter, r *http.Request, verb models.Verb) {
	log := logger.FromRequest(r)

	entityType, ok := entityFromRequest(w, r)
	if !ok {
		return
	}

	idem := idempotencyFromRequest(r)
	mutation := models.RemoteMutation{
		Verb:           verb,
		EntityType:     entityType,
		ID:             chi.URLParam(r, "id"),
		IdempotencyKey: idem.key,
		Fingerprint:    idem.fingerprint,
	}

	if verb != models.Delete {
		payload, err := decodePayload(idem.body)
		if err != nil {
			log.Err(err).Msg(ErrInvalidJSON.Error())
			utils.WriteError(w, ErrInvalidJSON.Error(), http.StatusBadRequest)
			return
		}
		mutation.Payload = payload
	}

	result, err := h.services.RecordsService.Apply(r.Context(), mutation)
	if err != nil {
		log.Err(err).
			Str("verb", string(verb)).
			Str("entity_type", entityType.String()).
			Str("id", mutation.ID).
			Msg("mutation rejected")
		writeError(w, err)
		return
	}

	if result.Replayed {
		w.Header().Set(replayedHeader, "true")
	}
	var body any
	if result.Fields != nil {
		body = result.Fields
	}
	if _, err = utils.WriteData(w, body, result.StatusCode); err != nil {
		log.Err(err).Msg("error writing mutation result")
	}
}

func entityFromRequest(w http.ResponseWriter, r *http.Request) (models.EntityType, bool) {
	entityType := models.EntityType(chi.URLParam(r, "entity"))
	if !entityType.Valid() {
		utils.WriteError(w, ErrUnknownEntity.Error(), http.StatusNotFound)
		return "", false
	}
	return entityType, true
}

// decodePayload reads a JSON object. An empty body decodes to an empty
// payload so validation, not parsing, reports the missing fields.
func decodePayload(body []byte) (models.Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return models.Payload{}, nil
	}
	var payload models.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = models.Payload{}
	}
	return payload, nil
}
