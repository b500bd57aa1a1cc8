// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DataEnvelope wraps successful record responses of the remote API.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the {"error": ...} body returned on failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON serializes data and writes it with the given status code.
//
// Statuses that forbid a body (204, 304, 1xx) only get the header written.
// If marshaling fails the response becomes 500 and the error is returned.
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	if !bodyAllowed(statusCode) {
		w.WriteHeader(statusCode)
		return 0, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(jsonData)
}

// WriteData writes data inside a {"data": ...} envelope.
// A nil value on a body-carrying status is answered with the header only.
func WriteData(w http.ResponseWriter, data any, statusCode int) (int, error) {
	if data == nil {
		w.WriteHeader(statusCode)
		return 0, nil
	}
	return WriteJSON(w, DataEnvelope{Data: data}, statusCode)
}

// WriteError writes an {"error": msg} body.
func WriteError(w http.ResponseWriter, msg string, statusCode int) {
	_, _ = WriteJSON(w, ErrorBody{Error: msg}, statusCode)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
