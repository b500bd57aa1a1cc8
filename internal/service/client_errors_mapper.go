// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/store"
)

// describeFailure renders err as the LastError shown next to an operation.
// Known transport failures are reduced to their kind and the server's
// message.
func describeFailure(err error) string {
	if err == nil {
		return ""
	}

	var opErr *adapter.OperationError
	if errors.As(err, &opErr) {
		msg := extractMessage(opErr.Body)
		switch {
		case opErr.StatusCode == 0:
			return fmt.Sprintf("%v: %s", opErr.Kind, msg)
		case msg == "":
			return fmt.Sprintf("%v (http %d)", opErr.Kind, opErr.StatusCode)
		default:
			return fmt.Sprintf("%v (http %d): %s", opErr.Kind, opErr.StatusCode, msg)
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, adapter.ErrAuth):
		return "authentication required"
	case errors.Is(err, store.ErrStorage):
		return "local storage failure: " + err.Error()
	}
	return err.Error()
}

// extractMessage pulls "error" or "message" out of a JSON error body and
// falls back to the raw body.
func extractMessage(body string) string {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") {
		return body
	}

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return body
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return body
}
