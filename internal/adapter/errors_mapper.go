// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const maxErrorBody = 512

// mapHTTPError converts a completed response into the error taxonomy. It
// returns nil for 2xx.
func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	opErr := &OperationError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL,
		StatusCode: code,
		Body:       body,
	}

	switch {
	case code == http.StatusUnauthorized:
		opErr.Kind = ErrUnauthorized
	case code == http.StatusConflict:
		opErr.Kind = ErrConflict
	case code == http.StatusRequestTimeout:
		opErr.Kind = ErrNetwork
	case code == http.StatusTooManyRequests:
		opErr.Kind = ErrServer
	case code >= http.StatusInternalServerError:
		opErr.Kind = ErrServer
	case code >= http.StatusBadRequest:
		opErr.Kind = ErrValidation
	default:
		// 1xx/3xx that resty did not follow
		opErr.Kind = ErrServer
	}

	return opErr
}

// mapTransportError wraps a request that never produced a response.
func mapTransportError(method, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Method: method, Path: path, Kind: ErrNetwork, Body: err.Error(), Err: err}
}
