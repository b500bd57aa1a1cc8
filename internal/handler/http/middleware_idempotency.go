// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	// maxBodySize bounds mutation bodies; records are small JSON objects.
	maxBodySize = 1 << 20
)

type idempotencyCtxKey struct{}

type idempotency struct {
	key         string
	fingerprint string
	body        []byte
}

// withIdempotency reads the mutation body once, fingerprints it together
// with the method and path and keeps both in the request context. Requests
// without an Idempotency-Key are still served, just never deduplicated.
func (h *Handler) withIdempotency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Warn().Int64("limit", tooLarge.Limit).Msg("request body too large")
				utils.WriteError(w, ErrBodyTooLarge.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			log.Err(err).Msg("error reading request body")
			utils.WriteError(w, "error reading request body", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		idem := idempotency{key: r.Header.Get(idempotencyKeyHeader), body: body}
		if idem.key != "" {
			var buf bytes.Buffer
			buf.WriteString(r.Method)
			buf.WriteByte(' ')
			buf.WriteString(r.URL.Path)
			buf.WriteByte('\n')
			buf.Write(body)
			idem.fingerprint = utils.Fingerprint(buf.Bytes())
		}

		ctx := context.WithValue(r.Context(), idempotencyCtxKey{}, idem)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func idempotencyFromRequest(r *http.Request) idempotency {
	idem, _ := r.Context().Value(idempotencyCtxKey{}).(idempotency)
	return idem
}
