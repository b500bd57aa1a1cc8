// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"errors"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/service"
)

// humanizeError turns engine errors into short messages for the status line.
func humanizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, adapter.ErrNetwork), errors.Is(err, adapter.ErrServer):
		return "Отсутствует сеть или сервер недоступен"
	case errors.Is(err, adapter.ErrAuth), errors.Is(err, adapter.ErrUnauthorized):
		return "Неверный логин или пароль"
	case errors.Is(err, adapter.ErrValidation):
		return "Заполните логин и пароль"
	case errors.Is(err, service.ErrNotDismissable):
		return "Убрать можно только завершённую операцию"
	case errors.Is(err, service.ErrInvalidTransition):
		return "Операция в этом состоянии не поддерживает действие"
	case errors.Is(err, service.ErrOperationNotFound):
		return "Операция уже удалена"
	}
	return err.Error()
}
