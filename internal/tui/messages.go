// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import "github.com/MKhiriev/go-offline-sync/models"

type statusMsg models.SyncStatus

type opsLoadedMsg struct {
	ops []models.PendingOperation
	err error
}

type actionDoneMsg struct {
	notice string
	err    error
}

type loginDoneMsg struct {
	err error
}
