// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"
	"strconv"

	"github.com/MKhiriev/go-offline-sync/models"
)

// Namespace is a named key space inside the store.
type Namespace string

const (
	NamespaceListings     Namespace = "listings"
	NamespaceTransactions Namespace = "transactions"
	NamespaceUserData     Namespace = "userData"
	NamespaceSyncQueue    Namespace = "syncQueue"
)

// Namespaces lists the fixed schema.
func Namespaces() []Namespace {
	return []Namespace{NamespaceListings, NamespaceTransactions, NamespaceUserData, NamespaceSyncQueue}
}

func (n Namespace) valid() bool {
	switch n {
	case NamespaceListings, NamespaceTransactions, NamespaceUserData, NamespaceSyncQueue:
		return true
	}
	return false
}

// RecordNamespace maps an entity type onto the namespace caching its records.
func RecordNamespace(et models.EntityType) (Namespace, error) {
	switch et {
	case models.Listings:
		return NamespaceListings, nil
	case models.Transactions:
		return NamespaceTransactions, nil
	}
	return "", fmt.Errorf("%w: entity type %q", ErrUnknownNamespace, et)
}

// queueKeyWidth fits any int64.
const queueKeyWidth = 20

// QueueKey renders a queue id so that lexical key order equals numeric order.
func QueueKey(queueID int64) string {
	return fmt.Sprintf("%0*d", queueKeyWidth, queueID)
}

// ParseQueueKey is the inverse of [QueueKey].
func ParseQueueKey(key string) (int64, error) {
	return strconv.ParseInt(key, 10, 64)
}
