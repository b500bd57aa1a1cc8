// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the sync engine from its parts and runs it,
// either as a long-lived process behind a UI or as a one-shot background
// pass.
package client
