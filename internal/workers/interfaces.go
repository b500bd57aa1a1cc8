// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package workers runs the long-lived background components of the client
// (reachability prober, sync supervisor, periodic wake job) as one unit.
package workers

import "context"

// Worker is a background component with an explicit lifecycle. Start must
// not block; Stop blocks until the worker's goroutines have exited.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}
