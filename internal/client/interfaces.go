// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "context"

// UI is the presentation layer driven by [App.Run]. Run blocks until the
// user quits or ctx is cancelled.
type UI interface {
	Run(ctx context.Context) error
}
