// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingWorker пишет свои вызовы в общий журнал.
type recordingWorker struct {
	name string
	log  *[]string
}

func (r *recordingWorker) Start(context.Context) { *r.log = append(*r.log, "start "+r.name) }
func (r *recordingWorker) Stop()                 { *r.log = append(*r.log, "stop "+r.name) }

func newRecorded(names ...string) (*Workers, *[]string) {
	var log []string
	ws := make([]Worker, 0, len(names))
	for _, n := range names {
		ws = append(ws, &recordingWorker{name: n, log: &log})
	}
	return NewWorkers(ws...), &log
}

func TestWorkers_StartStopOrder(t *testing.T) {
	ws, log := newRecorded("prober", "sync", "job")

	ws.Start(context.Background())
	ws.Stop()

	assert.Equal(t, []string{
		"start prober", "start sync", "start job",
		"stop job", "stop sync", "stop prober",
	}, *log)
}

func TestWorkers_StartTwice(t *testing.T) {
	ws, log := newRecorded("a")

	ws.Start(context.Background())
	ws.Start(context.Background())

	assert.Equal(t, []string{"start a"}, *log)
}

func TestWorkers_StopWithoutStart(t *testing.T) {
	ws, log := newRecorded("a")

	ws.Stop()
	assert.Empty(t, *log)
}

func TestWorkers_Restart(t *testing.T) {
	ws, log := newRecorded("a")

	ws.Start(context.Background())
	ws.Stop()
	ws.Start(context.Background())
	ws.Stop()

	assert.Equal(t, []string{"start a", "stop a", "start a", "stop a"}, *log)
}

func TestWorkers_Empty(t *testing.T) {
	ws := NewWorkers()

	// не должно паниковать
	ws.Start(context.Background())
	ws.Stop()
}
