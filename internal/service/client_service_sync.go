// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/models"
)

// Connectivity is the part of the connectivity monitor the supervisor uses.
type Connectivity interface {
	State() models.ConnectivityState
	Subscribe(fn func(models.ConnectivityState)) (unsubscribe func())
}

// SessionState reports whether an auth session exists.
type SessionState interface {
	Active() bool
	Subscribe(fn func(active bool)) (unsubscribe func())
}

// SyncOptions are the supervisor tunables.
type SyncOptions struct {
	// Lanes is the number of entity-type lanes drained concurrently.
	Lanes int
	// MaxAttempts turns a retryable failure into Dead once reached.
	MaxAttempts int
	// BaseDelay and MaxDelay bound the exponential backoff.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// RequestTimeout bounds a single dispatch.
	RequestTimeout time.Duration
	// RefreshAfterSync enables the cache refresh step after each pass.
	RefreshAfterSync bool
}

// NewSyncOptions builds options from config, filling unset values with the
// defaults.
func NewSyncOptions(cfg config.ClientSync, requestTimeout time.Duration) SyncOptions {
	opts := SyncOptions{
		Lanes:            cfg.Lanes,
		MaxAttempts:      cfg.MaxAttempts,
		BaseDelay:        cfg.BaseDelay,
		MaxDelay:         cfg.MaxDelay,
		RequestTimeout:   requestTimeout,
		RefreshAfterSync: cfg.RefreshAfterSync,
	}
	if opts.Lanes <= 0 {
		opts.Lanes = config.DefaultLanes
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = config.DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = config.DefaultBaseDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = max(config.DefaultMaxDelay, opts.BaseDelay)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = config.DefaultRequestTimeout
	}
	return opts
}

type laneOutcome int

const (
	laneContinue laneOutcome = iota
	// laneBlockTarget skips later operations on the same target this pass.
	laneBlockTarget
	// laneHalt stops claiming in every lane.
	laneHalt
)

type redirectKey struct {
	entityType models.EntityType
	id         string
}

type redirect struct {
	canonicalID  string
	expiresAfter uint64
}

type clientSyncService struct {
	queue    QueueService
	store    store.Store
	remote   adapter.RemoteAPI
	conn     Connectivity
	sessions SessionState
	opts     SyncOptions
	status   *statusHub
	ids      *utils.UUIDGenerator
	logger   *logger.Logger

	now    func() time.Time
	jitter func() float64

	mu          sync.Mutex
	active      *models.SyncSession
	rerun       bool
	passes      uint64
	redirects   map[redirectKey]redirect
	wake        *time.Timer
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe []func()
	wg          sync.WaitGroup
}

func NewClientSyncService(queue QueueService, st store.Store, remote adapter.RemoteAPI, conn Connectivity, sessions SessionState, opts SyncOptions, log *logger.Logger) SyncService {
	return newClientSyncService(queue, st, remote, conn, sessions, opts, log)
}

func newClientSyncService(queue QueueService, st store.Store, remote adapter.RemoteAPI, conn Connectivity, sessions SessionState, opts SyncOptions, log *logger.Logger) *clientSyncService {
	return &clientSyncService{
		queue:     queue,
		store:     st,
		remote:    remote,
		conn:      conn,
		sessions:  sessions,
		opts:      opts,
		status:    newStatusHub(),
		ids:       utils.NewUUIDGenerator(),
		logger:    log,
		now:       time.Now,
		jitter:    rand.Float64,
		redirects: make(map[redirectKey]redirect),
	}
}

func (s *clientSyncService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = runCtx, cancel
	s.mu.Unlock()

	unsubConn := s.conn.Subscribe(func(state models.ConnectivityState) {
		if state == models.Online {
			s.Trigger("connectivity restored")
			return
		}
		s.publishStatus(runCtx, nil, nil)
	})
	unsubSession := s.sessions.Subscribe(func(active bool) {
		if active {
			s.Trigger("auth session available")
			return
		}
		s.publishStatus(runCtx, nil, nil)
	})

	s.mu.Lock()
	s.unsubscribe = []func(){unsubConn, unsubSession}
	s.mu.Unlock()

	s.Trigger("startup")
}

func (s *clientSyncService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel, s.ctx = nil, nil
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
	s.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *clientSyncService) Trigger(reason string) {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return
	}
	if s.active != nil {
		s.rerun = true
		s.mu.Unlock()
		s.logger.Debug().Str("func", "clientSyncService.Trigger").Str("reason", reason).Msg("pass running, rerun scheduled")
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.logger.Debug().Str("func", "clientSyncService.Trigger").Str("reason", reason).Msg("sync triggered")
		if _, err := s.RunPass(ctx); err != nil && !isEntryError(err) {
			s.logger.Err(err).Str("func", "clientSyncService.Trigger").Str("reason", reason).Msg("sync pass failed")
		}
	}()
}

func isEntryError(err error) bool {
	return errors.Is(err, ErrSyncInProgress) || errors.Is(err, ErrOffline) || errors.Is(err, ErrPaused) ||
		errors.Is(err, context.Canceled)
}

func (s *clientSyncService) RunPass(ctx context.Context) (models.SyncReport, error) {
	s.mu.Lock()
	if s.active != nil {
		s.rerun = true
		s.mu.Unlock()
		return models.SyncReport{}, ErrSyncInProgress
	}
	if err := s.entryError(); err != nil {
		s.mu.Unlock()
		s.publishStatus(ctx, nil, nil)
		return models.SyncReport{}, err
	}
	s.active = models.NewSyncSession(s.ids.Generate(), s.now())
	s.rerun = false
	s.mu.Unlock()

	s.publishStatus(ctx, nil, nil)

	total := models.SyncReport{StartedAt: s.now()}
	var passErr error
	for {
		report, err := s.pass(ctx)
		total.Claimed += report.Claimed
		total.Synced += report.Synced
		total.Retried += report.Retried
		total.Dead += report.Dead
		total.Deferred = report.Deferred
		total.Interrupted = total.Interrupted || report.Interrupted
		if err != nil {
			passErr = err
		}

		s.mu.Lock()
		again := s.rerun && err == nil && ctx.Err() == nil && s.entryError() == nil
		s.rerun = false
		if !again {
			s.active = nil
			s.mu.Unlock()
			break
		}
		s.active = models.NewSyncSession(s.ids.Generate(), s.now())
		s.mu.Unlock()
	}
	total.FinishedAt = s.now()

	s.scheduleWake(ctx)
	s.publishStatus(ctx, &total, passErr)

	s.logger.Info().Str("func", "clientSyncService.RunPass").Int("claimed", total.Claimed).Int("synced", total.Synced).
		Int("retried", total.Retried).Int("dead", total.Dead).Int("deferred", total.Deferred).
		Bool("interrupted", total.Interrupted).Msg("sync finished")
	return total, passErr
}

// entryError must be called with s.mu held.
func (s *clientSyncService) entryError() error {
	if s.conn.State() != models.Online {
		return ErrOffline
	}
	if !s.sessions.Active() {
		return ErrPaused
	}
	return nil
}

// passReport is shared by the lanes of one pass.
type passReport struct {
	mu     sync.Mutex
	report models.SyncReport
}

func (r *passReport) add(fn func(rep *models.SyncReport)) {
	r.mu.Lock()
	fn(&r.report)
	r.mu.Unlock()
}

func (s *clientSyncService) pass(ctx context.Context) (models.SyncReport, error) {
	s.mu.Lock()
	s.passes++
	passNo := s.passes
	session := s.active
	s.mu.Unlock()

	ops, err := s.queue.ListQueued(ctx)
	if err != nil {
		return models.SyncReport{}, fmt.Errorf("list queued operations: %w", err)
	}

	rep := &passReport{report: models.SyncReport{StartedAt: s.now()}}
	var halted atomic.Bool

	var g errgroup.Group
	g.SetLimit(s.opts.Lanes)
	for _, lane := range partitionLanes(ops) {
		g.Go(func() error {
			return s.runLane(ctx, session, lane, rep, &halted)
		})
	}
	err = g.Wait()

	s.expireRedirects(passNo)

	if err == nil && !halted.Load() && s.opts.RefreshAfterSync && ctx.Err() == nil && s.conn.State() == models.Online {
		s.refreshCaches(ctx)
	}

	rep.report.FinishedAt = s.now()
	return rep.report, err
}

// partitionLanes groups ops by entity type. Each lane keeps queue order.
func partitionLanes(ops []models.PendingOperation) [][]models.PendingOperation {
	index := make(map[models.EntityType]int)
	var lanes [][]models.PendingOperation
	for _, op := range ops {
		i, ok := index[op.EntityType]
		if !ok {
			i = len(lanes)
			index[op.EntityType] = i
			lanes = append(lanes, nil)
		}
		lanes[i] = append(lanes[i], op)
	}
	return lanes
}

func (s *clientSyncService) runLane(ctx context.Context, session *models.SyncSession, ops []models.PendingOperation, rep *passReport, halted *atomic.Bool) error {
	blocked := make(map[string]bool)

	for _, queued := range ops {
		if ctx.Err() != nil || halted.Load() || s.conn.State() != models.Online {
			rep.add(func(r *models.SyncReport) { r.Interrupted = true })
			return nil
		}

		// the row may have been retargeted or cancelled since the listing
		op, err := s.queue.Get(ctx, queued.QueueID)
		if errors.Is(err, ErrOperationNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if op.State != models.StateQueued {
			continue
		}

		if blocked[op.TargetID] || !op.Ready(s.now()) {
			blocked[op.TargetID] = true
			rep.add(func(r *models.SyncReport) { r.Deferred++ })
			continue
		}

		ready, err := s.checkDependency(ctx, op, rep)
		if err != nil {
			return err
		}
		if !ready {
			blocked[op.TargetID] = true
			continue
		}

		claimed, err := s.queue.MarkInFlight(ctx, op.QueueID)
		if errors.Is(err, ErrInvalidTransition) {
			continue
		}
		if err != nil {
			return err
		}
		s.track(session, claimed.QueueID, models.StateInFlight)
		rep.add(func(r *models.SyncReport) { r.Claimed++ })

		outcome, err := s.dispatch(ctx, session, claimed, rep)
		if err != nil {
			return err
		}
		switch outcome {
		case laneBlockTarget:
			blocked[claimed.TargetID] = true
		case laneHalt:
			halted.Store(true)
			rep.add(func(r *models.SyncReport) { r.Interrupted = true })
			return nil
		}
	}
	return nil
}

// checkDependency reports whether op may be dispatched now. An operation
// whose dependency failed is marked Dead; one whose dependency is still
// pending is deferred.
func (s *clientSyncService) checkDependency(ctx context.Context, op models.PendingOperation, rep *passReport) (bool, error) {
	fail := func(cause error) (bool, error) {
		if err := s.queue.MarkDead(ctx, op.QueueID, cause); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return false, err
		}
		rep.add(func(r *models.SyncReport) { r.Dead++ })
		return false, nil
	}

	if op.DependsOnQueueID == nil {
		if op.Verb != models.Create && models.IsTempID(op.TargetID) {
			return fail(fmt.Errorf("%w: temporary id %s has no pending create", ErrInvalidMutation, op.TargetID))
		}
		return true, nil
	}

	dep, err := s.queue.Get(ctx, *op.DependsOnQueueID)
	if errors.Is(err, ErrOperationNotFound) {
		if models.IsTempID(op.TargetID) {
			return fail(fmt.Errorf("create #%d of %s no longer exists", *op.DependsOnQueueID, op.TargetID))
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	switch dep.State {
	case models.StateSynced:
		return true, nil
	case models.StateDead, models.StateCancelled:
		return fail(fmt.Errorf("create #%d of %s is %s", dep.QueueID, op.TargetID, dep.State))
	}
	rep.add(func(r *models.SyncReport) { r.Deferred++ })
	return false, nil
}

func (s *clientSyncService) dispatch(ctx context.Context, session *models.SyncSession, op models.PendingOperation, rep *passReport) (laneOutcome, error) {
	dctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	result, err := s.remote.Execute(dctx, op)
	cancel()

	// outcomes are recorded even while shutting down
	wctx := context.WithoutCancel(ctx)
	log := s.logger.WithOperation(op.QueueID, string(op.EntityType), op.TargetID).With().
		Str("func", "clientSyncService.dispatch").Str("verb", string(op.Verb)).Int("attempt", op.AttemptCount).Logger()

	if err == nil {
		if _, err = s.queue.Complete(wctx, op.QueueID, result); err != nil {
			return laneContinue, err
		}
		if op.Verb == models.Create && models.IsTempID(op.TargetID) && result.CanonicalID != "" {
			s.addRedirect(op.EntityType, op.TargetID, result.CanonicalID)
		}
		s.track(session, op.QueueID, models.StateSynced)
		rep.add(func(r *models.SyncReport) { r.Synced++ })
		log.Debug().Str("canonical_id", result.CanonicalID).Msg("operation synced")
		return laneContinue, nil
	}

	if ctx.Err() != nil {
		s.track(session, op.QueueID, models.StateQueued)
		return laneHalt, s.queue.Requeue(wctx, op.QueueID, err)
	}

	switch adapter.Classify(err) {
	case adapter.AuthExpired:
		log.Warn().Err(err).Msg("auth session lost, pausing sync")
		s.track(session, op.QueueID, models.StateQueued)
		return laneHalt, s.queue.Requeue(wctx, op.QueueID, err)

	case adapter.NonRetryable:
		log.Warn().Err(err).Msg("permanent failure")
		s.track(session, op.QueueID, models.StateDead)
		rep.add(func(r *models.SyncReport) { r.Dead++ })
		return laneContinue, s.queue.MarkDead(wctx, op.QueueID, err)
	}

	if op.AttemptCount >= s.opts.MaxAttempts {
		log.Warn().Err(err).Msg("attempts exhausted")
		s.track(session, op.QueueID, models.StateDead)
		rep.add(func(r *models.SyncReport) { r.Dead++ })
		return laneContinue, s.queue.MarkDead(wctx, op.QueueID, fmt.Errorf("gave up after %d attempts: %s", op.AttemptCount, describeFailure(err)))
	}

	delay := s.backoff(op.AttemptCount)
	log.Debug().Err(err).Dur("delay", delay).Msg("retryable failure, backing off")
	s.track(session, op.QueueID, models.StateQueued)
	rep.add(func(r *models.SyncReport) { r.Retried++ })
	return laneBlockTarget, s.queue.MarkRetry(wctx, op.QueueID, s.now().Add(delay), err)
}

// backoff returns the delay after the given attempt: exponential in the
// attempt number, capped at MaxDelay, with equal jitter. Below the cap each
// attempt's delay lies in [d/2, d), so consecutive delays strictly increase.
func (s *clientSyncService) backoff(attempt int) time.Duration {
	d := s.opts.BaseDelay
	for i := 1; i < attempt && d < s.opts.MaxDelay; i++ {
		d *= 2
	}
	if d > s.opts.MaxDelay {
		d = s.opts.MaxDelay
	}
	half := d / 2
	return half + time.Duration(s.jitter()*float64(d-half))
}

func (s *clientSyncService) track(session *models.SyncSession, queueID int64, state models.OperationState) {
	if session == nil {
		return
	}
	s.mu.Lock()
	session.Claimed[queueID] = state
	s.mu.Unlock()
}

func (s *clientSyncService) addRedirect(et models.EntityType, tempID, canonicalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[redirectKey{et, tempID}] = redirect{canonicalID: canonicalID, expiresAfter: s.passes + 1}
}

// expireRedirects drops redirects registered before the pass that just ended.
func (s *clientSyncService) expireRedirects(passNo uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.redirects {
		if r.expiresAfter <= passNo {
			delete(s.redirects, k)
		}
	}
}

func (s *clientSyncService) Resolve(entityType models.EntityType, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.redirects[redirectKey{entityType, id}]; ok {
		return r.canonicalID
	}
	return id
}

// scheduleWake arms a timer for the earliest future NotBefore.
func (s *clientSyncService) scheduleWake(ctx context.Context) {
	ops, err := s.queue.ListQueued(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Err(err).Str("func", "clientSyncService.scheduleWake").Msg("failed to list queued operations")
		return
	}

	now := s.now()
	var earliest *time.Time
	for _, op := range ops {
		if op.NotBefore != nil && op.NotBefore.After(now) && (earliest == nil || op.NotBefore.Before(*earliest)) {
			earliest = op.NotBefore
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
	if earliest == nil || s.ctx == nil {
		return
	}
	s.wake = time.AfterFunc(earliest.Sub(now), func() { s.Trigger("backoff elapsed") })
}

func (s *clientSyncService) phase() models.SyncPhase {
	s.mu.Lock()
	active := s.active != nil
	s.mu.Unlock()

	switch {
	case active:
		return models.PhaseSyncing
	case s.conn.State() != models.Online:
		return models.PhaseOffline
	case !s.sessions.Active():
		return models.PhasePaused
	}
	return models.PhaseIdle
}

func (s *clientSyncService) publishStatus(ctx context.Context, report *models.SyncReport, passErr error) {
	counts, err := s.queue.Counts(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Err(err).Str("func", "clientSyncService.publishStatus").Msg("failed to count operations")
	}
	phase := s.phase()
	conn := s.conn.State()

	s.status.publish(func(prev models.SyncStatus) models.SyncStatus {
		next := prev
		next.Phase = phase
		next.Connectivity = conn
		if counts != nil {
			next.Queued = counts[models.StateQueued]
			next.InFlight = counts[models.StateInFlight]
			next.Dead = counts[models.StateDead]
		}
		if report != nil {
			finished := report.FinishedAt
			r := *report
			next.LastPassAt = &finished
			next.LastReport = &r
			next.LastError = ""
			if passErr != nil {
				next.LastError = passErr.Error()
			}
		}
		return next
	})
}

func (s *clientSyncService) Status() models.SyncStatus {
	return s.status.current()
}

func (s *clientSyncService) SubscribeToStatus(fn func(models.SyncStatus)) func() {
	return s.status.subscribe(fn)
}
