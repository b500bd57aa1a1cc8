// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

// FallbackStore wraps a durable [Store]. When the durable store reports a
// [*StorageError] on a write, the write is kept in an in-memory overlay
// instead of being lost. Reads see the overlay first and the disk second.
// Every later mutation first tries to flush the overlay back to disk; once
// that succeeds the store is durable again.
type FallbackStore struct {
	primary Store
	logger  *logger.Logger

	mu       sync.Mutex
	degraded bool
	// overlay holds writes that have not reached the disk; nil is a tombstone
	overlay map[Namespace]map[string]*[]byte
	// seq is the last sequence value handed out per namespace
	seq        map[Namespace]int64
	seqPending map[Namespace]bool
}

func NewFallbackStore(primary Store, log *logger.Logger) *FallbackStore {
	return &FallbackStore{
		primary:    primary,
		logger:     log,
		overlay:    make(map[Namespace]map[string]*[]byte),
		seq:        make(map[Namespace]int64),
		seqPending: make(map[Namespace]bool),
	}
}

// Degraded reports whether unflushed writes are held in memory.
func (f *FallbackStore) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func (f *FallbackStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degraded {
		if v, ok := f.overlay[ns][key]; ok {
			if v == nil {
				return nil, ErrNotFound
			}
			return slices.Clone(*v), nil
		}
	}
	return f.primary.Get(ctx, ns, key)
}

func (f *FallbackStore) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getAllLocked(ctx, ns)
}

func (f *FallbackStore) getAllLocked(ctx context.Context, ns Namespace) ([]Entry, error) {
	base, err := f.primary.GetAll(ctx, ns)
	if err != nil {
		if !f.degraded || !errors.Is(err, ErrStorage) {
			return nil, err
		}
		f.logger.Warn().Err(err).Str("func", "FallbackStore.GetAll").Str("namespace", string(ns)).
			Msg("disk unreadable, serving in-memory entries only")
		base = nil
	}
	if !f.degraded {
		return base, nil
	}
	return mergeEntries(base, f.overlay[ns]), nil
}

func (f *FallbackStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	return f.Update(ctx, func(tx Tx) error { return tx.Put(ctx, ns, key, value) })
}

func (f *FallbackStore) Delete(ctx context.Context, ns Namespace, key string) error {
	return f.Update(ctx, func(tx Tx) error { return tx.Delete(ctx, ns, key) })
}

func (f *FallbackStore) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	var next int64
	err := f.Update(ctx, func(tx Tx) error {
		var err error
		next, err = tx.NextSequence(ctx, ns)
		return err
	})
	return next, err
}

// Update runs fn against the durable store. If that fails with a storage
// error, fn is re-run against the in-memory overlay and the store stays
// degraded until a later flush succeeds.
func (f *FallbackStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degraded {
		f.flushLocked(ctx)
	}

	if !f.degraded {
		observed := make(map[Namespace]int64)
		err := f.primary.Update(ctx, func(tx Tx) error {
			return fn(&observingTx{Tx: tx, seen: observed})
		})
		if err == nil {
			for ns, v := range observed {
				f.seq[ns] = max(f.seq[ns], v)
			}
			return nil
		}
		if !errors.Is(err, ErrStorage) {
			return err
		}
		f.logger.Warn().Err(err).Str("func", "FallbackStore.Update").
			Msg("durable store failed, switching to in-memory overlay")
		f.degraded = true
	}

	tx := &overlayTx{f: f, writes: make(map[Namespace]map[string]*[]byte), seq: make(map[Namespace]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	for ns, kv := range tx.writes {
		if f.overlay[ns] == nil {
			f.overlay[ns] = make(map[string]*[]byte)
		}
		for k, v := range kv {
			f.overlay[ns][k] = v
		}
	}
	for ns, v := range tx.seq {
		f.seq[ns] = v
		f.seqPending[ns] = true
	}
	return nil
}

// Flush tries to write the overlay to disk. It reports whether the store is
// durable afterwards.
func (f *FallbackStore) Flush(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		f.flushLocked(ctx)
	}
	return !f.degraded
}

func (f *FallbackStore) flushLocked(ctx context.Context) {
	err := f.primary.Update(ctx, func(tx Tx) error {
		for ns, kv := range f.overlay {
			for k, v := range kv {
				var err error
				if v == nil {
					err = tx.Delete(ctx, ns, k)
				} else {
					err = tx.Put(ctx, ns, k, *v)
				}
				if err != nil {
					return err
				}
			}
		}
		adv, ok := tx.(sequenceAdvancer)
		if !ok {
			return nil
		}
		for ns := range f.seqPending {
			if err := adv.advanceSequence(ctx, ns, f.seq[ns]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		f.logger.Debug().Err(err).Str("func", "FallbackStore.flush").Msg("overlay still not writable")
		return
	}

	f.logger.Info().Str("func", "FallbackStore.flush").Msg("in-memory overlay flushed to disk")
	f.overlay = make(map[Namespace]map[string]*[]byte)
	f.seqPending = make(map[Namespace]bool)
	f.degraded = false
}

func (f *FallbackStore) Close() error {
	f.mu.Lock()
	if f.degraded {
		f.flushLocked(context.Background())
		if f.degraded {
			f.logger.Error().Str("func", "FallbackStore.Close").Msg("closing with unflushed in-memory writes")
		}
	}
	f.mu.Unlock()
	return f.primary.Close()
}

// observingTx records the sequence values handed out by the durable store so
// the overlay can continue from them.
type observingTx struct {
	Tx
	seen map[Namespace]int64
}

func (o *observingTx) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	v, err := o.Tx.NextSequence(ctx, ns)
	if err == nil {
		o.seen[ns] = max(o.seen[ns], v)
	}
	return v, err
}

// overlayTx buffers writes of one Update while the store is degraded.
// Reads go buffer, overlay, disk.
type overlayTx struct {
	f      *FallbackStore
	writes map[Namespace]map[string]*[]byte
	seq    map[Namespace]int64
}

func (t *overlayTx) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if v, ok := t.writes[ns][key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return slices.Clone(*v), nil
	}
	if v, ok := t.f.overlay[ns][key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return slices.Clone(*v), nil
	}
	return t.f.primary.Get(ctx, ns, key)
}

func (t *overlayTx) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	base, err := t.f.getAllLocked(ctx, ns)
	if err != nil {
		return nil, err
	}
	return mergeEntries(base, t.writes[ns]), nil
}

func (t *overlayTx) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if t.writes[ns] == nil {
		t.writes[ns] = make(map[string]*[]byte)
	}
	v := slices.Clone(value)
	t.writes[ns][key] = &v
	return nil
}

func (t *overlayTx) Delete(ctx context.Context, ns Namespace, key string) error {
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if t.writes[ns] == nil {
		t.writes[ns] = make(map[string]*[]byte)
	}
	t.writes[ns][key] = nil
	return nil
}

func (t *overlayTx) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	if !ns.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	cur, ok := t.seq[ns]
	if !ok {
		cur = t.f.seq[ns]
		if cur == 0 {
			cur = t.seedSequence(ctx, ns)
		}
	}
	cur++
	t.seq[ns] = cur
	return cur, nil
}

// seedSequence derives the counter from the highest numeric key visible when
// no value was observed before the disk failed.
func (t *overlayTx) seedSequence(ctx context.Context, ns Namespace) int64 {
	entries, err := t.GetAll(ctx, ns)
	if err != nil {
		return 0
	}
	var highest int64
	for _, e := range entries {
		if id, err := ParseQueueKey(e.Key); err == nil && id > highest {
			highest = id
		}
	}
	return highest
}
