// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is a process-local [Store]. It is used by tests and as the
// overlay of the fallback store; nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Namespace]map[string][]byte
	seq    map[Namespace]int64
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[Namespace]map[string][]byte),
		seq:  make(map[Namespace]int64),
	}
}

func (m *MemoryStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ns); err != nil {
		return nil, err
	}
	return m.get(ns, key)
}

func (m *MemoryStore) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ns); err != nil {
		return nil, err
	}
	return m.getAll(ns), nil
}

func (m *MemoryStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ns); err != nil {
		return err
	}
	m.put(ns, key, value)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, ns Namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ns); err != nil {
		return err
	}
	delete(m.data[ns], key)
	return nil
}

func (m *MemoryStore) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ns); err != nil {
		return 0, err
	}
	m.seq[ns]++
	return m.seq[ns], nil
}

func (m *MemoryStore) advanceSequence(ctx context.Context, ns Namespace, atLeast int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ns); err != nil {
		return err
	}
	if m.seq[ns] < atLeast {
		m.seq[ns] = atLeast
	}
	return nil
}

// Update buffers the writes of fn and applies them only if fn succeeds.
// The store lock is held for the whole call, so transactions are serial.
func (m *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}

	tx := &memoryTx{
		base:    m,
		writes:  make(map[Namespace]map[string]*[]byte),
		seq:     make(map[Namespace]int64),
		touched: make(map[Namespace]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for ns, kv := range tx.writes {
		for key, v := range kv {
			if v == nil {
				delete(m.data[ns], key)
				continue
			}
			m.put(ns, key, *v)
		}
	}
	for ns, v := range tx.seq {
		m.seq[ns] = v
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) check(ns Namespace) error {
	if m.closed {
		return ErrStoreClosed
	}
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return nil
}

func (m *MemoryStore) get(ns Namespace, key string) ([]byte, error) {
	v, ok := m.data[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryStore) getAll(ns Namespace) []Entry {
	kv := m.data[ns]
	entries := make([]Entry, 0, len(kv))
	for k, v := range kv {
		entries = append(entries, Entry{Key: k, Value: slices.Clone(v)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func (m *MemoryStore) put(ns Namespace, key string, value []byte) {
	if m.data[ns] == nil {
		m.data[ns] = make(map[string][]byte)
	}
	m.data[ns][key] = slices.Clone(value)
}

// memoryTx reads through its own pending writes to the base store. A nil
// pointer in writes marks a deletion.
type memoryTx struct {
	base    *MemoryStore
	writes  map[Namespace]map[string]*[]byte
	seq     map[Namespace]int64
	touched map[Namespace]bool
}

func (t *memoryTx) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if !ns.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if v, ok := t.writes[ns][key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return slices.Clone(*v), nil
	}
	return t.base.get(ns, key)
}

func (t *memoryTx) GetAll(ctx context.Context, ns Namespace) ([]Entry, error) {
	if !ns.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return mergeEntries(t.base.getAll(ns), t.writes[ns]), nil
}

func (t *memoryTx) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
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

func (t *memoryTx) Delete(ctx context.Context, ns Namespace, key string) error {
	if !ns.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if t.writes[ns] == nil {
		t.writes[ns] = make(map[string]*[]byte)
	}
	t.writes[ns][key] = nil
	return nil
}

func (t *memoryTx) NextSequence(ctx context.Context, ns Namespace) (int64, error) {
	if !ns.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	if !t.touched[ns] {
		t.seq[ns] = t.base.seq[ns]
		t.touched[ns] = true
	}
	t.seq[ns]++
	return t.seq[ns], nil
}

// mergeEntries overlays pending writes (nil = tombstone) on a sorted base.
func mergeEntries(base []Entry, writes map[string]*[]byte) []Entry {
	if len(writes) == 0 {
		return base
	}
	out := make([]Entry, 0, len(base)+len(writes))
	for _, e := range base {
		if _, ok := writes[e.Key]; ok {
			continue
		}
		out = append(out, e)
	}
	for k, v := range writes {
		if v != nil {
			out = append(out, Entry{Key: k, Value: slices.Clone(*v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (t *memoryTx) advanceSequence(ctx context.Context, ns Namespace, atLeast int64) error {
	if !t.touched[ns] {
		t.seq[ns] = t.base.seq[ns]
		t.touched[ns] = true
	}
	if t.seq[ns] < atLeast {
		t.seq[ns] = atLeast
	}
	return nil
}
