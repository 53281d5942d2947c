// Package refmanager implements the reference-counted ephemeral-output
// collector: it deletes intermediate artifacts as soon as every
// downstream consumer has been resolved, but only if all consumers agreed
// the output is ephemeral.
package refmanager

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/flowforge/taskgraph/pkg/log"
	"github.com/flowforge/taskgraph/pkg/metrics"
	"github.com/flowforge/taskgraph/pkg/storage"
	"github.com/flowforge/taskgraph/pkg/task"
)

// Manager tracks, per output key, a refcount of tasks that still intend
// to consume it and whether every registration of that key was marked
// ephemeral.
type Manager struct {
	mu           sync.Mutex
	store        storage.Storage      // storage every tracked output is bound to before Exists/Remove
	arena        map[string]task.Task // task_id -> task, for producer lookups during purge
	refcount     map[string]int       // output_id -> live consumer count
	ephemeralAll map[string]bool      // output_id -> true iff every registration was ephemeral
	seenKey      map[string]bool      // output_id -> has been registered at least once

	logger zerolog.Logger
}

// New builds an empty Manager that purges against store. The tasks
// handed to Add/Remove carry their input/output trees unbound (the
// engine only binds storage into the copies it passes to Run/Generate),
// so the manager binds store into every input itself before checking or
// removing its artifact.
func New(store storage.Storage) *Manager {
	return &Manager{
		store:        store,
		arena:        make(map[string]task.Task),
		refcount:     make(map[string]int),
		ephemeralAll: make(map[string]bool),
		seenKey:      make(map[string]bool),
		logger:       log.WithComponent("refmanager"),
	}
}

// bind returns o bound to the manager's storage, so every output the
// manager ever calls Exists/Remove on is storage-backed regardless of
// whether the caller already bound it.
func (m *Manager) bind(o *task.Output) *task.Output {
	if m.store == nil {
		return o
	}
	return o.AssignStorage(m.store)
}

// Add registers t as a consumer of each of its declared inputs, and
// records t itself in the producer arena so that later purges can walk
// back into t's own inputs. Call Add exactly once per distinct task as it
// is discovered by the engine: once for each task reachable from the roots
// at workflow start, and once for each task newly reached through what a
// dynamic task generates.
func (m *Manager) Add(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena[task.Identity(t)] = t
	for _, o := range t.Input().Flatten() {
		m.registerLocked(m.bind(o))
	}
}

func (m *Manager) registerLocked(o *task.Output) {
	key := o.ID()
	m.refcount[key]++
	if !m.seenKey[key] {
		m.seenKey[key] = true
		m.ephemeralAll[key] = o.Ephemeral
	} else {
		m.ephemeralAll[key] = m.ephemeralAll[key] && o.Ephemeral
	}
	metrics.EphemeralOutputsTracked.Set(float64(len(m.seenKey)))
}

// Remove is called once a task finishes (successfully or not). It
// decrements the refcount of every one of the task's declared inputs
// first, then attempts to purge each — the two-phase order matters when
// sibling inputs share a storage subtree that would otherwise be
// prematurely collected by an earlier purge in the same call.
func (m *Manager) Remove(t task.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inputs := t.Input().Flatten()
	bound := make([]*task.Output, len(inputs))
	for i, o := range inputs {
		bound[i] = m.bind(o)
		m.decrementLocked(bound[i])
	}
	for _, o := range bound {
		m.attemptPurgeLocked(o)
	}
}

func (m *Manager) decrementLocked(o *task.Output) {
	key := o.ID()
	if m.refcount[key] > 0 {
		m.refcount[key]--
	}
}

// attemptPurgeLocked removes o's artifact if its refcount has hit zero
// and every registration of it was ephemeral, then recurses into the
// producing task's own inputs, decrementing and attempting to purge each
// in turn: purging is transitive. Recursion stops as soon as an input
// still has referrers or was not marked ephemeral by every consumer —
// at that point the producing task's output is still wanted, so its own
// inputs are left alone.
func (m *Manager) attemptPurgeLocked(o *task.Output) {
	key := o.ID()
	if m.refcount[key] > 0 {
		return
	}
	if !m.ephemeralAll[key] {
		return
	}
	if exists, err := o.Exists(); err == nil && exists {
		olog := log.WithOutputKey(m.logger, key)
		if err := o.Remove(); err != nil {
			// A concurrent or earlier purge may have already removed it.
			olog.Debug().Err(err).Msg("purge skipped")
		} else {
			metrics.EphemeralOutputsPurged.Inc()
			olog.Debug().Msg("purged ephemeral output")
		}
	}

	producer, ok := m.arena[o.SrcTaskID]
	if !ok {
		return
	}
	for _, po := range producer.Input().Flatten() {
		bound := m.bind(po)
		m.decrementLocked(bound)
		m.attemptPurgeLocked(bound)
	}
}

// Refcount returns the current live consumer count for an output_id, for
// tests and instrumentation.
func (m *Manager) Refcount(outputID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refcount[outputID]
}
