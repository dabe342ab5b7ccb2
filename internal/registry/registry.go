// Package registry is the Machine Registry: a concurrent map
// from machine id to Machine with atomic insert-if-absent and
// modify-if-present, serialising operations per-id while admitting true
// parallelism across distinct ids.
package registry

import (
	"fmt"
	"sync"

	"github.com/evalnet/machined/internal/machine"
	"go.uber.org/zap"
)

// entry pairs a Machine with the lock that serialises all operations on
// it. The outer Registry lock is only ever held to locate or install an
// entry, never across a Modify's body.
type entry struct {
	mu sync.Mutex
	m  *machine.Machine
}

// Registry is the concurrent MachineId -> Machine map.
type Registry struct {
	log *zap.Logger

	mu      sync.RWMutex // guards entries map membership only
	entries map[machine.ID]*entry
}

// New constructs an empty Registry.
func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log.Named("registry"), entries: make(map[machine.ID]*entry)}
}

// ErrAlreadyPresent is InsertNew's failure case.
var ErrAlreadyPresent = fmt.Errorf("registry: machine already present")

// ErrNotPresent is Modify's failure case.
var ErrNotPresent = fmt.Errorf("registry: machine not present")

// Lookup returns a deep-enough snapshot of the cached Machine, or false
// if id is not cached. The returned Machine is safe to read without
// further locking; it is never the live object.
func (r *Registry) Lookup(id machine.ID) (*machine.Machine, bool) {
	e := r.find(id)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m.Clone(), true
}

// InsertNew installs m under id iff no entry exists yet. Returns
// ErrAlreadyPresent otherwise (invariant 4: at most one Machine per id).
func (r *Registry) InsertNew(id machine.ID, m *machine.Machine) error {
	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return ErrAlreadyPresent
	}
	r.entries[id] = &entry{m: m}
	r.mu.Unlock()
	return nil
}

// Modify runs f while holding id's per-entry lock, passing it the live
// Machine pointer. f may mutate it in place and may perform fallible I/O;
// on error the entry is left as f last mutated it only up to the point f
// returned its own error — callers are expected to mutate a working copy
// inside f and only commit on success (see internal/roleengine). Returns
// ErrNotPresent if id is not cached.
func (r *Registry) Modify(id machine.ID, f func(*machine.Machine) (any, error)) (any, error) {
	e := r.find(id)
	if e == nil {
		return nil, ErrNotPresent
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return f(e.m)
}

func (r *Registry) find(id machine.ID) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

// Snapshot returns the current id set and, for each, a best-effort
// (possibly concurrently-updated) copy of its Machine: a consistent
// key-set with potentially skewed values, letting the Poller enumerate
// reader machines without a global lock.
func (r *Registry) Snapshot() map[machine.ID]*machine.Machine {
	r.mu.RLock()
	ids := make([]machine.ID, 0, len(r.entries))
	ents := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		ids = append(ids, id)
		ents = append(ents, e)
	}
	r.mu.RUnlock()

	out := make(map[machine.ID]*machine.Machine, len(ids))
	for i, id := range ids {
		e := ents[i]
		e.mu.Lock()
		out[id] = e.m.Clone()
		e.mu.Unlock()
	}
	return out
}

// Contains reports whether id currently has a cached entry.
func (r *Registry) Contains(id machine.ID) bool {
	return r.find(id) != nil
}

// Roles returns the current id -> role projection, the shape the Follow
// Store persists.
func (r *Registry) Roles() map[machine.ID]machine.Role {
	r.mu.RLock()
	ids := make([]machine.ID, 0, len(r.entries))
	ents := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		ids = append(ids, id)
		ents = append(ents, e)
	}
	r.mu.RUnlock()

	out := make(map[machine.ID]machine.Role, len(ids))
	for i, id := range ids {
		e := ents[i]
		e.mu.Lock()
		out[id] = e.m.Role
		e.mu.Unlock()
	}
	return out
}
