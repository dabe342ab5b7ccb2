// Package machine defines the in-memory cached state of one machine:
// its evaluator state, history, role, subscription handle, polling
// state and last-updated timestamp.
package machine

import (
	"time"

	"github.com/evalnet/machined/internal/interp"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/internal/storage"
	"github.com/evalnet/machined/pkg/value"
)

// ID is an opaque machine identifier; equality is by bytes.
type ID string

// Role is the daemon's posture toward a machine.
type Role int

const (
	Reader Role = iota
	Writer
)

func (r Role) String() string {
	if r == Writer {
		return "Writer"
	}
	return "Reader"
}

// ParseRole decodes the Follow Store's string representation; unknown
// roles are a fatal decode error.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "Reader":
		return Reader, true
	case "Writer":
		return Writer, true
	default:
		return 0, false
	}
}

// EvalPair is one (input, result) entry retained in insertion order.
type EvalPair struct {
	Input  value.Value
	Result value.Value
}

// PollingState is the Poller's per-machine timer: a HighFreq window with
// a remaining budget, or LowFreq once the window has expired. Clamps to
// LowFreq once the remaining budget is exhausted rather than staying in
// HighFreq indefinitely.
type PollingState struct {
	HighFreq  bool
	Remaining time.Duration // only meaningful when HighFreq is true
}

// HighFreqWindow is the initial "just subscribed / just received an
// event" budget.
func HighFreqWindow(d time.Duration) PollingState {
	return PollingState{HighFreq: true, Remaining: d}
}

func LowFreq() PollingState { return PollingState{HighFreq: false} }

// Advance subtracts delta and clamps to LowFreq on exhaustion. It does not decide whether to refresh; callers do that with
// ShouldRefresh before calling Advance.
func (p PollingState) Advance(delta time.Duration) PollingState {
	if !p.HighFreq {
		return p
	}
	remaining := p.Remaining - delta
	if remaining <= 0 {
		return LowFreq()
	}
	return PollingState{HighFreq: true, Remaining: remaining}
}

// ShouldRefresh reports whether a poller tick at this delta should
// refresh the machine.
func (p PollingState) ShouldRefresh(delta time.Duration) bool {
	if !p.HighFreq {
		return true // LowFreq always refreshes
	}
	return p.Remaining-delta <= 0
}

// Machine is the in-memory cached state of one log.
type Machine struct {
	ID      ID
	State   interp.State
	History []EvalPair

	// HasIndex is false iff History is empty (invariant 2); LastIndex is
	// only meaningful when HasIndex is true.
	LastIndex storage.Index
	HasIndex  bool

	Role Role

	Subscription pubsub.Handle

	LastUpdated time.Time
	Polling     PollingState
}

// New constructs a freshly-loaded Machine with empty state.
func New(id ID, role Role, sub pubsub.Handle, highFreqWindow time.Duration, now time.Time) *Machine {
	return &Machine{
		ID:          id,
		State:       interp.Empty(),
		History:     nil,
		Role:        role,
		Subscription: sub,
		LastUpdated: now,
		Polling:     HighFreqWindow(highFreqWindow),
	}
}

// Clone returns a deep-enough copy for safe concurrent read access: the
// History slice and its elements are copied so a query's read-only view
// cannot be mutated by a concurrent writer's append.
func (m *Machine) Clone() *Machine {
	cp := *m
	cp.History = append([]EvalPair(nil), m.History...)
	return &cp
}

// Len returns the number of entries folded into State so far (invariant 1).
func (m *Machine) Len() int { return len(m.History) }
