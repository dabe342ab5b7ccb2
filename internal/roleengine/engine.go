// Package roleengine implements the reader and writer protocols, the
// common advance/load primitives, and the client-facing send/query
// operations.
package roleengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/errs"
	"github.com/evalnet/machined/internal/followstore"
	"github.com/evalnet/machined/internal/interp"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/internal/registry"
	"github.com/evalnet/machined/internal/storage"
	"github.com/evalnet/machined/pkg/value"
)

// Options configures the engine's timers and windows: the HighFreq
// polling budget after subscribe/refresh, and how long a reader's send
// waits for a matching NewInputs.
type Options struct {
	HighFreqWindow time.Duration
	AckTimeout     time.Duration
	Now            func() time.Time
}

func (o *Options) setDefaults() {
	if o.HighFreqWindow <= 0 {
		o.HighFreqWindow = 10 * time.Second
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 4 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Engine wires the Registry, Storage, PubSub and Follow Store together
// behind the new/send/query operations.
type Engine struct {
	log     *zap.Logger
	reg     *registry.Registry
	storage storage.Client
	pubsub  pubsub.Client
	follow  *followstore.Store
	opts    Options
}

// New constructs an Engine. follow may be nil, in which case follow-file
// persistence is a no-op (used by tests that don't care about restart
// semantics).
func New(log *zap.Logger, reg *registry.Registry, st storage.Client, ps pubsub.Client, follow *followstore.Store, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	opts.setDefaults()
	return &Engine{
		log:     log.Named("roleengine"),
		reg:     reg,
		storage: st,
		pubsub:  ps,
		follow:  follow,
		opts:    opts,
	}
}

func (e *Engine) persistFollow() {
	if e.follow == nil {
		return
	}
	if err := e.follow.Persist(e.reg.Roles()); err != nil {
		e.log.Error("follow-file persist failed", zap.Error(err))
	}
}

// advance runs the interpreter fold over inputs against m's current
// state, appending the new pairs to m.History and installing the final
// state on success. On interpreter error, m is left unmutated and the
// returned results are nil.
func advance(m *machine.Machine, inputs []value.Value) ([]value.Value, error) {
	state := m.State
	results := make([]value.Value, len(inputs))
	pairs := make([]machine.EvalPair, len(inputs))

	for i, in := range inputs {
		result, next, err := interp.Eval(state, m.Len()+i, in)
		if err != nil {
			return nil, errs.InvalidInput(err)
		}
		state = next
		results[i] = result
		pairs[i] = machine.EvalPair{Input: in, Result: result}
	}

	m.State = state
	m.History = append(m.History, pairs...)
	return results, nil
}

// loadMachine is the common load primitive for both roles: read the
// whole log, subscribe, fold once, and install into the registry.
func (e *Engine) loadMachine(ctx context.Context, role machine.Role, id machine.ID) (*machine.Machine, error) {
	tail, hasTail, inputs, err := e.storage.ReadLogFrom(ctx, string(id), "", false)
	if err != nil {
		return nil, errs.IpfsError(fmt.Errorf("loading %q: %w", id, err))
	}

	sub, err := e.pubsub.Subscribe(ctx, string(id))
	if err != nil {
		return nil, errs.IpfsError(fmt.Errorf("subscribing %q: %w", id, err))
	}

	m := machine.New(id, role, sub, e.opts.HighFreqWindow, e.opts.Now())

	if len(inputs) > 0 {
		if _, err := advance(m, inputs); err != nil {
			_ = sub.Close()
			return nil, err
		}
	}
	if hasTail {
		m.LastIndex = tail
		m.HasIndex = true
	}

	if err := e.reg.InsertNew(id, m); err != nil {
		_ = sub.Close()
		return nil, errs.MachineAlreadyCached(string(id))
	}
	return m, nil
}
