package roleengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/errs"
	"github.com/evalnet/machined/internal/interp"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/pkg/value"
)

// NewMachine implements the `new` HTTP operation: generate a fresh id and
// adopt it as this daemon's writer.
func (e *Engine) NewMachine(ctx context.Context) (machine.ID, error) {
	id := machine.ID(uuid.NewString())
	if err := e.InitAsWriter(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// Send is the client-facing send operation: writers append locally,
// readers round-trip over pub/sub with an ack nonce.
func (e *Engine) Send(ctx context.Context, id machine.ID, inputs []value.Value) ([]value.Value, error) {
	if !e.reg.Contains(id) {
		if err := e.InitAsReader(ctx, id); err != nil {
			return nil, err
		}
	}

	m, ok := e.reg.Lookup(id)
	if !ok {
		return nil, errs.DaemonError(fmt.Errorf("send: %q vanished after load", id))
	}

	if m.Role == machine.Writer {
		return e.WriteInputs(ctx, id, inputs, "", false)
	}
	return e.sendAsReader(ctx, id, inputs, m)
}

func (e *Engine) sendAsReader(ctx context.Context, id machine.ID, inputs []value.Value, m *machine.Machine) ([]value.Value, error) {
	if len(inputs) == 0 {
		return []value.Value{}, nil
	}

	nonce := uuid.NewString()
	exprs := append([]value.Value(nil), inputs...)

	// Install the ack wait before publishing the request: a writer that
	// replies between Publish and a later wait-registration would
	// otherwise be missed.
	waiter, err := e.pubsub.PrepareWait(m.Subscription, func(msg pubsub.Message) bool {
		return msg.Kind == pubsub.KindNewInputs && msg.HasNonce && msg.Nonce == nonce
	})
	if err != nil {
		return nil, errs.IpfsError(fmt.Errorf("send: preparing ack wait: %w", err))
	}

	if err := e.pubsub.Publish(ctx, string(id), pubsub.Message{
		Kind:        pubsub.KindReqInputs,
		Expressions: exprs,
		Nonce:       nonce,
		HasNonce:    true,
	}); err != nil {
		return nil, errs.IpfsError(fmt.Errorf("send: publishing ReqInputs: %w", err))
	}

	msg, err := waiter.Wait(ctx, e.opts.AckTimeout)
	if err != nil {
		return nil, errs.AckTimeout()
	}
	return msg.Results, nil
}

// Query ensures the machine is loaded (adopting as reader if unknown),
// refreshes first if we're a reader, then evaluates against a read-only
// copy of state. Never commits state changes.
func (e *Engine) Query(ctx context.Context, id machine.ID, expr value.Value) (value.Value, error) {
	if !e.reg.Contains(id) {
		if err := e.InitAsReader(ctx, id); err != nil {
			return value.Nil(), err
		}
	} else if m, ok := e.reg.Lookup(id); ok && m.Role == machine.Reader {
		if err := e.RefreshAsReader(ctx, id); err != nil {
			e.log.Warn("query: pre-refresh failed; serving last-known state", zap.String("id", string(id)), zap.Error(err))
		}
	}

	m, ok := e.reg.Lookup(id)
	if !ok {
		return value.Nil(), errs.MachineNotCached(string(id))
	}

	result, _, err := interp.Eval(m.State, m.Len(), expr)
	if err != nil {
		return value.Nil(), errs.InvalidInput(err)
	}
	return result, nil
}
