package roleengine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/errs"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/pkg/value"
)

// InitAsWriter loads the machine as writer and registers the handler
// that treats inbound ReqInputs as a remote append request, broadcasting
// a matching NewInputs once the write has been persisted.
func (e *Engine) InitAsWriter(ctx context.Context, id machine.ID) error {
	m, err := e.loadMachine(ctx, machine.Writer, id)
	if err != nil {
		return err
	}

	e.pubsub.AddHandler(m.Subscription, func(msg pubsub.Message) {
		if msg.Kind != pubsub.KindReqInputs {
			return
		}
		go func() {
			if _, err := e.WriteInputs(context.Background(), id, msg.Expressions, msg.Nonce, msg.HasNonce); err != nil {
				e.log.Warn("remote append failed", zap.String("id", string(id)), zap.Error(err))
			}
		}()
	})

	e.persistFollow()
	return nil
}

// WriteInputs runs advance -> storage write -> publish -> commit. A
// storage failure leaves the machine
// completely unmutated; a publish failure does not block the commit (the
// log is authoritative — lost notifications are recovered by the
// Poller).
func (e *Engine) WriteInputs(ctx context.Context, id machine.ID, inputs []value.Value, nonce string, hasNonce bool) ([]value.Value, error) {
	res, err := e.reg.Modify(id, func(m *machine.Machine) (any, error) {
		if m.Role != machine.Writer {
			return nil, errs.DaemonError(fmt.Errorf("writeInputs: %q is not a writer", id))
		}
		if len(inputs) == 0 {
			return []value.Value{}, nil // boundary behaviour: empty send leaves lastIndex untouched
		}

		// Advance on a scratch copy first so a storage failure can never
		// leave the registry's machine mutated.
		trial := m.Clone()
		results, err := advance(trial, inputs)
		if err != nil {
			return nil, err
		}

		idx, err := e.storage.WriteLog(ctx, string(id), inputs)
		if err != nil {
			return nil, errs.IpfsError(fmt.Errorf("writeInputs: %q: %w", id, err))
		}

		if err := e.pubsub.Publish(ctx, string(id), pubsub.Message{
			Kind:     pubsub.KindNewInputs,
			Results:  results,
			Nonce:    nonce,
			HasNonce: hasNonce,
		}); err != nil {
			e.log.Warn("publish NewInputs failed; commit proceeds", zap.String("id", string(id)), zap.Error(err))
		}

		m.State = trial.State
		m.History = trial.History
		m.LastIndex = idx
		m.HasIndex = true
		m.LastUpdated = e.opts.Now()
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]value.Value), nil
}
