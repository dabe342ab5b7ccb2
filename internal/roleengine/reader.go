package roleengine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/errs"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/pubsub"
)

// InitAsReader loads the machine as a reader, registers the subscription
// handler that schedules a refresh on every NewInputs event, and
// persists the follow-file (a reader adoption always changes the id
// set).
func (e *Engine) InitAsReader(ctx context.Context, id machine.ID) error {
	m, err := e.loadMachine(ctx, machine.Reader, id)
	if err != nil {
		return err
	}

	e.pubsub.AddHandler(m.Subscription, func(msg pubsub.Message) {
		if msg.Kind != pubsub.KindNewInputs {
			return // unknown/other kinds ignored
		}
		// The dispatch context must not block; hand the refresh to its
		// own goroutine, bounded by the per-id lock inside Modify.
		go func() {
			if err := e.RefreshAsReaderNotify(context.Background(), id); err != nil {
				e.log.Warn("reader refresh on notify failed", zap.String("id", string(id)), zap.Error(err))
			}
		}()
	})

	e.persistFollow()
	return nil
}

// RefreshAsReader reads everything after lastIndex, folds it in, and
// advances the polling window by the time elapsed since the last
// update, clamping to LowFreq once the window is exhausted. Called by
// the poller (tick-triggered) and by Query (pre-refresh). Idempotent
// when the log has nothing new.
func (e *Engine) RefreshAsReader(ctx context.Context, id machine.ID) error {
	return e.refreshAsReader(ctx, id, false)
}

// RefreshAsReaderNotify is like RefreshAsReader but is called in
// response to an observed NewInputs event: new activity justifies a
// fresh HighFreq budget rather than advancing the existing one.
func (e *Engine) RefreshAsReaderNotify(ctx context.Context, id machine.ID) error {
	return e.refreshAsReader(ctx, id, true)
}

func (e *Engine) refreshAsReader(ctx context.Context, id machine.ID, resetWindow bool) error {
	_, err := e.reg.Modify(id, func(m *machine.Machine) (any, error) {
		if m.Role != machine.Reader {
			return nil, nil // writers are never refreshed
		}

		tail, hasTail, inputs, err := e.storage.ReadLogFrom(ctx, string(id), m.LastIndex, m.HasIndex)
		if err != nil {
			return nil, errs.IpfsError(fmt.Errorf("refreshAsReader: %q: %w", id, err))
		}

		if len(inputs) > 0 {
			if _, err := advance(m, inputs); err != nil {
				return nil, err // advance left m unmutated on error
			}
		}
		if hasTail {
			m.LastIndex = tail
			m.HasIndex = true
		}

		now := e.opts.Now()
		if resetWindow {
			m.Polling = machine.HighFreqWindow(e.opts.HighFreqWindow)
		} else {
			m.Polling = m.Polling.Advance(now.Sub(m.LastUpdated))
		}
		m.LastUpdated = now
		return nil, nil
	})
	return err
}
