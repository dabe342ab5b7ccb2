// Package daemon is the Daemon Context: wiring for the
// registry, follow-store and configuration, startup replay, and the
// shutdown drain.
package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evalnet/machined/internal/followstore"
	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/poller"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/internal/registry"
	"github.com/evalnet/machined/internal/roleengine"
	"github.com/evalnet/machined/internal/storage"
)

// Options configures the Daemon's wiring.
type Options struct {
	FollowFilePath string
	AckTimeout     time.Duration
	PollTick       time.Duration
	HighFreqWindow time.Duration
}

// Daemon owns every long-lived component and the goroutines wired off
// them (the Poller).
type Daemon struct {
	log    *zap.Logger
	Reg    *registry.Registry
	Engine *roleengine.Engine
	Follow *followstore.Store
	poller *poller.Poller

	pollerCtx    context.Context
	pollerCancel context.CancelFunc
	pollerDone   chan struct{}
}

// New wires the Daemon Context against the given Storage and PubSub
// collaborators. It does not start the Poller or replay the follow-file
// yet — call Start for that.
func New(log *zap.Logger, st storage.Client, ps pubsub.Client, opts Options) *Daemon {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("daemon")

	reg := registry.New(log)
	follow := followstore.New(log, opts.FollowFilePath)
	engine := roleengine.New(log, reg, st, ps, follow, roleengine.Options{
		HighFreqWindow: opts.HighFreqWindow,
		AckTimeout:     opts.AckTimeout,
	})
	p := poller.New(log, reg, engine, opts.PollTick)

	return &Daemon{log: log, Reg: reg, Engine: engine, Follow: follow, poller: p}
}

// Start replays the follow-file and
// launches the Poller. A replay failure is fatal at startup.
func (d *Daemon) Start(ctx context.Context) error {
	follow, err := d.Follow.Load()
	if err != nil {
		return fmt.Errorf("daemon: startup replay: loading follow-file: %w", err)
	}

	for id, role := range follow {
		var loadErr error
		if role == machine.Writer {
			loadErr = d.Engine.InitAsWriter(ctx, id)
		} else {
			loadErr = d.Engine.InitAsReader(ctx, id)
		}
		if loadErr != nil {
			return fmt.Errorf("daemon: startup replay: loading %q as %s: %w", id, role, loadErr)
		}
	}
	d.log.Info("startup replay complete", zap.Int("machines", len(follow)))

	d.pollerCtx, d.pollerCancel = context.WithCancel(context.Background())
	d.pollerDone = make(chan struct{})
	go func() {
		defer close(d.pollerDone)
		d.poller.Run(d.pollerCtx)
	}()

	return nil
}

// Shutdown stops the Poller and waits for the refreshes it spawned to
// finish, then cancels its context. It then takes each cached machine's
// registry lock in turn, which waits out any Modify already running on
// that machine, and closes the machine's subscription under that lock so
// no further subscription-triggered work is scheduled for it. Work handed
// to a goroutine that has not yet reached Modify is not waited for.
func (d *Daemon) Shutdown(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if d.pollerCancel != nil {
			d.poller.Stop()
			d.pollerCancel()
		}
		for id := range d.Reg.Snapshot() {
			_, _ = d.Reg.Modify(id, func(m *machine.Machine) (any, error) {
				if m.Subscription != nil {
					_ = m.Subscription.Close()
				}
				return nil, nil
			})
		}
		return nil
	})
	return g.Wait()
}
