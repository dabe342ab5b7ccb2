// Package poller is the periodic task that refreshes reader-mode
// machines whose subscription may have missed events.
//
// Flattened to a plain ticker rather than a min-heap scheduler: a heap
// earns its O(log n) reschedule cost across an unbounded set of
// independently-timed supervisors, but here every reader machine is
// visited on every tick and each Machine's own PollingState decides
// locally whether to refresh, so no heap is needed at this fan-out
// (see DESIGN.md).
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/registry"
)

// Refresher is the subset of roleengine.Engine the Poller depends on.
type Refresher interface {
	RefreshAsReader(ctx context.Context, id machine.ID) error
}

// Poller runs RefreshAsReader against every reader-role machine whose
// polling window has elapsed, once per tick.
type Poller struct {
	log    *zap.Logger
	reg    *registry.Registry
	engine Refresher
	tick   time.Duration
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New constructs a Poller with tick as T_tick.
func New(log *zap.Logger, reg *registry.Registry, engine Refresher, tick time.Duration) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Poller{
		log:    log.Named("poller"),
		reg:    reg,
		engine: engine,
		tick:   tick,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run blocks, ticking until Stop is called or ctx is done.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.tickOnce(ctx)
		}
	}
}

// tickOnce snapshots the registry's reader machines and refreshes the
// ones whose PollingState says so.
func (p *Poller) tickOnce(ctx context.Context) {
	snapshot := p.reg.Snapshot()
	now := p.now()

	for id, m := range snapshot {
		if m.Role != machine.Reader {
			continue // writer-mode machines are skipped (step 4)
		}

		delta := now.Sub(m.LastUpdated)
		if !m.Polling.ShouldRefresh(delta) {
			continue
		}

		p.wg.Add(1)
		go func(id machine.ID) {
			defer p.wg.Done()
			if err := p.engine.RefreshAsReader(ctx, id); err != nil {
				p.log.Warn("poll refresh failed", zap.String("id", string(id)), zap.Error(err))
			}
		}(id)
	}
}

// Stop signals Run to return and waits for any in-flight refreshes to
// finish.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
	p.wg.Wait()
}
