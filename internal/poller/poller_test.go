package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/registry"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []machine.ID
}

func (f *fakeRefresher) RefreshAsReader(ctx context.Context, id machine.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return nil
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestTickOnlyRefreshesExpiredReaders(t *testing.T) {
	reg := registry.New(nil)
	now := time.Now()

	expired := machine.New("expired", machine.Reader, nil, time.Second, now.Add(-2*time.Second))
	fresh := machine.New("fresh", machine.Reader, nil, 10*time.Second, now)
	writer := machine.New("writer", machine.Writer, nil, time.Second, now.Add(-2*time.Second))

	if err := reg.InsertNew("expired", expired); err != nil {
		t.Fatal(err)
	}
	if err := reg.InsertNew("fresh", fresh); err != nil {
		t.Fatal(err)
	}
	if err := reg.InsertNew("writer", writer); err != nil {
		t.Fatal(err)
	}

	refresher := &fakeRefresher{}
	p := New(nil, reg, refresher, time.Hour)
	p.now = func() time.Time { return now }

	p.tickOnce(context.Background())
	p.wg.Wait()

	if refresher.count() != 1 {
		t.Fatalf("got %d refresh calls, want 1 (only the expired reader)", refresher.count())
	}
	if refresher.calls[0] != "expired" {
		t.Errorf("refreshed %q, want %q", refresher.calls[0], "expired")
	}
}

func TestRunTicksUntilStopped(t *testing.T) {
	reg := registry.New(nil)
	m := machine.New("id", machine.Reader, nil, 0, time.Now().Add(-time.Hour))
	if err := reg.InsertNew("id", m); err != nil {
		t.Fatal(err)
	}

	refresher := &fakeRefresher{}
	p := New(nil, reg, refresher, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if refresher.count() == 0 {
		t.Error("expected at least one refresh over several ticks")
	}
}
