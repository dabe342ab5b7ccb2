package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evalnet/machined/internal/machine"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/internal/storage"
	"github.com/evalnet/machined/pkg/value"
)

func TestStartReplaysFollowFile(t *testing.T) {
	st := storage.NewMemory()
	ps := pubsub.NewMemory()
	ctx := context.Background()

	followPath := filepath.Join(t.TempDir(), "follow.json")
	d1 := New(nil, st, ps, Options{FollowFilePath: followPath, AckTimeout: time.Second, PollTick: time.Hour, HighFreqWindow: 10 * time.Second})
	if err := d1.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	id, err := d1.Engine.NewMachine(ctx)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	if _, err := d1.Engine.Send(ctx, id, []value.Value{
		value.List(value.Symbol("define"), value.Symbol("x"), value.Number(1)),
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := d1.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	d2 := New(nil, st, ps, Options{FollowFilePath: followPath, AckTimeout: time.Second, PollTick: time.Hour, HighFreqWindow: 10 * time.Second})
	if err := d2.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	defer d2.Shutdown(ctx)

	if !d2.Reg.Contains(id) {
		t.Fatalf("expected %q to be replayed as a registry entry after restart", id)
	}
	if d2.Reg.Roles()[id] != machine.Writer {
		t.Errorf("replayed role = %v, want Writer", d2.Reg.Roles()[id])
	}
}

func TestStartFatalOnCorruptFollowFile(t *testing.T) {
	st := storage.NewMemory()
	ps := pubsub.NewMemory()
	followPath := filepath.Join(t.TempDir(), "follow.json")

	if err := os.WriteFile(followPath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seeding corrupt file: %v", err)
	}

	d := New(nil, st, ps, Options{FollowFilePath: followPath, AckTimeout: time.Second, PollTick: time.Hour, HighFreqWindow: 10 * time.Second})
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail with a corrupt follow-file")
	}
}
