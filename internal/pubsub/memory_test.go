package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestPublishFanOutToMultipleHandles(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	h1, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe h1: %v", err)
	}
	h2, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe h2: %v", err)
	}

	var got1, got2 []Message
	m.AddHandler(h1, func(msg Message) { got1 = append(got1, msg) })
	m.AddHandler(h2, func(msg Message) { got2 = append(got2, msg) })

	if err := m.Publish(ctx, "topic", Message{Kind: KindNewInputs}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("got1=%d got2=%d, want both 1", len(got1), len(got2))
	}
}

func TestWaitOneMatchesPredicateOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	h, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waiter, err := m.PrepareWait(h, func(msg Message) bool {
		return msg.Kind == KindNewInputs && msg.Nonce == "n1"
	})
	if err != nil {
		t.Fatalf("prepare wait: %v", err)
	}

	done := make(chan Message, 1)
	go func() {
		msg, err := waiter.Wait(ctx, time.Second)
		if err != nil {
			t.Error(err)
			return
		}
		done <- msg
	}()

	time.Sleep(10 * time.Millisecond)
	if err := m.Publish(ctx, "topic", Message{Kind: KindNewInputs, Nonce: "other", HasNonce: true}); err != nil {
		t.Fatalf("publish non-matching: %v", err)
	}
	if err := m.Publish(ctx, "topic", Message{Kind: KindNewInputs, Nonce: "n1", HasNonce: true}); err != nil {
		t.Fatalf("publish matching: %v", err)
	}

	select {
	case msg := <-done:
		if msg.Nonce != "n1" {
			t.Errorf("got nonce %q, want n1", msg.Nonce)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestPrepareWaitCatchesReplyPublishedBeforeWait(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	h, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waiter, err := m.PrepareWait(h, func(msg Message) bool {
		return msg.Kind == KindNewInputs && msg.Nonce == "n1"
	})
	if err != nil {
		t.Fatalf("prepare wait: %v", err)
	}

	// A fast reply arrives before Wait is ever called; the filter must
	// already be installed, so it isn't lost.
	if err := m.Publish(ctx, "topic", Message{Kind: KindNewInputs, Nonce: "n1", HasNonce: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := waiter.Wait(ctx, time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if msg.Nonce != "n1" {
		t.Errorf("got nonce %q, want n1", msg.Nonce)
	}
}

func TestWaitOneTimesOut(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	h, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	waiter, err := m.PrepareWait(h, func(msg Message) bool { return false })
	if err != nil {
		t.Fatalf("prepare wait: %v", err)
	}

	_, err = waiter.Wait(ctx, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestCloseRemovesHandleFromFanOut(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	h, err := m.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var called bool
	m.AddHandler(h, func(msg Message) { called = true })
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Publish(ctx, "topic", Message{Kind: KindNewInputs}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called {
		t.Error("closed handle should not receive further messages")
	}
}
