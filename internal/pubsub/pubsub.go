// Package pubsub is the PubSub Client external collaborator:
// per-topic subscribe/publish, handler registration, and a bounded
// blocking wait-for-one used by the ack round-trip.
package pubsub

import (
	"context"
	"time"

	"github.com/evalnet/machined/pkg/value"
)

// MessageKind tags the variant of a Message.
type MessageKind int

const (
	KindReqInputs MessageKind = iota
	KindNewInputs
)

// Message is the PubSub wire payload. ReqInputs carries Expressions and a
// required Nonce; NewInputs carries Results and an optional Nonce
// (HasNonce false means "none" — a fan-out broadcast not answering a
// specific ack wait).
type Message struct {
	Kind        MessageKind
	Expressions []value.Value // ReqInputs only
	Results     []value.Value // NewInputs only
	Nonce       string
	HasNonce    bool
}

// Handle is an opaque per-topic subscription resource, owned by the Machine it was opened for.
type Handle interface {
	// Topic returns the machine id this handle was subscribed for.
	Topic() string
	// Close releases the subscription. Idempotent.
	Close() error
}

// Client is the PubSub Client boundary.
type Client interface {
	// Subscribe opens a topic handle for id.
	Subscribe(ctx context.Context, id string) (Handle, error)

	// Publish broadcasts msg to every subscriber of id.
	Publish(ctx context.Context, id string, msg Message) error

	// AddHandler registers fn to run for every message delivered on h.
	// Delivery is best-effort, at-most-once, and handler errors must be
	// logged and swallowed by fn itself — AddHandler does not
	// propagate handler errors anywhere.
	AddHandler(h Handle, fn func(Message))

	// PrepareWait installs a one-shot predicate filter on h and returns
	// a Waiter to block on. Callers that are about to publish a request
	// and then wait for its reply must call PrepareWait before
	// Publish: installing the filter only once the wait itself blocks
	// would lose a reply delivered in between.
	PrepareWait(h Handle, predicate func(Message) bool) (Waiter, error)
}

// Waiter is a registered one-shot wait for a message matching the
// predicate it was created with.
type Waiter interface {
	// Wait blocks until a matching message arrives, ctx is done, or
	// timeout elapses — whichever comes first.
	Wait(ctx context.Context, timeout time.Duration) (Message, error)
}
