package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evalnet/machined/pkg/value"
)

// RedisClient is the PubSub Client backed by native Redis Pub/Sub
// (PUBLISH/SUBSCRIBE), one channel per machine id.
type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisClient constructs a RedisClient against addr. addr is expected
// to be the same Redis instance as internal/storage's RedisClient in
// typical deployments, but that is not required.
func NewRedisClient(addr string, log *zap.Logger) *RedisClient {
	log = log.Named("pubsub")
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})
	return &RedisClient{client: client, log: log}
}

func channelFor(id string) string { return fmt.Sprintf("machined:topic:%s", id) }

type wireMessage struct {
	Kind        string        `json:"kind"`
	Expressions []value.Value `json:"expressions,omitempty"`
	Results     []value.Value `json:"results,omitempty"`
	Nonce       *string       `json:"nonce,omitempty"`
}

func toWire(msg Message) wireMessage {
	w := wireMessage{}
	switch msg.Kind {
	case KindReqInputs:
		w.Kind = "req"
		w.Expressions = msg.Expressions
	case KindNewInputs:
		w.Kind = "new"
		w.Results = msg.Results
	}
	if msg.HasNonce {
		w.Nonce = &msg.Nonce
	}
	return w
}

func fromWire(w wireMessage) (Message, bool) {
	msg := Message{}
	switch w.Kind {
	case "req":
		msg.Kind = KindReqInputs
		msg.Expressions = w.Expressions
	case "new":
		msg.Kind = KindNewInputs
		msg.Results = w.Results
	default:
		return Message{}, false // unknown kinds are ignored
	}
	if w.Nonce != nil {
		msg.Nonce = *w.Nonce
		msg.HasNonce = true
	}
	return msg, true
}

type redisHandle struct {
	topic string
	sub   *redis.PubSub

	mu       sync.Mutex
	handlers []func(Message)
	waiters  []*memoryWaiter
	closed   bool

	cancelPump context.CancelFunc
}

func (h *redisHandle) Topic() string { return h.topic }

func (h *redisHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()
	h.cancelPump()
	return h.sub.Close()
}

func (c *RedisClient) Subscribe(ctx context.Context, id string) (Handle, error) {
	sub := c.client.Subscribe(ctx, channelFor(id))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("pubsub: subscribe %q: %w", id, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	h := &redisHandle{topic: id, sub: sub, cancelPump: cancel}
	go h.pump(pumpCtx)
	return h, nil
}

// pump must never block indefinitely on a handler, so handler/waiter
// delivery happens synchronously per message but each handler call is
// expected to enqueue its real work (e.g. via registry.Modify) rather
// than do long I/O inline.
func (h *redisHandle) pump(ctx context.Context) {
	ch := h.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var w wireMessage
			if err := json.Unmarshal([]byte(m.Payload), &w); err != nil {
				continue // malformed payload on the wire; drop silently
			}
			msg, ok := fromWire(w)
			if !ok {
				continue
			}
			h.deliver(msg)
		}
	}
}

func (h *redisHandle) deliver(msg Message) {
	h.mu.Lock()
	handlers := append([]func(Message){}, h.handlers...)
	remaining := h.waiters[:0]
	for _, w := range h.waiters {
		if !w.done && w.predicate(msg) {
			w.done = true
			select {
			case w.ch <- msg:
			default:
			}
			continue
		}
		remaining = append(remaining, w)
	}
	h.waiters = remaining
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

func (c *RedisClient) Publish(ctx context.Context, id string, msg Message) error {
	payload, err := json.Marshal(toWire(msg))
	if err != nil {
		return fmt.Errorf("pubsub: marshal message: %w", err)
	}
	if err := c.client.Publish(ctx, channelFor(id), payload).Err(); err != nil {
		return fmt.Errorf("pubsub: publish %q: %w", id, err)
	}
	return nil
}

func (c *RedisClient) AddHandler(h Handle, fn func(Message)) {
	rh, ok := h.(*redisHandle)
	if !ok {
		return
	}
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.handlers = append(rh.handlers, fn)
}

func (c *RedisClient) PrepareWait(h Handle, predicate func(Message) bool) (Waiter, error) {
	rh, ok := h.(*redisHandle)
	if !ok {
		return nil, fmt.Errorf("pubsub: handle not from RedisClient")
	}

	w := &memoryWaiter{predicate: predicate, ch: make(chan Message, 1)}
	rh.mu.Lock()
	rh.waiters = append(rh.waiters, w)
	rh.mu.Unlock()
	return w, nil
}
