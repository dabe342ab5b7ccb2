package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evalnet/machined/pkg/value"
)

// RedisClient is the Storage Client backed by a Redis Stream per machine.
// The stream gives us a durable, append-only, totally-ordered log; each
// entry's content hash (sha256 of its canonical JSON encoding) is
// carried alongside the payload as the store's content-addressed
// character, while the Index handed back to callers is simply the
// stream entry ID — opaque, never parsed outside this package.
type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisClient constructs a RedisClient against addr.
func NewRedisClient(addr string, log *zap.Logger) *RedisClient {
	log = log.Named("storage")
	return &RedisClient{client: newRedisClient(addr, log), log: log}
}

func streamKey(id string) string { return fmt.Sprintf("machined:log:%s", id) }

const entryField = "v"
const hashField = "h"

func contentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// WriteLog appends inputs atomically via a single XADD-per-input pipeline
// and returns the ID of the final entry as the new tail Index.
func (c *RedisClient) WriteLog(ctx context.Context, id string, inputs []value.Value) (Index, error) {
	if len(inputs) == 0 {
		return "", errors.New("storage: WriteLog requires at least one input")
	}
	key := streamKey(id)

	pipe := c.client.TxPipeline()
	cmds := make([]*redis.StringCmd, len(inputs))
	for i, in := range inputs {
		payload, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("storage: marshal input %d: %w", i, err)
		}
		cmds[i] = pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]any{
				entryField: payload,
				hashField:  contentHash(payload),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("storage: xadd pipeline: %w", err)
	}

	tail, err := cmds[len(cmds)-1].Result()
	if err != nil {
		return "", fmt.Errorf("storage: xadd result: %w", err)
	}
	return Index(tail), nil
}

// ReadLogFrom returns the stream's current tail index and every entry
// strictly after fromExclusive (the whole log, if hasFrom is false).
func (c *RedisClient) ReadLogFrom(ctx context.Context, id string, fromExclusive Index, hasFrom bool) (Index, bool, []value.Value, error) {
	key := streamKey(id)

	start := "-"
	if hasFrom && fromExclusive != "" {
		start = "(" + string(fromExclusive)
	}

	msgs, err := c.client.XRange(ctx, key, start, "+").Result()
	if err != nil {
		return "", false, nil, fmt.Errorf("storage: xrange: %w", err)
	}

	if len(msgs) == 0 {
		// No new entries; report the stream's current tail (if any) so
		// readers can still advance lastIndex to a consistent cursor.
		if hasFrom {
			return fromExclusive, true, nil, nil
		}
		tail, ok, err := c.currentTail(ctx, key)
		if err != nil {
			return "", false, nil, err
		}
		return tail, ok, nil, nil
	}

	inputs := make([]value.Value, len(msgs))
	for i, m := range msgs {
		raw, ok := m.Values[entryField]
		if !ok {
			return "", false, nil, fmt.Errorf("storage: entry %s missing field %q", m.ID, entryField)
		}
		var payload []byte
		switch t := raw.(type) {
		case string:
			payload = []byte(t)
		case []byte:
			payload = t
		default:
			return "", false, nil, fmt.Errorf("storage: entry %s has unexpected field type %T", m.ID, raw)
		}
		if err := json.Unmarshal(payload, &inputs[i]); err != nil {
			return "", false, nil, fmt.Errorf("storage: unmarshal entry %s: %w", m.ID, err)
		}
	}

	tail := Index(msgs[len(msgs)-1].ID)
	return tail, true, inputs, nil
}

func (c *RedisClient) currentTail(ctx context.Context, key string) (Index, bool, error) {
	msgs, err := c.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
	if err != nil {
		return "", false, fmt.Errorf("storage: xrevrange: %w", err)
	}
	if len(msgs) == 0 {
		return "", false, nil
	}
	return Index(msgs[0].ID), true, nil
}
