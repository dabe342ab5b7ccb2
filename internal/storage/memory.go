package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/evalnet/machined/pkg/value"
)

// Memory is an in-process Storage Client, used for tests and
// single-node demos where a Redis instance isn't available. It
// satisfies the same content-addressed-index contract as RedisClient:
// indices are opaque monotonically increasing tokens.
type Memory struct {
	mu   sync.Mutex
	logs map[string][]value.Value
}

// NewMemory constructs an empty in-memory storage client.
func NewMemory() *Memory {
	return &Memory{logs: make(map[string][]value.Value)}
}

func indexFor(n int) Index { return Index(fmt.Sprintf("%012d", n)) }

func (m *Memory) WriteLog(ctx context.Context, id string, inputs []value.Value) (Index, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("storage: WriteLog requires at least one input")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[id] = append(m.logs[id], inputs...)
	return indexFor(len(m.logs[id])), nil
}

func (m *Memory) ReadLogFrom(ctx context.Context, id string, fromExclusive Index, hasFrom bool) (Index, bool, []value.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[id]
	if len(log) == 0 {
		return "", false, nil, nil
	}

	from := 0
	if hasFrom {
		var n int
		if _, err := fmt.Sscanf(string(fromExclusive), "%d", &n); err != nil {
			return "", false, nil, fmt.Errorf("storage: malformed index %q: %w", fromExclusive, err)
		}
		from = n
	}
	if from > len(log) {
		from = len(log)
	}

	tail := indexFor(len(log))
	if from >= len(log) {
		return tail, true, nil, nil
	}

	out := append([]value.Value(nil), log[from:]...)
	return tail, true, out, nil
}
