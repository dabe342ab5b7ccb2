// Package storage is the Storage Client external collaborator:
// a content-addressed append-only log keyed by machine id.
package storage

import (
	"context"

	"github.com/evalnet/machined/pkg/value"
)

// Index is the storage layer's opaque, totally-ordered-per-machine
// cursor. Callers never parse it; only compare for equality.
type Index string

// Client is the Storage Client boundary.
type Client interface {
	// WriteLog appends inputs atomically and returns the new tail index.
	WriteLog(ctx context.Context, id string, inputs []value.Value) (Index, error)

	// ReadLogFrom returns the current tail index and every input after
	// fromExclusive (or the whole log, if hasFrom is false).
	ReadLogFrom(ctx context.Context, id string, fromExclusive Index, hasFrom bool) (tail Index, hasTail bool, inputs []value.Value, err error)
}
