// Package followstore is the persistent machine-id -> role mapping
// loaded at boot and rewritten on change.
package followstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/evalnet/machined/internal/machine"
	"go.uber.org/zap"
)

// Store guards load/persist of a single JSON follow-file with one mutex
// that serialises load/persist against each other.
type Store struct {
	log  *zap.Logger
	path string

	mu sync.Mutex
}

// New returns a Store bound to path. It does not touch the filesystem
// until Load is called.
func New(log *zap.Logger, path string) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{log: log.Named("followstore"), path: path}
}

// Load reads and decodes the follow-file. If the file is absent, it is
// created containing the empty map. If present and undecodable, Load
// fails; the caller is expected to treat a non-nil error from Load
// during boot as fatal.
func (s *Store) Load() (map[machine.ID]machine.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		empty := map[machine.ID]machine.Role{}
		if writeErr := s.writeLocked(empty); writeErr != nil {
			return nil, fmt.Errorf("followstore: creating empty file: %w", writeErr)
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("followstore: reading %s: %w", s.path, err)
	}

	var wire map[string]string
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("followstore: %s is corrupt: %w", s.path, err)
	}

	out := make(map[machine.ID]machine.Role, len(wire))
	for idStr, roleStr := range wire {
		role, ok := machine.ParseRole(roleStr)
		if !ok {
			return nil, fmt.Errorf("followstore: %s: unknown role %q for machine %q", s.path, roleStr, idStr)
		}
		out[machine.ID(idStr)] = role
	}
	return out, nil
}

// Persist atomically rewrites the follow-file to reflect follow. A crash
// mid-write leaves either the prior or the new file intact (write to a
// temp file in the same directory, then rename).
func (s *Store) Persist(follow map[machine.ID]machine.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(follow)
}

func (s *Store) writeLocked(follow map[machine.ID]machine.Role) error {
	wire := make(map[string]string, len(follow))
	for id, role := range follow {
		wire[string(id)] = role.String()
	}

	payload, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("followstore: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".followstore-*.tmp")
	if err != nil {
		return fmt.Errorf("followstore: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("followstore: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("followstore: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("followstore: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("followstore: renaming into place: %w", err)
	}

	s.log.Debug("follow-file persisted", zap.Int("machines", len(follow)), zap.String("path", s.path))
	return nil
}
