package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// Record kinds written to a Store.
const (
	KindSessionStart = "session_start"
	KindTransition   = "transition"
	KindReview       = "review"
	KindSessionEnd   = "session_end"
)

// Record is one persisted session entry.
type Record struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// Store persists session records.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// FileStore appends records as JSON lines to one file per session.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store writing into it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create session directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the backup file of sessionID.
func (s *FileStore) Path(sessionID string) string {
	return filepath.Join(s.dir, "session_"+sessionID+".jsonl")
}

// Append writes rec as a single line.
func (s *FileStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode session record")
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.Path(rec.SessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open session file")
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "failed to write session record")
	}
	return errors.Wrap(f.Close(), "failed to close session file")
}
