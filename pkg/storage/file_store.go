package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

const DefaultStateFileName = "state.json"

// FileStore keeps State as a json document. Every update rewrites the file
// through a temporary file and a rename.
type FileStore struct {
	path string

	mu sync.Mutex
}

var _ Storage = (*FileStore)(nil)

func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// GetCurrentState returns an empty State when the file is missing or
// unreadable.
func (s *FileStore) GetCurrentState(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *FileStore) UpdateDirectories(ctx context.Context, dirs []platform.SaveDir) error {
	return s.update(ctx, func(st *State) {
		st.SaveDirs = slices.Clone(dirs)
	})
}

func (s *FileStore) UpdateCurrentDirectory(ctx context.Context, dir string) error {
	return s.update(ctx, func(st *State) {
		st.CurrentDir = dir
	})
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) update(ctx context.Context, fn func(*State)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.readLocked()
	if err != nil {
		return err
	}
	fn(&st)
	return s.writeLocked(st)
}

func (s *FileStore) readLocked() (State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		// a corrupt file is treated as empty, the next write replaces it
		return State{}, nil
	}
	return st, nil
}

func (s *FileStore) writeLocked(st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	raw = append(raw, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
