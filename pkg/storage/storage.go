// Package storage persists the save directories and the current selection
// across runs.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// State is what survives a restart. CurrentDir is empty when nothing is
// selected.
type State struct {
	SaveDirs   []platform.SaveDir `json:"save_dirs"`
	CurrentDir string             `json:"current_dir"`
}

// Storage is safe for concurrent use.
type Storage interface {
	GetCurrentState(ctx context.Context) (State, error)
	UpdateDirectories(ctx context.Context, dirs []platform.SaveDir) error
	// UpdateCurrentDirectory stores dir; an empty dir clears the selection.
	UpdateCurrentDirectory(ctx context.Context, dir string) error
	Close() error
}

// Open creates the store of the given kind under dataDir.
func Open(kind, dataDir string) (Storage, error) {
	switch kind {
	case KindJSON, "":
		return OpenFileStore(filepath.Join(dataDir, DefaultStateFileName))
	case KindSQLite:
		return OpenSQLite(filepath.Join(dataDir, DefaultDBFileName))
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
