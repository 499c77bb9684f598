package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rescp17/nearbyExchanger/pkg/platform"
)

const (
	DefaultDBFileName = "state.db"

	settingCurrentDir = "current_dir"
)

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS settings (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS directories (
  position INTEGER NOT NULL,
  name     TEXT NOT NULL,
  path     TEXT PRIMARY KEY
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_directories_position
ON directories (position);
`,
}

// SQLiteStore keeps State in a settings key/value table and an ordered
// directories table.
type SQLiteStore struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer keeps sqlite from reporting SQLITE_BUSY under concurrent updates
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) applyMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(migrations); i++ {
		if _, err := tx.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return fmt.Errorf("set schema version %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCurrentState(ctx context.Context) (State, error) {
	var st State

	rows, err := s.db.QueryContext(ctx, `SELECT name, path FROM directories ORDER BY position`)
	if err != nil {
		return State{}, fmt.Errorf("query directories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dir platform.SaveDir
		if err := rows.Scan(&dir.Name, &dir.Path); err != nil {
			return State{}, fmt.Errorf("scan directory: %w", err)
		}
		st.SaveDirs = append(st.SaveDirs, dir)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("iterate directories: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingCurrentDir).Scan(&st.CurrentDir)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("query current directory: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) UpdateDirectories(ctx context.Context, dirs []platform.SaveDir) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin directories transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM directories`); err != nil {
		return fmt.Errorf("clear directories: %w", err)
	}
	for i, dir := range dirs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO directories (position, name, path) VALUES (?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET name = excluded.name`,
			i, dir.Name, dir.Path)
		if err != nil {
			return fmt.Errorf("insert directory %q: %w", dir.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit directories transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCurrentDirectory(ctx context.Context, dir string) error {
	if dir == "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, settingCurrentDir); err != nil {
			return fmt.Errorf("clear current directory: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingCurrentDir, dir)
	if err != nil {
		return fmt.Errorf("update current directory: %w", err)
	}
	return nil
}
