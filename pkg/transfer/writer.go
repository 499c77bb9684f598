package transfer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileWriter persists inbound payload content. Content is staged first and
// only becomes visible under its own name once the transfer is verified.
type FileWriter interface {
	// Write stages the content of body for name and returns the staged path.
	Write(endpointID, name string, body io.Reader) (string, error)
	// Commit moves a staged file to its final name and returns that path.
	Commit(staged string) (string, error)
	// Discard removes a staged file.
	Discard(staged string) error
}

// partSuffix marks content that has not been verified yet.
const partSuffix = ".part"

var (
	ErrNoSaveDirectory = errors.New("no save directory selected")
	ErrUnsafeName      = errors.New("payload name escapes the save directory")
)

// DiskWriter writes payloads below the directory returned by its Dir
// function, which is consulted on every write so the save directory can
// change between transfers.
type DiskWriter struct {
	Dir       func() string
	ChunkSize int32

	mu sync.Mutex
}

// NewDiskWriter creates a writer rooted at whatever dir reports.
func NewDiskWriter(dir func() string) *DiskWriter {
	return &DiskWriter{Dir: dir, ChunkSize: DefaultChunkSize}
}

func (w *DiskWriter) Write(endpointID, name string, body io.Reader) (string, error) {
	root := w.Dir()
	if root == "" {
		return "", ErrNoSaveDirectory
	}

	f, target, err := w.stage(root, name)
	if err != nil {
		return "", err
	}
	staged := f.Name()

	n, err := CopyWithProgress(f, body, -1, w.ChunkSize, nil)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(staged); rmErr != nil {
			slog.Warn("failed to remove partial file", "path", staged, "error", rmErr)
		}
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	slog.Info("Staged payload", "endpoint", endpointID, "path", staged, "bytes", n)
	return staged, nil
}

func (w *DiskWriter) Commit(staged string) (string, error) {
	if !strings.HasSuffix(staged, partSuffix) {
		return "", fmt.Errorf("%s is not a staged file", staged)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	target := freeName(strings.TrimSuffix(staged, partSuffix), exists)
	if err := os.Rename(staged, target); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", staged, err)
	}
	return target, nil
}

func (w *DiskWriter) Discard(staged string) error {
	if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", staged, err)
	}
	return nil
}

// stage resolves name below root, creates parent directories, picks a name
// that does not collide with an existing file, and creates its staging file.
func (w *DiskWriter) stage(root, name string) (*os.File, string, error) {
	rel, err := sanitize(name)
	if err != nil {
		return nil, "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	target := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	// A name is taken while another transfer is still staging it.
	target = freeName(target, func(path string) bool {
		return exists(path) || exists(path+partSuffix)
	})
	f, err := os.OpenFile(target+partSuffix, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", target+partSuffix, err)
	}
	return f, target, nil
}

// freeName returns target, or "name (n).ext" for the first n for which taken
// reports false.
func freeName(target string, taken func(string) bool) string {
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)
	candidate := target
	for i := 1; taken(candidate); i++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// sanitize turns a payload name into a relative path that stays below the
// save directory.
func sanitize(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnsafeName)
	}
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return cleaned, nil
}
