package fileInfo

import (
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotRegular = errors.New("not a regular file or directory")

// FileNode describes a file or a directory tree picked for sending.
type FileNode struct {
	Name     string     `json:"name"`
	IsDir    bool       `json:"is_dir"`
	Size     int64      `json:"size"`
	MimeType string     `json:"mime_type,omitempty"`
	Checksum string     `json:"checksum,omitempty"`
	Children []FileNode `json:"children,omitempty"`
	// RelPath is the slash separated path below the picked root, starting
	// with the root's own name.
	RelPath string `json:"rel_path"`
	Path    string `json:"-"`
}

// CreateNode walks path. Unreadable children are skipped with a warning.
// Checksums are left empty; see CalcChecksum.
func CreateNode(p string) (FileNode, error) {
	return createNode(p, filepath.Base(p))
}

func createNode(p, rel string) (FileNode, error) {
	info, err := os.Stat(p)
	if err != nil {
		return FileNode{}, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		return FileNode{}, ErrNotRegular
	}
	node := FileNode{
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		RelPath: rel,
		Path:    p,
	}
	if !node.IsDir {
		mime, err := mimetype.DetectFile(p)
		if err != nil {
			node.MimeType = "application/octet-stream"
		} else {
			node.MimeType = mime.String()
		}
		return node, nil
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return FileNode{}, err
	}
	node.Size = 0
	node.Children = make([]FileNode, 0, len(entries))
	for _, entry := range entries {
		childPath := filepath.Join(p, entry.Name())
		child, err := createNode(childPath, path.Join(rel, entry.Name()))
		if err != nil {
			slog.Warn("Skipping entry", "path", childPath, "error", err)
			continue
		}
		node.Children = append(node.Children, child)
		node.Size += child.Size
	}
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	return node, nil
}

// Flatten returns the regular files of the tree in name order.
func (n FileNode) Flatten() []FileNode {
	if !n.IsDir {
		return []FileNode{n}
	}
	var files []FileNode
	for _, child := range n.Children {
		files = append(files, child.Flatten()...)
	}
	return files
}

// Count returns the number of regular files in the tree.
func (n FileNode) Count() int {
	if !n.IsDir {
		return 1
	}
	total := 0
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}
