package fileInfo

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateNode_Directory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "album")
	writeFile(t, filepath.Join(root, "b.txt"), "bbb")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "nested", "c.txt"), "cc")

	node, err := CreateNode(root)
	require.NoError(t, err)
	assert.True(t, node.IsDir)
	assert.Equal(t, int64(6), node.Size)
	assert.Equal(t, 3, node.Count())

	var rels []string
	for _, f := range node.Flatten() {
		rels = append(rels, f.RelPath)
		assert.False(t, f.IsDir)
		assert.NotEmpty(t, f.MimeType)
	}
	assert.Equal(t, []string{"album/a.txt", "album/b.txt", "album/nested/c.txt"}, rels)
}

func TestCreateNode_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeFile(t, path, "hello")

	node, err := CreateNode(path)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", node.RelPath)
	assert.Equal(t, []FileNode{node}, node.Flatten())

	sum, err := node.CalcChecksum()
	require.NoError(t, err)
	expected := sha256.Sum256([]byte("hello"))
	assert.Equal(t, hex.EncodeToString(expected[:]), sum)
}

func TestCreateNode_Missing(t *testing.T) {
	_, err := CreateNode(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDirectoryChecksumIsStable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "d")
	writeFile(t, filepath.Join(root, "x"), "1")
	writeFile(t, filepath.Join(root, "y"), "2")

	first, err := CreateNode(root)
	require.NoError(t, err)
	second, err := CreateNode(root)
	require.NoError(t, err)

	a, err := first.CalcChecksum()
	require.NoError(t, err)
	b, err := second.CalcChecksum()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashingReader(t *testing.T) {
	hr := NewHashingReader(strings.NewReader("hello"))
	data, err := io.ReadAll(hr)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	expected := sha256.Sum256([]byte("hello"))
	assert.True(t, hr.Matches(hex.EncodeToString(expected[:])))
	assert.True(t, hr.Matches(""))
	assert.False(t, hr.Matches("deadbeef"))
}
