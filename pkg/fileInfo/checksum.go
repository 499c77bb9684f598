package fileInfo

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"log/slog"
	"os"
	"strings"
)

func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CalcChecksum hashes a file, or combines the child hashes of a directory.
func (n *FileNode) CalcChecksum() (string, error) {
	if !n.IsDir {
		sum, err := calculateSHA256(n.Path)
		if err != nil {
			return "", err
		}
		n.Checksum = sum
		return sum, nil
	}

	childSums := make([]string, 0, len(n.Children))
	for i := range n.Children {
		sum, err := n.Children[i].CalcChecksum()
		if err != nil {
			return "", err
		}
		childSums = append(childSums, n.Children[i].Name+":"+sum)
	}
	hash := sha256.Sum256([]byte(strings.Join(childSums, "|")))
	n.Checksum = hex.EncodeToString(hash[:])
	return n.Checksum, nil
}

// HashingReader computes the sha256 of everything read through it.
type HashingReader struct {
	r io.Reader
	h hash.Hash
}

func NewHashingReader(r io.Reader) *HashingReader {
	h := sha256.New()
	return &HashingReader{r: io.TeeReader(r, h), h: h}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	return hr.r.Read(p)
}

// Sum returns the hex digest of the bytes read so far.
func (hr *HashingReader) Sum() string {
	return hex.EncodeToString(hr.h.Sum(nil))
}

// Matches reports whether the bytes read so far hash to expected. An empty
// expected checksum always matches.
func (hr *HashingReader) Matches(expected string) bool {
	return expected == "" || strings.EqualFold(hr.Sum(), expected)
}
