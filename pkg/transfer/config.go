package transfer

import (
	"errors"
)

// Config holds the tunables of the payload layer.
type Config struct {
	// ChunkSize is the unit in which payload bodies are read and progress is reported.
	ChunkSize    int32 `json:"chunk_size" yaml:"chunk_size"`
	MaxChunkSize int32 `json:"max_chunk_size" yaml:"max_chunk_size"`
	MinChunkSize int32 `json:"min_chunk_size" yaml:"min_chunk_size"`

	// MaxConcurrentTransfers caps the non-terminal transfers tracked at once.
	MaxConcurrentTransfers int `json:"max_concurrent_transfers" yaml:"max_concurrent_transfers"`

	// UpdateBufferSize is the per-subscriber buffer of the progress bus.
	UpdateBufferSize int `json:"update_buffer_size" yaml:"update_buffer_size"`
}

const (
	DefaultChunkSize = 64 * 1024
	MaxChunkSize     = 256 * 1024
	MinChunkSize     = 4 * 1024
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:              DefaultChunkSize,
		MaxChunkSize:           MaxChunkSize,
		MinChunkSize:           MinChunkSize,
		MaxConcurrentTransfers: 64,
		UpdateBufferSize:       64,
	}
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}
	if c.MinChunkSize <= 0 {
		return errors.New("min_chunk_size must be positive")
	}
	if c.MaxChunkSize <= 0 {
		return errors.New("max_chunk_size must be positive")
	}
	if c.ChunkSize < c.MinChunkSize {
		return errors.New("chunk_size cannot be less than min_chunk_size")
	}
	if c.ChunkSize > c.MaxChunkSize {
		return errors.New("chunk_size cannot be greater than max_chunk_size")
	}
	if c.MaxConcurrentTransfers <= 0 {
		return errors.New("max_concurrent_transfers must be positive")
	}
	if c.UpdateBufferSize <= 0 {
		return errors.New("update_buffer_size must be positive")
	}
	return nil
}

// IsValidChunkSize checks if a chunk size is within acceptable bounds
func (c *Config) IsValidChunkSize(chunkSize int32) bool {
	return chunkSize >= c.MinChunkSize && chunkSize <= c.MaxChunkSize
}
