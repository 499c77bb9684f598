package transfer

import (
	"errors"
	"fmt"
	"io"
)

type Chunk struct {
	SequenceNo uint32
	Offset     int64
	Data       []byte
	IsLast     bool
}

// Chunker splits a payload body into fixed-size chunks.
type Chunker struct {
	src        io.Reader
	total      int64
	currentSeq uint32
	bytesRead  int64
	buffer     []byte
}

var ErrShortPayload = errors.New("payload body ended before its declared size")

func NewChunker(src io.Reader, total int64, chunkSize int32) (*Chunker, error) {
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		return nil, fmt.Errorf("chunk size must be between %d and %d", MinChunkSize, MaxChunkSize)
	}
	return &Chunker{
		src:    src,
		total:  total,
		buffer: make([]byte, chunkSize),
	}, nil
}

// Next returns the next chunk, or io.EOF once the declared size was read. A
// total below zero means the size is unknown and the body is read to its end.
func (c *Chunker) Next() (*Chunk, error) {
	if c.total >= 0 && c.bytesRead >= c.total {
		return nil, io.EOF
	}

	want := int64(len(c.buffer))
	if c.total >= 0 && c.total-c.bytesRead < want {
		want = c.total - c.bytesRead
	}

	n, err := io.ReadFull(c.src, c.buffer[:want])
	if n > 0 {
		offset := c.bytesRead
		c.bytesRead += int64(n)
		c.currentSeq++

		// Copy so the caller can hold on to the chunk across calls.
		data := make([]byte, n)
		copy(data, c.buffer[:n])

		last := c.total >= 0 && c.bytesRead >= c.total
		if c.total < 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			last = true
		}
		return &Chunk{
			SequenceNo: c.currentSeq,
			Offset:     offset,
			Data:       data,
			IsLast:     last,
		}, nil
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if c.total >= 0 {
			return nil, ErrShortPayload
		}
		return nil, io.EOF
	}
	return nil, err
}

// BytesRead is the number of bytes handed out so far.
func (c *Chunker) BytesRead() int64 {
	return c.bytesRead
}

// CopyWithProgress copies total bytes from src to dst chunk by chunk and calls
// progress with the running byte count after each chunk.
func CopyWithProgress(dst io.Writer, src io.Reader, total int64, chunkSize int32, progress func(done int64)) (int64, error) {
	chunker, err := NewChunker(src, total, chunkSize)
	if err != nil {
		return 0, err
	}
	for {
		chunk, err := chunker.Next()
		if err == io.EOF {
			return chunker.BytesRead(), nil
		}
		if err != nil {
			return chunker.BytesRead(), err
		}
		if _, err := dst.Write(chunk.Data); err != nil {
			return chunk.Offset, fmt.Errorf("failed to write chunk %d: %w", chunk.SequenceNo, err)
		}
		if progress != nil {
			progress(chunker.BytesRead())
		}
	}
}
