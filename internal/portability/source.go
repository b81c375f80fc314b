package portability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Source supplies the bytes of an import.
type Source interface {
	// Name identifies the source in logs and is used to infer the format
	// from its extension when none is declared.
	Name() string
	ReadAll(ctx context.Context) ([]byte, error)
}

// FileSource reads an import from a file on disk.
func FileSource(path string) Source {
	return fileSource(path)
}

type fileSource string

func (s fileSource) Name() string { return string(s) }

func (s fileSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", string(s), err)
	}
	return data, nil
}

// BytesSource wraps bytes already in memory.
func BytesSource(name string, data []byte) Source {
	return &bytesSource{name: name, data: data}
}

type bytesSource struct {
	name string
	data []byte
}

func (s *bytesSource) Name() string { return s.name }

func (s *bytesSource) ReadAll(context.Context) ([]byte, error) {
	return s.data, nil
}

// ReaderSource reads an import from r, at most limit bytes when limit > 0.
func ReaderSource(name string, r io.Reader, limit int64) Source {
	return &readerSource{name: name, r: r, limit: limit}
}

type readerSource struct {
	name  string
	r     io.Reader
	limit int64
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.limit <= 0 {
		return io.ReadAll(s.r)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(s.r, s.limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.name, err)
	}
	if n > s.limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", s.name, s.limit)
	}
	return buf.Bytes(), nil
}
