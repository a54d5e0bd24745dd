// Package zio opens input and cache files, transparently handling
// zstd compression for paths ending in ".zst".
package zio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compressed reports whether path names a zstd-compressed file.
func Compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

type readCloser struct {
	*zstd.Decoder
	f *os.File
}

func (r readCloser) Close() error {
	r.Decoder.Close()
	return r.f.Close()
}

// Open opens path for reading, decompressing it if it is a .zst file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !Compressed(path) {
		return f, nil
	}

	d, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	return readCloser{Decoder: d, f: f}, nil
}

type writeCloser struct {
	*zstd.Encoder
	f *os.File
}

func (w writeCloser) Close() error {
	if err := w.Encoder.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("closing zstd writer: %w", err)
	}
	return w.f.Close()
}

// Create creates path (and its directory) for writing, compressing the
// output if it is a .zst file.
func Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if !Compressed(path) {
		return f, nil
	}

	e, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating zstd writer: %w", err)
	}
	return writeCloser{Encoder: e, f: f}, nil
}
