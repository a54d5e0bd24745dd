// Package cas stores rendered pages by content hash, zstd compressed.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/zio"
)

const ext = ".md.zst"

// Store is a content-addressable directory of pages.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Default returns the store under the docnet cache directory.
func Default() *Store {
	return New(config.CASDir())
}

// Dir returns the CAS directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Hash returns the key content is stored under.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// path returns the sharded file path for a hash: cas/<first2>/<rest>.md.zst
func (s *Store) path(hash string) (string, error) {
	if len(hash) != sha256.Size*2 {
		return "", fmt.Errorf("invalid CAS hash %q", hash)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("invalid CAS hash %q", hash)
	}
	return filepath.Join(s.dir, hash[:2], hash[2:]+ext), nil
}

// Write stores content in the CAS, returning its SHA-256 hash.
// If the content already exists, this is a no-op.
func (s *Store) Write(content string) (string, error) {
	hash := Hash(content)
	p, _ := s.path(hash)
	if _, err := os.Stat(p); err == nil {
		return hash, nil
	}

	// Readers must never observe a partially written page.
	tmp := p + ".tmp.zst"
	w, err := zio.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating CAS file: %w", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		w.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("compressing CAS content: %w", err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing CAS file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("writing CAS file: %w", err)
	}
	return hash, nil
}

// Read retrieves content from the CAS by hash.
func (s *Store) Read(hash string) (string, error) {
	p, err := s.path(hash)
	if err != nil {
		return "", err
	}
	rc, err := zio.Open(p)
	if err != nil {
		return "", fmt.Errorf("reading CAS file %s: %w", hash, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("decompressing CAS file %s: %w", hash, err)
	}
	return string(data), nil
}

// Has reports whether content with the given hash is stored.
func (s *Store) Has(hash string) bool {
	p, err := s.path(hash)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Prune deletes every stored page whose hash is not in keep and returns how
// many were removed. A missing store directory is not an error.
func (s *Store) Prune(keep map[string]bool) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.dir && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		hash := filepath.Base(filepath.Dir(p)) + strings.TrimSuffix(d.Name(), ext)
		if keep[hash] {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("removing CAS file %s: %w", hash, err)
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("pruning CAS: %w", err)
	}
	return removed, nil
}
