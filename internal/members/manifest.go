package members

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcdickinson/docnet/internal/zio"
)

// Manifest is the member listing a reflection loader writes for one assembly.
type Manifest struct {
	Assembly string   `json:"assembly"`
	Members  []Member `json:"members"`
}

// LoadManifest reads a manifest from a JSON file, optionally zstd-compressed.
func LoadManifest(path string) (*Manifest, error) {
	r, err := zio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding member manifest %s: %w", path, err)
	}
	if m.Members == nil {
		return nil, fmt.Errorf("member manifest %s has no members list", path)
	}
	return &m, nil
}

func cachePath(dir, assembly string) string {
	return filepath.Join(dir, assembly+".json.zst")
}

// SaveCache stores a compressed copy of the manifest in dir, keyed by
// assembly name.
func SaveCache(dir string, m *Manifest) error {
	w, err := zio.Create(cachePath(dir, m.Assembly))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(m); err != nil {
		w.Close()
		return fmt.Errorf("encoding member manifest: %w", err)
	}
	return w.Close()
}

// LoadCache loads a manifest previously stored with SaveCache.
func LoadCache(dir, assembly string) (*Manifest, error) {
	return LoadManifest(cachePath(dir, assembly))
}

// HasCache reports whether a cached manifest exists for the assembly.
func HasCache(dir, assembly string) bool {
	_, err := os.Stat(cachePath(dir, assembly))
	return err == nil
}

// RemoveCache deletes the cached manifest, if any.
func RemoveCache(dir, assembly string) error {
	err := os.Remove(cachePath(dir, assembly))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cached manifest: %w", err)
	}
	return nil
}
