package cas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	content := "# Resize(int)\n\nResizes the widget."
	hash, err := s.Write(content)
	if err != nil {
		t.Fatal(err)
	}
	if hash != Hash(content) {
		t.Fatalf("hash = %q, want %q", hash, Hash(content))
	}

	got, err := s.Read(hash)
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Errorf("round-trip failed: got %q, want %q", got, content)
	}
	if !s.Has(hash) {
		t.Error("Has should report stored content")
	}
}

func TestWrite_Dedup(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	content := "duplicate content"
	hash1, err := s.Write(content)
	if err != nil {
		t.Fatal(err)
	}
	hash2, err := s.Write(content)
	if err != nil {
		t.Fatal(err)
	}
	if hash1 != hash2 {
		t.Errorf("same content produced different hashes: %s vs %s", hash1, hash2)
	}
}

func TestWrite_DifferentContent(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	hash1, err := s.Write("content A")
	if err != nil {
		t.Fatal(err)
	}
	hash2, err := s.Write("content B")
	if err != nil {
		t.Fatal(err)
	}
	if hash1 == hash2 {
		t.Error("different content should produce different hashes")
	}
}

func TestWrite_ShardedLayout(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	hash, err := New(dir).Write("sharded")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, hash[:2], hash[2:]+".md.zst")); err != nil {
		t.Errorf("expected sharded file: %v", err)
	}
}

func TestRead_MissingHash(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	_, err := s.Read("0000000000000000000000000000000000000000000000000000000000000000")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestRead_InvalidHash(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())
	for _, hash := range []string{"", "ab", "../../etc/passwd", "zz00000000000000000000000000000000000000000000000000000000000000"} {
		if _, err := s.Read(hash); err == nil {
			t.Errorf("Read(%q) should fail", hash)
		}
		if s.Has(hash) {
			t.Errorf("Has(%q) should be false", hash)
		}
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()
	s := New(t.TempDir())

	keep, err := s.Write("keep me")
	if err != nil {
		t.Fatal(err)
	}
	drop, err := s.Write("drop me")
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.Prune(map[string]bool{keep: true})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}
	if !s.Has(keep) || s.Has(drop) {
		t.Errorf("after prune: has(keep)=%v has(drop)=%v", s.Has(keep), s.Has(drop))
	}
}

func TestPrune_MissingDir(t *testing.T) {
	t.Parallel()
	s := New(filepath.Join(t.TempDir(), "absent"))
	removed, err := s.Prune(nil)
	if err != nil || removed != 0 {
		t.Errorf("got %d, %v", removed, err)
	}
}

func TestDefault_UsesCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/x")
	if got, want := Default().Dir(), filepath.Join("/x", "docnet", "cas"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
