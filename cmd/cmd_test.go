package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/indexer"
	"github.com/jcdickinson/docnet/internal/render"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssemblySpec(t *testing.T) {
	spec, err := parseAssemblySpec("/a/x.members.json:/a/x.xml")
	require.NoError(t, err)
	assert.Equal(t, "/a/x.members.json", spec.Members)
	assert.Equal(t, "/a/x.xml", spec.Docs)

	spec, err = parseAssemblySpec("x.members.json:x.xml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(spec.Members))
	assert.True(t, filepath.IsAbs(spec.Docs))

	for _, bad := range []string{"x.json", ":x.xml", "x.json:"} {
		_, err := parseAssemblySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatReasons(t *testing.T) {
	got := formatReasons(map[string]int{
		"resolved":            3,
		"no_candidate_member": 1,
		"ambiguous_overload":  0,
	}, "  ")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "no_candidate_member"))
	assert.True(t, strings.HasSuffix(lines[1], " 3"))
}

const testManifest = `{
  "assembly": "Acme.Widgets",
  "members": [
    {"kind": "type", "declaringType": "Acme.Widget"},
    {"kind": "method", "declaringType": "Acme.Widget", "name": "Resize", "parameterTypes": ["System.Int32"]},
    {"kind": "type", "declaringType": "Acme.Bag", "genericArity": 1}
  ]
}`

const testXML = `<?xml version="1.0"?>
<doc>
  <assembly><name>Acme.Widgets</name></assembly>
  <members>
    <member name="T:Acme.Widget"><summary>A widget.</summary></member>
    <member name="M:Acme.Widget.Resize(System.Int32)"><summary>Resizes it.</summary></member>
    <member name="M:Acme.Widget.Gone"><summary>Removed.</summary></member>
  </members>
</doc>`

func loadBuild(t *testing.T) *indexer.Build {
	t.Helper()
	dir := t.TempDir()
	manifest := filepath.Join(dir, "m.json")
	docs := filepath.Join(dir, "d.xml")
	require.NoError(t, os.WriteFile(manifest, []byte(testManifest), 0644))
	require.NoError(t, os.WriteFile(docs, []byte(testXML), 0644))
	b, err := indexer.Load(context.Background(), manifest, docs, 1)
	require.NoError(t, err)
	return b
}

func TestResolvedEntries(t *testing.T) {
	b := loadBuild(t)
	entries := resolvedEntries(b.Results)
	require.Len(t, entries, 3)
	assert.Equal(t, "M:Acme.Widget.Resize(System.Int32)", entries[1].Member)
	assert.Equal(t, "no_candidate_member", entries[2].Reason)
	assert.Empty(t, entries[2].Member)

	counts := reasonCounts(b.Summary())
	assert.Equal(t, 2, counts[resolve.Resolved.String()])
	assert.Equal(t, 1, counts[resolve.NoCandidateMember.String()])
}

func TestWritePages(t *testing.T) {
	b := loadBuild(t)

	t.Run("markdown", func(t *testing.T) {
		dir := t.TempDir()
		n, err := writePages(dir, b, config.RenderConfig{Format: "markdown"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		page, err := os.ReadFile(filepath.Join(dir, render.PageName("Acme.Widget", "md")))
		require.NoError(t, err)
		assert.Contains(t, string(page), "A widget.")
		assert.Contains(t, string(page), "Resizes it.")
		assert.FileExists(t, filepath.Join(dir, render.PageName("Acme.Bag`1", "md")))
		assert.FileExists(t, filepath.Join(dir, "index.md"))
	})

	t.Run("html", func(t *testing.T) {
		dir := t.TempDir()
		_, err := writePages(dir, b, config.RenderConfig{Format: "html"})
		require.NoError(t, err)

		page, err := os.ReadFile(filepath.Join(dir, "index.html"))
		require.NoError(t, err)
		assert.Contains(t, string(page), "<html")
		assert.NotContains(t, string(page), "assembly: Acme.Widgets")
	})
}

func TestTailLines(t *testing.T) {
	input := "one\ntwo\nthree\nfour\n"
	tests := []struct {
		n    int
		want string
	}{
		{2, "three\nfour\n"},
		{10, input},
		{4, input},
		{0, ""},
	}
	for _, tt := range tests {
		var out strings.Builder
		require.NoError(t, tailLines(strings.NewReader(input), &out, tt.n))
		assert.Equal(t, tt.want, out.String(), "n=%d", tt.n)
	}
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tailLines(f, io.Discard, 0))

	appender, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = appender.WriteString("new\n")
	require.NoError(t, err)
	require.NoError(t, appender.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out strings.Builder
	require.NoError(t, follow(ctx, f, &out, time.Millisecond))
	assert.Equal(t, "new\n", out.String())
}
