package indexer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcdickinson/docnet/internal/cas"
	"github.com/jcdickinson/docnet/internal/db"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/render"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/jcdickinson/docnet/internal/zio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetManifest = `{
  "assembly": "Acme.Widgets",
  "members": [
    {"kind": "type", "declaringType": "Acme.Widget"},
    {"kind": "constructor", "declaringType": "Acme.Widget", "name": ".ctor"},
    {"kind": "method", "declaringType": "Acme.Widget", "name": "Resize", "parameterTypes": ["System.Int32"]},
    {"kind": "property", "declaringType": "Acme.Widget", "name": "Width"},
    {"kind": "type", "declaringType": "Acme.Gadget"}
  ]
}`

const widgetXML = `<?xml version="1.0"?>
<doc>
  <assembly><name>%s</name></assembly>
  <members>
    <member name="N:Acme"><summary>Root namespace.</summary></member>
    <member name="T:Acme.Widget"><summary>A widget.</summary></member>
    <member name="M:Acme.Widget.Resize(System.Int32)">
      <summary>Resizes the widget.</summary>
      <param name="size">New size.</param>
    </member>
    <member name="P:Acme.Widget.Width"><value>Width in pixels.</value></member>
    <member name="M:Acme.Widget.Gone"><summary>Removed.</summary></member>
    <member name="T:Nope.Thing"><summary>Elsewhere.</summary></member>
    <member name="X:bad"><summary>Broken.</summary></member>
  </members>
</doc>`

func writeInputs(t *testing.T, xmlAssembly string) (manifest, docs string) {
	t.Helper()
	dir := t.TempDir()
	manifest = filepath.Join(dir, "Acme.Widgets.members.json")
	docs = filepath.Join(dir, "Acme.Widgets.xml")
	require.NoError(t, os.WriteFile(manifest, []byte(widgetManifest), 0644))
	require.NoError(t, os.WriteFile(docs, []byte(strings.Replace(widgetXML, "%s", xmlAssembly, 1)), 0644))
	return manifest, docs
}

func TestLoad(t *testing.T) {
	t.Parallel()
	manifest, docs := writeInputs(t, "Acme.Widgets")

	b, err := Load(context.Background(), manifest, docs, 2)
	require.NoError(t, err)

	assert.Equal(t, "Acme.Widgets", b.Assembly)
	require.Len(t, b.Results, 7)
	assert.Equal(t, map[resolve.Reason]int{
		resolve.Resolved:          4,
		resolve.NoCandidateMember: 1,
		resolve.NoCandidateType:   1,
		resolve.MalformedDocID:    1,
	}, b.Summary())

	var undocumented []string
	for _, m := range b.Undocumented {
		undocumented = append(undocumented, m.DocID())
	}
	assert.Equal(t, []string{"M:Acme.Widget.#ctor", "T:Acme.Gadget"}, undocumented)

	unresolved := b.Unresolved()
	require.Len(t, unresolved, 3)
	assert.Equal(t, "M:Acme.Widget.Gone", unresolved[0].ID.Raw)

	w := b.Documentation.Type("Acme.Widget")
	require.NotNil(t, w)
	assert.Equal(t, "A widget.", w.Sections.Summary)
}

func TestLoad_CompressedManifest(t *testing.T) {
	t.Parallel()
	_, docs := writeInputs(t, "Acme.Widgets")
	manifest := filepath.Join(t.TempDir(), "members.json.zst")
	w, err := zio.Create(manifest)
	require.NoError(t, err)
	_, err = io.WriteString(w, widgetManifest)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := Load(context.Background(), manifest, docs, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Index.Len())
}

func TestLoad_AssemblyMismatch(t *testing.T) {
	t.Parallel()
	manifest, docs := writeInputs(t, "Other.Assembly")

	_, err := Load(context.Background(), manifest, docs, 0)
	assert.True(t, errors.Is(err, ErrAssemblyMismatch), "got %v", err)
}

func TestLoad_EmptyAssemblyNameAccepted(t *testing.T) {
	t.Parallel()
	manifest, docs := writeInputs(t, "")

	b, err := Load(context.Background(), manifest, docs, 0)
	require.NoError(t, err)
	assert.Equal(t, "Acme.Widgets", b.Assembly)
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()
	manifest, docs := writeInputs(t, "Acme.Widgets")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, manifest, docs, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_MissingInputs(t *testing.T) {
	t.Parallel()
	manifest, docs := writeInputs(t, "Acme.Widgets")

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.json"), docs, 0)
	assert.ErrorContains(t, err, "loading members")
	_, err = Load(context.Background(), manifest, filepath.Join(t.TempDir(), "none.xml"), 0)
	assert.ErrorContains(t, err, "loading documentation")
}

func TestStore(t *testing.T) {
	manifest, docs := writeInputs(t, "Acme.Widgets")
	b, err := Load(context.Background(), manifest, docs, 0)
	require.NoError(t, err)

	dir := t.TempDir()
	d, err := db.New(filepath.Join(dir, "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	pages := cas.New(filepath.Join(dir, "cas"))
	opts := Options{StoreUnresolved: true, ManifestDir: filepath.Join(dir, "manifests"), Render: render.Options{}}

	var messages []string
	stats, err := Store(d, pages, b, opts, func(msg string) { messages = append(messages, msg) })
	require.NoError(t, err)
	assert.Equal(t, &Stats{Members: 6, Documented: 4, Unresolved: 3}, stats)
	assert.NotEmpty(t, messages)

	asm, err := d.GetAssembly("Acme.Widgets")
	require.NoError(t, err)
	require.NotNil(t, asm)
	assert.NotNil(t, asm.IndexedAt)
	assert.Equal(t, 6, asm.MemberCount)
	assert.Equal(t, 4, asm.DocumentedCount)

	t.Run("member_page", func(t *testing.T) {
		m, err := d.GetMember(asm.ID, "M:Acme.Widget.Resize(System.Int32)")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "method", m.Kind)
		assert.Equal(t, "Acme.Widget", m.DeclaringType)

		content, err := pages.Read(m.ContentHash)
		require.NoError(t, err)
		assert.Contains(t, content, "# Resize(int)")
		assert.Contains(t, content, "- `size`: New size.")
	})

	t.Run("type_page", func(t *testing.T) {
		m, err := d.GetMember(asm.ID, "T:Acme.Widget")
		require.NoError(t, err)
		require.NotNil(t, m)
		content, err := pages.Read(m.ContentHash)
		require.NoError(t, err)
		assert.Contains(t, content, "## Methods")
		assert.Contains(t, content, "## Constructors")
	})

	t.Run("namespace_page", func(t *testing.T) {
		m, err := d.GetMember(asm.ID, "N:Acme")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "namespace", m.Kind)
	})

	t.Run("unresolved", func(t *testing.T) {
		rows, err := d.ListUnresolved(asm.ID, "")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "no_candidate_member", rows[0].Reason)
		assert.Equal(t, "malformed_doc_id", rows[2].Reason)
	})

	t.Run("manifest_cached", func(t *testing.T) {
		assert.True(t, members.HasCache(opts.ManifestDir, "Acme.Widgets"))
	})

	t.Run("restore_replaces", func(t *testing.T) {
		_, err := Store(d, pages, b, opts, nil)
		require.NoError(t, err)
		n, err := d.CountMembers(asm.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		rows, err := d.ListUnresolved(asm.ID, "")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

func TestStore_FailedPageWriteKeepsPreviousIndex(t *testing.T) {
	manifest, docs := writeInputs(t, "Acme.Widgets")
	b, err := Load(context.Background(), manifest, docs, 0)
	require.NoError(t, err)

	dir := t.TempDir()
	d, err := db.New(filepath.Join(dir, "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	opts := Options{StoreUnresolved: true}

	_, err = Store(d, cas.New(filepath.Join(dir, "cas")), b, opts, nil)
	require.NoError(t, err)
	before, err := d.GetAssembly("Acme.Widgets")
	require.NoError(t, err)
	require.NotNil(t, before)
	prev, err := d.GetMember(before.ID, "M:Acme.Widget.Resize(System.Int32)")
	require.NoError(t, err)
	require.NotNil(t, prev)

	// A regular file where the CAS directory should be fails every write.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0644))
	_, err = Store(d, cas.New(blocked), b, opts, nil)
	require.ErrorContains(t, err, "writing page")

	after, err := d.GetAssembly("Acme.Widgets")
	require.NoError(t, err)
	require.NotNil(t, after)
	require.NotNil(t, after.IndexedAt)
	assert.True(t, before.IndexedAt.Equal(*after.IndexedAt))
	assert.Equal(t, before.MemberCount, after.MemberCount)

	n, err := d.CountMembers(before.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	m, err := d.GetMember(before.ID, "M:Acme.Widget.Resize(System.Int32)")
	require.NoError(t, err)
	assert.Equal(t, prev, m)
	rows, err := d.ListUnresolved(before.ID, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
