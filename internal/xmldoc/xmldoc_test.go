package xmldoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jcdickinson/docnet/internal/zio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetXML = `<?xml version="1.0"?>
<doc>
    <assembly>
        <name>Acme.Widgets</name>
    </assembly>
    <members>
        <member name="T:Acme.Widget">
            <summary>A widget.</summary>
        </member>
        <member name="M:Acme.Widget.Resize(System.Int32)">
            <summary>Resizes the widget to <paramref name="size"/> &amp; redraws.</summary>
            <param name="size">The new size.</param>
        </member>
        <member name="P:Acme.Widget.Width"/>
    </members>
</doc>
`

func TestRead(t *testing.T) {
	t.Parallel()
	f, err := Read(strings.NewReader(widgetXML))
	require.NoError(t, err)

	assert.Equal(t, "Acme.Widgets", f.Assembly)
	require.Len(t, f.Members, 3)
	assert.Equal(t, "T:Acme.Widget", f.Members[0].Name)
	assert.Equal(t, "M:Acme.Widget.Resize(System.Int32)", f.Members[1].Name)
	assert.Contains(t, f.Members[1].Payload, `<paramref name="size"/>`)
	assert.Contains(t, f.Members[1].Payload, "&amp;", "payload must stay untouched")
	assert.Equal(t, "P:Acme.Widget.Width", f.Members[2].Name)
	assert.Empty(t, f.Members[2].Payload)
}

func TestRead_NoAssemblyName(t *testing.T) {
	t.Parallel()
	f, err := Read(strings.NewReader(`<doc><members><member name="T:A"/></members></doc>`))
	require.NoError(t, err)
	assert.Empty(t, f.Assembly)
	assert.Len(t, f.Members, 1)
}

func TestRead_Malformed(t *testing.T) {
	t.Parallel()
	_, err := Read(strings.NewReader(`<doc><members><member name="T:A">`))
	assert.Error(t, err)
}

func TestReadFile_Compressed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "Acme.Widgets.xml.zst")
	w, err := zio.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte(widgetXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme.Widgets", f.Assembly)
	assert.Len(t, f.Members, 3)
}

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
