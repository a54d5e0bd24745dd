// Package xmldoc reads the XML documentation files the .NET compilers emit
// next to an assembly.
package xmldoc

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/jcdickinson/docnet/internal/zio"
)

// File is a parsed documentation file.
type File struct {
	// Assembly is the <assembly><name> value. It may be empty.
	Assembly string
	Members  []Member
}

// Member is one <member> element. Payload is its inner XML, untouched.
type Member struct {
	Name    string
	Payload string
}

type docXML struct {
	XMLName  xml.Name `xml:"doc"`
	Assembly struct {
		Name string `xml:"name"`
	} `xml:"assembly"`
	Members []struct {
		Name  string `xml:"name,attr"`
		Inner string `xml:",innerxml"`
	} `xml:"members>member"`
}

// Read decodes a documentation file. Members are returned in document order.
func Read(r io.Reader) (*File, error) {
	var doc docXML
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding documentation xml: %w", err)
	}

	f := &File{
		Assembly: doc.Assembly.Name,
		Members:  make([]Member, len(doc.Members)),
	}
	for i, m := range doc.Members {
		f.Members[i] = Member{Name: m.Name, Payload: m.Inner}
	}
	return f, nil
}

// ReadFile reads a documentation file from disk; ".zst" files are
// decompressed transparently.
func ReadFile(path string) (*File, error) {
	rc, err := zio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, nil
}
