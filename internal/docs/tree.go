// Package docs assembles resolved documentation into a per-type tree and
// links cross references between members.
package docs

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/jcdickinson/docnet/internal/xmldoc"
)

// Entry is one member of the tree. Sections is nil when no documentation
// entry resolved to the member.
type Entry struct {
	Member   members.Member
	DocID    string
	Sections *xmldoc.Sections
}

// Type groups a type's own entry with its members, each list in declaration
// order.
type Type struct {
	Entry
	// Key is the name members of this type are declared under, e.g. "Acme.Bag`1".
	Key       string
	Namespace string
	Parent    *Type

	Constructors []*Entry
	Methods      []*Entry
	Properties   []*Entry
	Fields       []*Entry
	Events       []*Entry
	Nested       []*Type
}

// Name is the type name without its namespace; nested types keep their
// parent's name, "Bag`1.Enumerator".
func (t *Type) Name() string {
	if t.Namespace == "" {
		return t.Key
	}
	return strings.TrimPrefix(t.Key, t.Namespace+".")
}

// Title is a readable type name with generic parameters spelled out,
// "Bag<T>".
func (t *Type) Title() string {
	name := t.Member.DeclaringTypeName
	if t.Namespace != "" {
		name = strings.TrimPrefix(name, t.Namespace+".")
	}
	if t.Member.GenericArity == 0 {
		return name
	}
	return name + "<" + strings.Join(t.TypeParamNames(), ", ") + ">"
}

// TypeParamNames names the type's generic parameters. Names come from
// <typeparam> documentation when it covers every parameter.
func (t *Type) TypeParamNames() []string {
	var documented []xmldoc.Named
	if t.Sections != nil {
		documented = t.Sections.TypeParams
	}
	return ParamNames(documented, t.Member.GenericArity, "T")
}

// ParamNames returns documented names when there is one per parameter, or
// placeholders built from prefix: "T" for a single parameter, "T1", "T2"...
func ParamNames(documented []xmldoc.Named, arity int, prefix string) []string {
	names := make([]string, arity)
	for i := range names {
		switch {
		case len(documented) == arity:
			names[i] = documented[i].Name
		case arity == 1:
			names[i] = prefix
		default:
			names[i] = prefix + strconv.Itoa(i+1)
		}
	}
	return names
}

// Namespace lists the top-level types declared in a namespace.
type Namespace struct {
	Name string
	// Entry is set when the documentation carried an N: entry for it.
	Entry *Entry
	Types []*Type
}

// Documentation is the full tree for one assembly.
type Documentation struct {
	Assembly   string
	Namespaces []*Namespace
	// Types holds every type, nested ones included, in declaration order.
	Types []*Type

	byKey   map[string]*Type
	byDocID map[string]*Entry
}

// Type returns the type declared under key, or nil.
func (d *Documentation) Type(key string) *Type {
	return d.byKey[members.NormalizeTypeName(key)]
}

// Lookup returns the entry for a member doc-id, or nil.
func (d *Documentation) Lookup(docID string) *Entry {
	return d.byDocID[docID]
}

// Build arranges every indexed member into the tree and attaches the
// documentation of the results that resolved. When several results
// resolve to the same member the first one wins.
func Build(assembly string, idx *members.Index, results []resolve.Result[*xmldoc.Sections]) *Documentation {
	documented := make(map[string]*xmldoc.Sections)
	var namespaceDocs []resolve.Result[*xmldoc.Sections]
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if r.Member.Kind == docid.Namespace {
			namespaceDocs = append(namespaceDocs, r)
			continue
		}
		key := r.Member.DocID()
		if _, ok := documented[key]; !ok {
			documented[key] = r.Payload
		}
	}

	d := &Documentation{
		Assembly: assembly,
		byKey:    make(map[string]*Type),
		byDocID:  make(map[string]*Entry),
	}
	entry := func(m members.Member) Entry {
		id := m.DocID()
		return Entry{Member: m, DocID: id, Sections: documented[id]}
	}

	for _, m := range idx.All() {
		if m.Kind != docid.Type {
			continue
		}
		key := members.NormalizeTypeName(m.Key())
		if _, dup := d.byKey[key]; dup {
			continue
		}
		t := &Type{Entry: entry(m), Key: key}
		d.byKey[key] = t
		d.byDocID[t.DocID] = &t.Entry
		d.Types = append(d.Types, t)
	}

	for _, m := range idx.All() {
		switch m.Kind {
		case docid.Type, docid.Namespace:
			continue
		}
		t := d.ensureType(members.NormalizeTypeName(m.DeclaringTypeName), entry)
		e := entry(m)
		ep := &e
		if _, dup := d.byDocID[e.DocID]; !dup {
			d.byDocID[e.DocID] = ep
		}
		switch m.Kind {
		case docid.Constructor:
			t.Constructors = append(t.Constructors, ep)
		case docid.Method:
			t.Methods = append(t.Methods, ep)
		case docid.Property:
			t.Properties = append(t.Properties, ep)
		case docid.Field:
			t.Fields = append(t.Fields, ep)
		case docid.Event:
			t.Events = append(t.Events, ep)
		}
	}

	d.link(namespaceDocs)
	return d
}

// ensureType returns the type declared under key, synthesizing one when the
// member list only carries its members.
func (d *Documentation) ensureType(key string, entry func(members.Member) Entry) *Type {
	if t, ok := d.byKey[key]; ok {
		return t
	}
	name, arity := splitArity(key)
	t := &Type{
		Entry: entry(members.Member{Kind: docid.Type, DeclaringTypeName: name, GenericArity: arity}),
		Key:   key,
	}
	d.byKey[key] = t
	d.byDocID[t.DocID] = &t.Entry
	d.Types = append(d.Types, t)
	return t
}

// link wires nested types to their parents and top-level types to
// namespaces.
func (d *Documentation) link(namespaceDocs []resolve.Result[*xmldoc.Sections]) {
	namespaces := make(map[string]*Namespace)
	get := func(name string) *Namespace {
		ns, ok := namespaces[name]
		if !ok {
			ns = &Namespace{Name: name}
			namespaces[name] = ns
		}
		return ns
	}

	for _, t := range d.Types {
		parent := parentName(t.Key)
		if p, ok := d.byKey[parent]; ok {
			t.Parent = p
			p.Nested = append(p.Nested, t)
			continue
		}
		t.Namespace = parent
		ns := get(parent)
		ns.Types = append(ns.Types, t)
	}

	// Nested types inherit the namespace of their outermost type.
	for _, t := range d.Types {
		root := t
		for root.Parent != nil {
			root = root.Parent
		}
		t.Namespace = root.Namespace
	}

	for _, r := range namespaceDocs {
		ns := get(r.Member.DeclaringTypeName)
		if ns.Entry == nil {
			ns.Entry = &Entry{Member: r.Member, DocID: r.ID.String(), Sections: r.Payload}
		}
	}

	for _, ns := range namespaces {
		d.Namespaces = append(d.Namespaces, ns)
	}
	sort.Slice(d.Namespaces, func(i, j int) bool {
		return d.Namespaces[i].Name < d.Namespaces[j].Name
	})
}

func parentName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

func splitArity(key string) (string, int) {
	i := strings.LastIndexByte(key, '`')
	if i < 0 || i < strings.LastIndexByte(key, '.') {
		return key, 0
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return key, 0
	}
	return key[:i], n
}
