package render

import (
	"fmt"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/markdown"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/xmldoc"
)

// Renderer renders pages for one assembly. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	doc  *docs.Documentation
	idx  *members.Index
	opts Options
}

func New(doc *docs.Documentation, idx *members.Index, opts Options) *Renderer {
	return &Renderer{doc: doc, idx: idx, opts: opts}
}

// PageName is the file name of a type page: "Acme.Bag`1" -> "Acme.Bag-1.md".
func PageName(typeKey, ext string) string {
	name := strings.NewReplacer("`", "-", "+", ".", "<", "_", ">", "_", "/", "_", `\`, "_", ":", "_").Replace(typeKey)
	return name + "." + strings.TrimPrefix(ext, ".")
}

// IndexName is the file name of the assembly index page.
func IndexName(ext string) string {
	return "index." + strings.TrimPrefix(ext, ".")
}

type page struct {
	b     strings.Builder
	links map[string]string
}

func (p *page) para(text string) {
	if text == "" {
		return
	}
	p.b.WriteString(text)
	p.b.WriteString("\n\n")
}

func (p *page) heading(level int, text string) {
	fmt.Fprintf(&p.b, "%s %s\n\n", strings.Repeat("#", min(level, 6)), text)
}

func (p *page) addLinks(links map[string]string) {
	for k, v := range links {
		p.links[k] = v
	}
}

func newPage() *page {
	return &page{links: make(map[string]string)}
}

// finish resolves cross references, turns the rest into code spans and
// prepends front matter.
func (p *page) finish(frontMatter map[string]string) string {
	text := markdown.RewriteLinks(strings.TrimSpace(p.b.String())+"\n", p.links)
	text = markdown.UnlinkPrefix(text, xmldoc.CrefScheme)
	return markdown.AddFrontMatter(text, frontMatter)
}

// Member renders one member as a standalone page.
func (r *Renderer) Member(e *docs.Entry) string {
	p := newPage()
	r.writeMember(p, e, r.opts.level())
	fm := map[string]string{
		"assembly": r.doc.Assembly,
		"docid":    e.DocID,
		"kind":     e.Member.Kind.String(),
		"uri":      docs.URI(r.doc.Assembly, e.DocID),
	}
	return p.finish(fm)
}

// TypePage renders a type with all of its members.
func (r *Renderer) TypePage(t *docs.Type) string {
	p := newPage()
	r.writeMember(p, &t.Entry, 1)

	groups := []struct {
		title   string
		entries []*docs.Entry
	}{
		{"Constructors", t.Constructors},
		{"Properties", t.Properties},
		{"Methods", t.Methods},
		{"Events", t.Events},
		{"Fields", t.Fields},
	}
	for _, g := range groups {
		if len(g.entries) == 0 {
			continue
		}
		p.heading(2, g.title)
		for _, e := range g.entries {
			r.writeMember(p, e, 3)
		}
	}

	if len(t.Nested) > 0 {
		p.heading(2, "Nested Types")
		for _, n := range t.Nested {
			p.b.WriteString(r.listItem(p, n))
		}
		p.b.WriteString("\n")
	}

	fm := map[string]string{
		"assembly":  r.doc.Assembly,
		"docid":     t.DocID,
		"namespace": t.Namespace,
		"uri":       docs.URI(r.doc.Assembly, t.DocID),
	}
	if t.Namespace == "" {
		delete(fm, "namespace")
	}
	return p.finish(fm)
}

// IndexPage lists every namespace and its top-level types.
func (r *Renderer) IndexPage() string {
	p := newPage()
	p.heading(1, headingEscaper.Replace(r.doc.Assembly))
	for _, ns := range r.doc.Namespaces {
		name := ns.Name
		if name == "" {
			name = "(global)"
		}
		p.heading(2, headingEscaper.Replace(name))
		if ns.Entry != nil && ns.Entry.Sections != nil {
			p.addLinks(r.links(ns.Entry.Sections))
			p.para(ns.Entry.Sections.Summary)
		}
		for _, t := range ns.Types {
			p.b.WriteString(r.listItem(p, t))
		}
		p.b.WriteString("\n")
	}
	return p.finish(map[string]string{"assembly": r.doc.Assembly})
}

func (r *Renderer) listItem(p *page, t *docs.Type) string {
	item := fmt.Sprintf("- [%s](%s)", headingEscaper.Replace(t.Title()), r.typeLink(t))
	if t.Sections != nil {
		if first, _, _ := strings.Cut(t.Sections.Summary, "\n"); first != "" {
			p.addLinks(r.links(t.Sections))
			item += ": " + first
		}
	}
	return item + "\n"
}

func (r *Renderer) typeLink(t *docs.Type) string {
	if r.opts.PageExt != "" {
		return PageName(t.Key, r.opts.PageExt)
	}
	return docs.URI(r.doc.Assembly, t.DocID)
}

func (r *Renderer) writeMember(p *page, e *docs.Entry, level int) {
	sig := signature{typ: r.declaringType(e), entry: e}
	p.heading(level, headingEscaper.Replace(sig.format(false)))

	s := e.Sections
	if s == nil || s.Empty() {
		p.para("*No documentation.*")
	} else {
		p.addLinks(r.links(s))
		p.para(s.Summary)
	}
	r.writeSyntax(p, sig.format(true))
	if s == nil {
		return
	}

	sub := min(level+1, 6)
	if s.InheritDoc {
		if s.InheritFrom != "" {
			p.para(fmt.Sprintf("*Documentation inherited from [%s](%s).*", xmldoc.CrefLabel(s.InheritFrom), xmldoc.CrefLink(s.InheritFrom)))
		} else {
			p.para("*Documentation inherited from the base member.*")
		}
	}
	writeNamed(p, sub, "Type Parameters", s.TypeParams)
	writeNamed(p, sub, "Parameters", s.Params)
	writeText(p, sub, "Returns", s.Returns)
	writeText(p, sub, "Value", s.Value)
	writeRefs(p, sub, "Exceptions", s.Exceptions)
	writeText(p, sub, "Remarks", s.Remarks)
	writeText(p, sub, "Example", s.Example)
	writeRefs(p, sub, "See Also", s.SeeAlso)
}

func (r *Renderer) writeSyntax(p *page, sig string) {
	switch r.opts.Field {
	case Quoted:
		p.para("> `" + sig + "`")
	default:
		p.para("```csharp\n" + sig + "\n```")
	}
}

func writeText(p *page, level int, title, text string) {
	if text == "" {
		return
	}
	p.heading(level, title)
	p.para(text)
}

func writeNamed(p *page, level int, title string, named []xmldoc.Named) {
	if len(named) == 0 {
		return
	}
	p.heading(level, title)
	for _, n := range named {
		line := fmt.Sprintf("- `%s`", n.Name)
		if n.Text != "" {
			line += ": " + indentContinuation(n.Text)
		}
		p.b.WriteString(line + "\n")
	}
	p.b.WriteString("\n")
}

func writeRefs(p *page, level int, title string, refs []xmldoc.Ref) {
	if len(refs) == 0 {
		return
	}
	p.heading(level, title)
	for _, ref := range refs {
		var line string
		switch {
		case ref.Cref != "":
			line = fmt.Sprintf("- [%s](%s)", xmldoc.CrefLabel(ref.Cref), xmldoc.CrefLink(ref.Cref))
			if ref.Text != "" {
				line += ": " + indentContinuation(ref.Text)
			}
		case ref.Href != "":
			label := ref.Text
			if label == "" {
				label = ref.Href
			}
			line = fmt.Sprintf("- [%s](%s)", label, ref.Href)
		default:
			line = "- " + indentContinuation(ref.Text)
		}
		p.b.WriteString(line + "\n")
	}
	p.b.WriteString("\n")
}

// indentContinuation keeps multi-paragraph text inside its list item.
func indentContinuation(text string) string {
	return strings.ReplaceAll(text, "\n", "\n  ")
}

func (r *Renderer) declaringType(e *docs.Entry) *docs.Type {
	switch e.Member.Kind {
	case docid.Type:
		return r.doc.Type(e.Member.Key())
	case docid.Namespace:
		return nil
	}
	return r.doc.Type(e.Member.DeclaringTypeName)
}

// links resolves the crefs of s, pointing them at local pages when
// Options.PageExt is set.
func (r *Renderer) links(s *xmldoc.Sections) map[string]string {
	links := docs.ResolveCrefs(s, r.doc.Assembly, r.idx)
	if r.opts.PageExt == "" {
		return links
	}
	for dest, uri := range links {
		_, docID, err := docs.ParseURI(uri)
		if err != nil {
			continue
		}
		if strings.HasPrefix(docID, "N:") {
			links[dest] = IndexName(r.opts.PageExt)
			continue
		}
		e := r.doc.Lookup(docID)
		if e == nil {
			continue
		}
		key := e.Member.DeclaringTypeName
		if e.Member.Kind == docid.Type {
			key = e.Member.Key()
		}
		links[dest] = PageName(members.NormalizeTypeName(key), r.opts.PageExt)
	}
	return links
}
