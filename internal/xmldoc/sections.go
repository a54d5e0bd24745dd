package xmldoc

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sections is the markdown rendering of a member's documentation payload.
// Cross references appear as links whose destination is CrefLink(cref).
type Sections struct {
	Summary    string
	Remarks    string
	Returns    string
	Value      string
	Example    string
	Params     []Named
	TypeParams []Named
	Exceptions []Ref
	SeeAlso    []Ref
	// InheritDoc is set by <inheritdoc/>; InheritFrom holds its cref, if any.
	InheritDoc  bool
	InheritFrom string
	// Crefs lists every cref in the payload once, in document order.
	Crefs []string
}

// Named is a <param> or <typeparam> description.
type Named struct {
	Name string
	Text string
}

// Ref is an <exception> or <seealso> entry. Exactly one of Cref and Href is set
// for a well-formed entry.
type Ref struct {
	Cref string
	Href string
	Text string
}

// Empty reports whether the payload carried no documentation text at all.
func (s *Sections) Empty() bool {
	return s.Summary == "" && s.Remarks == "" && s.Returns == "" && s.Value == "" &&
		s.Example == "" && len(s.Params) == 0 && len(s.TypeParams) == 0 &&
		len(s.Exceptions) == 0 && len(s.SeeAlso) == 0 && !s.InheritDoc
}

// CrefScheme prefixes the link destinations of cross references.
const CrefScheme = "cref:"

// CrefLink is the markdown link destination used for a cross reference.
func CrefLink(cref string) string {
	return CrefScheme + url.QueryEscape(cref)
}

// ParseCrefLink reverses CrefLink.
func ParseCrefLink(dest string) (string, bool) {
	if !strings.HasPrefix(dest, CrefScheme) {
		return "", false
	}
	cref, err := url.QueryUnescape(dest[len(CrefScheme):])
	if err != nil {
		return "", false
	}
	return cref, true
}

// CrefLabel is the short display text for a cref without inner text:
// the last name segment, "T:Acme.Bag`1" -> "Bag", "M:Acme.Widget.#ctor" -> "Widget".
func CrefLabel(cref string) string {
	name := cref
	if len(name) > 2 && name[1] == ':' {
		name = name[2:]
	}
	if i := strings.IndexAny(name, "(~"); i >= 0 {
		name = name[:i]
	}
	segs := strings.Split(name, ".")
	last := segs[len(segs)-1]
	if (last == "#ctor" || last == "#cctor") && len(segs) > 1 {
		last = segs[len(segs)-2]
	}
	if i := strings.IndexByte(last, '`'); i > 0 {
		last = last[:i]
	}
	return last
}

// ParseSections renders a member payload into markdown sections.
func ParseSections(payload string) (*Sections, error) {
	dec := xml.NewDecoder(strings.NewReader("<member>" + payload + "</member>"))
	dec.Entity = xml.HTMLEntity
	r := &renderer{dec: dec, seen: make(map[string]bool)}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing member payload: %w", err)
	}

	s := &Sections{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing member payload: %w", err)
		}
		if _, ok := tok.(xml.EndElement); ok {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		name := start.Name.Local
		cref := attr(start, "cref")
		switch name {
		case "exception", "seealso", "inheritdoc":
			if cref != "" {
				r.addCref(cref)
			}
		}

		text, err := r.block()
		if err != nil {
			return nil, fmt.Errorf("parsing <%s>: %w", name, err)
		}

		switch name {
		case "summary":
			s.Summary = appendPara(s.Summary, text)
		case "remarks":
			s.Remarks = appendPara(s.Remarks, text)
		case "returns":
			s.Returns = appendPara(s.Returns, text)
		case "value":
			s.Value = appendPara(s.Value, text)
		case "example":
			s.Example = appendPara(s.Example, text)
		case "param":
			s.Params = append(s.Params, Named{Name: attr(start, "name"), Text: text})
		case "typeparam":
			s.TypeParams = append(s.TypeParams, Named{Name: attr(start, "name"), Text: text})
		case "exception":
			s.Exceptions = append(s.Exceptions, Ref{Cref: cref, Text: text})
		case "seealso":
			s.SeeAlso = append(s.SeeAlso, Ref{Cref: cref, Href: attr(start, "href"), Text: text})
		case "inheritdoc":
			s.InheritDoc = true
			s.InheritFrom = cref
		}
	}

	s.Crefs = r.crefs
	return s, nil
}

func appendPara(existing, text string) string {
	if existing == "" {
		return text
	}
	if text == "" {
		return existing
	}
	return existing + "\n\n" + text
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

type renderer struct {
	dec   *xml.Decoder
	crefs []string
	seen  map[string]bool
}

func (r *renderer) addCref(cref string) {
	if !r.seen[cref] {
		r.seen[cref] = true
		r.crefs = append(r.crefs, cref)
	}
}

// block renders the content of the element just opened and tidies it.
func (r *renderer) block() (string, error) {
	var b strings.Builder
	if err := r.inline(&b); err != nil {
		return "", err
	}
	return tidy(b.String()), nil
}

// inline renders tokens up to and including the end of the current element.
func (r *renderer) inline(b *strings.Builder) error {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.WriteString(collapse(string(t)))
		case xml.StartElement:
			if err := r.element(b, t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (r *renderer) element(b *strings.Builder, start xml.StartElement) error {
	switch start.Name.Local {
	case "see", "seealso":
		var inner strings.Builder
		if err := r.inline(&inner); err != nil {
			return err
		}
		label := strings.TrimSpace(inner.String())
		cref, href, lang := attr(start, "cref"), attr(start, "href"), attr(start, "langword")
		switch {
		case cref != "":
			r.addCref(cref)
			if label == "" {
				label = CrefLabel(cref)
			}
			fmt.Fprintf(b, "[%s](%s)", label, CrefLink(cref))
		case href != "":
			if label == "" {
				label = href
			}
			fmt.Fprintf(b, "[%s](%s)", label, href)
		case lang != "":
			fmt.Fprintf(b, "`%s`", lang)
		default:
			b.WriteString(label)
		}
	case "paramref", "typeparamref":
		if err := r.dec.Skip(); err != nil {
			return err
		}
		fmt.Fprintf(b, "`%s`", attr(start, "name"))
	case "c":
		var inner strings.Builder
		if err := r.inline(&inner); err != nil {
			return err
		}
		fmt.Fprintf(b, "`%s`", strings.TrimSpace(inner.String()))
	case "code":
		text, err := r.raw()
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "\n\n```%s\n%s\n```\n\n", attr(start, "language"), dedent(text))
	case "para":
		b.WriteString("\n\n")
		if err := r.inline(b); err != nil {
			return err
		}
		b.WriteString("\n\n")
	case "list":
		return r.list(b, attr(start, "type"))
	case "br":
		b.WriteString(" ")
		return r.dec.Skip()
	default:
		return r.inline(b)
	}
	return nil
}

// raw collects the character data of the current element verbatim.
func (r *renderer) raw() (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

func (r *renderer) list(b *strings.Builder, kind string) error {
	b.WriteString("\n\n")
	n := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			b.WriteString("\n\n")
			return nil
		case xml.StartElement:
			if t.Name.Local != "item" {
				// listheader and stray markup carry no item text
				if err := r.dec.Skip(); err != nil {
					return err
				}
				continue
			}
			line, err := r.item()
			if err != nil {
				return err
			}
			n++
			marker := "-"
			if kind == "number" {
				marker = strconv.Itoa(n) + "."
			}
			fmt.Fprintf(b, "\n%s %s", marker, line)
		}
	}
}

func (r *renderer) item() (string, error) {
	var term, desc strings.Builder
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			desc.WriteString(collapse(string(t)))
		case xml.StartElement:
			var err error
			switch t.Name.Local {
			case "term":
				err = r.inline(&term)
			case "description":
				err = r.inline(&desc)
			default:
				err = r.element(&desc, t)
			}
			if err != nil {
				return "", err
			}
		case xml.EndElement:
			line := strings.Join(strings.Fields(desc.String()), " ")
			if label := strings.TrimSpace(term.String()); label != "" {
				if line == "" {
					return "**" + label + "**", nil
				}
				return "**" + label + "**: " + line, nil
			}
			return line, nil
		}
	}
}

// collapse turns every whitespace run into a single space.
func collapse(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// tidy trims lines outside code fences and collapses blank-line runs.
func tidy(s string) string {
	var out []string
	fenced := false
	blank := true
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
			out = append(out, strings.TrimSpace(line))
			blank = false
			continue
		}
		if !fenced {
			line = strings.Join(strings.Fields(line), " ")
			if line == "" {
				if !blank {
					out = append(out, "")
				}
				blank = true
				continue
			}
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// dedent strips blank edge lines and the indentation common to every line.
func dedent(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
