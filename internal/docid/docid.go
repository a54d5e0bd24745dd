// Package docid parses the member names found in .NET XML documentation
// files ("T:Acme.Widget", "M:Acme.Widget.Resize(System.Int32)", ...).
package docid

import (
	"strconv"
	"strings"
)

// DocID is the structured form of a documentation member name.
// A DocID with Kind == Error carries the reason in Err; every other field
// except Raw is then meaningless.
type DocID struct {
	Raw               string
	Kind              Kind
	DeclaringTypeName string
	MemberName        string
	GenericArity      int
	ParameterTokens   []string
	// ReturnToken is the "~Type" suffix conversion operators carry after
	// their parameter list.
	ReturnToken string
	Err         string
}

func errorID(raw, reason string) DocID {
	return DocID{Raw: raw, Kind: Error, Err: reason}
}

// Parse turns a raw doc-id into a DocID. It never fails; malformed input
// yields a DocID of Kind Error.
func Parse(raw string) DocID {
	if len(raw) < 2 || raw[1] != ':' {
		return errorID(raw, "missing or unknown prefix")
	}
	kind, ok := kindForPrefix(raw[0])
	if !ok {
		return errorID(raw, "missing or unknown prefix")
	}

	path := raw[2:]
	if path == "" {
		return errorID(raw, "empty name")
	}

	namePath := path
	var params []string
	var ret string
	if open := strings.IndexByte(path, '('); open >= 0 {
		closeIdx := matchingParen(path, open)
		if closeIdx < 0 {
			return errorID(raw, "unterminated parameter list")
		}
		if !kind.Callable() {
			return errorID(raw, "parameter list on a "+kind.String()+" doc-id")
		}
		namePath = path[:open]

		tokens, err := splitParams(path[open+1 : closeIdx])
		if err != "" {
			return errorID(raw, err)
		}
		params = tokens

		rest := path[closeIdx+1:]
		switch {
		case rest == "":
		case rest[0] == '~' && len(rest) > 1:
			ret = rest[1:]
		default:
			return errorID(raw, "unexpected text after parameter list")
		}
	} else if tilde := strings.IndexByte(path, '~'); tilde >= 0 && kind == Method {
		namePath = path[:tilde]
		ret = path[tilde+1:]
		if ret == "" {
			return errorID(raw, "empty return type")
		}
	}

	if namePath == "" {
		return errorID(raw, "empty name")
	}

	id := DocID{Raw: raw, Kind: kind, ParameterTokens: params, ReturnToken: ret}

	if kind == Namespace {
		if hasEmptySegment(namePath) {
			return errorID(raw, "empty name segment")
		}
		id.DeclaringTypeName = namePath
		return id
	}

	declaring, last := splitLast(namePath)
	if last == "" || hasEmptySegment(namePath) {
		return errorID(raw, "empty name segment")
	}

	if last == "#ctor" || last == "#cctor" {
		if kind != Method {
			return errorID(raw, "constructor segment on a "+kind.String()+" doc-id")
		}
		if declaring == "" {
			return errorID(raw, "constructor without declaring type")
		}
		id.Kind = Constructor
		id.MemberName = "." + last[1:]
		id.DeclaringTypeName = declaring
		return id
	}

	name, arity, ok := stripArity(last)
	if !ok {
		return errorID(raw, "malformed generic arity")
	}
	id.GenericArity = arity

	if kind == Type {
		if declaring == "" {
			id.DeclaringTypeName = name
		} else {
			id.DeclaringTypeName = declaring + "." + name
		}
		return id
	}

	if declaring == "" {
		return errorID(raw, "member without declaring type")
	}
	id.DeclaringTypeName = declaring
	id.MemberName = name
	return id
}

// String renders the DocID back into doc-id syntax.
func (d DocID) String() string {
	if d.Kind == Error {
		return d.Raw
	}

	var b strings.Builder
	b.WriteByte(d.Kind.Prefix())
	b.WriteByte(':')

	switch d.Kind {
	case Namespace:
		b.WriteString(d.DeclaringTypeName)
		return b.String()
	case Type:
		b.WriteString(d.DeclaringTypeName)
		if d.GenericArity > 0 {
			b.WriteString("`" + strconv.Itoa(d.GenericArity))
		}
		return b.String()
	case Constructor:
		b.WriteString(d.DeclaringTypeName)
		b.WriteString(".#" + strings.TrimPrefix(d.MemberName, "."))
	default:
		b.WriteString(d.DeclaringTypeName)
		b.WriteByte('.')
		b.WriteString(d.MemberName)
		if d.GenericArity > 0 {
			b.WriteString("``" + strconv.Itoa(d.GenericArity))
		}
	}

	if len(d.ParameterTokens) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(d.ParameterTokens, ","))
		b.WriteByte(')')
	}
	if d.ReturnToken != "" {
		b.WriteByte('~')
		b.WriteString(d.ReturnToken)
	}
	return b.String()
}

// matchingParen returns the index of the ')' closing the '(' at open, or -1.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitParams splits a parameter list on commas that are not nested inside
// (), {}, [] or <>. The second result is a non-empty reason on failure.
func splitParams(list string) ([]string, string) {
	if strings.TrimSpace(list) == "" {
		return nil, ""
	}

	var tokens []string
	depth := 0
	start := 0
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(', '{', '[', '<':
			depth++
		case ')', '}', ']', '>':
			depth--
			if depth < 0 {
				return nil, "unbalanced parameter list"
			}
		case ',':
			if depth == 0 {
				tokens = append(tokens, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, "unbalanced parameter list"
	}
	tokens = append(tokens, strings.TrimSpace(list[start:]))

	for _, t := range tokens {
		if t == "" {
			return nil, "empty parameter type"
		}
	}
	return tokens, ""
}

// splitLast splits a dotted path at its last '.'.
func splitLast(path string) (string, string) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func hasEmptySegment(path string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return true
		}
	}
	return false
}

// stripArity removes a trailing `N or ``N marker from a name segment.
func stripArity(seg string) (string, int, bool) {
	idx := strings.IndexByte(seg, '`')
	if idx < 0 {
		return seg, 0, true
	}
	name := seg[:idx]
	digits := strings.TrimLeft(seg[idx:], "`")
	if name == "" || digits == "" || len(seg[idx:])-len(digits) > 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return "", 0, false
	}
	return name, n, true
}
