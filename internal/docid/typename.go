package docid

import (
	"strconv"
	"strings"
)

// CanonicalType normalizes a parameter type written either in doc-id form
// (System.Int32[0:,0:], `0, ``1, System.Int32@, List{System.String}) or in
// the notation used by reflection loaders (System.Int32[,], !0, !!1,
// System.Int32&, List<System.String>, Outer+Inner) into one shared form:
//
//	!N     type-level generic parameter N
//	!!N    method-level generic parameter N
//	{a,b}  generic instantiation
//	[] [,] array of rank 1, 2, ...
//	@      by-ref
//	*      pointer
//
// Input that does not follow the grammar is returned trimmed, with '+'
// nested-type separators replaced by '.'.
func CanonicalType(token string) string {
	token = strings.TrimSpace(token)
	p := typeParser{s: token}
	out, ok := p.parseType()
	if !ok || p.pos != len(p.s) {
		return strings.ReplaceAll(token, "+", ".")
	}
	return out
}

// GenericParam reports whether a canonical type is a bare generic parameter
// placeholder and, if so, its position and whether it is method-level.
func GenericParam(canonical string) (index int, method bool, ok bool) {
	switch {
	case strings.HasPrefix(canonical, "!!"):
		method = true
		canonical = canonical[2:]
	case strings.HasPrefix(canonical, "!"):
		canonical = canonical[1:]
	default:
		return 0, false, false
	}
	n, err := strconv.Atoi(canonical)
	if err != nil {
		return 0, false, false
	}
	return n, method, true
}

type typeParser struct {
	s   string
	pos int
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) digits() (string, bool) {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	return p.s[start:p.pos], p.pos > start
}

func (p *typeParser) parseType() (string, bool) {
	p.skipSpace()
	base, ok := p.parseBase()
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(base)

	for {
		p.skipSpace()
		switch p.peek() {
		case '[':
			rank, ok := p.parseArray()
			if !ok {
				return "", false
			}
			b.WriteByte('[')
			b.WriteString(strings.Repeat(",", rank-1))
			b.WriteByte(']')
		case '@', '&':
			p.pos++
			b.WriteByte('@')
		case '*':
			p.pos++
			b.WriteByte('*')
		default:
			return b.String(), true
		}
	}
}

func (p *typeParser) parseBase() (string, bool) {
	switch {
	case strings.HasPrefix(p.s[p.pos:], "``"), strings.HasPrefix(p.s[p.pos:], "!!"):
		p.pos += 2
		n, ok := p.digits()
		return "!!" + n, ok
	case p.peek() == '`', p.peek() == '!':
		p.pos++
		n, ok := p.digits()
		return "!" + n, ok
	}

	var b strings.Builder
	for {
		name := p.parseName()
		if name == "" {
			return "", false
		}
		if c := p.peek(); c == '{' || c == '<' {
			args, ok := p.parseArgs()
			if !ok {
				return "", false
			}
			b.WriteString(instantiate(name, args))
		} else {
			b.WriteString(name)
		}

		// Nested type of a generic instantiation: Outer{A}.Inner
		if p.peek() != '.' && p.peek() != '+' {
			return b.String(), true
		}
		p.pos++
		b.WriteByte('.')
	}
}

func (p *typeParser) parseName() string {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("{}<>[],@&* ", rune(p.s[p.pos])) {
		p.pos++
	}
	return strings.ReplaceAll(p.s[start:p.pos], "+", ".")
}

// arity splits a trailing `N marker off a name segment.
func arity(seg string) (string, int) {
	idx := strings.LastIndexByte(seg, '`')
	if idx <= 0 {
		return seg, 0
	}
	n, err := strconv.Atoi(seg[idx+1:])
	if err != nil {
		return seg, 0
	}
	return seg[:idx], n
}

// instantiate attaches type arguments to a possibly nested name. Each
// segment carrying a `N marker takes the next N arguments, so the
// reflection form Outer`1.Inner<A> and the doc-id form Outer{A}.Inner
// agree. When the markers do not account for every argument, all of them
// go to the innermost segment.
func instantiate(name string, args []string) string {
	segs := strings.Split(name, ".")
	counts := make([]int, len(segs))
	total := 0
	for i, seg := range segs {
		_, counts[i] = arity(seg)
		total += counts[i]
	}

	if total != len(args) {
		last := len(segs) - 1
		segs[last], _ = arity(segs[last])
		return strings.Join(segs, ".") + "{" + strings.Join(args, ",") + "}"
	}

	var b strings.Builder
	next := 0
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte('.')
		}
		if counts[i] == 0 {
			b.WriteString(seg)
			continue
		}
		bare, _ := arity(seg)
		b.WriteString(bare)
		b.WriteString("{" + strings.Join(args[next:next+counts[i]], ",") + "}")
		next += counts[i]
	}
	return b.String()
}

func (p *typeParser) parseArgs() ([]string, bool) {
	closer := byte('}')
	if p.peek() == '<' {
		closer = '>'
	}
	p.pos++

	var args []string
	for {
		arg, ok := p.parseType()
		if !ok {
			return nil, false
		}
		args = append(args, arg)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return args, true
		default:
			return nil, false
		}
	}
}

// parseArray consumes [] or [lo:hi,lo:,...] and returns the rank.
func (p *typeParser) parseArray() (int, bool) {
	p.pos++
	rank := 1
	for p.pos < len(p.s) {
		switch c := p.s[p.pos]; {
		case c == ']':
			p.pos++
			return rank, true
		case c == ',':
			rank++
		case c == ':' || c == ' ' || c == '-' || (c >= '0' && c <= '9'):
		default:
			return 0, false
		}
		p.pos++
	}
	return 0, false
}
