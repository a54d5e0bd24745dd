package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/xmldoc"
)

var (
	qualifiedRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+`)
	genericRe   = regexp.MustCompile(`!!?[0-9]+`)
)

var keywords = map[string]string{
	"System.Boolean": "bool",
	"System.Byte":    "byte",
	"System.SByte":   "sbyte",
	"System.Char":    "char",
	"System.Decimal": "decimal",
	"System.Double":  "double",
	"System.Single":  "float",
	"System.Int16":   "short",
	"System.UInt16":  "ushort",
	"System.Int32":   "int",
	"System.UInt32":  "uint",
	"System.Int64":   "long",
	"System.UInt64":  "ulong",
	"System.IntPtr":  "nint",
	"System.UIntPtr": "nuint",
	"System.Object":  "object",
	"System.String":  "string",
	"System.Void":    "void",
}

// displayType spells a parameter type the way C# source would, with
// namespaces dropped and generic parameters named.
func displayType(name string, typeParams, methodParams []string) string {
	c := docid.CanonicalType(name)
	byRef := strings.HasSuffix(c, "@")
	c = strings.TrimSuffix(c, "@")

	c = qualifiedRe.ReplaceAllStringFunc(c, func(q string) string {
		if kw, ok := keywords[q]; ok {
			return kw
		}
		return q[strings.LastIndexByte(q, '.')+1:]
	})
	c = genericRe.ReplaceAllStringFunc(c, func(g string) string {
		i, method, _ := docid.GenericParam(g)
		names, prefix := typeParams, "T"
		if method {
			names, prefix = methodParams, "U"
		}
		if i < len(names) {
			return names[i]
		}
		return prefix + strconv.Itoa(i)
	})

	var b strings.Builder
	depth := 0
	for i := 0; i < len(c); i++ {
		switch c[i] {
		case '{':
			depth++
			b.WriteByte('<')
		case '}':
			depth--
			b.WriteByte('>')
		case ',':
			b.WriteByte(',')
			if depth > 0 {
				b.WriteByte(' ')
			}
		default:
			b.WriteByte(c[i])
		}
	}
	if byRef {
		return "ref " + b.String()
	}
	return b.String()
}

// signature describes a member for headings (types only) and syntax blocks
// (types and parameter names).
type signature struct {
	typ   *docs.Type
	entry *docs.Entry
}

func (s signature) methodParams() []string {
	var documented []xmldoc.Named
	if s.entry.Sections != nil {
		documented = s.entry.Sections.TypeParams
	}
	return docs.ParamNames(documented, s.entry.Member.GenericArity, "U")
}

func (s signature) params(withNames bool) string {
	var typeParams []string
	if s.typ != nil {
		typeParams = s.typ.TypeParamNames()
	}
	methodParams := s.methodParams()

	m := s.entry.Member
	var names []string
	if s.entry.Sections != nil && len(s.entry.Sections.Params) == len(m.ParameterTypeNames) {
		for _, p := range s.entry.Sections.Params {
			names = append(names, p.Name)
		}
	}

	parts := make([]string, len(m.ParameterTypeNames))
	for i, p := range m.ParameterTypeNames {
		parts[i] = displayType(p, typeParams, methodParams)
		if withNames && names != nil && names[i] != "" {
			parts[i] += " " + names[i]
		}
	}
	return strings.Join(parts, ", ")
}

func (s signature) format(withNames bool) string {
	m := s.entry.Member
	switch m.Kind {
	case docid.Namespace:
		return "namespace " + m.DeclaringTypeName
	case docid.Type:
		if s.typ != nil {
			return s.typ.Title()
		}
		return m.DeclaringTypeName
	case docid.Constructor:
		name := m.DeclaringTypeName
		if s.typ != nil {
			name = s.typ.Member.DeclaringTypeName
		}
		name = name[strings.LastIndexByte(name, '.')+1:]
		if i := strings.IndexByte(name, '`'); i > 0 {
			name = name[:i]
		}
		if m.Name == ".cctor" {
			return "static " + name + "()"
		}
		return name + "(" + s.params(withNames) + ")"
	case docid.Method:
		name := m.Name
		if m.GenericArity > 0 {
			name += "<" + strings.Join(s.methodParams(), ", ") + ">"
		}
		sig := name + "(" + s.params(withNames) + ")"
		if m.ReturnTypeName != "" && strings.HasPrefix(m.Name, "op_") {
			sig += " : " + displayType(m.ReturnTypeName, nil, nil)
		}
		return sig
	case docid.Property:
		if len(m.ParameterTypeNames) > 0 {
			return "this[" + s.params(withNames) + "]"
		}
		return m.Name
	}
	return m.Name
}

var headingEscaper = strings.NewReplacer(
	`\`, `\\`,
	"<", `\<`,
	">", `\>`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"`", "\\`",
)
