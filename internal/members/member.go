// Package members holds the reflection-side view of an assembly and the
// lookup index the resolver consults.
package members

import (
	"strconv"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
)

// Member is one declared member of an assembly as reported by the
// reflection loader.
//
// Types are recorded with DeclaringTypeName set to their own full name
// without the arity marker (e.g. "Acme.Bag" with GenericArity 1) and an
// empty Name. Members of a type use the type's key (see TypeKey) as
// DeclaringTypeName, e.g. "Acme.Bag`1". Nested types are dot separated.
//
// ParameterTypeNames hold fully qualified names; generic parameters are
// positional: !N for the declaring type's, !!N for the method's own.
// A nested type of an instantiated generic may be written either way,
// "Acme.Outer`1+Inner<System.Int32>" or "Acme.Outer<System.Int32>+Inner".
type Member struct {
	Kind               docid.Kind `json:"kind"`
	DeclaringTypeName  string     `json:"declaringType"`
	Name               string     `json:"name,omitempty"`
	GenericArity       int        `json:"genericArity,omitempty"`
	ParameterTypeNames []string   `json:"parameterTypes,omitempty"`
	// ReturnTypeName is only consulted for conversion operators.
	ReturnTypeName string `json:"returnType,omitempty"`
}

// TypeKey returns the name members of a type use as their declaring type.
func TypeKey(fullName string, arity int) string {
	if arity == 0 {
		return fullName
	}
	return fullName + "`" + strconv.Itoa(arity)
}

// FullName is the dotted full name of a type member, or the declaring
// type plus member name for anything else.
func (m Member) FullName() string {
	if m.Kind == docid.Type || m.Kind == docid.Namespace || m.Name == "" {
		return m.DeclaringTypeName
	}
	return m.DeclaringTypeName + "." + m.Name
}

// Key is the declaring-type key of a type member, i.e. the name its own
// members are grouped under.
func (m Member) Key() string {
	if m.Kind == docid.Type {
		return TypeKey(m.DeclaringTypeName, m.GenericArity)
	}
	return m.DeclaringTypeName
}

// DocID builds the doc-id a compiler would emit for the member.
func (m Member) DocID() string {
	id := docid.DocID{
		Kind:              m.Kind,
		DeclaringTypeName: m.DeclaringTypeName,
		MemberName:        m.Name,
		GenericArity:      m.GenericArity,
	}
	if m.Kind.Callable() {
		id.ParameterTokens = make([]string, len(m.ParameterTypeNames))
		for i, p := range m.ParameterTypeNames {
			id.ParameterTokens[i] = docIDTypeName(p)
		}
	}
	if m.ReturnTypeName != "" && strings.HasPrefix(m.Name, "op_") {
		id.ReturnToken = docIDTypeName(m.ReturnTypeName)
	}
	return id.String()
}

// docIDTypeName converts a canonical type name to doc-id notation.
func docIDTypeName(name string) string {
	c := docid.CanonicalType(name)

	var b strings.Builder
	for i := 0; i < len(c); i++ {
		switch {
		case strings.HasPrefix(c[i:], "!!"):
			b.WriteString("``")
			i++
		case c[i] == '!':
			b.WriteByte('`')
		case c[i] == '[' && i+1 < len(c) && c[i+1] == ',':
			// multi-dimensional arrays are written with bounds in doc-ids
			end := strings.IndexByte(c[i:], ']')
			rank := end
			b.WriteByte('[')
			b.WriteString(strings.Repeat("0:,", rank-1))
			b.WriteString("0:]")
			i += end
		default:
			b.WriteByte(c[i])
		}
	}
	return b.String()
}
