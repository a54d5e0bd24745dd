package members

import (
	"strconv"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
)

// Index groups members by declaring type and simple name. It is immutable
// once built and safe for concurrent use.
type Index struct {
	all        []Member
	buckets    map[string]map[string][]Member
	types      map[string][]Member
	typeKeys   map[string]bool
	namespaces map[string]bool
}

// Build indexes members. Overload sets keep the input order.
func Build(members []Member) *Index {
	idx := &Index{
		all:        make([]Member, len(members)),
		buckets:    make(map[string]map[string][]Member),
		types:      make(map[string][]Member),
		typeKeys:   make(map[string]bool),
		namespaces: make(map[string]bool),
	}
	copy(idx.all, members)

	typeNames := make(map[string]bool)
	for _, m := range members {
		key := NormalizeTypeName(m.DeclaringTypeName)
		// Everything left of a '+' is an enclosing type.
		for i := strings.IndexByte(m.DeclaringTypeName, '+'); i >= 0; {
			outer := NormalizeTypeName(m.DeclaringTypeName[:i])
			typeNames[outer] = true
			typeNames[withoutArity(outer)] = true
			next := strings.IndexByte(m.DeclaringTypeName[i+1:], '+')
			if next < 0 {
				break
			}
			i += next + 1
		}
		switch m.Kind {
		case docid.Type:
			idx.types[key] = append(idx.types[key], m)
			typeNames[key] = true
			typeNames[TypeKey(key, m.GenericArity)] = true
			idx.typeKeys[TypeKey(key, m.GenericArity)] = true
		case docid.Namespace:
			idx.namespaces[key] = true
		default:
			byName, ok := idx.buckets[key]
			if !ok {
				byName = make(map[string][]Member)
				idx.buckets[key] = byName
			}
			byName[m.Name] = append(byName[m.Name], m)
		}
	}

	// A type with members but no type entry of its own is still a type.
	for key := range idx.buckets {
		typeNames[key] = true
		typeNames[withoutArity(key)] = true
	}

	for name := range idx.types {
		for prefix := parentName(name); prefix != ""; prefix = parentName(prefix) {
			if typeNames[prefix] || strings.Contains(prefix, "`") {
				continue
			}
			idx.namespaces[prefix] = true
		}
	}

	return idx
}

// Lookup returns the overload set for a member name on a declaring type,
// in declaration order. The result is empty when nothing matches.
func (idx *Index) Lookup(declaringTypeName, memberName string) []Member {
	return idx.buckets[NormalizeTypeName(declaringTypeName)][memberName]
}

// Types returns the type members with the given full name (any arity).
func (idx *Index) Types(fullName string) []Member {
	return idx.types[NormalizeTypeName(fullName)]
}

// Declares reports whether the index knows a type with the given key,
// either from a type member or from members declared on it.
func (idx *Index) Declares(typeKey string) bool {
	key := NormalizeTypeName(typeKey)
	if idx.typeKeys[key] {
		return true
	}
	_, ok := idx.buckets[key]
	return ok
}

// Namespace reports whether any type is declared in the namespace.
func (idx *Index) Namespace(name string) bool {
	return idx.namespaces[name]
}

// Namespaces returns every known namespace name in no particular order.
func (idx *Index) Namespaces() []string {
	names := make([]string, 0, len(idx.namespaces))
	for name := range idx.namespaces {
		names = append(names, name)
	}
	return names
}

// All returns every indexed member in input order.
func (idx *Index) All() []Member {
	return idx.all
}

func (idx *Index) Len() int {
	return len(idx.all)
}

// NormalizeTypeName replaces '+' nested-type separators with '.'.
func NormalizeTypeName(name string) string {
	return strings.ReplaceAll(name, "+", ".")
}

// withoutArity drops a trailing `N marker: "Acme.Bag`1" -> "Acme.Bag".
func withoutArity(key string) string {
	idx := strings.LastIndexByte(key, '`')
	if idx <= strings.LastIndexByte(key, '.') {
		return key
	}
	if _, err := strconv.Atoi(key[idx+1:]); err != nil {
		return key
	}
	return key[:idx]
}

func parentName(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}
