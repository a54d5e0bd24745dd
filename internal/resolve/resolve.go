// Package resolve matches parsed doc-ids against the members of an
// assembly, disambiguating overloads by generic arity and parameter types.
package resolve

import (
	"fmt"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/members"
)

// Match is the outcome of resolving one doc-id.
type Match struct {
	// Member is the documented member when Reason is Resolved. For
	// AmbiguousOverload it holds the first-declared of the tied candidates.
	Member members.Member
	Reason Reason
	// Candidates counts the members still in play when resolution stopped.
	Candidates int
	Detail     string
}

// OK reports whether the doc-id resolved to exactly one member.
func (m Match) OK() bool {
	return m.Reason == Resolved
}

func resolved(m members.Member) Match {
	return Match{Member: m, Reason: Resolved, Candidates: 1}
}

func unresolved(reason Reason, candidates int, format string, args ...any) Match {
	return Match{Reason: reason, Candidates: candidates, Detail: fmt.Sprintf(format, args...)}
}

func ambiguous(tied []members.Member, what string) Match {
	return Match{
		Member:     tied[0],
		Reason:     AmbiguousOverload,
		Candidates: len(tied),
		Detail:     fmt.Sprintf("%d candidates %s", len(tied), what),
	}
}

// Resolve finds the member a doc-id documents. It is a pure function of its
// inputs; unmatched or malformed doc-ids are reported through Match.Reason.
func Resolve(id docid.DocID, idx *members.Index) Match {
	switch id.Kind {
	case docid.Error:
		return unresolved(MalformedDocID, 0, "%s", id.Err)
	case docid.Namespace:
		if !idx.Namespace(id.DeclaringTypeName) {
			return unresolved(NoCandidateType, 0, "no types in namespace %s", id.DeclaringTypeName)
		}
		return resolved(members.Member{Kind: docid.Namespace, DeclaringTypeName: id.DeclaringTypeName})
	case docid.Type:
		return resolveType(id, idx)
	}

	set := idx.Lookup(id.DeclaringTypeName, id.MemberName)
	if len(set) == 0 {
		if !idx.Declares(id.DeclaringTypeName) {
			return unresolved(NoCandidateType, 0, "type %s not found", id.DeclaringTypeName)
		}
		return unresolved(NoCandidateMember, 0, "%s has no member named %s", id.DeclaringTypeName, id.MemberName)
	}

	candidates := filter(set, func(m members.Member) bool { return m.Kind == id.Kind })
	if len(candidates) == 0 {
		return unresolved(NoCandidateMember, len(set), "%s.%s is not a %s", id.DeclaringTypeName, id.MemberName, id.Kind)
	}

	candidates = filter(candidates, func(m members.Member) bool { return m.GenericArity == id.GenericArity })
	if len(candidates) == 0 {
		return unresolved(NoCandidateMember, 0, "no overload of %s with %d generic parameters", id.MemberName, id.GenericArity)
	}

	switch id.Kind {
	case docid.Field, docid.Event:
		if len(candidates) == 1 {
			return resolved(candidates[0])
		}
		return ambiguous(candidates, "named "+id.MemberName)
	case docid.Property:
		if len(candidates) == 1 {
			return resolved(candidates[0])
		}
		if len(id.ParameterTokens) == 0 {
			return ambiguous(candidates, "named "+id.MemberName+" and no index parameters to tell them apart")
		}
	}

	return matchParameters(id, candidates)
}

func resolveType(id docid.DocID, idx *members.Index) Match {
	types := idx.Types(id.DeclaringTypeName)
	if len(types) == 0 {
		return unresolved(NoCandidateType, 0, "type %s not found", id.DeclaringTypeName)
	}
	types = filter(types, func(m members.Member) bool { return m.GenericArity == id.GenericArity })
	switch len(types) {
	case 0:
		return unresolved(NoCandidateType, 0, "no type %s with %d generic parameters", id.DeclaringTypeName, id.GenericArity)
	case 1:
		return resolved(types[0])
	}
	return ambiguous(types, "for type "+id.DeclaringTypeName)
}

// matchParameters narrows candidates by parameter count, then requires every
// parameter position to agree after canonicalization.
func matchParameters(id docid.DocID, candidates []members.Member) Match {
	sameCount := filter(candidates, func(m members.Member) bool {
		return len(m.ParameterTypeNames) == len(id.ParameterTokens)
	})
	if len(sameCount) == 0 {
		return unresolved(ParameterCountMismatch, len(candidates),
			"no overload of %s takes %d parameters", id.MemberName, len(id.ParameterTokens))
	}

	want := make([]string, len(id.ParameterTokens))
	for i, tok := range id.ParameterTokens {
		want[i] = docid.CanonicalType(tok)
	}
	var wantReturn string
	if id.ReturnToken != "" {
		wantReturn = docid.CanonicalType(id.ReturnToken)
	}

	accepted := filter(sameCount, func(m members.Member) bool {
		for i, p := range m.ParameterTypeNames {
			if docid.CanonicalType(p) != want[i] {
				return false
			}
		}
		if wantReturn != "" && m.ReturnTypeName != "" {
			return docid.CanonicalType(m.ReturnTypeName) == wantReturn
		}
		return true
	})

	switch len(accepted) {
	case 0:
		return unresolved(NoCandidateMember, len(sameCount),
			"no overload of %s matches (%s)", id.MemberName, strings.Join(id.ParameterTokens, ","))
	case 1:
		return resolved(accepted[0])
	}
	return ambiguous(accepted, "share the signature "+id.String())
}

func filter(in []members.Member, keep func(members.Member) bool) []members.Member {
	var out []members.Member
	for _, m := range in {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
