package docs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jcdickinson/docnet/internal/docid"
	"github.com/jcdickinson/docnet/internal/members"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/jcdickinson/docnet/internal/xmldoc"
)

// Scheme is the URI scheme of stored documentation.
const Scheme = "docnet"

// URI builds the docnet:// URI of a member doc-id within an assembly.
func URI(assembly, docID string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, assembly, url.PathEscape(docID))
}

// ParseURI splits a docnet:// URI into assembly name and doc-id.
func ParseURI(uri string) (assembly, docID string, err error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("not a %s:// URI: %s", Scheme, uri)
	}
	assembly, escaped, ok := strings.Cut(rest, "/")
	if !ok || assembly == "" || escaped == "" {
		return "", "", fmt.Errorf("URI must be %s://<assembly>/<doc-id>: %s", Scheme, uri)
	}
	docID, err = url.PathUnescape(escaped)
	if err != nil {
		return "", "", fmt.Errorf("unescaping doc-id: %w", err)
	}
	return assembly, docID, nil
}

// ResolveCrefs resolves the cross references of a documentation payload
// against the assembly's own members, returning link destination -> URI.
// References into System.* and Microsoft.* namespaces that the assembly
// does not declare map to their learn.microsoft.com page. Anything else is
// left out.
func ResolveCrefs(sections *xmldoc.Sections, assembly string, idx *members.Index) map[string]string {
	if sections == nil || len(sections.Crefs) == 0 {
		return nil
	}

	resolved := make(map[string]string, len(sections.Crefs))
	for _, cref := range sections.Crefs {
		if m := resolve.Resolve(docid.Parse(cref), idx); m.OK() {
			resolved[xmldoc.CrefLink(cref)] = URI(assembly, m.Member.DocID())
			continue
		}
		if u := ExternalURL(cref); u != "" {
			resolved[xmldoc.CrefLink(cref)] = u
		}
	}

	if len(resolved) == 0 {
		return nil
	}
	return resolved
}

// ExternalURL maps a framework cref to its learn.microsoft.com API page,
// or returns "".
//
//	T:System.Collections.Generic.List`1  -> .../system.collections.generic.list-1
//	M:System.String.Format(System.String,System.Object) -> .../system.string.format
//	M:System.Text.StringBuilder.#ctor -> .../system.text.stringbuilder.-ctor
func ExternalURL(cref string) string {
	id := docid.Parse(cref)
	var path string
	switch id.Kind {
	case docid.Error:
		return ""
	case docid.Namespace:
		path = id.DeclaringTypeName
	case docid.Type:
		path = members.TypeKey(id.DeclaringTypeName, id.GenericArity)
	case docid.Constructor:
		path = id.DeclaringTypeName + ".-ctor"
	default:
		path = id.DeclaringTypeName + "." + id.MemberName
	}
	if !strings.HasPrefix(path, "System.") && path != "System" && !strings.HasPrefix(path, "Microsoft.") {
		return ""
	}

	path = strings.ToLower(strings.ReplaceAll(members.NormalizeTypeName(path), "`", "-"))
	return "https://learn.microsoft.com/dotnet/api/" + path
}
