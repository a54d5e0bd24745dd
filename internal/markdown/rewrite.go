package markdown

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
)

func parse(src string) ast.Node {
	return gm.Parse([]byte(src), gmparser.NewWithExtensions(
		gmparser.CommonExtensions|gmparser.Autolink,
	))
}

// linkDestinations returns the distinct link destinations accepted by keep,
// in document order.
func linkDestinations(src string, keep func(string) bool) []string {
	seen := make(map[string]bool)
	var dests []string
	ast.WalkFunc(parse(src), func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if link, ok := node.(*ast.Link); ok {
			dest := string(link.Destination)
			if keep(dest) && !seen[dest] {
				seen[dest] = true
				dests = append(dests, dest)
			}
		}
		return ast.GoToNext
	})
	return dests
}

// RewriteLinks rewrites markdown link destinations using the provided link map.
// It parses the markdown to AST to find all link destinations, then performs
// targeted string replacements to preserve original formatting.
func RewriteLinks(src string, linkMap map[string]string) string {
	if len(linkMap) == 0 {
		return src
	}

	dests := linkDestinations(src, func(dest string) bool {
		_, ok := linkMap[dest]
		return ok
	})
	if len(dests) == 0 {
		return src
	}

	result := src
	for _, dest := range dests {
		result = strings.ReplaceAll(result, "]("+dest+")", "]("+linkMap[dest]+")")
	}

	// Reference-style definitions: [ref]: destination
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, dest := range dests {
			if strings.HasSuffix(trimmed, "]: "+dest) {
				lines[i] = strings.Replace(line, "]: "+dest, "]: "+linkMap[dest], 1)
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// UnlinkPrefix replaces inline links whose destination starts with prefix by
// a code span of their label, so references that could not be resolved
// still read naturally.
func UnlinkPrefix(src, prefix string) string {
	dests := linkDestinations(src, func(dest string) bool {
		return strings.HasPrefix(dest, prefix)
	})

	result := src
	for _, dest := range dests {
		suffix := "](" + dest + ")"
		for {
			end := strings.Index(result, suffix)
			if end < 0 {
				break
			}
			start := labelStart(result, end)
			if start < 0 {
				break
			}
			label := strings.ReplaceAll(result[start+1:end], "`", "")
			result = result[:start] + "`" + label + "`" + result[end+len(suffix):]
		}
	}
	return result
}

// labelStart finds the '[' opening the link label that ends at end.
func labelStart(s string, end int) int {
	depth := 0
	for i := end - 1; i >= 0; i-- {
		switch s[i] {
		case ']':
			depth++
		case '[':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// AddFrontMatter prepends a YAML front-matter block with the given fields.
// Keys are sorted; values that YAML would misread are quoted.
func AddFrontMatter(src string, fields map[string]string) string {
	if len(fields) == 0 {
		return src
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("---\n")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("%s: %s\n", k, yamlScalar(fields[k])))
	}
	b.WriteString("---\n\n")
	b.WriteString(src)
	return b.String()
}

// SplitFrontMatter separates a leading front-matter block from the body.
// The block is returned without its --- fences.
func SplitFrontMatter(src string) (frontMatter, body string) {
	rest, ok := strings.CutPrefix(src, "---\n")
	if !ok {
		return "", src
	}
	fm, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		return "", src
	}
	return fm, strings.TrimLeft(body, "\n")
}

func yamlScalar(v string) string {
	if v == "" || strings.Contains(v, ": ") || strings.Contains(v, " #") ||
		strings.ContainsAny(v[:1], "`!&*{}[]|>'\"%@#,?-") || strings.TrimSpace(v) != v {
		return strconv.Quote(v)
	}
	return v
}
