package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
)

// Section is a heading-delimited part of a page. The text before the first
// heading, if any, is a Section with Level 0 and no Heading.
type Section struct {
	Heading string
	Level   int
	Text    string
}

// SplitSections splits markdown at top-level headings of the given level or
// shallower (1 means "# " only). Level 0 splits at every heading. Each
// Section's Text includes its heading line.
func SplitSections(src string, maxLevel int) []Section {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}

	var headings []*ast.Heading
	var offsets []int
	for _, child := range parse(src).GetChildren() {
		h, ok := child.(*ast.Heading)
		if !ok || (maxLevel > 0 && h.Level > maxLevel) {
			continue
		}
		offset := findHeadingOffset(src, h, offsets)
		if offset < 0 {
			continue
		}
		headings = append(headings, h)
		offsets = append(offsets, offset)
	}

	if len(offsets) == 0 {
		return []Section{{Text: src}}
	}

	var sections []Section
	if intro := strings.TrimSpace(src[:offsets[0]]); intro != "" {
		sections = append(sections, Section{Text: intro})
	}
	for i, offset := range offsets {
		end := len(src)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		sections = append(sections, Section{
			Heading: extractNodeText(headings[i]),
			Level:   headings[i].Level,
			Text:    strings.TrimSpace(src[offset:end]),
		})
	}
	return sections
}

// FindSection returns the first section whose heading matches name,
// case-insensitively.
func FindSection(src, name string) (Section, bool) {
	for _, s := range SplitSections(src, 0) {
		if s.Heading != "" && strings.EqualFold(s.Heading, name) {
			return s, true
		}
	}
	return Section{}, false
}

// FirstParagraph returns the plain text of the first paragraph that comes
// before any heading, or of the first paragraph overall.
func FirstParagraph(src string) string {
	var first *ast.Paragraph
	for _, child := range parse(src).GetChildren() {
		if p, ok := child.(*ast.Paragraph); ok {
			first = p
			break
		}
	}
	if first == nil {
		return ""
	}
	return extractNodeText(first)
}

// findHeadingOffset finds the byte offset in source where a heading starts.
// It searches for lines starting with '#' characters after the offsets
// already found.
func findHeadingOffset(src string, heading *ast.Heading, found []int) int {
	prefix := strings.Repeat("#", heading.Level) + " "
	searchFrom := 0
	if len(found) > 0 {
		searchFrom = found[len(found)-1] + 1
	}

	fenced := false
	for i := searchFrom; i < len(src); i++ {
		if i > 0 && src[i-1] != '\n' {
			continue
		}
		if strings.HasPrefix(src[i:], "```") {
			fenced = !fenced
			continue
		}
		if !fenced && strings.HasPrefix(src[i:], prefix) {
			return i
		}
	}
	return -1
}

// extractNodeText recursively extracts text content from an AST node.
func extractNodeText(node ast.Node) string {
	var b strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil && leaf.Literal != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(b.String())
}
