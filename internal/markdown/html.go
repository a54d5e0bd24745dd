package markdown

import (
	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	gmparser "github.com/gomarkdown/markdown/parser"
)

// ToHTML renders a markdown page as a complete HTML document. Front matter
// is dropped.
func ToHTML(src, title string) []byte {
	_, body := SplitFrontMatter(src)
	p := gmparser.NewWithExtensions(gmparser.CommonExtensions | gmparser.Autolink)
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return gm.ToHTML([]byte(body), p, r)
}
