package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/indexer"
	"github.com/jcdickinson/docnet/internal/markdown"
	"github.com/jcdickinson/docnet/internal/render"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <members.json> <docs.xml>",
	Short: "Render one page per type into a directory",
	Long: `Resolve a documentation file against its member manifest and write a page
for every type plus an index page. Pages are markdown unless --html is set
or render.format is "html".`,
	Example: `  docnet render --out docs/api Acme.Widgets.members.json Acme.Widgets.xml
  docnet render --html --field quoted --out site a.members.json a.xml`,
	Args: cobra.ExactArgs(2),
	Run:  runRender,
}

var (
	renderOut   string
	renderHTML  bool
	renderField string
)

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output directory")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "write HTML pages")
	renderCmd.Flags().StringVar(&renderField, "field", "", "syntax block style: preformatted or quoted")
	renderCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	if renderHTML {
		cfg.Render.Format = "html"
	}
	if renderField != "" {
		if cfg.Render.OutputField, err = render.ParseOutputField(renderField); err != nil {
			fatal("invalid --field", err)
		}
	}

	b, err := indexer.Load(context.Background(), args[0], args[1], cfg.Resolve.Workers)
	if err != nil {
		fatal("render failed", err)
	}

	n, err := writePages(renderOut, b, cfg.Render)
	if err != nil {
		fatal("writing pages failed", err)
	}
	fmt.Printf("%s: %d pages written to %s\n", b.Assembly, n, renderOut)
}

// writePages writes every type page and the index page into dir and
// returns how many files were written.
func writePages(dir string, b *indexer.Build, rc config.RenderConfig) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	r := render.New(b.Documentation, b.Index, rc.Options())
	ext := rc.Ext()

	write := func(name, title, content string) error {
		data := []byte(content)
		if ext == "html" {
			data = markdown.ToHTML(content, title)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return nil
	}

	for _, t := range b.Documentation.Types {
		if err := write(render.PageName(t.Key, ext), t.Title(), r.TypePage(t)); err != nil {
			return 0, err
		}
	}
	if err := write(render.IndexName(ext), b.Assembly, r.IndexPage()); err != nil {
		return 0, err
	}
	return len(b.Documentation.Types) + 1, nil
}
