package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/rpc"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <docnet://assembly/doc-id>",
	Short: "Read a documentation page by URI",
	Long: `Read the page of a type, member or namespace. The doc-id may be written
unescaped, and need not be in canonical form: it is resolved against the
assembly's members when no page is stored under the exact spelling.`,
	Example: `  docnet get docnet://Acme.Widgets/T:Acme.Widget
  docnet get 'docnet://Acme.Widgets/M:Acme.Widget.Resize(System.Int32)'
  docnet get --section Remarks Acme.Widgets/P:Acme.Widget.Width`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

var getSection string

func init() {
	getCmd.Flags().StringVarP(&getSection, "section", "s", "", "print only this section")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	uri := args[0]
	if !strings.HasPrefix(uri, docs.Scheme+"://") {
		uri = docs.Scheme + "://" + uri
	}
	assembly, docID, err := docs.ParseURI(uri)
	if err != nil {
		fatal("invalid URI", err)
	}

	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.GetDoc(context.Background(), rpc.GetDocRequest{
		Assembly: assembly,
		DocID:    docID,
		Section:  getSection,
	})
	if err != nil {
		fatal("get doc failed", err)
	}

	fmt.Print(resp.Markdown)
}
