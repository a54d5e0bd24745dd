package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/indexer"
	"github.com/jcdickinson/docnet/internal/resolve"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <members.json> <docs.xml>",
	Short: "Resolve a documentation file against a member manifest without storing it",
	Long: `Parse every entry of an XML documentation file and match it against the
assembly's members, then report how many entries resolved and why the rest
did not. Nothing is stored and no daemon is needed.`,
	Example: `  docnet resolve Acme.Widgets.members.json Acme.Widgets.xml
  docnet resolve --unresolved --workers 4 a.members.json.zst a.xml.zst
  docnet resolve --json a.members.json a.xml | jq '.[] | select(.reason != "resolved")'`,
	Args: cobra.ExactArgs(2),
	Run:  runResolve,
}

var (
	resolveJSON       bool
	resolveUnresolved bool
	resolveStrict     bool
	resolveWorkers    int
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print every result as JSON")
	resolveCmd.Flags().BoolVar(&resolveUnresolved, "unresolved", false, "list the entries that did not resolve")
	resolveCmd.Flags().BoolVar(&resolveStrict, "strict", false, "exit with status 2 when any entry did not resolve")
	resolveCmd.Flags().IntVarP(&resolveWorkers, "workers", "w", -1, "resolver goroutines (default resolve.workers)")
	rootCmd.AddCommand(resolveCmd)
}

// resolvedEntry is the JSON form of one result.
type resolvedEntry struct {
	DocID      string `json:"doc_id"`
	Reason     string `json:"reason"`
	Member     string `json:"member,omitempty"`
	Candidates int    `json:"candidates"`
	Detail     string `json:"detail,omitempty"`
}

func resolvedEntries[P any](results []resolve.Result[P]) []resolvedEntry {
	out := make([]resolvedEntry, len(results))
	for i, r := range results {
		out[i] = resolvedEntry{
			DocID:      r.ID.Raw,
			Reason:     r.Reason.String(),
			Candidates: r.Candidates,
			Detail:     r.Detail,
		}
		if r.OK() {
			out[i].Member = r.Member.DocID()
		}
	}
	return out
}

func reasonCounts(summary map[resolve.Reason]int) map[string]int {
	out := make(map[string]int, len(summary))
	for reason, n := range summary {
		out[reason.String()] = n
	}
	return out
}

func runResolve(cmd *cobra.Command, args []string) {
	workers := resolveWorkers
	if workers < 0 {
		cfg, err := config.Load()
		if err != nil {
			fatal("failed to load config", err)
		}
		workers = cfg.Resolve.Workers
	}

	b, err := indexer.Load(context.Background(), args[0], args[1], workers)
	if err != nil {
		fatal("resolve failed", err)
	}
	unresolved := b.Unresolved()

	if resolveJSON {
		out, _ := json.MarshalIndent(resolvedEntries(b.Results), "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("%s: %d entries, %d members, %d undocumented\n",
			b.Assembly, len(b.Results), b.Index.Len(), len(b.Undocumented))
		fmt.Print(formatReasons(reasonCounts(b.Summary()), "  "))
		if resolveUnresolved {
			for _, e := range resolvedEntries(unresolved) {
				fmt.Printf("  %s [%s]\n", e.DocID, e.Reason)
				if e.Detail != "" {
					fmt.Printf("    %s\n", e.Detail)
				}
			}
		}
	}

	if resolveStrict && len(unresolved) > 0 {
		os.Exit(2)
	}
}
