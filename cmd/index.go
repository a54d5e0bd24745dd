package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/daemon"
	"github.com/jcdickinson/docnet/internal/rpc"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <members.json>:<docs.xml> ...",
	Short: "Correlate and store documentation for one or more assemblies",
	Long: `Resolve every entry of an XML documentation file against the member
manifest of its assembly, render pages, and store them in the daemon.
Either input may be zstd compressed (.zst). Re-indexing an assembly replaces
its previous pages.`,
	Example: `  docnet index Acme.Widgets.members.json:Acme.Widgets.xml
  docnet index a.members.json.zst:a.xml.zst b.members.json:b.xml`,
	Args: cobra.MinimumNArgs(1),
	Run:  runIndex,
}

// parseAssemblySpec splits "members:docs". Paths are made absolute because
// the daemon may run in another directory.
func parseAssemblySpec(arg string) (rpc.AssemblySpec, error) {
	membersPath, docsPath, ok := strings.Cut(arg, ":")
	if !ok || membersPath == "" || docsPath == "" {
		return rpc.AssemblySpec{}, fmt.Errorf("invalid assembly %q: want <members>:<docs>", arg)
	}
	var err error
	if membersPath, err = filepath.Abs(membersPath); err != nil {
		return rpc.AssemblySpec{}, err
	}
	if docsPath, err = filepath.Abs(docsPath); err != nil {
		return rpc.AssemblySpec{}, err
	}
	return rpc.AssemblySpec{Members: membersPath, Docs: docsPath}, nil
}

func runIndex(cmd *cobra.Command, args []string) {
	var specs []rpc.AssemblySpec
	for _, arg := range args {
		spec, err := parseAssemblySpec(arg)
		if err != nil {
			fatal("invalid argument", err)
		}
		specs = append(specs, spec)
	}

	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.Index(context.Background(), specs, func(msg string) {
		fmt.Printf("  %s\n", msg)
	})
	if err != nil {
		fatal("failed to index", err)
	}

	for _, r := range resp.Results {
		if r.Error != "" {
			fmt.Printf("  %s: error: %s\n", r.Assembly, r.Error)
			continue
		}
		fmt.Printf("  %s: %d members, %d documented, %d unresolved\n", r.Assembly, r.Members, r.Documented, r.Unresolved)
		fmt.Print(formatReasons(r.Reasons, "    "))
	}
}

// formatReasons prints one line per non-zero reason, sorted by name.
func formatReasons(reasons map[string]int, indent string) string {
	names := make([]string, 0, len(reasons))
	for name, n := range reasons {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s%-26s %d\n", indent, name, reasons[name])
	}
	return b.String()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexed assemblies and daemon state",
	Run:   runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.Status(context.Background())
	if err != nil {
		fatal("status failed", err)
	}

	if statusJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}

	if len(resp.Assemblies) == 0 {
		fmt.Println("no assemblies indexed")
		return
	}

	for _, a := range resp.Assemblies {
		state := "processing"
		if a.Indexed {
			state = "ready"
		}
		fmt.Printf("  %s: %d members, %d documented [%s]\n", a.Name, a.Members, a.Documented, state)
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run:   runStop,
}

func runStop(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	// The daemon may drop the connection while exiting, so errors are ignored.
	_ = client.Shutdown(context.Background())
	fmt.Println("daemon stopped")
}

var removeCmd = &cobra.Command{
	Use:     "remove <assembly>",
	Short:   "Forget an indexed assembly and prune its pages",
	Example: `  docnet remove Acme.Widgets`,
	Args:    cobra.ExactArgs(1),
	Run:     runRemove,
}

func runRemove(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.Remove(context.Background(), args[0])
	if daemon.IsNotFound(err) {
		fmt.Printf("%s is not indexed\n", args[0])
		return
	}
	if err != nil {
		fatal("remove failed", err)
	}
	fmt.Printf("removed %s (%d pages pruned)\n", args[0], resp.PrunedPages)
}
