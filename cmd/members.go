package cmd

import (
	"context"
	"fmt"

	"github.com/jcdickinson/docnet/internal/rpc"
	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members <assembly> [type]",
	Short: "List the members of an indexed assembly",
	Example: `  docnet members Acme.Widgets
  docnet members Acme.Widgets Acme.Widget
  docnet members --undocumented Acme.Widgets 'Acme.Bag` + "`" + `1'`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runMembers,
}

var membersUndocumented bool

func init() {
	membersCmd.Flags().BoolVar(&membersUndocumented, "undocumented", false, "only members without documentation")
	rootCmd.AddCommand(membersCmd)
}

func runMembers(cmd *cobra.Command, args []string) {
	req := rpc.ListMembersRequest{Assembly: args[0]}
	if len(args) > 1 {
		req.Type = args[1]
	}

	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.ListMembers(context.Background(), req)
	if err != nil {
		fatal("listing members failed", err)
	}

	shown := 0
	for _, m := range resp.Members {
		if membersUndocumented && m.Documented {
			continue
		}
		marker := " "
		if !m.Documented {
			marker = "-"
		}
		fmt.Printf("%s %-9s %s\n", marker, m.Kind, m.DocID)
		shown++
	}
	if shown == 0 {
		fmt.Println("no members")
	}
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved <assembly>",
	Short: "List documentation entries that matched no member",
	Example: `  docnet unresolved Acme.Widgets
  docnet unresolved --reason ambiguous_overload Acme.Widgets`,
	Args: cobra.ExactArgs(1),
	Run:  runUnresolved,
}

var unresolvedReason string

func init() {
	unresolvedCmd.Flags().StringVar(&unresolvedReason, "reason", "", "only this reason (e.g. no_candidate_member)")
	rootCmd.AddCommand(unresolvedCmd)
}

func runUnresolved(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		fatal("failed to connect to daemon", err)
	}

	resp, err := client.Unresolved(context.Background(), rpc.UnresolvedRequest{
		Assembly: args[0],
		Reason:   unresolvedReason,
	})
	if err != nil {
		fatal("listing unresolved failed", err)
	}

	if len(resp.Entries) == 0 {
		fmt.Println("no unresolved entries")
		return
	}
	for _, e := range resp.Entries {
		fmt.Printf("  %s [%s]\n", e.DocID, e.Reason)
		if e.Detail != "" {
			fmt.Printf("    %s\n", e.Detail)
		}
	}
}
