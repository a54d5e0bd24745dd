package cmd

import (
	"context"
	"fmt"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/daemon"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored pages no indexed member refers to",
	Run:   runPrune,
}

func runPrune(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	resp, err := client.Prune(context.Background())
	if err != nil {
		fatal("failed to prune pages", err)
	}
	fmt.Printf("%d pages pruned\n", resp.PrunedPages)
}
