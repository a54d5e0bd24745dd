package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcdickinson/docnet/internal/cas"
	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/daemon"
	"github.com/jcdickinson/docnet/internal/db"
	"github.com/jcdickinson/docnet/internal/mcp"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "docnet",
	Short: ".NET XML documentation correlation and MCP server",
	Long: `docnet matches the entries of a compiler-generated XML documentation file
with the members of their assembly, renders a page per type and member, and
serves them over MCP. Run without a subcommand to start the MCP server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})))
	},
	Run: runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "run daemon in-process (visible log output)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(pruneCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio (same as running without a subcommand)",
	Run:   runServe,
}

// fatal logs and exits. Commands use it for errors they cannot recover from.
func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// connectDaemon returns a daemon client. In debug mode, starts the daemon
// in-process so all log output is visible in the terminal.
func connectDaemon() (*daemon.Client, error) {
	socketPath := config.SocketPath()

	if !debug {
		return daemon.ConnectOrSpawn(socketPath)
	}

	// In debug mode: stop any existing daemon, then start in-process
	client := daemon.NewClient(socketPath)
	if client.IsAvailable() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client.Shutdown(shutdownCtx)
		cancel()
		time.Sleep(200 * time.Millisecond)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	database, err := db.New(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	srv := daemon.NewServer(cfg, database, cas.Default(), socketPath)
	go func() {
		if err := srv.Start(context.Background()); err != nil {
			slog.Error("in-process daemon error", "error", err)
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		if client.IsAvailable() {
			return client, nil
		}
	}

	return nil, fmt.Errorf("in-process daemon did not start within 5 seconds")
}

func runServe(cmd *cobra.Command, args []string) {
	if debug {
		// Starts the in-process daemon before the MCP server connects.
		if _, err := connectDaemon(); err != nil {
			fatal("failed to start daemon", err)
		}
	}

	server, err := mcp.NewServer(config.SocketPath())
	if err != nil {
		fatal("failed to create MCP server", err)
	}

	errCh := make(chan error)
	go func() { errCh <- server.Run() }()

	if err := waitForSignal(errCh); err != nil {
		fatal("server error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func waitForSignal(errCh chan error) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		slog.Info("received signal", "signal", sig.String())
		return nil
	case err := <-errCh:
		return err
	}
}
