package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jcdickinson/docnet/internal/cas"
	"github.com/jcdickinson/docnet/internal/config"
	"github.com/jcdickinson/docnet/internal/daemon"
	"github.com/jcdickinson/docnet/internal/db"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background daemon (usually spawned automatically)",
	Run:   runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		fatal("failed to create log directory", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fatal("failed to open log file", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}

	database, err := db.New(config.DBPath())
	if err != nil {
		fatal("failed to open database", err)
	}
	defer database.Close()

	srv := daemon.NewServer(cfg, database, cas.Default(), config.SocketPath())
	if err := srv.Start(context.Background()); err != nil {
		fatal("daemon failed", err)
	}
}
