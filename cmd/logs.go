package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcdickinson/docnet/internal/config"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the daemon log file",
	Run:   runLogs,
}

var (
	logsFollow bool
	logsLines  int
	logsPath   bool
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().BoolVar(&logsPath, "path", false, "print the log file path and exit")
}

func runLogs(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	if logsPath {
		fmt.Println(logPath)
		return
	}

	f, err := os.Open(logPath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("no log file found (daemon may not have run yet)")
		return
	}
	if err != nil {
		fatal("failed to open log file", err)
	}
	defer f.Close()

	if err := tailLines(f, os.Stdout, logsLines); err != nil {
		fatal("failed to read log file", err)
	}
	if !logsFollow {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := follow(ctx, f, os.Stdout, 250*time.Millisecond); err != nil {
		fatal("failed to follow log file", err)
	}
}

// tailLines copies the last n lines of r to w, leaving r at EOF.
func tailLines(r io.Reader, w io.Writer, n int) error {
	if n <= 0 {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	ring := make([]string, 0, n)
	start := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) < n {
			ring = append(ring, sc.Text())
			continue
		}
		ring[start] = sc.Text()
		start = (start + 1) % n
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for i := range ring {
		if _, err := fmt.Fprintln(w, ring[(start+i)%len(ring)]); err != nil {
			return err
		}
	}
	return nil
}

// follow copies whatever is appended to r until ctx is done.
func follow(ctx context.Context, r io.Reader, w io.Writer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := io.Copy(w, r); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
