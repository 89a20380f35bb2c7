// Command journald serves the §6 HTTP surface over a unix domain socket,
// the write/status entry point external dispatchers talk to. Grounded on
// the teacher's own unix-socket daemon (internal/rpc, cmd/bd's server
// subcommand) and cobra command shape (cmd/bd/compact.go).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ms-journal/journal/internal/config"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journalhttp"
)

var (
	cfgFile       string
	flagPrimary   string
	flagSecondary string
	flagAdminUser string
	unixSocket    string
	historyCache  int
)

var rootCmd = &cobra.Command{
	Use:   "journald",
	Short: "Serve the journal write/status API over a unix domain socket",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "primary backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "secondary backend URL, overrides config")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
	rootCmd.Flags().StringVarP(&unixSocket, "unixsocket", "u", "/tmp/journald.sock", "unix socket path to listen on")
	rootCmd.Flags().IntVarP(&historyCache, "historycache", "i", 16, "number of snapshot blobs to cache per backend")
}

func run(cmd *cobra.Command, args []string) error {
	log := jlog.New(os.Stderr, slog.LevelInfo)

	cfg, err := config.Load(cfgFile, flagPrimary, flagSecondary, flagAdminUser)
	if err != nil {
		return err
	}
	facade, err := config.Build(cfg, historyCache, log)
	if err != nil {
		return err
	}

	_ = os.Remove(unixSocket)
	ln, err := net.Listen("unix", unixSocket)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", unixSocket, err)
	}
	defer ln.Close()

	mux := journalhttp.NewServer(facade, log)
	srv := &http.Server{Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info("journald listening", "socket", unixSocket)
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
