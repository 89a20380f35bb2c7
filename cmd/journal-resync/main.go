// Command journal-resync runs the NFS→coordination resync worker
// (§4.J): it re-uploads journal entries accumulated on NFS back into the
// coordination service once it is reachable again.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ms-journal/journal/internal/config"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/resync"
)

var (
	cfgFile       string
	flagPrimary   string
	flagSecondary string
	flagAdminUser string
	nfsPath       string
)

var rootCmd = &cobra.Command{
	Use:   "journal-resync",
	Short: "Re-upload NFS-buffered journal entries into the coordination service",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "coordination backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "unused by this command, accepted for flag parity")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
	rootCmd.Flags().StringVarP(&nfsPath, "nfspath", "n", "", "NFS source directory")
	rootCmd.MarkFlagRequired("nfspath")
}

func run(cmd *cobra.Command, args []string) error {
	log := jlog.New(os.Stderr, slog.LevelInfo)

	cfg, err := config.Load(cfgFile, flagPrimary, flagSecondary, flagAdminUser)
	if err != nil {
		return err
	}
	coord, err := config.BuildCoordination(cfg, 16, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := resync.New(coord, nfsPath, 60*time.Second, log)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
