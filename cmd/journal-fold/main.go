// Command journal-fold runs the fold worker (§4.F) against a
// coordination backend: it batches live nodes into compressed snapshots
// under /history.
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
	"github.com/ms-journal/journal/internal/fold"
	"github.com/ms-journal/journal/internal/jlog"
)

var (
	cfgFile       string
	flagPrimary   string
	flagSecondary string
	flagAdminUser string
	batchSize     int
	intervalSecs  int
)

var rootCmd = &cobra.Command{
	Use:   "journal-fold",
	Short: "Fold live coordination-service nodes into compressed snapshots",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "coordination backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "unused by this command, accepted for flag parity")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
	rootCmd.Flags().IntVarP(&batchSize, "batchsize", "b", 200, "max live nodes folded per iteration")
	rootCmd.Flags().IntVarP(&intervalSecs, "interval", "i", 30, "seconds between fold iterations")
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

	w := fold.New(coord, batchSize, time.Duration(intervalSecs)*time.Second, log)
	err = w.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
