// Command journal-cleanup runs the cleanup worker (§4.I): it age-deletes
// /history snapshots that dump has already exported.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ms-journal/journal/internal/cleanup"
	"github.com/ms-journal/journal/internal/config"
	"github.com/ms-journal/journal/internal/jlog"
)

const defaultNFSRegex = `#(-?\d+)\.csv(?:\.gz)?$`

var (
	cfgFile       string
	flagPrimary   string
	flagSecondary string
	flagAdminUser string
	nfsPath       string
	nfsRegex      string
	outfile       string
	ageSecs       int
	intervalSecs  int
)

var rootCmd = &cobra.Command{
	Use:   "journal-cleanup",
	Short: "Delete folded snapshots that have already been exported by dump",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "coordination backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "unused by this command, accepted for flag parity")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
	rootCmd.Flags().StringVarP(&nfsPath, "nfspath", "n", "", "NFS export directory")
	rootCmd.Flags().StringVarP(&nfsRegex, "regex", "r", defaultNFSRegex, "regex (one capture group) matching exported file names")
	rootCmd.Flags().StringVarP(&outfile, "outfile", "o", "", "output file path prefix; not used: dumped files are found by --regex alone")
	rootCmd.Flags().IntVarP(&ageSecs, "age", "a", 7*24*3600, "minimum snapshot age, in seconds, before deletion")
	rootCmd.Flags().IntVarP(&intervalSecs, "interval", "i", 300, "seconds between cleanup iterations")
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
	pattern, err := regexp.Compile(nfsRegex)
	if err != nil {
		return fmt.Errorf("compiling --regex: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := cleanup.New(coord, cleanup.Config{
		NFSPath: nfsPath, Outfile: outfile, Pattern: pattern,
		Age: time.Duration(ageSecs) * time.Second, Interval: time.Duration(intervalSecs) * time.Second,
	}, log)
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
