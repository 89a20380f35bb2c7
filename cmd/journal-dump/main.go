// Command journal-dump runs the dump worker (§4.H): it exports newly
// folded /history snapshots to gzip CSV files on NFS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ms-journal/journal/internal/config"
	"github.com/ms-journal/journal/internal/dump"
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
	intervalSecs  int
)

var rootCmd = &cobra.Command{
	Use:   "journal-dump",
	Short: "Export folded snapshots from /history to gzip CSV files on NFS",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "coordination backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "unused by this command, accepted for flag parity")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
	rootCmd.Flags().StringVarP(&nfsPath, "nfspath", "n", "", "NFS export directory")
	rootCmd.Flags().StringVarP(&nfsRegex, "regex", "r", defaultNFSRegex, "regex (one capture group) matching exported file names")
	rootCmd.Flags().StringVarP(&outfile, "outfile", "o", "", "output file path prefix")
	rootCmd.Flags().IntVarP(&intervalSecs, "interval", "i", 60, "seconds between dump iterations")
	rootCmd.MarkFlagRequired("nfspath")
	rootCmd.MarkFlagRequired("outfile")
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
	chroot := ""
	if u, err := url.Parse(cfg.Primary); err == nil {
		chroot = u.Path
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := dump.New(coord, dump.Config{
		NFSPath: nfsPath, Outfile: outfile, Pattern: pattern,
		Chroot: chroot, Interval: time.Duration(intervalSecs) * time.Second,
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
