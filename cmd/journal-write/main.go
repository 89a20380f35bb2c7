// Command journal-write is the cli-write command from §6: it reads a
// 4-byte big-endian length-prefixed JSON message from stdin and writes
// it to the configured backend(s), exiting with the backend's return
// code (0 success, 1 failure).
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ms-journal/journal/internal/config"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal"
)

var (
	cfgFile       string
	flagPrimary   string
	flagSecondary string
	flagAdminUser string
)

var rootCmd = &cobra.Command{
	Use:   "journal-write <txid> <step>",
	Short: "Write one journal entry read from stdin",
	Args:  cobra.ExactArgs(2),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "cfg", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVarP(&flagPrimary, "primary", "p", "", "primary backend URL, overrides config")
	rootCmd.Flags().StringVarP(&flagSecondary, "secondary", "s", "", "secondary backend URL, overrides config")
	rootCmd.Flags().StringVar(&flagAdminUser, "adminuser", "", "coordination admin identity")
}

func run(cmd *cobra.Command, args []string) error {
	txid, step := args[0], args[1]
	log := jlog.New(os.Stderr, slog.LevelWarn)

	var length uint32
	if err := binary.Read(os.Stdin, binary.BigEndian, &length); err != nil {
		return fmt.Errorf("reading message length: %w", err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(os.Stdin, body); err != nil {
		return fmt.Errorf("reading message body: %w", err)
	}
	var msg journal.Record
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}

	cfg, err := config.Load(cfgFile, flagPrimary, flagSecondary, flagAdminUser)
	if err != nil {
		return err
	}
	facade, err := config.Build(cfg, 16, log)
	if err != nil {
		return err
	}

	if err := facade.Write(cmd.Context(), txid, step, msg); err != nil {
		log.Error("write failed", "txid", txid, "step", step, "error", err)
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
