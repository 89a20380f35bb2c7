// Package config loads the YAML configuration described in §6: a
// `primary`/`secondary` backend URL pair plus arbitrary passthrough
// connection kwargs, the Go analogue of journal_cli_main.journal_init.
// Grounded on the teacher's internal/config.Initialize (same
// flags > env > file > default precedence, built on
// github.com/spf13/viper), adapted from a package-level singleton to an
// explicit instance since each cmd/journal-* binary is its own process.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved connection configuration for one invocation.
type Config struct {
	Primary   string
	Secondary string
	AdminUser string

	// Extra carries every YAML key besides primary/secondary/adminuser
	// (e.g. a SASL mechanism), verbatim. Build and BuildCoordination do
	// not pass it on: no backend receives these keys as connection
	// options.
	Extra map[string]any
}

// Load reads path (if non-empty and present) and layers CLI overrides on
// top, following flags > env > file > default. Env vars are prefixed
// JOURNAL_ (JOURNAL_PRIMARY, JOURNAL_SECONDARY, JOURNAL_ADMINUSER).
func Load(path, flagPrimary, flagSecondary, flagAdminUser string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("JOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("primary", "")
	v.SetDefault("secondary", "")
	v.SetDefault("adminuser", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := Config{
		Primary:   v.GetString("primary"),
		Secondary: v.GetString("secondary"),
		AdminUser: v.GetString("adminuser"),
		Extra:     map[string]any{},
	}
	for k, val := range v.AllSettings() {
		switch k {
		case "primary", "secondary", "adminuser":
		default:
			cfg.Extra[k] = val
		}
	}

	// Flags take the highest precedence, applied last.
	if flagPrimary != "" {
		cfg.Primary = flagPrimary
	}
	if flagSecondary != "" {
		cfg.Secondary = flagSecondary
	}
	if flagAdminUser != "" {
		cfg.AdminUser = flagAdminUser
	}
	return cfg, nil
}
