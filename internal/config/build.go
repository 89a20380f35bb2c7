package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ms-journal/journal/internal/backend"
	"github.com/ms-journal/journal/internal/backend/nfs"
	"github.com/ms-journal/journal/internal/backend/zk"
	"github.com/ms-journal/journal/internal/jlog"
)

// Build constructs the pluggable backend.Facade described by cfg,
// resolving each of primary/secondary to either an NFS or coordination
// backend by URL scheme, matching journal_cli_main.journal_init's
// primary/secondary dispatch.
func Build(cfg Config, historyCacheSize int, log *jlog.Logger) (*backend.Facade, error) {
	primary, err := resolve(cfg.Primary, cfg.AdminUser, historyCacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("config: building primary: %w", err)
	}
	secondary, err := resolve(cfg.Secondary, cfg.AdminUser, historyCacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("config: building secondary: %w", err)
	}
	return &backend.Facade{Primary: primary, Secondary: secondary}, nil
}

// BuildCoordination resolves cfg.Primary specifically as a coordination
// (ZooKeeper) backend, for the fold/dump/cleanup/resync workers, which operate
// against a coordination client directly rather than through the
// write/status facade.
func BuildCoordination(cfg Config, historyCacheSize int, log *jlog.Logger) (*zk.Backend, error) {
	if cfg.Primary == "" {
		return nil, fmt.Errorf("config: no primary coordination backend configured")
	}
	u, err := url.Parse(cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("config: parsing primary url: %w", err)
	}
	if !strings.Contains(u.Scheme, "zookeeper") {
		return nil, fmt.Errorf("config: primary backend %q is not a coordination service", cfg.Primary)
	}
	return zk.New(cfg.Primary, cfg.AdminUser, historyCacheSize, log)
}

// resolve returns nil, nil for an empty URL (backend not configured),
// matching the facade's "1 if not configured" contract at the higher
// level.
func resolve(rawURL, adminUser string, historyCacheSize int, log *jlog.Logger) (backend.Backend, error) {
	if rawURL == "" {
		return nil, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend url %q: %w", rawURL, err)
	}
	switch {
	case strings.Contains(u.Scheme, "zookeeper"):
		return zk.New(rawURL, adminUser, historyCacheSize, log)
	case u.Scheme == "nfs":
		return nfs.New(u.Path), nil
	default:
		return nil, fmt.Errorf("unrecognized backend scheme %q in %q", u.Scheme, rawURL)
	}
}
