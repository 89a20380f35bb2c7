package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "primary: zookeeper://zk1,zk2/journal\nsecondary: nfs:///mnt/journal\nmechanism: gssapi\n")

	cfg, err := Load(path, "", "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Primary != "zookeeper://zk1,zk2/journal" {
		t.Fatalf("unexpected primary: %q", cfg.Primary)
	}
	if cfg.Secondary != "nfs:///mnt/journal" {
		t.Fatalf("unexpected secondary: %q", cfg.Secondary)
	}
	if cfg.Extra["mechanism"] != "gssapi" {
		t.Fatalf("expected passthrough key, got %v", cfg.Extra)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "primary: zookeeper://zk1/journal\n")

	cfg, err := Load(path, "zookeeper://override/journal", "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Primary != "zookeeper://override/journal" {
		t.Fatalf("expected flag to override file, got %q", cfg.Primary)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("", "zookeeper://only/journal", "", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Primary != "zookeeper://only/journal" {
		t.Fatalf("unexpected primary: %q", cfg.Primary)
	}
}
