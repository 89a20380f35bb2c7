package nfsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLastIDPicksMax(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "journal#0000000001.csv.gz")
	touch(t, dir, "journal#0000000010.csv.gz")
	touch(t, dir, "journal#0000000003.csv")
	touch(t, dir, "unrelated.txt")

	seq, ok, err := LastID(dir, DefaultPattern())
	if err != nil {
		t.Fatalf("LastID: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if seq != "0000000010" {
		t.Fatalf("expected 0000000010, got %s", seq)
	}
}

func TestLastIDEmptyDir(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := LastID(dir, DefaultPattern())
	if err != nil {
		t.Fatalf("LastID: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for empty dir")
	}
}
