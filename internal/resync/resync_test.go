package resync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ms-journal/journal/internal/journal"
)

type fakeCoord struct {
	fail    map[string]bool
	written []string
}

func (f *fakeCoord) Write(ctx context.Context, txid, step string, msg journal.Record) error {
	key := txid + "_" + step
	if f.fail[key] {
		return os.ErrClosed
	}
	f.written = append(f.written, key)
	return nil
}

func writeRecordFile(t *testing.T, dir, name string, rec journal.Record) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestRunOnceSyncsAndDeletesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, "T5_begin", journal.Record{RequestID: "T5", Step: "begin"})

	c := &fakeCoord{fail: map[string]bool{}}
	w := New(c, dir, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(c.written) != 1 || c.written[0] != "T5_begin" {
		t.Fatalf("expected T5_begin written, got %v", c.written)
	}
	if _, err := os.Stat(filepath.Join(dir, "T5_begin")); !os.IsNotExist(err) {
		t.Fatalf("expected source file removed after sync")
	}
}

func TestRunOnceLeavesFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, "T6_commit", journal.Record{RequestID: "T6", Step: "commit"})

	c := &fakeCoord{fail: map[string]bool{"T6_commit": true}}
	w := New(c, dir, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "T6_commit")); err != nil {
		t.Fatalf("expected source file retained after failed write: %v", err)
	}
}

func TestRunOnceSkipsDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, ".lock", journal.Record{})

	c := &fakeCoord{fail: map[string]bool{}}
	w := New(c, dir, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(c.written) != 0 {
		t.Fatalf("expected no writes for dotfiles, got %v", c.written)
	}
}

func TestSplitTxidStep(t *testing.T) {
	txid, step, ok := splitTxidStep("T5_begin")
	if !ok || txid != "T5" || step != "begin" {
		t.Fatalf("got %q %q %v", txid, step, ok)
	}
	if _, _, ok := splitTxidStep("noseparator"); ok {
		t.Fatalf("expected no match for missing separator")
	}
}
