package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSource struct {
	exists  bool
	entries []string
	ctimes  map[string]time.Time
	deleted []string
}

func (f *fakeSource) HistoryExists(ctx context.Context) (bool, error) { return f.exists, nil }
func (f *fakeSource) ListHistory(ctx context.Context) ([]string, error) {
	return f.entries, nil
}
func (f *fakeSource) HistoryChildCTime(ctx context.Context, name string) (time.Time, error) {
	return f.ctimes[name], nil
}
func (f *fakeSource) DeleteHistoryChild(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

func touchDumped(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestRunOnceDeletesOldAndDumped(t *testing.T) {
	dir := t.TempDir()
	touchDumped(t, dir, "journal#0000000001.csv.gz")

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		exists:  true,
		entries: []string{"sqlite-db#0000000001", "sqlite-db#0000000002"},
		ctimes: map[string]time.Time{
			"sqlite-db#0000000001": now.Add(-2 * time.Hour),
			"sqlite-db#0000000002": now.Add(-2 * time.Hour),
		},
	}
	w := New(src, Config{NFSPath: dir, Age: time.Hour, Interval: time.Millisecond}, nil)
	w.now = func() time.Time { return now }

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(src.deleted) != 1 || src.deleted[0] != "sqlite-db#0000000001" {
		t.Fatalf("expected only seq 1 deleted (dumped), got %v", src.deleted)
	}
}

func TestRunOnceKeepsYoungEntries(t *testing.T) {
	dir := t.TempDir()
	touchDumped(t, dir, "journal#0000000005.csv.gz")

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		exists:  true,
		entries: []string{"sqlite-db#0000000005"},
		ctimes:  map[string]time.Time{"sqlite-db#0000000005": now.Add(-time.Minute)},
	}
	w := New(src, Config{NFSPath: dir, Age: time.Hour, Interval: time.Millisecond}, nil)
	w.now = func() time.Time { return now }

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(src.deleted) != 0 {
		t.Fatalf("expected nothing deleted, got %v", src.deleted)
	}
}

func TestRunOnceNoHistory(t *testing.T) {
	src := &fakeSource{exists: false}
	w := New(src, Config{NFSPath: t.TempDir(), Age: time.Hour, Interval: time.Millisecond}, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}
