package dump

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ms-journal/journal/internal/snapshot"
)

type fakeSource struct {
	exists  bool
	entries []string
	blobs   map[string][]byte
}

func (f *fakeSource) HistoryExists(ctx context.Context) (bool, error) { return f.exists, nil }
func (f *fakeSource) ListHistory(ctx context.Context) ([]string, error) {
	return f.entries, nil
}
func (f *fakeSource) GetBlob(ctx context.Context, name string) ([]byte, error) {
	return f.blobs[name], nil
}

func buildBlob(t *testing.T, txid string) []byte {
	t.Helper()
	rows := []snapshot.Row{{
		Host: "h1", AuthUserID: "a", UserID: "u", Date: "2026-01-01",
		RequestID: txid, TransactionID: txid, Step: "commit",
		AsRole: "r1", ResourceGroup: "rg1", Resource: "res1", Verb: "POST",
		ResourcePK: "pk1", Payload: `{"x":1}`, CM: "cm1",
	}}
	blob, err := snapshot.Build(context.Background(), rows)
	if err != nil {
		t.Fatalf("building blob: %v", err)
	}
	return blob
}

func TestRunOnceExportsNewSnapshotsOnly(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{
		exists:  true,
		entries: []string{"sqlite-db#0000000001", "sqlite-db#0000000002"},
		blobs: map[string][]byte{
			"sqlite-db#0000000001": buildBlob(t, "T1"),
			"sqlite-db#0000000002": buildBlob(t, "T2"),
		},
	}
	w := New(src, Config{
		NFSPath: dir, Outfile: "journal",
		Chroot: "/journal/prod", Interval: time.Millisecond,
	}, nil)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	assertGzExists(t, filepath.Join(dir, "journal#0000000001.csv.gz"))
	assertGzExists(t, filepath.Join(dir, "journal#0000000002.csv.gz"))

	// Second run: nothing new, no additional files.
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 exported files, got %d", len(entries))
	}
}

func assertGzExists(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	defer f.Close()
}

func TestRunOnceNoHistory(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{exists: false}
	w := New(src, Config{NFSPath: dir, Outfile: "journal"}, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	written := 0
	for _, e := range entries {
		if e.Name() != ".lock" { // the dump lock file, created before /history is checked
			written++
		}
	}
	if written != 0 {
		t.Fatalf("expected no files written, got %d", written)
	}
}

func TestCSVColumnsRenamedAndDropped(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{
		exists:  true,
		entries: []string{"sqlite-db#0000000001"},
		blobs:   map[string][]byte{"sqlite-db#0000000001": buildBlob(t, "T1")},
	}
	w := New(src, Config{NFSPath: dir, Outfile: "journal"}, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	gz := filepath.Join(dir, "journal#0000000001.csv.gz")
	f, err := os.Open(gz)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer zr.Close()

	rows, err := csv.NewReader(zr).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 data row, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], snapshot.CSVColumns) {
		t.Fatalf("header mismatch: got %v want %v", rows[0], snapshot.CSVColumns)
	}
	if rows[1][5] != "POST" { // verb column, unrenamed
		t.Fatalf("unexpected verb column: %v", rows[1])
	}
}
