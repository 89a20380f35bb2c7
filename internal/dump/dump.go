// Package dump implements the dump worker (§4.H): it exports newly
// folded snapshots from /history to gzip-compressed CSV files on the
// shared NFS filesystem, guarded by an advisory file lock so only one
// dump process touches the export directory at a time. Grounded on the
// teacher's own NFS lock idiom in cmd/bd/sync.go
// (flock.New(path); lock.TryLock()) and its worker-loop shape in
// cmd/bd/daemon_server.go.
package dump

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/ms-journal/journal/internal/history"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal/serial"
	"github.com/ms-journal/journal/internal/nfsutil"
	"github.com/ms-journal/journal/internal/snapshot"
)

// Source is the coordination-backend surface the dump worker needs; it
// is exactly history.Source, reused here rather than redeclared.
type Source = history.Source

// Worker runs the dump loop.
type Worker struct {
	src      Source
	nfsPath  string
	outfile  string
	pattern  *regexp.Regexp
	chroot   string
	interval time.Duration
	log      *jlog.Logger
}

// Config collects the dump worker's construction parameters.
type Config struct {
	NFSPath  string
	Outfile  string
	Pattern  *regexp.Regexp // nil uses nfsutil.DefaultPattern
	Chroot   string
	Interval time.Duration
}

// New builds a dump Worker.
func New(src Source, cfg Config, log *jlog.Logger) *Worker {
	if log == nil {
		log = jlog.Nop()
	}
	pattern := cfg.Pattern
	if pattern == nil {
		pattern = nfsutil.DefaultPattern()
	}
	return &Worker{
		src: src, nfsPath: cfg.NFSPath, outfile: cfg.Outfile,
		pattern: pattern, chroot: cfg.Chroot, interval: cfg.Interval, log: log,
	}
}

// Run loops forever, sleeping interval between iterations.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Error("dump: iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) lockPath() string {
	sansSlashes := strings.ReplaceAll(w.chroot, "/", "")
	return filepath.Join(w.nfsPath, sansSlashes+".lock")
}

// RunOnce performs a single dump iteration (§4.H).
func (w *Worker) RunOnce(ctx context.Context) error {
	if c, ok := w.src.(interface{ EnsureConnected(context.Context) bool }); ok && !c.EnsureConnected(ctx) {
		return fmt.Errorf("dump: coordination backend disconnected")
	}
	lock := flock.New(w.lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("dump: acquiring lock: %w", err)
	}
	if !locked {
		return nil
	}
	defer lock.Unlock()

	exists, err := w.src.HistoryExists(ctx)
	if err != nil {
		return fmt.Errorf("dump: checking /history: %w", err)
	}
	if !exists {
		return nil
	}

	entries, err := w.src.ListHistory(ctx)
	if err != nil {
		return fmt.Errorf("dump: listing /history: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return serial.CompareEntries(entries[i], entries[j]) < 0
	})

	lastID, haveLast, err := nfsutil.LastID(w.nfsPath, w.pattern)
	if err != nil {
		return fmt.Errorf("dump: scanning nfs dir: %w", err)
	}

	for _, entry := range entries {
		seq := serial.SeqOf(entry)
		if haveLast && serial.Compare(seq, lastID) <= 0 {
			continue
		}
		if err := w.exportOne(ctx, entry, seq); err != nil {
			return fmt.Errorf("dump: exporting %s: %w", entry, err)
		}
		lastID = seq
		haveLast = true
	}
	return nil
}

// exportOne implements §4.H steps 4a-4d for a single snapshot node.
func (w *Worker) exportOne(ctx context.Context, entry, seq string) error {
	blob, err := w.src.GetBlob(ctx, entry)
	if err != nil {
		return err
	}
	db, err := snapshot.Load(ctx, blob)
	if err != nil {
		return err
	}
	rows, err := snapshot.SelectAll(ctx, db)
	db.Close()
	if err != nil {
		return err
	}

	csvPath := filepath.Join(w.nfsPath, fmt.Sprintf("%s#%s.csv", w.outfile, seq))
	f, err := os.Create(csvPath)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(snapshot.CSVColumns); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.CSVFields()); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return compressOrLeave(csvPath, w.log)
}

// compressOrLeave gzips csvPath to csvPath+".gz" and removes the
// original, chmod'ing the result 0644. If gzip fails partway, the
// uncompressed file is left in place (chmod 0644), per §4.H step 4d.
func compressOrLeave(csvPath string, log *jlog.Logger) error {
	if err := gzipFile(csvPath); err != nil {
		log.Warn("dump: gzip failed, leaving plain csv", "path", csvPath, "error", err)
		return os.Chmod(csvPath, 0o644)
	}
	if err := os.Remove(csvPath); err != nil {
		return err
	}
	return os.Chmod(csvPath+".gz", 0o644)
}

func gzipFile(path string) (err error) {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return nil
}
