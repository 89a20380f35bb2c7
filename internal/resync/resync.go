// Package resync implements the NFS→coordination resync worker (§4.J):
// it re-uploads journal entries accumulated on NFS (written there while
// the coordination backend was unreachable) back into the coordination
// service once it recovers, deleting each file only after a successful
// write. Grounded on the teacher's flock idiom (cmd/bd/sync.go) and
// worker-loop shape (cmd/bd/daemon_server.go).
package resync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal"
)

// Coordinator is the single method the resync worker needs from the
// coordination backend.
type Coordinator interface {
	Write(ctx context.Context, txid, step string, msg journal.Record) error
}

// Worker runs the resync loop.
type Worker struct {
	coord    Coordinator
	dir      string
	interval time.Duration
	log      *jlog.Logger
}

// New builds a resync Worker. The default interval is 60 seconds per
// §4.J step 3; pass 0 to get that default.
func New(coord Coordinator, dir string, interval time.Duration, log *jlog.Logger) *Worker {
	if log == nil {
		log = jlog.Nop()
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Worker{coord: coord, dir: dir, interval: interval, log: log}
}

// Run loops forever, sleeping interval between iterations.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Error("resync: iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) lockPath() string {
	return filepath.Join(w.dir, ".lock")
}

// RunOnce performs a single resync iteration (§4.J).
func (w *Worker) RunOnce(ctx context.Context) error {
	lock := flock.New(w.lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("resync: acquiring lock: %w", err)
	}
	if !locked {
		return nil
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("resync: reading %s: %w", w.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		txid, step, ok := splitTxidStep(e.Name())
		if !ok {
			w.log.Warn("resync: skipping unparseable file name", "name", e.Name())
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			w.log.Warn("resync: reading file", "path", path, "error", err)
			continue
		}
		var msg journal.Record
		if err := json.Unmarshal(data, &msg); err != nil {
			w.log.Warn("resync: decoding file", "path", path, "error", err)
			continue
		}
		if err := w.coord.Write(ctx, txid, step, msg); err != nil {
			w.log.Warn("resync: write failed, will retry next cycle", "txid", txid, "step", step, "error", err)
			continue
		}
		if err := os.Remove(path); err != nil {
			w.log.Warn("resync: removing synced file", "path", path, "error", err)
		}
	}
	return nil
}

// splitTxidStep parses "<txid>_<step>" on the first underscore, matching
// journalfile.split('_') in the original resync main, which unpacks into
// exactly two parts and so assumes step names never contain underscores.
func splitTxidStep(name string) (txid, step string, ok bool) {
	idx := strings.Index(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}
