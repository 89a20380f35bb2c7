// Package cleanup implements the cleanup worker (§4.I): it deletes
// folded snapshots under /history once they are both old enough and
// known to have been exported by the dump worker, guaranteeing "exported
// before deleted." Grounded on the teacher's worker-loop shape
// (cmd/bd/daemon_server.go) and reusing internal/nfsutil for the same
// lastid computation the dump worker performs.
package cleanup

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal/serial"
	"github.com/ms-journal/journal/internal/nfsutil"
)

// Source is the coordination-backend surface the cleanup worker needs.
type Source interface {
	HistoryExists(ctx context.Context) (bool, error)
	ListHistory(ctx context.Context) ([]string, error)
	HistoryChildCTime(ctx context.Context, name string) (time.Time, error)
	DeleteHistoryChild(ctx context.Context, name string) error
}

// Config collects the cleanup worker's construction parameters.
type Config struct {
	NFSPath  string
	Outfile  string
	Pattern  *regexp.Regexp // nil uses nfsutil.DefaultPattern
	Age      time.Duration
	Interval time.Duration
}

// Worker runs the cleanup loop.
type Worker struct {
	src     Source
	nfsPath string
	pattern *regexp.Regexp
	age     time.Duration
	interval time.Duration
	log     *jlog.Logger

	now func() time.Time
}

// New builds a cleanup Worker.
func New(src Source, cfg Config, log *jlog.Logger) *Worker {
	if log == nil {
		log = jlog.Nop()
	}
	pattern := cfg.Pattern
	if pattern == nil {
		pattern = nfsutil.DefaultPattern()
	}
	return &Worker{
		src: src, nfsPath: cfg.NFSPath, pattern: pattern,
		age: cfg.Age, interval: cfg.Interval, log: log,
		now: time.Now,
	}
}

// Run loops forever, sleeping interval between iterations.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Error("cleanup: iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// RunOnce performs a single cleanup iteration (§4.I).
func (w *Worker) RunOnce(ctx context.Context) error {
	if c, ok := w.src.(interface{ EnsureConnected(context.Context) bool }); ok && !c.EnsureConnected(ctx) {
		return fmt.Errorf("cleanup: coordination backend disconnected")
	}
	exists, err := w.src.HistoryExists(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: checking /history: %w", err)
	}
	if !exists {
		return nil
	}

	lastID, haveLast, err := nfsutil.LastID(w.nfsPath, w.pattern)
	if err != nil {
		return fmt.Errorf("cleanup: scanning nfs dir: %w", err)
	}

	entries, err := w.src.ListHistory(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: listing /history: %w", err)
	}

	now := w.now()
	for _, entry := range entries {
		seq := serial.SeqOf(entry)
		dumped := haveLast && serial.Compare(seq, lastID) <= 0

		ctime, err := w.src.HistoryChildCTime(ctx, entry)
		if err != nil {
			w.log.Warn("cleanup: stat failed, skipping", "entry", entry, "error", err)
			continue
		}
		oldEnough := now.Sub(ctime) > w.age

		if oldEnough && dumped {
			if err := w.src.DeleteHistoryChild(ctx, entry); err != nil {
				w.log.Warn("cleanup: delete failed", "entry", entry, "error", err)
			}
			continue
		}
		w.log.Info("cleanup: not dumped, keeping", "entry", entry)
	}
	return nil
}
