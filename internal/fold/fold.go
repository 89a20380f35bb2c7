// Package fold implements the fold worker (§4.F): it batches live
// coordination-service nodes into immutable compressed snapshots under
// /history, the Go analogue of the original module's upload_batch loop.
// Grounded on the teacher's worker-loop shape in cmd/bd/daemon_server.go
// (a struct holding its dependencies, a Run(ctx) that loops with a ticker
// and logs-and-continues on a single iteration's error).
package fold

import (
	"context"
	"errors"
	"time"

	"github.com/ms-journal/journal/internal/backend/zk"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal"
	"github.com/ms-journal/journal/internal/snapshot"
)

// Coordinator is the subset of *zk.Backend the fold worker drives.
// Declared as an interface so tests can supply a fake without standing
// up a real ensemble.
type Coordinator interface {
	EnsureConnected(ctx context.Context) bool
	EnsureHistory(ctx context.Context) error
	ListRoot(ctx context.Context) ([]string, error)
	ListSteps(ctx context.Context, txid string) ([]string, error)
	TryLock(ctx context.Context, txid string) (bool, error)
	Unlock(ctx context.Context, txid string) error
	GetRecord(ctx context.Context, txid, step string) (journal.Record, error)
	StepPath(txid, step string) string
	CommitSnapshot(ctx context.Context, blob []byte, deletePaths []string) error
	DeleteTxParent(ctx context.Context, txid string) error
}

// Worker runs the fold loop against a Coordinator.
type Worker struct {
	coord     Coordinator
	batchSize int
	interval  time.Duration
	log       *jlog.Logger
}

// New builds a fold Worker. batchSize <= 0 is treated as unbounded (the
// loop only stops enqueuing when roots are exhausted).
func New(coord Coordinator, batchSize int, interval time.Duration, log *jlog.Logger) *Worker {
	if log == nil {
		log = jlog.Nop()
	}
	return &Worker{coord: coord, batchSize: batchSize, interval: interval, log: log}
}

// Run loops forever, sleeping interval between iterations, until ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Error("fold: iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

type enqueuedStep struct {
	txid, step string
}

// RunOnce performs a single fold iteration (§4.F steps 1-4).
func (w *Worker) RunOnce(ctx context.Context) error {
	if !w.coord.EnsureConnected(ctx) {
		return errors.New("fold: coordination backend disconnected")
	}
	if err := w.coord.EnsureHistory(ctx); err != nil {
		return err
	}

	roots, err := w.coord.ListRoot(ctx)
	if err != nil {
		return err
	}

	var enqueue []enqueuedStep
	var locked []string

	for _, name := range roots {
		if name == "history" || zk.IsLockName(name) {
			continue
		}
		steps, err := w.coord.ListSteps(ctx, name)
		if err != nil {
			w.log.Warn("fold: listing steps", "txid", name, "error", err)
			continue
		}
		if len(steps) == 0 {
			continue
		}
		ok, err := w.coord.TryLock(ctx, name)
		if err != nil {
			w.log.Warn("fold: acquiring lock", "txid", name, "error", err)
			continue
		}
		if !ok {
			continue
		}
		locked = append(locked, name)
		for _, step := range steps {
			enqueue = append(enqueue, enqueuedStep{name, step})
		}
		if w.batchSize > 0 && len(enqueue) >= w.batchSize {
			break
		}
	}

	defer func() {
		for _, txid := range locked {
			if err := w.coord.Unlock(ctx, txid); err != nil {
				w.log.Warn("fold: releasing lock", "txid", txid, "error", err)
			}
		}
	}()

	if len(enqueue) == 0 {
		return nil
	}

	rows := make([]snapshot.Row, 0, len(enqueue))
	deletePaths := make([]string, 0, len(enqueue))
	for _, e := range enqueue {
		rec, err := w.coord.GetRecord(ctx, e.txid, e.step)
		if err != nil {
			w.log.Warn("fold: reading live node", "txid", e.txid, "step", e.step, "error", err)
			continue
		}
		rows = append(rows, snapshot.RowFromRecord(rec))
		deletePaths = append(deletePaths, w.coord.StepPath(e.txid, e.step))
	}
	if len(rows) == 0 {
		return nil
	}

	blob, err := snapshot.Build(ctx, rows)
	if err != nil {
		if errors.Is(err, snapshot.ErrIntegrity) {
			w.log.Warn("fold: integrity failure building snapshot, retrying next cycle", "error", err)
			return nil
		}
		return err
	}

	if err := w.coord.CommitSnapshot(ctx, blob, deletePaths); err != nil {
		return err
	}

	for _, txid := range locked {
		if err := w.coord.DeleteTxParent(ctx, txid); err != nil {
			w.log.Warn("fold: deleting emptied parent", "txid", txid, "error", err)
		}
	}
	return nil
}
