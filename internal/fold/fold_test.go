package fold

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ms-journal/journal/internal/journal"
)

type fakeCoord struct {
	history    bool
	roots      []string
	steps      map[string][]string
	records    map[string]journal.Record
	locks      map[string]bool
	committed  [][]byte
	deleted    []string
	deletedTx  []string
	commitErr  error
	lockDenied map[string]bool
}

func newFakeCoord() *fakeCoord {
	return &fakeCoord{
		steps:      map[string][]string{},
		records:    map[string]journal.Record{},
		locks:      map[string]bool{},
		lockDenied: map[string]bool{},
	}
}

func (f *fakeCoord) EnsureConnected(ctx context.Context) bool { return true }
func (f *fakeCoord) EnsureHistory(ctx context.Context) error  { f.history = true; return nil }
func (f *fakeCoord) ListRoot(ctx context.Context) ([]string, error) {
	return f.roots, nil
}
func (f *fakeCoord) ListSteps(ctx context.Context, txid string) ([]string, error) {
	return f.steps[txid], nil
}
func (f *fakeCoord) TryLock(ctx context.Context, txid string) (bool, error) {
	if f.lockDenied[txid] {
		return false, nil
	}
	f.locks[txid] = true
	return true, nil
}
func (f *fakeCoord) Unlock(ctx context.Context, txid string) error {
	delete(f.locks, txid)
	return nil
}
func (f *fakeCoord) GetRecord(ctx context.Context, txid, step string) (journal.Record, error) {
	return f.records[txid+"/"+step], nil
}
func (f *fakeCoord) StepPath(txid, step string) string {
	return "/" + txid + "/" + step
}
func (f *fakeCoord) CommitSnapshot(ctx context.Context, blob []byte, deletePaths []string) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, blob)
	f.deleted = append(f.deleted, deletePaths...)
	return nil
}
func (f *fakeCoord) DeleteTxParent(ctx context.Context, txid string) error {
	f.deletedTx = append(f.deletedTx, txid)
	return nil
}

func record(txid, step string) journal.Record {
	return journal.Record{
		RequestID: txid, TransactionID: txid, Step: step,
		Host: "h1", AuthUserID: "a", UserID: "u", Resource: "r",
		ResourceGroup: "rg", Verb: "POST", Payload: json.RawMessage(`{}`),
	}
}

func TestRunOnceBatchesAndCommits(t *testing.T) {
	c := newFakeCoord()
	c.roots = []string{"T1", "T1_lock", "history"}
	c.steps["T1"] = []string{"begin", "commit"}
	c.records["T1/begin"] = record("T1", "begin")
	c.records["T1/commit"] = record("T1", "commit")

	w := New(c, 0, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !c.history {
		t.Fatalf("expected /history to be ensured")
	}
	if len(c.committed) != 1 {
		t.Fatalf("expected one snapshot committed, got %d", len(c.committed))
	}
	if len(c.deleted) != 2 {
		t.Fatalf("expected 2 live nodes deleted, got %d", len(c.deleted))
	}
	if len(c.deletedTx) != 1 || c.deletedTx[0] != "T1" {
		t.Fatalf("expected T1 parent deleted, got %v", c.deletedTx)
	}
	if len(c.locks) != 0 {
		t.Fatalf("expected lock released, still held: %v", c.locks)
	}
}

func TestRunOnceSkipsLockedTx(t *testing.T) {
	c := newFakeCoord()
	c.roots = []string{"T1"}
	c.steps["T1"] = []string{"begin"}
	c.lockDenied["T1"] = true

	w := New(c, 0, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(c.committed) != 0 {
		t.Fatalf("expected no commit when lock denied")
	}
}

func TestRunOnceNoStepsSkipsTx(t *testing.T) {
	c := newFakeCoord()
	c.roots = []string{"T1"}
	c.steps["T1"] = nil

	w := New(c, 0, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(c.locks) != 0 {
		t.Fatalf("expected no lock acquired for empty tx")
	}
}

func TestRunOnceCommitErrorPropagates(t *testing.T) {
	c := newFakeCoord()
	c.roots = []string{"T1"}
	c.steps["T1"] = []string{"begin"}
	c.records["T1/begin"] = record("T1", "begin")
	c.commitErr = errors.New("boom")

	w := New(c, 0, time.Millisecond, nil)
	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected commit error to propagate")
	}
	if len(c.locks) != 0 {
		t.Fatalf("expected lock released even on commit error")
	}
}
