package zk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/ms-journal/journal/internal/journal"
)

// EnsureConnected reconnects if necessary and reports whether the
// backend is usable afterward. The fold, dump and cleanup worker loops
// call this once per iteration instead of duplicating §4.E's
// reconnection branch.
func (b *Backend) EnsureConnected(ctx context.Context) bool {
	if !b.connected() {
		b.Reconnect(ctx)
	}
	return b.connected()
}

// EnsureHistory creates /history with the standard ACL if it doesn't
// exist yet, per §4.F's "Ensures /history exists".
func (b *Backend) EnsureHistory(ctx context.Context) error {
	conn, ok := b.getConn()
	if !ok {
		return fmt.Errorf("zk: ensure history: disconnected")
	}
	_, err := conn.Create(b.historyPath(), nil, 0, b.acl)
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("zk: ensure history: %w", err)
	}
	return nil
}

// ListRoot lists the chroot's direct children, the candidate transaction
// ids for the fold worker (§4.F step 1).
func (b *Backend) ListRoot(ctx context.Context) ([]string, error) {
	conn, ok := b.getConn()
	if !ok {
		return nil, fmt.Errorf("zk: list root: disconnected")
	}
	root := b.chroot
	if root == "" {
		root = "/"
	}
	children, _, err := conn.Children(root)
	if err != nil {
		return nil, fmt.Errorf("zk: list root: %w", err)
	}
	return children, nil
}

// ListSteps lists a transaction's step children; a missing node is
// reported as an empty list, not an error (the node may have just been
// deleted by a racing fold cycle).
func (b *Backend) ListSteps(ctx context.Context, txid string) ([]string, error) {
	conn, ok := b.getConn()
	if !ok {
		return nil, fmt.Errorf("zk: list steps %s: disconnected", txid)
	}
	children, _, err := conn.Children(b.txPath(txid))
	if err != nil {
		if errors.Is(err, zk.ErrNoNode) {
			return nil, nil
		}
		return nil, fmt.Errorf("zk: list steps %s: %w", txid, err)
	}
	return children, nil
}

// TryLock attempts to acquire the non-blocking distributed lock at
// /<txid>_lock (§4.F step 2b). A false, nil result means some other
// fold iteration already holds it.
func (b *Backend) TryLock(ctx context.Context, txid string) (bool, error) {
	conn, ok := b.getConn()
	if !ok {
		return false, fmt.Errorf("zk: lock %s: disconnected", txid)
	}
	_, err := conn.Create(b.lockPath(txid), nil, zk.FlagEphemeral, b.acl)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, zk.ErrNodeExists) {
		return false, nil
	}
	return false, fmt.Errorf("zk: lock %s: %w", txid, err)
}

// Unlock releases a previously acquired lock. A missing node (already
// expired, or raced away) is not an error.
func (b *Backend) Unlock(ctx context.Context, txid string) error {
	conn, ok := b.getConn()
	if !ok {
		return fmt.Errorf("zk: unlock %s: disconnected", txid)
	}
	err := conn.Delete(b.lockPath(txid), -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("zk: unlock %s: %w", txid, err)
	}
	return nil
}

// GetRecord fetches and decodes one live node's value, for the fold
// worker's per-node batch assembly (§4.F.1).
func (b *Backend) GetRecord(ctx context.Context, txid, step string) (journal.Record, error) {
	conn, ok := b.getConn()
	if !ok {
		return journal.Record{}, fmt.Errorf("zk: get %s/%s: disconnected", txid, step)
	}
	data, _, err := conn.Get(b.stepPath(txid, step))
	if err != nil {
		return journal.Record{}, fmt.Errorf("zk: get %s/%s: %w", txid, step, err)
	}
	return journal.Decode(data)
}

// CommitSnapshot implements the §4.F.1 atomic multi-op: create a new
// sequenced /history/sqlite-db# node holding blob, and delete every live
// node in deletePaths, in a single transaction.
func (b *Backend) CommitSnapshot(ctx context.Context, blob []byte, deletePaths []string) error {
	conn, ok := b.getConn()
	if !ok {
		return fmt.Errorf("zk: commit snapshot: disconnected")
	}
	ops := make([]interface{}, 0, 1+len(deletePaths))
	ops = append(ops, &zk.CreateRequest{
		Path:  b.historyChildPath("sqlite-db#"),
		Data:  blob,
		Acl:   b.acl,
		Flags: zk.FlagSequence,
	})
	for _, p := range deletePaths {
		ops = append(ops, &zk.DeleteRequest{Path: p, Version: -1})
	}
	responses, err := conn.Multi(ops...)
	if err != nil {
		return fmt.Errorf("zk: commit snapshot: %w", err)
	}
	for _, r := range responses {
		if r.Error != nil {
			return fmt.Errorf("zk: commit snapshot: op failed: %w", r.Error)
		}
	}
	return nil
}

// DeleteTxParent removes an emptied transaction's parent node after a
// successful fold. A NotEmpty error (a write raced in after the batch
// was built) is swallowed, per §4.F.1.
func (b *Backend) DeleteTxParent(ctx context.Context, txid string) error {
	conn, ok := b.getConn()
	if !ok {
		return fmt.Errorf("zk: delete tx %s: disconnected", txid)
	}
	err := conn.Delete(b.txPath(txid), -1)
	if err == nil || errors.Is(err, zk.ErrNoNode) || errors.Is(err, zk.ErrNotEmpty) {
		return nil
	}
	return fmt.Errorf("zk: delete tx %s: %w", txid, err)
}

// HistoryChildCTime returns the creation time of a /history child, used
// by the cleanup worker's age check (§4.I step 2).
func (b *Backend) HistoryChildCTime(ctx context.Context, name string) (time.Time, error) {
	conn, ok := b.getConn()
	if !ok {
		return time.Time{}, fmt.Errorf("zk: stat %s: disconnected", name)
	}
	_, stat, err := conn.Get(b.historyChildPath(name))
	if err != nil {
		return time.Time{}, fmt.Errorf("zk: stat %s: %w", name, err)
	}
	return time.UnixMilli(stat.Ctime), nil
}

// DeleteHistoryChild removes a folded snapshot node once it has been
// dumped and aged out (§4.I step 2). Node-gone races are not errors.
func (b *Backend) DeleteHistoryChild(ctx context.Context, name string) error {
	conn, ok := b.getConn()
	if !ok {
		return fmt.Errorf("zk: delete history %s: disconnected", name)
	}
	err := conn.Delete(b.historyChildPath(name), -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("zk: delete history %s: %w", name, err)
	}
	return nil
}

// IsLockName reports whether a root child name is a fold lock node
// (§4.F step 1: "exclude history and any names matching *_lock").
func IsLockName(name string) bool {
	return strings.HasSuffix(name, "_lock")
}

// StepPath exposes the live-node path for a (txid, step) pair to callers
// outside the package (the fold worker needs it to build the delete list
// for CommitSnapshot).
func (b *Backend) StepPath(txid, step string) string {
	return b.stepPath(txid, step)
}
