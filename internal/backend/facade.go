package backend

import (
	"context"
	"net/http"

	"github.com/ms-journal/journal/internal/journal"
)

// Facade wires a primary and an optional secondary backend together and
// implements the failover policy described in §4.K. It owns both
// backends by value; callers get one from config.Build and never touch
// the underlying NFS/coordination types directly.
type Facade struct {
	Primary   Backend
	Secondary Backend
}

// Write tries the primary first; on failure (or if no primary is
// configured) it fails over to the secondary, exactly as mjournal.py's
// Journal.write does. The duplication this creates across backends on
// failover is accepted (§1 Non-goals) and reconciled later by resync.
func (f *Facade) Write(ctx context.Context, txid, step string, msg journal.Record) error {
	var err error
	if f.Primary != nil {
		err = f.Primary.Write(ctx, txid, step, msg)
	} else {
		err = errNoPrimary
	}
	if err != nil && f.Secondary != nil {
		err = f.Secondary.Write(ctx, txid, step, msg)
	}
	return err
}

var errNoPrimary = &notConfiguredError{"primary"}

type notConfiguredError struct{ which string }

func (e *notConfiguredError) Error() string { return e.which + " backend not configured" }

// Status asks the primary, falls over to the secondary on "no answer",
// and finally collapses an unresolved query into the 404 contract from
// §6, matching mjournal.py's Journal.status.
func (f *Facade) Status(ctx context.Context, txid string) (*journal.Record, int, error) {
	var (
		rec  *journal.Record
		code int
	)
	if f.Primary != nil {
		var err error
		rec, code, err = f.Primary.Status(ctx, txid)
		if err != nil {
			code = StatusUnknown
		}
	}
	if code == StatusUnknown && f.Secondary != nil {
		var err error
		rec, code, err = f.Secondary.Status(ctx, txid)
		if err != nil {
			code = StatusUnknown
		}
	}
	if code == StatusUnknown {
		return taskNotFound()
	}
	if code == StatusProcessing {
		return taskInProgress()
	}
	return rec, code, nil
}

func taskNotFound() (*journal.Record, int, error) {
	return nil, http.StatusNotFound, nil
}

func taskInProgress() (*journal.Record, int, error) {
	return nil, StatusProcessing, nil
}
