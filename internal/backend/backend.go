// Package backend defines the pluggable write/status contract shared by
// the NFS and coordination-service journal backends, and the facade that
// wires a primary and an optional secondary together with failover.
package backend

import (
	"context"
	"net/http"

	"github.com/ms-journal/journal/internal/journal"
)

// Backend is the sum-type interface behind the NFS and coordination-service
// implementations (§4.C, §9 Design Notes).
type Backend interface {
	// Write persists msg under (txid, step). It returns nil on success,
	// including the idempotent "already exists" case; any other error is
	// failover-eligible.
	Write(ctx context.Context, txid, step string, msg journal.Record) error

	// Status answers a status query. rec is nil when code is
	// StatusProcessing or StatusUnknown. code is StatusUnknown when the
	// backend has no opinion at all (as opposed to a confirmed 404),
	// matching the Python (None, None) "no answer" case that lets the
	// facade try a secondary.
	Status(ctx context.Context, txid string) (rec *journal.Record, code int, err error)
}

// StatusUnknown is the internal sentinel for "this backend has no
// opinion" — distinct from http.StatusNotFound, which is a confirmed
// answer produced only by the facade once no backend found anything.
const StatusUnknown = 0

// StatusProcessing mirrors the original http.client.PROCESSING (102):
// a begin node exists but no commit/abort yet.
const StatusProcessing = http.StatusProcessing
