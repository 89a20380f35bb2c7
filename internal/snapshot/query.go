package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/ms-journal/journal/internal/journal"
	"github.com/ms-journal/journal/internal/zlibutil"
)

// Load decompresses a snapshot blob and executes it against a fresh
// in-memory database, the Go analogue of
// conn.executescript(zlib.decompress(data).decode()).
func Load(ctx context.Context, blob []byte) (*sql.DB, error) {
	script, err := zlibutil.Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	db, err := openMemory()
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot load: executing script: %w", err)
	}
	return db, nil
}

func scanRow(row *sql.Row) (Row, error) {
	var r Row
	if err := row.Scan(&r.Host, &r.AuthUserID, &r.UserID, &r.Date,
		&r.RequestID, &r.TransactionID, &r.Step, &r.AsRole,
		&r.ResourceGroup, &r.Resource, &r.Verb, &r.ResourcePK,
		&r.Payload, &r.CM); err != nil {
		return r, err
	}
	return r, nil
}

// QueryStatus implements the per-blob lookup from §4.G step 1: commit,
// then abort, then begin, in that priority order, against one loaded
// snapshot database.
func QueryStatus(ctx context.Context, db *sql.DB, txid string) (*journal.Record, int, error) {
	for _, step := range []string{"commit", "abort"} {
		row := db.QueryRowContext(ctx, selectByTxStepSQL, txid, step)
		r, err := scanRow(row)
		if err == nil {
			rec := r.ToRecord()
			return &rec, http.StatusOK, nil
		}
		if err != sql.ErrNoRows {
			return nil, 0, fmt.Errorf("snapshot query: %w", err)
		}
	}
	row := db.QueryRowContext(ctx, selectByTxStepSQL, txid, "begin")
	if _, err := scanRow(row); err == nil {
		return nil, http.StatusProcessing, nil
	} else if err != sql.ErrNoRows {
		return nil, 0, fmt.Errorf("snapshot query: %w", err)
	}
	return nil, 0, nil
}

// SelectAll returns every row in insertion (id) order, used by the CSV
// dump worker (§4.H).
func SelectAll(ctx context.Context, db *sql.DB) ([]Row, error) {
	rows, err := db.QueryContext(ctx, selectAllSQL+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("snapshot select all: %w", err)
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Host, &r.AuthUserID, &r.UserID, &r.Date,
			&r.RequestID, &r.TransactionID, &r.Step, &r.AsRole,
			&r.ResourceGroup, &r.Resource, &r.Verb, &r.ResourcePK,
			&r.Payload, &r.CM); err != nil {
			return nil, fmt.Errorf("snapshot select all: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot select all: %w", err)
	}
	return out, nil
}
