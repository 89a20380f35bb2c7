package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ms-journal/journal/internal/zlibutil"
)

// ErrIntegrity signals the batch-insert failure from §4.F.2: the fold
// worker must silently abandon this snapshot (no transaction, no
// deletes) and let the offending live nodes retry next cycle.
var ErrIntegrity = errors.New("snapshot: integrity violation building batch")

// Build assembles rows into a fresh in-memory table, inserting them in
// one batch exactly like _fold_sqlite_data, then serializes the table to
// a compressed SQL script ready to upload as a snapshot node's value.
//
// Any insert failure (e.g. two rows sharing a (request_id, step) pair)
// returns ErrIntegrity and the caller must treat the whole batch as
// failed, per §4.F.2.
func Build(ctx context.Context, rows []Row) ([]byte, error) {
	db, err := openMemory()
	if err != nil {
		return nil, fmt.Errorf("snapshot build: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("snapshot build: creating table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot build: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, insertSQL,
			row.Host, row.AuthUserID, row.UserID, row.Date,
			row.RequestID, row.TransactionID, row.Step, row.AsRole,
			row.ResourceGroup, row.Resource, row.Verb, row.ResourcePK,
			row.Payload, row.CM,
		); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	script, err := dumpScript(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("snapshot build: dumping: %w", err)
	}
	compressed, err := zlibutil.Compress([]byte(script))
	if err != nil {
		return nil, fmt.Errorf("snapshot build: %w", err)
	}
	return compressed, nil
}

// dumpScript renders the table's current contents as a small,
// self-contained SQL script (CREATE TABLE + one INSERT per row,
// preserving the autoincrement id), the Go analogue of
// sqlite3.Connection.iterdump().
func dumpScript(ctx context.Context, db *sql.DB) (string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, `+strings.Join([]string{
		"host", "authuser_id", "user_id", "date", "request_id",
		"transaction_id", "step", "as_role", "resourcegroup", "resource",
		"verb", "resourcepk", "payload", "cm",
	}, ", ")+` FROM journal ORDER BY id`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(createTableSQL)
	b.WriteString(";\n")
	for rows.Next() {
		var (
			id                                                                     int64
			host, authUserID, userID, date, requestID, transactionID, step        string
			asRole, resourceGroup, resource, verb, resourcePK, payload, cm         sql.NullString
		)
		if err := rows.Scan(&id, &host, &authUserID, &userID, &date, &requestID,
			&transactionID, &step, &asRole, &resourceGroup, &resource, &verb,
			&resourcePK, &payload, &cm); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "INSERT INTO journal (id, host, authuser_id, user_id, date, request_id, transaction_id, step, as_role, resourcegroup, resource, verb, resourcepk, payload, cm) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s);\n",
			strconv.FormatInt(id, 10),
			sqlQuote(host), sqlQuote(authUserID), sqlQuote(userID), sqlQuote(date),
			sqlQuote(requestID), sqlQuote(transactionID), sqlQuote(step),
			nullQuote(asRole), nullQuote(resourceGroup), nullQuote(resource),
			nullQuote(verb), nullQuote(resourcePK), nullQuote(payload), nullQuote(cm))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func sqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func nullQuote(s sql.NullString) string {
	if !s.Valid {
		return "NULL"
	}
	return sqlQuote(s.String)
}
