// Package snapshot implements the in-memory SQLite table the fold worker
// folds live nodes into, plus the dump/load/query helpers the fold,
// history-cache and CSV-dump components share (§3 "Snapshot table
// schema", §4.F.1, §4.G, §4.H). It is grounded on the teacher's own
// sqlite storage layer (internal/storage/sqlite/schema.go), using the
// same driver (github.com/ncruces/go-sqlite3) and Exec(multiStatement)
// idiom, repurposed here for a throwaway in-memory snapshot DB instead
// of a durable on-disk store.
package snapshot

import (
	"database/sql"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS journal (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	date           TEXT,
	authuser_id    TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	as_role        TEXT,
	request_id     TEXT NOT NULL,
	transaction_id TEXT NOT NULL,
	step           TEXT NOT NULL,
	host           TEXT NOT NULL,
	resource       TEXT NOT NULL,
	resourcegroup  TEXT NOT NULL,
	verb           TEXT NOT NULL,
	resourcepk     TEXT,
	payload        TEXT,
	cm             TEXT,
	UNIQUE(request_id, step)
)`

const insertSQL = `INSERT INTO journal (
	host, authuser_id, user_id, date,
	request_id, transaction_id,
	step, as_role,
	resourcegroup, resource, verb, resourcepk,
	payload, cm
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectByTxStepSQL = `SELECT host, authuser_id, user_id, date,
	request_id, transaction_id, step, as_role,
	resourcegroup, resource, verb, resourcepk, payload, cm
	FROM journal WHERE request_id = ? AND step = ?`

const selectAllSQL = `SELECT host, authuser_id, user_id, date,
	request_id, transaction_id, step, as_role,
	resourcegroup, resource, verb, resourcepk, payload, cm
	FROM journal`

// CSVColumns is the export header row from §3 ("CSV export"), already in
// the renamed as_role→role / resourcepk→pk order with resourcegroup
// dropped.
var CSVColumns = []string{
	"transaction_id", "request_id", "step", "host", "resource", "verb",
	"pk", "date", "user_id", "authuser_id", "role", "cm", "payload",
}

// openMemory opens a throwaway in-memory database for a single
// snapshot's lifetime.
func openMemory() (*sql.DB, error) {
	return sql.Open("sqlite3", ":memory:")
}
