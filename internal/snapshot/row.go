package snapshot

import (
	"encoding/json"

	"github.com/ms-journal/journal/internal/journal"
)

// Row is one (txid, step) record in column order, the Go shape of the
// tuple _create_sqlite assembled before the batch insert.
type Row struct {
	Host          string
	AuthUserID    string
	UserID        string
	Date          string
	RequestID     string
	TransactionID string
	Step          string
	AsRole        string
	ResourceGroup string
	Resource      string
	Verb          string
	ResourcePK    string
	Payload       string // JSON text, as stored in the payload column
	CM            string
}

// RowFromRecord builds a Row from a decoded live-node Record, the same
// field mapping _create_sqlite used (data_dict.get(...) for every
// column, json.dumps(payload) for the payload column).
func RowFromRecord(r journal.Record) Row {
	payload := "null"
	if len(r.Payload) > 0 {
		payload = string(r.Payload)
	}
	return Row{
		Host:          r.Host,
		AuthUserID:    r.AuthUserID,
		UserID:        r.UserID,
		Date:          r.Date,
		RequestID:     r.RequestID,
		TransactionID: r.TransactionID,
		Step:          r.Step,
		AsRole:        r.AsRole,
		ResourceGroup: r.ResourceGroup,
		Resource:      r.Resource,
		Verb:          r.Verb,
		ResourcePK:    r.ResourcePK,
		Payload:       payload,
		CM:            r.CM,
	}
}

// ToRecord converts a Row read back out of a snapshot into a Record for
// status responses.
func (row Row) ToRecord() journal.Record {
	return journal.Record{
		RequestID:     row.RequestID,
		TransactionID: row.TransactionID,
		Step:          row.Step,
		UserID:        row.UserID,
		AuthUserID:    row.AuthUserID,
		AsRole:        row.AsRole,
		Host:          row.Host,
		Resource:      row.Resource,
		ResourceGroup: row.ResourceGroup,
		Verb:          row.Verb,
		ResourcePK:    row.ResourcePK,
		Payload:       json.RawMessage(row.Payload),
		CM:            row.CM,
		Date:          row.Date,
	}
}
