// Package nfs implements the journal Backend contract on top of a shared
// filesystem directory (§4.D). Writes land as one file per (txid, step);
// status is answered by probing for commit/abort/begin files.
package nfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ms-journal/journal/internal/journal"
)

// Backend persists journal records as files under Dir, one per (txid,
// step), named "<txid>_<step>".
type Backend struct {
	Dir string
}

// New returns an NFS-backed journal rooted at dir.
func New(dir string) *Backend {
	return &Backend{Dir: dir}
}

func fileName(txid, step string) string {
	return fmt.Sprintf("%s_%s", txid, step)
}

// Write creates a uniquely-named temp file in Dir, writes the JSON
// record into it, then renames it atomically onto the target file. Any
// I/O error is failover-eligible (§4.D, §7).
func (b *Backend) Write(_ context.Context, txid, step string, msg journal.Record) error {
	target := filepath.Join(b.Dir, fileName(txid, step))
	tmp, err := os.CreateTemp(b.Dir, "*-XXXXX.tmp")
	if err != nil {
		return fmt.Errorf("nfs backend: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	enc := json.NewEncoder(tmp)
	if err := enc.Encode(msg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("nfs backend: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("nfs backend: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("nfs backend: renaming temp file: %w", err)
	}
	return nil
}

// Status probes <txid>_commit, then <txid>_abort, then <txid>_begin, in
// that order, per §4.D.
func (b *Backend) Status(_ context.Context, txid string) (*journal.Record, int, error) {
	for _, step := range []string{"commit", "abort"} {
		data, err := os.ReadFile(filepath.Join(b.Dir, fileName(txid, step)))
		if err == nil {
			var rec journal.Record
			if jerr := json.Unmarshal(data, &rec); jerr != nil {
				return nil, 0, fmt.Errorf("nfs backend: decoding %s status: %w", step, jerr)
			}
			return &rec, http.StatusOK, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("nfs backend: reading %s status: %w", step, err)
		}
	}
	if _, err := os.Stat(filepath.Join(b.Dir, fileName(txid, "begin"))); err == nil {
		return nil, http.StatusProcessing, nil
	}
	return nil, 0, nil
}
