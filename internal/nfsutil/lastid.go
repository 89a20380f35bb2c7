// Package nfsutil holds small filesystem helpers shared by the dump and
// cleanup workers: scanning the NFS export directory for the
// highest-numbered exported snapshot, the Go analogue of
// zkjournal.py's _getlastid.
package nfsutil

import (
	"os"
	"regexp"

	"github.com/ms-journal/journal/internal/journal/serial"
)

// LastID scans dir for entries matching pattern (which must have exactly
// one capturing group yielding the snapshot's sequence number) and
// returns the sequence with the greatest serial.Compare value. ok is
// false when no entry matched, the "lastid = null" case.
//
// _getlastid compares candidates as plain integers rather than
// RFC-1982 serial numbers; using serial.Compare here is a deliberate
// divergence so a wrapped sequence counter still picks the right
// "latest" file, at the cost of being unable to distinguish a true
// wraparound from an out-of-order file name within one window.
func LastID(dir string, pattern *regexp.Regexp) (seq string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if len(m) < 2 {
			continue
		}
		candidate := m[1]
		if !ok || serial.Compare(candidate, seq) > 0 {
			seq = candidate
			ok = true
		}
	}
	return seq, ok, nil
}

// DefaultPattern matches "<anything>#<seq>.csv" or "...csv.gz", the
// naming convention dump.go writes (§4.H step 4a).
func DefaultPattern() *regexp.Regexp {
	return regexp.MustCompile(`#(-?\d+)\.csv(?:\.gz)?$`)
}
