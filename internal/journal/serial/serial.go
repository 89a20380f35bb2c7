// Package serial implements RFC-1982-style serial-number arithmetic over
// the coordination service's 32-bit, possibly-wrapping sequence IDs.
package serial

import (
	"regexp"
	"strconv"
)

// serialBits is the width of the wrapping counter. H = 2^(serialBits-1)
// is the half-range used to decide which way the wraparound goes.
const serialBits = 32

const half = 1 << (serialBits - 1)

// Compare implements the ordering from §4.A. Either id may be "" to mean
// absent; an absent id sorts before a present one.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr != nil || berr != nil {
		// Malformed sequence strings never occur in practice (the
		// coordination service only ever hands back its own
		// assigned integers); fall back to a stable lexical order
		// rather than panicking on garbage input.
		if a < b {
			return -1
		}
		return 1
	}
	if ai == bi {
		return 0
	}
	if (ai < bi && bi-ai < half) || (ai > bi && ai-bi > half) {
		return -1
	}
	return 1
}

var nodeNameRE = regexp.MustCompile(`^sqlite-db#(-?\d+)$`)

// SeqOf extracts the sequence id embedded in a "sqlite-db#<seq>" node
// name, or "" if the name doesn't match.
func SeqOf(nodeName string) string {
	m := nodeNameRE.FindStringSubmatch(nodeName)
	if m == nil {
		return ""
	}
	return m[1]
}

// CompareEntries orders two full snapshot node names ("sqlite-db#<seq>")
// the way entry_cmp did in the original implementation.
func CompareEntries(a, b string) int {
	return Compare(SeqOf(a), SeqOf(b))
}
