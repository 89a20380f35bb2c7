package journal

import (
	"encoding/json"
	"fmt"

	"github.com/ms-journal/journal/internal/zlibutil"
)

// Encode renders a Record as compact JSON and zlib-compresses it. This is
// the on-the-wire form stored in both live and snapshot nodes.
func Encode(r Record) ([]byte, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding journal record: %w", err)
	}
	out, err := zlibutil.Compress(buf)
	if err != nil {
		return nil, fmt.Errorf("encoding journal record: %w", err)
	}
	return out, nil
}

// Decode reverses Encode.
func Decode(data []byte) (Record, error) {
	var rec Record
	raw, err := zlibutil.Decompress(data)
	if err != nil {
		return rec, fmt.Errorf("decoding journal record: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("decoding journal record: %w", err)
	}
	return rec, nil
}
