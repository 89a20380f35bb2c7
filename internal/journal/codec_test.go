package journal

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := Record{
		RequestID:     "T1",
		TransactionID: "T1",
		Step:          "begin",
		UserID:        "u1",
		Payload:       json.RawMessage(`{"x":1}`),
		ResourcePK:    "pk1",
		Extra:         map[string]any{"tenant": "acme"},
	}
	enc, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dec.RequestID != rec.RequestID || dec.Step != rec.Step || dec.UserID != rec.UserID {
		t.Fatalf("round trip mismatch: %+v != %+v", dec, rec)
	}
	if string(dec.Payload) != string(rec.Payload) {
		t.Fatalf("payload mismatch: %s != %s", dec.Payload, rec.Payload)
	}
	if dec.ResourcePK != rec.ResourcePK {
		t.Fatalf("resourcepk mismatch: %+v != %+v", dec, rec)
	}
	if dec.Extra["tenant"] != "acme" {
		t.Fatalf("extra field lost in round trip: %+v", dec.Extra)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not zlib")); err == nil {
		t.Fatalf("expected error decoding non-zlib data")
	}
}
