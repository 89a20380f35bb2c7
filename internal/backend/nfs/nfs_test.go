package nfs

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ms-journal/journal/internal/journal"
)

func TestWriteThenStatusCommit(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	ctx := context.Background()

	begin := journal.Record{RequestID: "T1", Step: "begin", Payload: json.RawMessage(`{"x":1}`)}
	if err := b.Write(ctx, "T1", "begin", begin); err != nil {
		t.Fatalf("write begin: %v", err)
	}
	if _, code, err := b.Status(ctx, "T1"); err != nil || code != http.StatusProcessing {
		t.Fatalf("expected processing, got code=%d err=%v", code, err)
	}

	commit := journal.Record{RequestID: "T1", Step: "commit", Payload: json.RawMessage(`{"x":2}`)}
	if err := b.Write(ctx, "T1", "commit", commit); err != nil {
		t.Fatalf("write commit: %v", err)
	}
	rec, code, err := b.Status(ctx, "T1")
	if err != nil || code != http.StatusOK {
		t.Fatalf("expected OK, got code=%d err=%v", code, err)
	}
	if string(rec.Payload) != `{"x":2}` {
		t.Fatalf("unexpected payload: %s", rec.Payload)
	}
}

func TestStatusUnknownTxid(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	_, code, err := b.Status(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected unknown (0) code, got %d", code)
	}
}

func TestWriteIsIdempotentOnRewrite(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	ctx := context.Background()
	msg := journal.Record{RequestID: "T2", Step: "begin"}
	if err := b.Write(ctx, "T2", "begin", msg); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := b.Write(ctx, "T2", "begin", msg); err != nil {
		t.Fatalf("second write should also succeed: %v", err)
	}
}
