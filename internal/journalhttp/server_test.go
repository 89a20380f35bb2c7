package journalhttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ms-journal/journal/internal/backend"
	"github.com/ms-journal/journal/internal/backend/nfs"
)

func TestWriteThenStatusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := &backend.Facade{Primary: nfs.New(dir)}
	mux := NewServer(f, nil)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/T1/commit", bytes.NewBufferString(`{"request_id":"T1","step":"commit"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/status/T1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWriteRejectsNonJSON(t *testing.T) {
	dir := t.TempDir()
	f := &backend.Facade{Primary: nfs.New(dir)}
	mux := NewServer(f, nil)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/T1/begin", "text/plain", bytes.NewBufferString("not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStatusUnknownReturns404(t *testing.T) {
	dir := t.TempDir()
	f := &backend.Facade{Primary: nfs.New(dir)}
	mux := NewServer(f, nil)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status/unknown")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
