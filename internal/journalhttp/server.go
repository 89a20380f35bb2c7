// Package journalhttp implements the HTTP surface from §6: a minimal
// write/status API consumed by an external dispatcher. It is the one
// ambient component with no natural home in the teacher's own stack (the
// teacher talks to its daemon over a unix-socket JSON-RPC protocol,
// internal/rpc, not HTTP) so it is built on stdlib net/http and the
// Go 1.22+ ServeMux method/path patterns rather than importing a router
// library neither the teacher nor the rest of the pack reaches for.
package journalhttp

import (
	"encoding/json"
	"net/http"

	"github.com/ms-journal/journal/internal/backend"
	"github.com/ms-journal/journal/internal/jlog"
	"github.com/ms-journal/journal/internal/journal"
)

// NewServer builds the HTTP handler tree from §6 over f.
func NewServer(f *backend.Facade, log *jlog.Logger) *http.ServeMux {
	if log == nil {
		log = jlog.Nop()
	}
	h := &handler{facade: f, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{txid}/{step}", h.handleWrite)
	mux.HandleFunc("GET /status/{txid}", h.handleStatus)
	return mux
}

type handler struct {
	facade *backend.Facade
	log    *jlog.Logger
}

func (h *handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	txid := r.PathValue("txid")
	step := r.PathValue("step")

	ct := r.Header.Get("Content-Type")
	if ct != "application/json" && ct != "application/json; charset=utf-8" {
		http.Error(w, `{"message":"expected application/json body"}`, http.StatusBadRequest)
		return
	}

	var msg journal.Record
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, `{"message":"invalid json body"}`, http.StatusBadRequest)
		return
	}

	if err := h.facade.Write(r.Context(), txid, step, msg); err != nil {
		h.log.Warn("journalhttp: write failed", "txid", txid, "step", step, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Unsaved Journal entry -- " + txid + "##" + step,
		})
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	txid := r.PathValue("txid")
	rec, code, err := h.facade.Status(r.Context(), txid)
	if err != nil {
		h.log.Warn("journalhttp: status failed", "txid", txid, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}
	switch code {
	case http.StatusOK:
		writeJSON(w, http.StatusOK, map[string]any{"status": rec})
	case http.StatusProcessing:
		writeJSON(w, http.StatusProcessing, map[string]string{"status": "Task in progress"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "Task not found"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
