// Package journal defines the transaction record shape shared by every
// backend, the fold worker, the history cache, and the CSV exporter.
package journal

import (
	"encoding/json"
	"fmt"
)

// Record is a single (txid, step) journal entry. The fields mirror the
// recognized keys of the message body; anything else the caller sends
// round-trips through Extra so it survives encode/decode and status
// queries even though the engine never looks at it.
type Record struct {
	RequestID     string          `json:"request_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Step          string          `json:"step"`
	UserID        string          `json:"user_id,omitempty"`
	AuthUserID    string          `json:"authuser_id,omitempty"`
	AsRole        string          `json:"as_role,omitempty"`
	Host          string          `json:"host,omitempty"`
	Resource      string          `json:"resource,omitempty"`
	ResourceGroup string          `json:"resourcegroup,omitempty"`
	Verb          string          `json:"verb,omitempty"`
	ResourcePK    string          `json:"resourcepk,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CM            string          `json:"cm,omitempty"`
	Date          string          `json:"date,omitempty"`

	Extra map[string]any `json:"-"`
}

// recognized lists the JSON keys that have a dedicated struct field, so
// MarshalJSON/UnmarshalJSON know which keys belong in Extra instead.
var recognized = map[string]bool{
	"request_id": true, "transaction_id": true, "step": true,
	"user_id": true, "authuser_id": true, "as_role": true, "role": true,
	"host": true, "resource": true, "resourcegroup": true, "verb": true,
	"resourcepk": true, "payload": true, "cm": true, "date": true,
}

// MarshalJSON flattens Extra alongside the recognized fields so the wire
// format is a single flat JSON object, matching what Python's
// json.dumps(msg) on a dict produced.
func (r Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	for k, v := range r.Extra {
		out[k] = v
	}
	if r.RequestID != "" {
		out["request_id"] = r.RequestID
	}
	if r.TransactionID != "" {
		out["transaction_id"] = r.TransactionID
	}
	if r.Step != "" {
		out["step"] = r.Step
	}
	if r.UserID != "" {
		out["user_id"] = r.UserID
	}
	if r.AuthUserID != "" {
		out["authuser_id"] = r.AuthUserID
	}
	if r.AsRole != "" {
		out["as_role"] = r.AsRole
	}
	if r.Host != "" {
		out["host"] = r.Host
	}
	if r.Resource != "" {
		out["resource"] = r.Resource
	}
	if r.ResourceGroup != "" {
		out["resourcegroup"] = r.ResourceGroup
	}
	if r.Verb != "" {
		out["verb"] = r.Verb
	}
	if r.ResourcePK != "" {
		out["resourcepk"] = r.ResourcePK
	}
	if len(r.Payload) > 0 {
		out["payload"] = json.RawMessage(r.Payload)
	}
	if r.CM != "" {
		out["cm"] = r.CM
	}
	if r.Date != "" {
		out["date"] = r.Date
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object, lifting recognized keys into
// their struct fields and stashing the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding journal record: %w", err)
	}
	r.Extra = map[string]any{}
	for k, v := range raw {
		if !recognized[k] {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("decoding journal record field %q: %w", k, err)
			}
			r.Extra[k] = val
			continue
		}
		var s string
		switch k {
		case "request_id":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.RequestID = s
		case "transaction_id":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.TransactionID = s
		case "step":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Step = s
		case "user_id":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.UserID = s
		case "authuser_id":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.AuthUserID = s
		case "as_role", "role":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.AsRole = s
		case "host":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Host = s
		case "resource":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Resource = s
		case "resourcegroup":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.ResourceGroup = s
		case "verb":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Verb = s
		case "resourcepk":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.ResourcePK = s
		case "payload":
			r.Payload = append([]byte(nil), v...)
		case "cm":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.CM = s
		case "date":
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Date = s
		}
	}
	return nil
}
