package api

import (
	"encoding/json"
	"net/http"
	"time"

	"cardscout/cardworker/logger"
	errs "cardscout/cardworker/pkg/errors"
)

// envelope is the uniform response wrapper. Success responses carry data;
// failure responses carry a message and a stable machine-readable code.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.StatusOf(err), envelope{
		Success:   false,
		Error:     err.Error(),
		Code:      string(errs.KindOf(err)),
		Timestamp: time.Now().UTC(),
	})
}

func writeErrorKind(w http.ResponseWriter, kind errs.Kind, message string) {
	writeError(w, errs.New(kind, "", message, nil))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.ForAPI().Debug().Err(err).Msg("failed to encode response")
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.NewValidation("", "invalid JSON body: "+err.Error())
	}
	return nil
}
