package httpkit

import (
	"encoding/json"
	"net/http"

	"inkwell/internal/pkg/errors"
)

type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	_ = json.NewEncoder(w).Encode(env)
}

// WriteCodedErr maps a coded error to its HTTP status and envelope.
func WriteCodedErr(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.GetHTTPStatus(err)

	var details map[string]any
	if fields := errors.GetFields(err); len(fields) > 0 {
		details = fields
	}

	msg := err.Error()
	var coded *errors.Error
	if errors.As(err, &coded) {
		msg = coded.Message
	}

	WriteErr(w, status, string(code), msg, details)
}
