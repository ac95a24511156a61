package httpkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkwell/internal/pkg/errors"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`))
		var p payload
		if err := DecodeJSON(req, &p); err != nil {
			t.Fatalf("DecodeJSON failed: %v", err)
		}
		if p.Name != "x" {
			t.Errorf("expected name 'x', got %q", p.Name)
		}
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","bogus":1}`))
		var p payload
		if err := DecodeJSON(req, &p); err == nil {
			t.Error("expected unknown fields to be rejected")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{not json`))
		var p payload
		if err := DecodeJSON(req, &p); err == nil {
			t.Error("expected a decode error")
		}
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 201, map[string]string{"id": "abc"})

	if rec.Code != 201 {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["id"] != "abc" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestWriteCodedErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		msgContain string
	}{
		{
			name:       "validation",
			err:        errors.Validation("empty payload"),
			status:     400,
			code:       "VALIDATION_ERROR",
			msgContain: "empty payload",
		},
		{
			name:       "not found",
			err:        errors.NotFound("job", "job-1"),
			status:     404,
			code:       "NOT_FOUND",
			msgContain: "job not found",
		},
		{
			name:       "conflict",
			err:        errors.Conflict("job not ready (status=QUEUED)"),
			status:     409,
			code:       "CONFLICT",
			msgContain: "not ready",
		},
		{
			name:       "inconsistent",
			err:        errors.Inconsistent("job is done but no artifact is recorded"),
			status:     500,
			code:       "STORE_INCONSISTENT",
			msgContain: "no artifact",
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("something broke"),
			status:     500,
			code:       "INTERNAL_ERROR",
			msgContain: "something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteCodedErr(rec, tt.err)

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}

			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("invalid envelope: %v", err)
			}
			if env.Error.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, env.Error.Code)
			}
			if !strings.Contains(env.Error.Message, tt.msgContain) {
				t.Errorf("expected message containing %q, got %q", tt.msgContain, env.Error.Message)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(CORSOptions{
		AllowedOrigins: []string{"http://localhost:5173"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("expected the origin echoed, got %q", got)
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no CORS headers, got %q", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204 for preflight, got %d", rec.Code)
		}
	})
}
