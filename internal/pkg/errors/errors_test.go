package errors

import (
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "invalid input")

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "invalid input" {
		t.Errorf("expected message 'invalid input', got %s", err.Message)
	}
	if len(err.Stack) == 0 {
		t.Error("expected stack trace to be captured")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "code and message",
			err:      &Error{Code: CodeNotFound, Message: "job not found"},
			expected: "[NOT_FOUND] job not found",
		},
		{
			name:     "with op",
			err:      &Error{Code: CodeInternal, Message: "boom", Op: "jobs.submit"},
			expected: "jobs.submit: [INTERNAL_ERROR] boom",
		},
		{
			name:     "with cause",
			err:      &Error{Code: CodeInternal, Message: "boom", Err: fmt.Errorf("cause")},
			expected: "[INTERNAL_ERROR] boom: cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, 400},
		{CodeNotFound, 404},
		{CodeConflict, 409},
		{CodeAlreadyExists, 409},
		{CodeTimeout, 504},
		{CodeUnavailable, 503},
		{CodeRenderFailed, 500},
		{CodeInconsistent, 500},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "test")
			if got := err.HTTPStatus(); got != tt.status {
				t.Errorf("HTTPStatus() = %d, expected %d", got, tt.status)
			}
		})
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := NotFound("job", "job-1")
	wrapped := Wrap(inner, "jobs.status", "lookup failed")

	if wrapped.Code != CodeNotFound {
		t.Errorf("expected wrapped code NOT_FOUND, got %s", wrapped.Code)
	}
	if wrapped.Op != "jobs.status" {
		t.Errorf("expected op 'jobs.status', got %s", wrapped.Op)
	}
	if !IsNotFound(wrapped) {
		t.Error("expected IsNotFound to see through the wrap")
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("disk full"), "store.put", "write failed")

	if wrapped.Code != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR for a plain cause, got %s", wrapped.Code)
	}
	if wrapped.Unwrap() == nil {
		t.Error("expected the cause to be preserved")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "op", "msg") != nil {
		t.Error("expected Wrap(nil) to be nil")
	}
	if WrapWithCode(nil, CodeConflict, "op", "msg") != nil {
		t.Error("expected WrapWithCode(nil) to be nil")
	}
}

func TestWrapWithCode(t *testing.T) {
	cause := fmt.Errorf("object not in bucket")
	err := WrapWithCode(cause, CodeInconsistent, "jobs.result", "artifact missing")

	if err.Code != CodeInconsistent {
		t.Errorf("expected STORE_INCONSISTENT, got %s", err.Code)
	}
	if !IsInconsistent(err) {
		t.Error("expected IsInconsistent to be true")
	}
	if err.HTTPStatus() != 500 {
		t.Errorf("expected 500, got %d", err.HTTPStatus())
	}
}

func TestWithField(t *testing.T) {
	err := Validation("bad payload").
		WithField("size", 0).
		WithField("reason", "empty")

	fields := GetFields(err)
	if fields["size"] != 0 {
		t.Errorf("expected size field, got %v", fields["size"])
	}
	if fields["reason"] != "empty" {
		t.Errorf("expected reason field, got %v", fields["reason"])
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		check    func(error) bool
		expected bool
	}{
		{"not found matches", NotFound("job", "x"), IsNotFound, true},
		{"validation matches", Validation("bad"), IsValidation, true},
		{"conflict matches", Conflict("not ready"), IsConflict, true},
		{"already exists is a conflict", AlreadyExists("job", "x"), IsConflict, true},
		{"inconsistent matches", Inconsistent("missing artifact"), IsInconsistent, true},
		{"plain error is none of them", fmt.Errorf("boom"), IsNotFound, false},
		{"render failed is not conflict", RenderFailed("exit 1"), IsConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.expected {
				t.Errorf("predicate = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(RenderFailed("boom")); got != CodeRenderFailed {
		t.Errorf("expected RENDER_FAILED, got %s", got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR for plain errors, got %s", got)
	}
}

func TestGetHTTPStatus(t *testing.T) {
	if got := GetHTTPStatus(Conflict("not ready")); got != 409 {
		t.Errorf("expected 409, got %d", got)
	}
	if got := GetHTTPStatus(fmt.Errorf("plain")); got != 500 {
		t.Errorf("expected 500 for plain errors, got %d", got)
	}
}
