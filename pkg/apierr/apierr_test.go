package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type upstreamErr struct {
	status int
}

func (u upstreamErr) Error() string { return fmt.Sprintf("upstream %d", u.status) }

func (u upstreamErr) Upstream() (string, int, string) { return "gateway", u.status, "boom" }

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		retryable bool
		http      int
	}{
		{429, CodeRateLimited, true, 429},
		{402, CodePaymentRequired, false, 402},
		{400, CodeUpstreamRejected, false, 502},
		{404, CodeUpstreamRejected, false, 502},
		{500, CodeUpstreamUnavailable, false, 502},
		{503, CodeUpstreamUnavailable, false, 502},
	}
	for _, tt := range tests {
		e := FromStatus("gateway", tt.status, "")
		if e.Code != tt.code {
			t.Errorf("%d: expected code %s, got %s", tt.status, tt.code, e.Code)
		}
		if e.Retryable != tt.retryable {
			t.Errorf("%d: expected retryable=%v, got %v", tt.status, tt.retryable, e.Retryable)
		}
		if e.HTTPStatus != tt.http {
			t.Errorf("%d: expected http %d, got %d", tt.status, tt.http, e.HTTPStatus)
		}
		if e.Status != StatusFailed {
			t.Errorf("%d: expected status failed, got %s", tt.status, e.Status)
		}
	}
}

func TestFromWrappedUpstream(t *testing.T) {
	err := fmt.Errorf("generate slides: %w", upstreamErr{status: 429})
	e := From(err)
	if e.Code != CodeRateLimited || !e.Retryable {
		t.Errorf("expected retryable rate_limited, got %+v", e)
	}
	if !errors.Is(e, err) {
		t.Error("expected original error to be preserved")
	}
}

func TestFromPassesThrough(t *testing.T) {
	orig := Invalid("script is required")
	if got := From(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("expected the same *Error, got %+v", got)
	}
}

func TestFromCanceled(t *testing.T) {
	e := From(context.Canceled)
	if e.Code != CodeCanceled {
		t.Errorf("expected canceled, got %s", e.Code)
	}
}

func TestFromUnknown(t *testing.T) {
	e := From(errors.New("disk full"))
	if e.Code != CodeInternal || e.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected internal 500, got %+v", e)
	}
}

func TestWriteEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, FromStatus("gateway", 402, ""))

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", w.Code)
	}
	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env["status"] != "failed" {
		t.Errorf("expected status failed, got %v", env["status"])
	}
	if env["code"] != CodePaymentRequired {
		t.Errorf("expected payment_required, got %v", env["code"])
	}
	if _, ok := env["retryable"]; ok {
		t.Error("terminal errors should omit retryable")
	}
}

func TestWriteValidation(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, Invalid("numSlides must be positive"))

	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusBadRequest || env.Status != StatusError {
		t.Errorf("expected 400 error envelope, got %d %+v", w.Code, env)
	}
	if env.Error != "numSlides must be positive" {
		t.Errorf("unexpected message: %s", env.Error)
	}
}
