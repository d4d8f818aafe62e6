package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veridoc/abuseguard/authority"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Endpoint: srv.URL, DefaultRemaining: 1}, srv.Client())
}

func TestCheckAllowed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req authority.CheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Action != "login" || req.Identifier != "abc_def" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(authority.CheckResponse{Allowed: true, Remaining: 3})
	})

	d, err := client.Check(context.Background(), "LOGIN", "abc_def")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Remaining != 3 {
		t.Fatalf("decision = %+v, want allowed with remaining 3", d)
	}
}

func TestCheckStructuredDenial(t *testing.T) {
	until := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(authority.CheckResponse{
			Allowed:      false,
			BlockedUntil: until.Format(time.RFC3339),
			Message:      "slow down",
		})
	})

	d, err := client.Check(context.Background(), "login", "id")
	if err != nil {
		t.Fatalf("explicit denial must not be an error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denied")
	}
	if !d.BlockedUntil.Equal(until) {
		t.Fatalf("blockedUntil = %v, want %v", d.BlockedUntil, until)
	}
	if d.Message != "slow down" {
		t.Fatalf("message = %q", d.Message)
	}
}

func TestCheckDenialWithoutDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(authority.CheckResponse{Allowed: false})
	})

	d, err := client.Check(context.Background(), "login", "id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denied")
	}
	if !d.BlockedUntil.IsZero() {
		t.Fatal("no deadline supplied, BlockedUntil must stay zero")
	}
	if d.Message == "" {
		t.Fatal("expected default denial message")
	}
}

func TestCheckTooManyRequestsWithUnreadableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("nope"))
	})

	d, err := client.Check(context.Background(), "login", "id")
	if err != nil {
		t.Fatalf("429 stands even with a bad payload: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denied")
	}
}

func TestCheckFailsOpenOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // dead endpoint

	client := New(Config{Endpoint: srv.URL, DefaultRemaining: 2}, nil)

	d, err := client.Check(context.Background(), "login", "id")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Fatalf("fail-open decision = %+v", d)
	}
}

func TestCheckFailsOpenOnUnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	d, err := client.Check(context.Background(), "login", "id")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected fail-open allow")
	}
}

func TestCheckFailsOpenOnMalformedAllowedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{broken"))
	})

	d, err := client.Check(context.Background(), "login", "id")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected fail-open allow")
	}
}

func TestRecordOutcomePayload(t *testing.T) {
	var got authority.CheckRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.RecordOutcome(context.Background(), "Login", "id", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Record || !got.Success || got.Action != "login" || got.Identifier != "id" {
		t.Fatalf("request = %+v", got)
	}
}

func TestRecordOutcomeErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if err := client.RecordOutcome(context.Background(), "login", "id", false); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
