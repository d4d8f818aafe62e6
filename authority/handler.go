package authority

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const maxRequestBody = 4 << 10

// Handler serves the wire contract over HTTP. Check requests answer 200
// with an allowed body or 429 with the denial payload; record requests
// answer 204. Backend failures answer 503 so clients can distinguish an
// authoritative denial from an authority outage.
type Handler struct {
	limiter Limiter
}

// NewHandler wraps a limiter in the wire contract.
func NewHandler(limiter Limiter) *Handler {
	return &Handler{limiter: limiter}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	if req.Action == "" || req.Identifier == "" {
		http.Error(w, "action and identifier required", http.StatusBadRequest)
		return
	}

	if req.Record {
		h.record(w, r, req)
		return
	}

	verdict, err := h.limiter.Allow(r.Context(), req.Action, req.Identifier)
	if err != nil {
		http.Error(w, "rate limit backend unavailable", http.StatusServiceUnavailable)
		return
	}

	if !verdict.Allowed {
		writeJSON(w, http.StatusTooManyRequests, CheckResponse{
			Allowed:      false,
			Remaining:    0,
			BlockedUntil: verdict.BlockedUntil.UTC().Format(time.RFC3339),
			Message:      "too many requests",
		})
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{
		Allowed:   true,
		Remaining: verdict.Remaining,
	})
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, req CheckRequest) {
	if err := h.limiter.RecordOutcome(r.Context(), req.Action, req.Identifier, req.Success); err != nil {
		http.Error(w, "rate limit backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body CheckResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
