// Package remote bridges the local limiter to the authoritative
// server-side limiter. One synchronous call per check, no retry: an
// unreachable or misbehaving authority is a terminal fail-open outcome
// for that check, while an explicit denial is authoritative and must be
// written back into local state by the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veridoc/abuseguard/authority"
	"github.com/veridoc/abuseguard/internal/window"
)

// ErrUnavailable reports a transport fault: network error, non-contract
// status, or malformed payload. The decision returned alongside it is the
// fail-open default.
var ErrUnavailable = errors.New("remote authority unavailable")

const (
	defaultTimeout  = 5 * time.Second
	maxResponseBody = 4 << 10
	failOpenMessage = "verification unavailable, allowing action"
	deniedMessage   = "too many requests"
)

// Config tunes the bridge client.
type Config struct {
	// Endpoint is the authority check URL.
	Endpoint string

	// Timeout bounds the single outbound request. Zero means the
	// default of 5s.
	Timeout time.Duration

	// DefaultRemaining is the conservative remaining reported on
	// fail-open outcomes.
	DefaultRemaining int
}

// Client issues wire-contract calls against the remote authority.
type Client struct {
	http   *http.Client
	config Config
}

// New creates a bridge client. A nil httpClient gets a dedicated client
// with the configured timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:   httpClient,
		config: cfg,
	}
}

// Check consults the authority for one attempt. The action is normalized
// to its canonical lowercase form before hitting the wire.
//
// Outcomes:
//   - allowed: Decision{Allowed:true} carrying the remote remaining, nil error.
//   - explicit denial (structured body or 429): a blocked Decision, nil
//     error. BlockedUntil is zero when the authority did not supply one;
//     the caller substitutes its local block duration.
//   - anything else: fail-open Decision and ErrUnavailable.
func (c *Client) Check(ctx context.Context, action, identifier string) (window.Decision, error) {
	resp, err := c.post(ctx, authority.CheckRequest{
		Action:     strings.ToLower(action),
		Identifier: identifier,
	})
	if err != nil {
		return failOpen(c.config.DefaultRemaining), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusTooManyRequests:
		body, err := decodeBody(resp.Body)
		if err != nil {
			if resp.StatusCode == http.StatusTooManyRequests {
				// The transport-level denial stands even when the
				// payload is unreadable.
				return denial(authority.CheckResponse{}), nil
			}
			return failOpen(c.config.DefaultRemaining), fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || !body.Allowed {
			return denial(body), nil
		}
		return window.Decision{
			Allowed:   true,
			Remaining: body.Remaining,
			Message:   body.Message,
		}, nil

	default:
		return failOpen(c.config.DefaultRemaining),
			fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}

// RecordOutcome notifies the authority of a guarded action's final
// outcome. Best effort: callers log and swallow the returned error.
func (c *Client) RecordOutcome(ctx context.Context, action, identifier string, success bool) error {
	resp, err := c.post(ctx, authority.CheckRequest{
		Action:     strings.ToLower(action),
		Identifier: identifier,
		Record:     true,
		Success:    success,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, req authority.CheckRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.http.Do(httpReq)
}

func decodeBody(r io.Reader) (authority.CheckResponse, error) {
	var body authority.CheckResponse
	err := json.NewDecoder(io.LimitReader(r, maxResponseBody)).Decode(&body)
	return body, err
}

func denial(body authority.CheckResponse) window.Decision {
	d := window.Decision{
		Allowed:   false,
		Remaining: 0,
		Message:   body.Message,
	}
	if d.Message == "" {
		d.Message = deniedMessage
	}
	if body.BlockedUntil != "" {
		if until, err := time.Parse(time.RFC3339, body.BlockedUntil); err == nil {
			d.BlockedUntil = until
			d.ResetAt = until
		}
	}
	return d
}

func failOpen(remaining int) window.Decision {
	return window.Decision{
		Allowed:   true,
		Remaining: remaining,
		Message:   failOpenMessage,
	}
}
