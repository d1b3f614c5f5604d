package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/solindex-labs/solindex/pkg/dispatch"
	"github.com/solindex-labs/solindex/pkg/event"
	"go.uber.org/zap"
)

const maxWebhookBody = 10 << 20 // 10 MiB

// EventOutcome is the per-event section of a webhook response.
type EventOutcome struct {
	Signature  string            `json:"signature,omitempty"`
	Type       string            `json:"type,omitempty"`
	Accepted   bool              `json:"accepted"`
	Error      string            `json:"error,omitempty"`
	Deliveries []dispatch.Result `json:"deliveries,omitempty"`
}

// ValidateWebhookSecret checks the shared-secret bearer token configured for
// the webhook provider. An empty configured secret disables the check.
func (c *Controller) ValidateWebhookSecret(r *http.Request) bool {
	if c.WebhookSecret == "" {
		return true
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ") == c.WebhookSecret
	}
	// Some providers send the raw secret without a scheme.
	return authHeader == c.WebhookSecret
}

// HandleWebhook ingests a webhook delivery: a JSON array of transaction
// envelopes (a bare object is accepted as a one-element array). Each event
// is validated and dispatched independently; the response itemizes the
// outcome per event. The request fails wholesale only when nothing in it
// could be accepted.
func (c *Controller) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if !c.ValidateWebhookSecret(r) {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	envelopes, err := splitEnvelopes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	if len(envelopes) == 0 {
		writeError(w, http.StatusBadRequest, "request body contains no events")
		return
	}

	outcomes := make([]EventOutcome, 0, len(envelopes))
	accepted := 0
	for _, payload := range envelopes {
		outcome := c.dispatchOne(r, payload)
		if outcome.Accepted {
			accepted++
		}
		outcomes = append(outcomes, outcome)
	}

	status := http.StatusOK
	if accepted == 0 {
		// Nothing in the delivery was processable. Signal the provider so
		// misconfigured webhooks surface quickly.
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"accepted": accepted,
		"total":    len(envelopes),
		"results":  outcomes,
	})
}

func (c *Controller) dispatchOne(r *http.Request, payload json.RawMessage) EventOutcome {
	var raw event.RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return EventOutcome{Accepted: false, Error: "malformed event envelope"}
	}

	outcome := EventOutcome{Signature: raw.Signature, Type: raw.Type}

	results, err := c.App.Dispatcher.Dispatch(r.Context(), &raw, payload)
	if err != nil {
		var unsupported *dispatch.UnsupportedTypeError
		if errors.As(err, &unsupported) {
			outcome.Error = "unsupported transaction type"
			return outcome
		}
		c.App.Logger.Error("Dispatch failed",
			zap.String("signature", raw.Signature),
			zap.String("type", raw.Type),
			zap.Error(err))
		outcome.Error = "dispatch failed"
		return outcome
	}

	outcome.Accepted = true
	outcome.Deliveries = results
	return outcome
}

// splitEnvelopes returns the individual event payloads of a webhook body,
// which may be a JSON array or a single object.
func splitEnvelopes(body []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var envelopes []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &envelopes); err != nil {
			return nil, err
		}
		return envelopes, nil
	}

	var single json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}
