package domain

import (
	"context"
	"errors"
	"net/http"
)

// Service is the reconciliation engine: it applies status observations from
// webhooks and polls, and fires the approval side effects exactly once per
// correlation key.
type Service interface {
	// IngestWebhook verifies, parses, resolves, and applies one webhook
	// delivery. Lookup and apply failures are swallowed (logged) so the
	// HTTP layer can acknowledge the gateway; only auth and parse errors
	// are returned.
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error

	// Observe applies a single status observation.
	Observe(ctx context.Context, obs Observation) (*Outcome, error)

	// Status returns the current record for a correlation key, nil when the
	// key has not been observed yet.
	Status(ctx context.Context, correlationKey string) (*ObservationRecord, error)
}

var (
	ErrInvalidObservation = errors.New("invalid_observation")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrMalformedSignature = errors.New("malformed_signature")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrEventIgnored       = errors.New("event_ignored")
)
