// Package gateway defines the contract the checkout and reconciliation
// subsystems consume from the remote payment provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status values are owned by the gateway; this system only observes them.
type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusInProcess   Status = "in_process"
	StatusRefunded    Status = "refunded"
	StatusCancelled   Status = "cancelled"
	StatusChargedBack Status = "charged_back"
)

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusRefunded, StatusCancelled, StatusChargedBack:
		return true
	}
	return false
}

// ChargeRequest is a charge-creation payload, immutable once built.
type ChargeRequest struct {
	Title               string
	Quantity            int
	UnitPrice           float64
	Currency            string
	CorrelationKey      string
	NotificationURL     string
	SuccessURL          string
	FailureURL          string
	PendingURL          string
	ExcludedMethods     []string
	ExcludedTypes       []string
	StatementDescriptor string
	Metadata            map[string]any
	AdditionalInfo      map[string]any
}

// CreatedCharge is the gateway's answer to Create.
type CreatedCharge struct {
	ID          string
	RedirectURL string
}

// ChargeDetails is the gateway's charge record as observed at lookup time.
type ChargeDetails struct {
	ID             string
	Status         Status
	StatusDetail   string
	CorrelationKey string
	Amount         float64
	Method         string
	PayerEmail     string
	LiveMode       bool
	CreatedAt      time.Time
	ApprovedAt     *time.Time
}

// Client is the remote gateway contract. Create must not be retried by the
// implementation; the caller owns the idempotency key per attempt.
type Client interface {
	Create(ctx context.Context, req ChargeRequest) (*CreatedCharge, error)
	Get(ctx context.Context, chargeID string) (*ChargeDetails, error)
	SearchByCorrelationKey(ctx context.Context, key string) ([]ChargeDetails, error)
}

var ErrNotFound = errors.New("charge_not_found")

// GatewayError carries a sanitized remote failure.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}
