package domain

import (
	"context"
	"errors"
)

// CreatePreferenceRequest is the caller's input for one checkout attempt.
// Everything except UID is optional; defaults come from merchant policy.
type CreatePreferenceRequest struct {
	Title      string
	Quantity   int
	UnitPrice  float64
	UID        string
	PayerEmail string
	DeviceID   string
	ClientIP   string
}

// CreatePreferenceResponse echoes what the frontend needs to redirect the
// user and poll for the outcome.
type CreatePreferenceResponse struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	ExternalReference string `json:"external_reference"`
}

type Service interface {
	CreatePreference(ctx context.Context, req CreatePreferenceRequest) (*CreatePreferenceResponse, error)
}

var (
	ErrMissingUID      = errors.New("missing_uid")
	ErrInvalidUID      = errors.New("invalid_uid")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
)
