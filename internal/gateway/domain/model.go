package domain

import (
	"context"
	"errors"
	"strings"
)

// Status is the gateway-reported payment status. Anything the gateway
// reports outside the four known values is treated as still pending, so a
// new status introduced upstream never terminates a poll early.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether polling should stop at this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// NormalizeStatus maps a raw gateway status string onto the known set.
func NormalizeStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSucceeded:
		return StatusSucceeded
	case StatusCanceled:
		return StatusCanceled
	case StatusFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}

type CreatePaymentRequest struct {
	// AmountMinor is the charge amount in minor currency units.
	AmountMinor int64
	Currency    string
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

type CreatePaymentResponse struct {
	PaymentID       string `json:"paymentId"`
	ConfirmationURL string `json:"confirmationUrl"`
}

type PaymentStatus struct {
	PaymentID string            `json:"paymentId"`
	Status    Status            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Gateway is a pure proxy to the payment provider's REST contract; it never
// mutates local state.
type Gateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error)
	GetStatus(ctx context.Context, paymentID string) (PaymentStatus, error)
}

var (
	ErrGateway              = errors.New("gateway_error")
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
)
