package domain

import (
	"context"
	"errors"
)

type ClaimRequest struct {
	PaymentID string
	PackageID string
}

type ClaimResponse struct {
	Code      string `json:"code"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

// Service converts a confirmed payment into a new code exactly once per
// payment identifier.
type Service interface {
	Claim(ctx context.Context, req ClaimRequest) (ClaimResponse, error)
	// Find returns the claim already recorded for a payment, or nil when the
	// payment was never claimed.
	Find(ctx context.Context, paymentID string) (*ClaimedPayment, error)
}

var (
	ErrAlreadyClaimed   = errors.New("payment_already_claimed")
	ErrUnknownPackage   = errors.New("unknown_package")
	ErrInvalidPaymentID = errors.New("invalid_payment_id")
)
