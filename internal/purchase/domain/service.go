package domain

import (
	"context"
	"errors"
)

type StartRequest struct {
	PackageID string
	ReturnURL string
}

// Service manages server-side purchase tracking: it creates the gateway
// payment, polls for the outcome in the background, and claims a code once
// the gateway confirms.
type Service interface {
	Start(ctx context.Context, req StartRequest) (*Purchase, error)
	Get(ctx context.Context, id string) (*Purchase, error)
}

var (
	ErrPurchaseNotFound  = errors.New("purchase_not_found")
	ErrUnknownPackage    = errors.New("unknown_package")
	ErrInvalidPurchaseID = errors.New("invalid_purchase_id")
)
