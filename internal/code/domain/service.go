package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type ValidateCodeRequest struct {
	Code string
}

type ValidateCodeResponse struct {
	Remaining int `json:"remaining"`
}

type DebitCodeRequest struct {
	Code string
}

type DebitCodeResponse struct {
	Remaining int `json:"remaining"`
}

// Service is the credit engine: it decides whether a code may be debited,
// performs the debit, and enforces expiry. Mint creates new codes inside a
// caller-supplied transaction so the claim workflow can commit the code and
// the claim record together.
type Service interface {
	Validate(ctx context.Context, req ValidateCodeRequest) (ValidateCodeResponse, error)
	Debit(ctx context.Context, req DebitCodeRequest) (DebitCodeResponse, error)
	Mint(ctx context.Context, tx *gorm.DB, generations int) (Code, error)
}

var (
	ErrCodeNotFound  = errors.New("code_not_found")
	ErrCodeExpired   = errors.New("code_expired")
	ErrCodeExhausted = errors.New("code_exhausted")
	ErrInvalidCode   = errors.New("invalid_code")
)
