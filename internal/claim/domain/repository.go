package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *ClaimedPayment) error
	Exists(ctx context.Context, db *gorm.DB, paymentID string) (bool, error)
	FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*ClaimedPayment, error)
}
