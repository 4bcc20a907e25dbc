package repository

import (
	"context"
	"errors"

	"github.com/textcraft/creditgate/internal/claim/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.ClaimedPayment) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, paymentID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.ClaimedPayment{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByPaymentID(ctx context.Context, db *gorm.DB, paymentID string) (*domain.ClaimedPayment, error) {
	var record domain.ClaimedPayment
	err := db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
