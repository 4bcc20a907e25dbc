package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/textcraft/creditgate/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Purchase, error) {
	var purchase domain.Purchase
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Save(purchase).Error
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB) ([]domain.Purchase, error) {
	var purchases []domain.Purchase
	err := db.WithContext(ctx).
		Where("state IN ?", []domain.State{domain.StateCreating, domain.StateWaiting, domain.StateClaiming}).
		Order("created_at ASC").
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}
	return purchases, nil
}
