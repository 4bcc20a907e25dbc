package repository

import (
	"context"
	"errors"

	"github.com/textcraft/creditgate/internal/code/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, code *domain.Code) error {
	return db.WithContext(ctx).Create(code).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Code, error) {
	return r.find(ctx, db, key)
}

func (r *repo) FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key string) (*domain.Code, error) {
	return r.find(ctx, db.Clauses(clause.Locking{Strength: "UPDATE"}), key)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, key string) (*domain.Code, error) {
	var code domain.Code
	err := db.WithContext(ctx).
		Where("code = ?", key).
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repo) UpdateRemaining(ctx context.Context, db *gorm.DB, key string, remaining int) error {
	return db.WithContext(ctx).
		Model(&domain.Code{}).
		Where("code = ?", key).
		Update("remaining", remaining).Error
}
