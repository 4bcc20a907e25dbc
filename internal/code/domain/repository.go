package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, code *Code) error
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*Code, error)
	// FindByKeyForUpdate locks the row for the duration of the surrounding
	// transaction so concurrent debits of the same code serialize.
	FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key string) (*Code, error)
	UpdateRemaining(ctx context.Context, db *gorm.DB, key string, remaining int) error
}
