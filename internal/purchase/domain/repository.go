package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Purchase, error)
	Update(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	// ListOpen returns every purchase still in a non-terminal state, oldest
	// first, so polling can resume after a restart.
	ListOpen(ctx context.Context, db *gorm.DB) ([]Purchase, error)
}
