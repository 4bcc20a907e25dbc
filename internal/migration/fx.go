package migration

import (
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	"github.com/textcraft/creditgate/internal/config"
	purchasedomain "github.com/textcraft/creditgate/internal/purchase/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// sqlite and mysql deployments are single-node dev setups; the
		// gorm schema is authoritative there.
		return conn.AutoMigrate(
			&codedomain.Code{},
			&claimdomain.ClaimedPayment{},
			&purchasedomain.Purchase{},
		)
	}),
)
