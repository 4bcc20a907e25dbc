package gateway

import (
	"github.com/textcraft/creditgate/internal/config"
	"github.com/textcraft/creditgate/internal/gateway/domain"
	"github.com/textcraft/creditgate/internal/gateway/yookassa"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway",
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.Gateway {
		return yookassa.New(cfg, log)
	}),
)
