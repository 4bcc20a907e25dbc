package generation

import (
	"github.com/textcraft/creditgate/internal/config"
	"github.com/textcraft/creditgate/internal/generation/domain"
	"github.com/textcraft/creditgate/internal/generation/gemini"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("generation",
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.Service {
		return gemini.New(cfg, log)
	}),
)
