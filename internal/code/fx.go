package code

import (
	"github.com/textcraft/creditgate/internal/code/repository"
	"github.com/textcraft/creditgate/internal/code/service"
	"go.uber.org/fx"
)

var Module = fx.Module("code.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
