package claim

import (
	"github.com/textcraft/creditgate/internal/claim/repository"
	"github.com/textcraft/creditgate/internal/claim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("claim.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
