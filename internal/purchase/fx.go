package purchase

import (
	"context"

	"github.com/textcraft/creditgate/internal/purchase/domain"
	"github.com/textcraft/creditgate/internal/purchase/repository"
	"github.com/textcraft/creditgate/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, s *service.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Resume(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
