package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/textcraft/creditgate/internal/catalog"
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	"github.com/textcraft/creditgate/internal/config"
	gwdomain "github.com/textcraft/creditgate/internal/gateway/domain"
	generationdomain "github.com/textcraft/creditgate/internal/generation/domain"
	"github.com/textcraft/creditgate/internal/observability"
	obsmiddleware "github.com/textcraft/creditgate/internal/observability/logger"
	obsmetrics "github.com/textcraft/creditgate/internal/observability/metrics"
	obstracing "github.com/textcraft/creditgate/internal/observability/tracing"
	purchasedomain "github.com/textcraft/creditgate/internal/purchase/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	catalog         *catalog.Catalog
	codeSvc         codedomain.Service
	claimSvc        claimdomain.Service
	gateway         gwdomain.Gateway
	generationSvc   generationdomain.Service
	purchaseSvc     purchasedomain.Service
	obsMetrics      *obsmetrics.Metrics
	paymentLimiter  *rateLimiter
	purchaseLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Catalog       *catalog.Catalog
	CodeSvc       codedomain.Service
	ClaimSvc      claimdomain.Service
	Gateway       gwdomain.Gateway
	GenerationSvc generationdomain.Service
	PurchaseSvc   purchasedomain.Service
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		catalog:         p.Catalog,
		codeSvc:         p.CodeSvc,
		claimSvc:        p.ClaimSvc,
		gateway:         p.Gateway,
		generationSvc:   p.GenerationSvc,
		purchaseSvc:     p.PurchaseSvc,
		obsMetrics:      p.ObsMetrics,
		paymentLimiter:  newRateLimiter(5, time.Minute),
		purchaseLimiter: newRateLimiter(5, time.Minute),
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/generate", s.Generate)
	api.POST("/check-code", s.CheckCode)
	api.GET("/packages", s.ListPackages)

	api.POST("/create-payment", s.RateLimit(s.paymentLimiter), s.CreatePayment)
	api.GET("/check-payment/:paymentId", s.CheckPayment)
	api.POST("/claim-package", s.ClaimPackage)

	api.POST("/purchases", s.RateLimit(s.purchaseLimiter), s.StartPurchase)
	api.GET("/purchases/:purchaseId", s.GetPurchase)
}
