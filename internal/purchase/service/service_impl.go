package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/textcraft/creditgate/internal/catalog"
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	"github.com/textcraft/creditgate/internal/clock"
	"github.com/textcraft/creditgate/internal/config"
	gwdomain "github.com/textcraft/creditgate/internal/gateway/domain"
	"github.com/textcraft/creditgate/internal/observability/metrics"
	"github.com/textcraft/creditgate/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Catalog *catalog.Catalog
	Repo    domain.Repository
	Gateway gwdomain.Gateway
	Claims  claimdomain.Service
	Metrics *metrics.Metrics
	Node    *snowflake.Node
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	cfg     config.PurchaseConfig
	catalog *catalog.Catalog
	repo    domain.Repository
	gateway gwdomain.Gateway
	claims  claimdomain.Service
	metrics *metrics.Metrics
	node    *snowflake.Node

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(p Params) *Service {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("purchase.service"),
		clock:   p.Clock,
		cfg:     p.Config.Purchase,
		catalog: p.Catalog,
		repo:    p.Repo,
		gateway: p.Gateway,
		claims:  p.Claims,
		metrics: p.Metrics,
		node:    p.Node,
		baseCtx: baseCtx,
		cancel:  cancel,
	}
}

func (s *Service) Start(ctx context.Context, req domain.StartRequest) (*domain.Purchase, error) {
	pack, ok := s.catalog.Get(req.PackageID)
	if !ok {
		return nil, domain.ErrUnknownPackage
	}

	now := s.clock.Now()
	purchase := &domain.Purchase{
		ID:        s.node.Generate(),
		PackageID: pack.ID,
		State:     domain.StateCreating,
		Metadata:  datatypes.JSONMap{"packageId": pack.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, purchase); err != nil {
		return nil, err
	}

	created, err := s.gateway.CreatePayment(ctx, gwdomain.CreatePaymentRequest{
		AmountMinor: pack.PriceMinor,
		Currency:    pack.Currency,
		Description: fmt.Sprintf("Package %s: %d generations", pack.ID, pack.Generations),
		ReturnURL:   req.ReturnURL,
		Metadata: map[string]string{
			"purchaseId": purchase.ID.String(),
			"packageId":  pack.ID,
		},
	})
	if err != nil {
		s.metrics.RecordPaymentCreated(ctx, "error")
		s.transition(ctx, purchase, domain.StateFailed, "gateway_create_failed")
		return nil, err
	}
	s.metrics.RecordPaymentCreated(ctx, "ok")

	purchase.PaymentID = created.PaymentID
	purchase.ConfirmationURL = created.ConfirmationURL
	s.transition(ctx, purchase, domain.StateWaiting, "")

	s.log.Info("purchase started",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("payment_id", purchase.PaymentID),
		zap.String("package_id", pack.ID),
	)

	s.poll(purchase.ID, now.Add(s.cfg.PollTimeout))
	return purchase, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Purchase, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidPurchaseID
	}
	purchase, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, domain.ErrPurchaseNotFound
	}
	return purchase, nil
}

// Resume restarts polling for purchases that were still open when the
// process last stopped. Purchases older than the resume window are closed
// out instead of polled.
func (s *Service) Resume(ctx context.Context) error {
	open, err := s.repo.ListOpen(ctx, s.db)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	for i := range open {
		purchase := open[i]
		switch {
		case now.Sub(purchase.CreatedAt) > s.cfg.ResumeMaxAge:
			s.transition(ctx, &purchase, domain.StateExpired, "stale_after_restart")
		case purchase.PaymentID == "":
			s.transition(ctx, &purchase, domain.StateExpired, "no_payment_created")
		default:
			s.poll(purchase.ID, purchase.CreatedAt.Add(s.cfg.PollTimeout))
		}
	}

	if len(open) > 0 {
		s.log.Info("resumed open purchases", zap.Int("count", len(open)))
	}
	return nil
}

// Shutdown stops every poll loop and waits for in-flight ticks to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) poll(id snowflake.ID, deadline time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.baseCtx.Done():
				return
			case <-ticker.C:
				done, err := s.tick(s.baseCtx, id, deadline)
				if err != nil {
					s.log.Warn("purchase poll tick failed",
						zap.String("purchase_id", id.String()),
						zap.Error(err),
					)
					continue
				}
				if done {
					return
				}
			}
		}
	}()
}

// tick performs one confirmation poll step. It returns true once the
// purchase reaches a terminal state and polling should stop.
func (s *Service) tick(ctx context.Context, id snowflake.ID, deadline time.Time) (bool, error) {
	purchase, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	if purchase == nil {
		return true, nil
	}
	if purchase.State.Terminal() {
		return true, nil
	}

	status, err := s.gateway.GetStatus(ctx, purchase.PaymentID)
	if err != nil {
		if s.clock.Now().After(deadline) {
			s.transition(ctx, purchase, domain.StateFailed, "poll_timeout")
			return true, nil
		}
		return false, err
	}

	switch status.Status {
	case gwdomain.StatusSucceeded:
		return true, s.settle(ctx, purchase)
	case gwdomain.StatusCanceled:
		s.transition(ctx, purchase, domain.StateCanceled, "canceled_by_gateway")
		return true, nil
	case gwdomain.StatusFailed:
		s.transition(ctx, purchase, domain.StateFailed, "rejected_by_gateway")
		return true, nil
	default:
		if s.clock.Now().After(deadline) {
			s.transition(ctx, purchase, domain.StateFailed, "poll_timeout")
			return true, nil
		}
		return false, nil
	}
}

// settle claims a code for a confirmed payment and stores it on the
// purchase. A claim that already committed on a previous run is recovered
// from the claim ledger rather than minted again.
func (s *Service) settle(ctx context.Context, purchase *domain.Purchase) error {
	s.transition(ctx, purchase, domain.StateClaiming, "")

	claimed, err := s.claims.Claim(ctx, claimdomain.ClaimRequest{
		PaymentID: purchase.PaymentID,
		PackageID: purchase.PackageID,
	})
	switch {
	case err == nil:
		purchase.Code = claimed.Code
	case errors.Is(err, claimdomain.ErrAlreadyClaimed):
		record, findErr := s.claims.Find(ctx, purchase.PaymentID)
		if findErr != nil {
			return findErr
		}
		if record == nil {
			s.transition(ctx, purchase, domain.StateFailed, "claim_record_missing")
			return nil
		}
		purchase.Code = record.Code
	default:
		s.transition(ctx, purchase, domain.StateFailed, "claim_failed")
		return err
	}

	s.transition(ctx, purchase, domain.StateSucceeded, "")
	s.log.Info("purchase settled",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("payment_id", purchase.PaymentID),
		zap.String("code", purchase.Code),
	)
	return nil
}

func (s *Service) transition(ctx context.Context, purchase *domain.Purchase, state domain.State, reason string) {
	purchase.State = state
	purchase.Reason = reason
	purchase.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, purchase); err != nil {
		s.log.Error("purchase state update failed",
			zap.String("purchase_id", purchase.ID.String()),
			zap.String("state", string(state)),
			zap.Error(err),
		)
		return
	}
	s.metrics.RecordPurchaseTransition(ctx, string(state))
}
