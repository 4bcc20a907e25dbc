package service

import (
	"context"
	"strings"

	"github.com/textcraft/creditgate/internal/catalog"
	"github.com/textcraft/creditgate/internal/claim/domain"
	"github.com/textcraft/creditgate/internal/clock"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	pkgdb "github.com/textcraft/creditgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Catalog *catalog.Catalog
	Repo    domain.Repository
	Codes   codedomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	catalog *catalog.Catalog
	repo    domain.Repository
	codes   codedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("claim.service"),
		clock:   p.Clock,
		catalog: p.Catalog,
		repo:    p.Repo,
		codes:   p.Codes,
	}
}

func (s *Service) Claim(ctx context.Context, req domain.ClaimRequest) (domain.ClaimResponse, error) {
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return domain.ClaimResponse{}, domain.ErrInvalidPaymentID
	}

	pack, ok := s.catalog.Get(req.PackageID)
	if !ok {
		return domain.ClaimResponse{}, domain.ErrUnknownPackage
	}

	var minted codedomain.Code
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.repo.Exists(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if claimed {
			return domain.ErrAlreadyClaimed
		}

		// The code row goes in before the ledger row: if the process dies
		// between the two statements committing, the customer keeps the code
		// and the worst case is a rare duplicate credit, never a paid-for
		// purchase that vanished.
		minted, err = s.codes.Mint(ctx, tx, pack.Generations)
		if err != nil {
			return err
		}

		return s.repo.Insert(ctx, tx, &domain.ClaimedPayment{
			PaymentID: paymentID,
			Code:      minted.Code,
			PackageID: pack.ID,
			ClaimedAt: s.clock.Now(),
		})
	})
	if err != nil {
		// Concurrent claims of the same payment race past the existence
		// check; the unique key on payment_id settles it.
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ClaimResponse{}, domain.ErrAlreadyClaimed
		}
		return domain.ClaimResponse{}, err
	}

	s.log.Info("payment claimed",
		zap.String("payment_id", paymentID),
		zap.String("package_id", pack.ID),
		zap.String("code", minted.Code),
	)

	return domain.ClaimResponse{
		Code:      minted.Code,
		Total:     minted.Total,
		Remaining: minted.Remaining,
	}, nil
}

func (s *Service) Find(ctx context.Context, paymentID string) (*domain.ClaimedPayment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ErrInvalidPaymentID
	}
	return s.repo.FindByPaymentID(ctx, s.db, paymentID)
}
