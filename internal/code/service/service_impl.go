package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/textcraft/creditgate/internal/clock"
	"github.com/textcraft/creditgate/internal/code/domain"
	pkgdb "github.com/textcraft/creditgate/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const mintMaxAttempts = 5

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("code.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Validate(ctx context.Context, req domain.ValidateCodeRequest) (domain.ValidateCodeResponse, error) {
	key := strings.TrimSpace(req.Code)
	if key == "" {
		return domain.ValidateCodeResponse{}, domain.ErrInvalidCode
	}

	code, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return domain.ValidateCodeResponse{}, err
	}
	if err := s.check(code); err != nil {
		return domain.ValidateCodeResponse{}, err
	}

	return domain.ValidateCodeResponse{Remaining: code.Remaining}, nil
}

func (s *Service) Debit(ctx context.Context, req domain.DebitCodeRequest) (domain.DebitCodeResponse, error) {
	key := strings.TrimSpace(req.Code)
	if key == "" {
		return domain.DebitCodeResponse{}, domain.ErrInvalidCode
	}

	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.repo.FindByKeyForUpdate(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := s.check(code); err != nil {
			return err
		}

		remaining = code.Remaining - 1
		return s.repo.UpdateRemaining(ctx, tx, key, remaining)
	})
	if err != nil {
		return domain.DebitCodeResponse{}, err
	}

	s.log.Info("code debited", zap.String("code", key), zap.Int("remaining", remaining))
	return domain.DebitCodeResponse{Remaining: remaining}, nil
}

func (s *Service) Mint(ctx context.Context, tx *gorm.DB, generations int) (domain.Code, error) {
	if generations <= 0 {
		return domain.Code{}, fmt.Errorf("mint: generations must be positive, got %d", generations)
	}

	now := s.clock.Now()
	for attempt := 0; attempt < mintMaxAttempts; attempt++ {
		code := domain.Code{
			Code:      newCodeKey(),
			Total:     generations,
			Remaining: generations,
			CreatedAt: now,
		}
		err := s.repo.Insert(ctx, tx, &code)
		if err == nil {
			return code, nil
		}
		if !pkgdb.IsDuplicateKeyErr(err) {
			return domain.Code{}, err
		}
	}

	return domain.Code{}, fmt.Errorf("mint: could not find a free code key after %d attempts", mintMaxAttempts)
}

func (s *Service) check(code *domain.Code) error {
	if code == nil {
		return domain.ErrCodeNotFound
	}
	if code.Expired(s.clock.Now()) {
		return domain.ErrCodeExpired
	}
	if code.Remaining <= 0 {
		return domain.ErrCodeExhausted
	}
	return nil
}

// newCodeKey mints keys of the form PACK-XXXX-XXXX.
func newCodeKey() string {
	group := func() string {
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	}
	return fmt.Sprintf("PACK-%s-%s", group(), group())
}
