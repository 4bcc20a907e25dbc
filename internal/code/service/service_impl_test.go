package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textcraft/creditgate/internal/clock"
	"github.com/textcraft/creditgate/internal/code/domain"
	"github.com/textcraft/creditgate/internal/code/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Code{}))

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, db, fake
}

func seedCode(t *testing.T, db *gorm.DB, key string, total, remaining int, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Code{
		Code:      key,
		Total:     total,
		Remaining: remaining,
		CreatedAt: createdAt,
	}).Error)
}

func TestValidate(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "PACK-AAAA-0001", 10, 7, fake.Now())

	resp, err := svc.Validate(ctx, domain.ValidateCodeRequest{Code: "PACK-AAAA-0001"})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Remaining)

	_, err = svc.Validate(ctx, domain.ValidateCodeRequest{Code: "PACK-NOPE-0000"})
	assert.ErrorIs(t, err, domain.ErrCodeNotFound)

	_, err = svc.Validate(ctx, domain.ValidateCodeRequest{Code: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestValidateExpired(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	// 31 days old with credit left: still rejected.
	seedCode(t, db, "PACK-OLDD-0001", 10, 5, fake.Now().Add(-31*24*time.Hour))

	_, err := svc.Validate(ctx, domain.ValidateCodeRequest{Code: "PACK-OLDD-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	_, err = svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-OLDD-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestValidateExpiryBoundary(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	// Exactly 30 days is still valid; one second past is not.
	seedCode(t, db, "PACK-EDGE-0001", 10, 10, fake.Now().Add(-domain.ExpiryWindow))

	_, err := svc.Validate(ctx, domain.ValidateCodeRequest{Code: "PACK-EDGE-0001"})
	require.NoError(t, err)

	fake.Advance(time.Second)
	_, err = svc.Validate(ctx, domain.ValidateCodeRequest{Code: "PACK-EDGE-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
}

func TestDebit(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "PACK-DEBT-0001", 3, 3, fake.Now())

	resp, err := svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-DEBT-0001"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Remaining)

	var stored domain.Code
	require.NoError(t, db.First(&stored, "code = ?", "PACK-DEBT-0001").Error)
	assert.Equal(t, 2, stored.Remaining)
	assert.Equal(t, 3, stored.Total)
}

func TestDebitExpired(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "PACK-OLDD-0001", 5, 5, fake.Now().Add(-31*24*time.Hour))

	_, err := svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-OLDD-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExpired)

	// Expiry wins over remaining balance; nothing is consumed.
	var stored domain.Code
	require.NoError(t, db.First(&stored, "code = ?", "PACK-OLDD-0001").Error)
	assert.Equal(t, 5, stored.Remaining)
}

func TestDebitExhausted(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "PACK-ZERO-0001", 5, 0, fake.Now())

	_, err := svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-ZERO-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExhausted)

	// Remaining must stay at zero, never negative.
	var stored domain.Code
	require.NoError(t, db.First(&stored, "code = ?", "PACK-ZERO-0001").Error)
	assert.Equal(t, 0, stored.Remaining)
}

func TestDebitUntilExhausted(t *testing.T) {
	svc, db, fake := newTestService(t)
	ctx := context.Background()

	seedCode(t, db, "PACK-TENX-0001", 10, 10, fake.Now())

	for i := 9; i >= 0; i-- {
		resp, err := svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-TENX-0001"})
		require.NoError(t, err)
		assert.Equal(t, i, resp.Remaining)
	}

	_, err := svc.Debit(ctx, domain.DebitCodeRequest{Code: "PACK-TENX-0001"})
	assert.ErrorIs(t, err, domain.ErrCodeExhausted)
}

func TestMint(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	code, err := svc.Mint(ctx, db, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, code.Total)
	assert.Equal(t, 10, code.Remaining)
	assert.Regexp(t, `^PACK-[0-9A-F]{4}-[0-9A-F]{4}$`, code.Code)

	resp, err := svc.Validate(ctx, domain.ValidateCodeRequest{Code: code.Code})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Remaining)
}

type collidingRepo struct {
	domain.Repository
	failures int
	inserted []string
}

func (r *collidingRepo) Insert(ctx context.Context, db *gorm.DB, code *domain.Code) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("UNIQUE constraint failed: codes.code")
	}
	r.inserted = append(r.inserted, code.Code)
	return nil
}

func TestMintRetriesOnCollision(t *testing.T) {
	repo := &collidingRepo{failures: 2}
	svc := New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Now()),
		Repo:  repo,
	})

	code, err := svc.Mint(context.Background(), nil, 100)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.True(t, strings.HasPrefix(code.Code, "PACK-"))
}

func TestMintGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := &collidingRepo{failures: mintMaxAttempts}
	svc := New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Now()),
		Repo:  repo,
	})

	_, err := svc.Mint(context.Background(), nil, 10)
	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}
