package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textcraft/creditgate/internal/catalog"
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	claimrepo "github.com/textcraft/creditgate/internal/claim/repository"
	claimservice "github.com/textcraft/creditgate/internal/claim/service"
	"github.com/textcraft/creditgate/internal/clock"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	coderepo "github.com/textcraft/creditgate/internal/code/repository"
	codeservice "github.com/textcraft/creditgate/internal/code/service"
	"github.com/textcraft/creditgate/internal/config"
	gwdomain "github.com/textcraft/creditgate/internal/gateway/domain"
	"github.com/textcraft/creditgate/internal/observability/metrics"
	"github.com/textcraft/creditgate/internal/purchase/domain"
	"github.com/textcraft/creditgate/internal/purchase/repository"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubGateway struct {
	mu          sync.Mutex
	status      gwdomain.Status
	createErr   error
	statusErr   error
	createCalls int
	statusCalls int
	lastCreate  gwdomain.CreatePaymentRequest
}

func (g *stubGateway) CreatePayment(ctx context.Context, req gwdomain.CreatePaymentRequest) (gwdomain.CreatePaymentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	g.lastCreate = req
	if g.createErr != nil {
		return gwdomain.CreatePaymentResponse{}, g.createErr
	}
	return gwdomain.CreatePaymentResponse{
		PaymentID:       fmt.Sprintf("pay-%d", g.createCalls),
		ConfirmationURL: "https://pay.test/confirm",
	}, nil
}

func (g *stubGateway) GetStatus(ctx context.Context, paymentID string) (gwdomain.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return gwdomain.PaymentStatus{}, g.statusErr
	}
	return gwdomain.PaymentStatus{PaymentID: paymentID, Status: g.status}, nil
}

func (g *stubGateway) setStatus(status gwdomain.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = status
}

func (g *stubGateway) calls() (created, polled int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.statusCalls
}

type testEnv struct {
	svc     *Service
	gateway *stubGateway
	clock   *clock.FakeClock
	claims  claimdomain.Service
	db      *gorm.DB
	cfg     config.PurchaseConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&codedomain.Code{}, &claimdomain.ClaimedPayment{}, &domain.Purchase{}))

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	codes := codeservice.New(codeservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  coderepo.Provide(),
	})
	claims := claimservice.New(claimservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fake,
		Catalog: catalog.Default(),
		Repo:    claimrepo.Provide(),
		Codes:   codes,
	})

	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	// A one-hour interval keeps the background loop quiet so tests drive
	// the poller through tick directly.
	cfg := config.Config{Purchase: config.PurchaseConfig{
		PollInterval: time.Hour,
		PollTimeout:  5 * time.Minute,
		ResumeMaxAge: 10 * time.Minute,
	}}

	gw := &stubGateway{status: gwdomain.StatusPending}
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   fake,
		Config:  cfg,
		Catalog: catalog.Default(),
		Repo:    repository.Provide(),
		Gateway: gw,
		Claims:  claims,
		Metrics: m,
		Node:    node,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &testEnv{svc: svc, gateway: gw, clock: fake, claims: claims, db: db, cfg: cfg.Purchase}
}

func (e *testEnv) deadline() time.Time {
	return e.clock.Now().Add(e.cfg.PollTimeout)
}

func TestStart(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10", ReturnURL: "https://app.test/return"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateWaiting, purchase.State)
	assert.Equal(t, "pay-1", purchase.PaymentID)
	assert.Equal(t, "https://pay.test/confirm", purchase.ConfirmationURL)

	assert.Equal(t, int64(8000), e.gateway.lastCreate.AmountMinor)
	assert.Equal(t, "RUB", e.gateway.lastCreate.Currency)
	assert.Equal(t, "https://app.test/return", e.gateway.lastCreate.ReturnURL)
	assert.Equal(t, "pack10", e.gateway.lastCreate.Metadata["packageId"])
	assert.Equal(t, purchase.ID.String(), e.gateway.lastCreate.Metadata["purchaseId"])
}

func TestStartUnknownPackage(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.svc.Start(context.Background(), domain.StartRequest{PackageID: "pack9000"})
	assert.ErrorIs(t, err, domain.ErrUnknownPackage)

	created, _ := e.gateway.calls()
	assert.Zero(t, created)
}

func TestStartGatewayFailure(t *testing.T) {
	e := newTestEnv(t)
	e.gateway.createErr = gwdomain.ErrGateway

	_, err := e.svc.Start(context.Background(), domain.StartRequest{PackageID: "pack10"})
	require.ErrorIs(t, err, gwdomain.ErrGateway)

	var stored domain.Purchase
	require.NoError(t, e.db.First(&stored).Error)
	assert.Equal(t, domain.StateFailed, stored.State)
	assert.Equal(t, "gateway_create_failed", stored.Reason)
}

func TestTickSucceededClaimsExactlyOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10"})
	require.NoError(t, err)

	e.gateway.setStatus(gwdomain.StatusSucceeded)
	deadline := e.deadline()

	done, err := e.svc.tick(ctx, purchase.ID, deadline)
	require.NoError(t, err)
	assert.True(t, done)

	stored, err := e.svc.Get(ctx, purchase.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateSucceeded, stored.State)
	assert.Regexp(t, `^PACK-[0-9A-F]{4}-[0-9A-F]{4}$`, stored.Code)

	// A terminal purchase short-circuits before touching the gateway.
	_, polledBefore := e.gateway.calls()
	done, err = e.svc.tick(ctx, purchase.ID, deadline)
	require.NoError(t, err)
	assert.True(t, done)
	_, polledAfter := e.gateway.calls()
	assert.Equal(t, polledBefore, polledAfter)

	var codeCount int64
	require.NoError(t, e.db.Model(&codedomain.Code{}).Count(&codeCount).Error)
	assert.EqualValues(t, 1, codeCount)
}

func TestTickCanceledStopsPolling(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10"})
	require.NoError(t, err)

	e.gateway.setStatus(gwdomain.StatusCanceled)
	done, err := e.svc.tick(ctx, purchase.ID, e.deadline())
	require.NoError(t, err)
	assert.True(t, done)

	stored, err := e.svc.Get(ctx, purchase.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateCanceled, stored.State)
	assert.Empty(t, stored.Code)

	// No code was minted for a canceled payment.
	var codeCount int64
	require.NoError(t, e.db.Model(&codedomain.Code{}).Count(&codeCount).Error)
	assert.Zero(t, codeCount)
}

func TestTickPendingUntilTimeout(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10"})
	require.NoError(t, err)
	deadline := e.deadline()

	done, err := e.svc.tick(ctx, purchase.ID, deadline)
	require.NoError(t, err)
	assert.False(t, done)

	e.clock.Advance(e.cfg.PollTimeout + time.Second)

	done, err = e.svc.tick(ctx, purchase.ID, deadline)
	require.NoError(t, err)
	assert.True(t, done)

	stored, err := e.svc.Get(ctx, purchase.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.State)
	assert.Equal(t, "poll_timeout", stored.Reason)
}

func TestTickRecoversCommittedClaim(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10"})
	require.NoError(t, err)

	// Simulate a crash after the claim committed but before the purchase
	// row recorded the code.
	claimed, err := e.claims.Claim(ctx, claimdomain.ClaimRequest{
		PaymentID: purchase.PaymentID,
		PackageID: purchase.PackageID,
	})
	require.NoError(t, err)

	e.gateway.setStatus(gwdomain.StatusSucceeded)
	done, err := e.svc.tick(ctx, purchase.ID, e.deadline())
	require.NoError(t, err)
	assert.True(t, done)

	stored, err := e.svc.Get(ctx, purchase.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateSucceeded, stored.State)
	assert.Equal(t, claimed.Code, stored.Code)

	var codeCount int64
	require.NoError(t, e.db.Model(&codedomain.Code{}).Count(&codeCount).Error)
	assert.EqualValues(t, 1, codeCount)
}

func TestResumeExpiresStalePurchases(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	fresh, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack10"})
	require.NoError(t, err)

	stale, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack100"})
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&domain.Purchase{}).
		Where("id = ?", stale.ID).
		Update("created_at", e.clock.Now().Add(-11*time.Minute)).Error)

	require.NoError(t, e.svc.Resume(ctx))

	storedStale, err := e.svc.Get(ctx, stale.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateExpired, storedStale.State)
	assert.Equal(t, "stale_after_restart", storedStale.Reason)

	storedFresh, err := e.svc.Get(ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateWaiting, storedFresh.State)
}

func TestGet(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	purchase, err := e.svc.Start(ctx, domain.StartRequest{PackageID: "pack100"})
	require.NoError(t, err)

	stored, err := e.svc.Get(ctx, purchase.ID.String())
	require.NoError(t, err)
	assert.Equal(t, purchase.ID, stored.ID)
	assert.Equal(t, "pack100", stored.PackageID)

	_, err = e.svc.Get(ctx, "not-a-snowflake")
	assert.ErrorIs(t, err, domain.ErrInvalidPurchaseID)

	_, err = e.svc.Get(ctx, "999999999999999999")
	assert.ErrorIs(t, err, domain.ErrPurchaseNotFound)
}
