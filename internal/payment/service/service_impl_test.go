package service

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	orderrepo "github.com/smallbiznis/sitebuilder/internal/order/repository"
	"github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/payment/repository"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeGateways struct {
	gatewaydomain.Service
	callback *gatewaydomain.Callback
	err      error
}

func (f *fakeGateways) ParseWebhook(context.Context, string, []byte, http.Header) (*gatewaydomain.Callback, error) {
	return f.callback, f.err
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
	root  string
	gw    *fakeGateways
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dbpkg.NewTest(&domain.Payment{}, &orderdomain.Order{})
	require.NoError(t, err)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	root := t.TempDir()
	local, err := storage.NewLocal(root, "/uploads", nil)
	require.NoError(t, err)

	f := &fixture{
		db:    db,
		clock: clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		node:  node,
		root:  root,
		gw:    &fakeGateways{},
	}
	f.svc = New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      f.clock,
		Repo:       repository.Provide(),
		OrderRepo:  orderrepo.Provide(),
		Gateways:   f.gw,
		Storage:    local,
		Storefront: config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig()),
	})
	return f
}

func (f *fixture) order(t *testing.T, number string, status string) *orderdomain.Order {
	t.Helper()
	now := f.clock.Now()
	order := &orderdomain.Order{
		ID:          f.node.Generate(),
		OrderNumber: number,
		ClientName:  "Budi",
		BrandName:   "Kopi Budi",
		Email:       "budi@example.com",
		Phone:       "0812",
		PackageID:   1,
		PaymentType: orderdomain.PaymentTypeFull,
		Amount:      1000000,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, orderrepo.Provide().Insert(context.Background(), f.db, order))
	return order
}

func (f *fixture) payment(t *testing.T, orderID snowflake.ID, ref string, gateway string, amount int64) *domain.Payment {
	t.Helper()
	now := f.clock.Now()
	p := &domain.Payment{
		ID:          f.node.Generate(),
		OrderID:     orderID,
		Amount:      amount,
		Status:      domain.StatusPending,
		GatewayName: gateway,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ref != "" {
		p.GatewayRef = &ref
	}
	require.NoError(t, repository.Provide().Insert(context.Background(), f.db, p))
	return p
}

func (f *fixture) orderStatus(t *testing.T, id snowflake.ID) string {
	t.Helper()
	order, err := orderrepo.Provide().FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	return order.Status
}

func (f *fixture) countPayments(t *testing.T) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&total).Error)
	return total
}

func TestHandleCallbackValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.HandleCallback(ctx, gatewaydomain.Callback{Status: "paid"})
	assert.ErrorIs(t, err, domain.ErrMissingGatewayRef)

	_, err = f.svc.HandleCallback(ctx, gatewaydomain.Callback{GatewayRef: "x", Status: "refunded"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestHandleCallbackUnknownRefMutatesNothing(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240501-AAAA", orderdomain.StatusPending)
	f.payment(t, order.ID, "ORD-240501-AAAA-1", "midtrans", 1000000)

	_, err := f.svc.HandleCallback(context.Background(), gatewaydomain.Callback{GatewayRef: "nope", Status: "paid"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, orderdomain.StatusPending, f.orderStatus(t, order.ID))
}

func TestHandleCallbackPaidTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.order(t, "ORD-240501-BBBB", orderdomain.StatusPending)
	f.payment(t, order.ID, "ORD-240501-BBBB-1", "midtrans", 1000000)

	first, err := f.svc.HandleCallback(ctx, gatewaydomain.Callback{GatewayRef: "ORD-240501-BBBB-1", Status: "paid", Method: "qris"})
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)
	paidAt := *first.PaidAt

	f.clock.Advance(time.Minute)
	second, err := f.svc.HandleCallback(ctx, gatewaydomain.Callback{GatewayRef: "ORD-240501-BBBB-1", Status: "paid", Method: "qris"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, second.Status)
	assert.True(t, paidAt.Equal(*second.PaidAt))
	assert.Equal(t, "qris", second.Method)
	assert.Equal(t, orderdomain.StatusProcessing, f.orderStatus(t, order.ID))
}

func TestHandleCallbackDoesNotRegressActiveOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240501-CCCC", orderdomain.StatusActive)
	f.payment(t, order.ID, "ORD-240501-CCCC-1", "xendit", 1000000)

	_, err := f.svc.HandleCallback(context.Background(), gatewaydomain.Callback{GatewayRef: "ORD-240501-CCCC-1", Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusActive, f.orderStatus(t, order.ID))
}

func TestHandleCallbackFailedClearsPaidAt(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240501-DDDD", orderdomain.StatusPending)
	f.payment(t, order.ID, "ORD-240501-DDDD-1", "xendit", 1000000)

	payment, err := f.svc.HandleCallback(context.Background(), gatewaydomain.Callback{GatewayRef: "ORD-240501-DDDD-1", Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, payment.Status)
	assert.Nil(t, payment.PaidAt)
	assert.Equal(t, orderdomain.StatusPending, f.orderStatus(t, order.ID))
}

func TestHandleWebhookReconcilesParsedCallback(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240501-EEEE", orderdomain.StatusPending)
	f.payment(t, order.ID, "ORD-240501-EEEE-1", "xendit", 1000000)

	f.gw.err = gatewaydomain.ErrInvalidSignature
	_, err := f.svc.HandleWebhook(context.Background(), "xendit", []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, gatewaydomain.ErrInvalidSignature)

	f.gw.err = nil
	f.gw.callback = &gatewaydomain.Callback{GatewayRef: "ORD-240501-EEEE-1", Status: "paid", Method: "ewallet"}
	payment, err := f.svc.HandleWebhook(context.Background(), "xendit", []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, payment.Status)
	assert.Equal(t, orderdomain.StatusProcessing, f.orderStatus(t, order.ID))
}

func TestConfirmManualTransferRejectsBadProofs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.order(t, "ORD-240501-FFFF", orderdomain.StatusPending)

	_, err := f.svc.ConfirmManualTransfer(ctx, domain.ManualProofRequest{
		OrderNumber: "ORD-240501-FFFF", FileName: "proof.pdf", ContentType: "application/pdf", Size: 10, Body: bytes.NewReader(make([]byte, 10)),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidProofType)

	big := 5<<20 + 1
	_, err = f.svc.ConfirmManualTransfer(ctx, domain.ManualProofRequest{
		OrderNumber: "ORD-240501-FFFF", FileName: "proof.jpg", ContentType: "image/jpeg", Size: int64(big), Body: bytes.NewReader(make([]byte, big)),
	})
	assert.ErrorIs(t, err, domain.ErrProofTooLarge)

	_, err = f.svc.ConfirmManualTransfer(ctx, domain.ManualProofRequest{FileName: "proof.jpg", ContentType: "image/jpeg", Size: 1, Body: bytes.NewReader([]byte{1})})
	assert.ErrorIs(t, err, domain.ErrMissingOrder)

	_, err = f.svc.ConfirmManualTransfer(ctx, domain.ManualProofRequest{OrderNumber: "ORD-240501-FFFF", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, domain.ErrMissingProof)

	_, err = f.svc.ConfirmManualTransfer(ctx, domain.ManualProofRequest{
		OrderNumber: "ORD-000000-NONE", FileName: "proof.jpg", ContentType: "image/jpeg", Size: 1, Body: bytes.NewReader([]byte{1}),
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	assert.Equal(t, int64(0), f.countPayments(t))
}

func TestConfirmManualTransferStoresProof(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240501-GGGG", orderdomain.StatusPending)

	payment, err := f.svc.ConfirmManualTransfer(context.Background(), domain.ManualProofRequest{
		OrderNumber: "ORD-240501-GGGG",
		FileName:    "Bukti TF.PNG",
		ContentType: "image/png",
		Size:        4,
		Body:        bytes.NewReader([]byte("png!")),
	})
	require.NoError(t, err)

	want := "/uploads/proofs/ORD-240501-GGGG-" + "1714554000000" + ".png"
	assert.Equal(t, want, payment.ProofFile)
	assert.Equal(t, int64(0), payment.Amount)
	assert.Equal(t, domain.StatusPending, payment.Status)
	assert.Equal(t, domain.MethodBankTransfer, payment.Method)
	assert.Equal(t, domain.GatewayManualTransfer, payment.GatewayName)
	assert.Equal(t, orderdomain.StatusPendingVerification, f.orderStatus(t, order.ID))

	data, err := os.ReadFile(filepath.Join(f.root, "proofs", "ORD-240501-GGGG-1714554000000.png"))
	require.NoError(t, err)
	assert.Equal(t, "png!", string(data))
}

func TestVerifyManualProofNeedsAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.order(t, "ORD-240501-HHHH", orderdomain.StatusPendingVerification)
	proof := f.payment(t, order.ID, "", domain.GatewayManualTransfer, 0)

	_, err := f.svc.Verify(ctx, proof.ID.String(), domain.VerifyRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Verify(ctx, "abc", domain.VerifyRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Verify(ctx, f.node.Generate().String(), domain.VerifyRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	amount := int64(500000)
	verified, err := f.svc.Verify(ctx, proof.ID.String(), domain.VerifyRequest{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, verified.Status)
	assert.Equal(t, amount, verified.Amount)
	assert.NotNil(t, verified.PaidAt)
	assert.Equal(t, orderdomain.StatusProcessing, f.orderStatus(t, order.ID))
}

func TestExpireStaleOnlyTouchesOldGatewayPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.order(t, "ORD-240501-IIII", orderdomain.StatusPending)
	old := f.payment(t, order.ID, "ORD-240501-IIII-1", "midtrans", 1000000)
	proof := f.payment(t, order.ID, "", domain.GatewayManualTransfer, 0)

	f.clock.Advance(23 * time.Hour)
	fresh := f.payment(t, order.ID, "ORD-240501-IIII-2", "midtrans", 1000000)
	f.clock.Advance(2 * time.Hour)

	count, err := f.svc.ExpireStale(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	repo := repository.Provide()
	got, err := repo.FindByID(ctx, f.db, old.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = repo.FindByID(ctx, f.db, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	got, err = repo.FindByID(ctx, f.db, proof.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.order(t, "ORD-240501-JJJJ", orderdomain.StatusPending)
	for i := 0; i < 3; i++ {
		f.payment(t, order.ID, "", domain.GatewayManualTransfer, 0)
	}

	page, err := f.svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Payments, 2)
	assert.True(t, page.PageInfo.HasMore)

	next, err := f.svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: page.PageInfo.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, next.Payments, 1)
	assert.False(t, next.PageInfo.HasMore)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
