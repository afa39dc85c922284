package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/testutil"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/order"
)

func placeOrder(t *testing.T, f *fixture, qty int, opts ...testutil.ListingOption) (*entity.Order, *entity.Listing) {
	t.Helper()
	opts = append([]testutil.ListingOption{testutil.WithQuantity(5)}, opts...)
	listing := testutil.SeedListing(f.store, opts...)

	created, err := f.create.Execute(context.Background(), testutil.User(uuid.New()), order.CreateOrderInput{
		Items: []order.ItemInput{{ListingID: listing.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return created, listing
}

func TestUpdateOrderStatus_OnlySeller(t *testing.T) {
	f := newFixture()
	o, _ := placeOrder(t, f, 1)

	_, err := f.status.Execute(context.Background(), testutil.User(o.BuyerID), o.ID, "paid")
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.status.Execute(context.Background(), testutil.User(o.SellerID), uuid.New(), "paid")
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateOrderStatus_IllegalTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := placeOrder(t, f, 1)
	seller := testutil.User(o.SellerID)

	_, err := f.status.Execute(ctx, seller, o.ID, "fulfilled")
	assert.True(t, apperror.IsInvalidOperation(err))

	_, err = f.status.Execute(ctx, seller, o.ID, "shipped")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.status.Execute(ctx, seller, o.ID, "paid")
	require.NoError(t, err)
	fulfilled, err := f.status.Execute(ctx, seller, o.ID, "fulfilled")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusFulfilled, fulfilled.Status)

	// из завершённого заказа не уходит никуда, даже в тот же статус
	for _, status := range []string{"cancelled", "fulfilled", "paid"} {
		_, err = f.status.Execute(ctx, seller, o.ID, status)
		assert.True(t, apperror.IsInvalidOperation(err))
		assert.ErrorContains(t, err, "заказ уже завершён")
	}
}

func TestUpdateOrderStatus_CancelPendingRestoresInventory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, listing := placeOrder(t, f, 2, testutil.DistressSale())

	cancelled, err := f.status.Execute(ctx, testutil.User(o.SellerID), o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, valueobject.PaymentStatusUnpaid, cancelled.PaymentStatus)
	require.NotNil(t, cancelled.Escrow)
	assert.Equal(t, valueobject.EscrowStatusExpired, cancelled.Escrow.Status)

	stored, _ := f.store.GetListing(ctx, listing.ID)
	assert.Equal(t, 5, stored.Quantity)

	events := f.notifier.OfType(notify.EventOrderStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, o.BuyerID, events[0].UserID)
}

func TestUpdateOrderStatus_FulfilReleasesEscrow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := placeOrder(t, f, 1, testutil.DistressSale())
	seller := testutil.User(o.SellerID)

	_, err := f.status.Execute(ctx, seller, o.ID, "paid")
	require.NoError(t, err)
	done, err := f.status.Execute(ctx, seller, o.ID, "fulfilled")
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusReleased, done.Escrow.Status)
	assert.NotNil(t, done.Escrow.ReleasedAt)
}

func TestUpdateOrderStatus_CancelPaidRefundsThroughGateway(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, listing := placeOrder(t, f, 1, testutil.DistressSale())
	buyer := testutil.User(o.BuyerID)
	seller := testutil.User(o.SellerID)

	f.gateway.On("Initiate", mock.Anything, o.ID, int64(1000), "RUB", "payment-"+o.ID.String()).Return("pi_123", nil).Once()
	_, err := f.pay.Execute(ctx, buyer, o.ID)
	require.NoError(t, err)
	_, err = f.status.Execute(ctx, seller, o.ID, "paid")
	require.NoError(t, err)

	f.gateway.On("Refund", mock.Anything, "pi_123", "refund-"+o.ID.String()).Return(errors.New("provider down")).Once()
	_, err = f.status.Execute(ctx, seller, o.ID, "cancelled")
	assert.Equal(t, apperror.ErrCodePayment, apperror.CodeOf(err))

	unchanged, _ := f.get.Execute(ctx, seller, o.ID)
	assert.Equal(t, valueobject.OrderStatusPaid, unchanged.Status)
	assert.Equal(t, valueobject.EscrowStatusHeld, unchanged.Escrow.Status)

	f.gateway.On("Refund", mock.Anything, "pi_123", "refund-"+o.ID.String()).Return(nil).Once()
	cancelled, err := f.status.Execute(ctx, seller, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.Equal(t, valueobject.EscrowStatusRefunded, cancelled.Escrow.Status)

	stored, _ := f.store.GetListing(ctx, listing.ID)
	assert.Equal(t, 5, stored.Quantity)
	f.gateway.AssertExpectations(t)
}

func TestInitiatePayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := placeOrder(t, f, 2)
	buyer := testutil.User(o.BuyerID)

	_, err := f.pay.Execute(ctx, testutil.User(o.SellerID), o.ID)
	assert.True(t, apperror.IsForbidden(err))

	f.gateway.On("Initiate", mock.Anything, o.ID, int64(2000), "RUB", "payment-"+o.ID.String()).
		Return("", apperror.New(apperror.ErrCodePayment, "declined")).Once()
	_, err = f.pay.Execute(ctx, buyer, o.ID)
	assert.Equal(t, apperror.ErrCodePayment, apperror.CodeOf(err))

	f.gateway.On("Initiate", mock.Anything, o.ID, int64(2000), "RUB", "payment-"+o.ID.String()).Return("offline_abc", nil).Once()
	paid, err := f.pay.Execute(ctx, buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusInitiated, paid.PaymentStatus)
	assert.Equal(t, "offline_abc", *paid.PaymentReference)

	// повторный вызов не ходит в шлюз
	again, err := f.pay.Execute(ctx, buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "offline_abc", *again.PaymentReference)
	f.gateway.AssertExpectations(t)

	assert.Len(t, f.notifier.OfType(notify.EventOrderPaymentInitiated), 1)
}

func TestGetAndListOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := placeOrder(t, f, 1)

	_, err := f.get.Execute(ctx, testutil.User(uuid.New()), o.ID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.get.Execute(ctx, testutil.Admin(), o.ID)
	assert.NoError(t, err)

	mine, err := f.list.Execute(ctx, testutil.User(o.SellerID), 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)

	none, err := f.list.Execute(ctx, testutil.User(uuid.New()), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
