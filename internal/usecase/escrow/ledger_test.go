package escrow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
)

func storedOrder(t *testing.T, store *memory.Store, ledger *escrow.Ledger, distress bool, total int64) *entity.Order {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	order := entity.NewOrder(uuid.New(), uuid.New(), "RUB", "", now)
	order.TotalPriceCents = total
	ledger.Hold(order, distress, now)

	require.NoError(t, repository.WithTx(ctx, store, func(tx repository.Tx) error {
		return tx.CreateOrder(ctx, order)
	}))
	return order
}

func TestLedger_HoldOnlyForDistressWithCash(t *testing.T) {
	store := memory.NewStore()
	ledger := escrow.NewLedger(store)

	assert.Nil(t, storedOrder(t, store, ledger, false, 1000).Escrow)
	assert.Nil(t, storedOrder(t, store, ledger, true, 0).Escrow)

	held := storedOrder(t, store, ledger, true, 1000)
	require.NotNil(t, held.Escrow)
	assert.Equal(t, valueobject.EscrowStatusHeld, held.Escrow.Status)
	assert.Equal(t, int64(1000), held.Escrow.AmountCents)
}

func TestLedger_RefundIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := escrow.NewLedger(store)
	order := storedOrder(t, store, ledger, true, 1000)

	refund := func() error {
		return repository.WithTx(ctx, store, func(tx repository.Tx) error {
			locked, err := tx.GetOrderForUpdate(ctx, order.ID)
			if err != nil {
				return err
			}
			return ledger.Refund(ctx, tx, locked, time.Now())
		})
	}
	require.NoError(t, refund())
	require.NoError(t, refund())

	got, err := ledger.Get(ctx, entity.Actor{ID: order.BuyerID, Role: entity.RoleUser}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusRefunded, got.Status)

	err = repository.WithTx(ctx, store, func(tx repository.Tx) error {
		locked, err := tx.GetOrderForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		return ledger.Release(ctx, tx, locked, time.Now())
	})
	assert.True(t, apperror.IsInvalidState(err))
}

func TestLedger_GetAccess(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := escrow.NewLedger(store)
	order := storedOrder(t, store, ledger, true, 500)
	plain := storedOrder(t, store, ledger, false, 500)

	_, err := ledger.Get(ctx, entity.Actor{ID: uuid.New(), Role: entity.RoleUser}, order.ID)
	assert.True(t, apperror.IsForbidden(err))

	_, err = ledger.Get(ctx, entity.Actor{ID: uuid.New(), Role: entity.RoleAdmin}, order.ID)
	assert.NoError(t, err)

	_, err = ledger.Get(ctx, entity.Actor{ID: plain.SellerID}, plain.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = ledger.Get(ctx, entity.Actor{ID: order.SellerID}, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}
