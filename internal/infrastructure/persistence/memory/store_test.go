package memory

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
)

func seedListing(s *Store, qty int) *entity.Listing {
	price := int64(1000)
	l := &entity.Listing{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		PriceCents:   &price,
		CurrencyCode: "RUB",
		Quantity:     qty,
		Status:       valueobject.ListingStatusActive,
	}
	s.PutListing(l)
	return l
}

func TestTx_CommitAppliesAndRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	l := seedListing(s, 5)

	err := repository.WithTx(ctx, s, func(tx repository.Tx) error {
		row, err := tx.GetListingForUpdate(ctx, l.ID)
		require.NoError(t, err)
		row.Quantity = 3
		return tx.UpdateListing(ctx, row)
	})
	require.NoError(t, err)

	got, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	row, err := tx.GetListingForUpdate(ctx, l.ID)
	require.NoError(t, err)
	row.Quantity = 0
	require.NoError(t, tx.UpdateListing(ctx, row))
	require.NoError(t, tx.Rollback())

	got, err = s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
}

func TestTx_ConcurrentUpdateConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	l := seedListing(s, 5)

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	second, err := s.Begin(ctx)
	require.NoError(t, err)

	a, err := first.GetListingForUpdate(ctx, l.ID)
	require.NoError(t, err)
	b, err := second.GetListingForUpdate(ctx, l.ID)
	require.NoError(t, err)

	a.Quantity--
	b.Quantity--
	require.NoError(t, first.UpdateListing(ctx, a))
	require.NoError(t, second.UpdateListing(ctx, b))

	require.NoError(t, first.Commit())
	err = second.Commit()
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.True(t, repository.IsRetryable(err))

	got, _ := s.GetListing(ctx, l.ID)
	assert.Equal(t, 4, got.Quantity)
}

func TestTx_SecondActiveDisputeRejectedAtCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orderID := uuid.New()
	now := time.Now()

	first, _ := s.Begin(ctx)
	second, _ := s.Begin(ctx)

	// обе транзакции видят, что активного спора нет
	_, err := first.FindActiveDispute(ctx, orderID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = second.FindActiveDispute(ctx, orderID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	d1, err := entity.NewDispute(orderID, uuid.New(), "item_damaged", "", nil, now)
	require.NoError(t, err)
	d2, err := entity.NewDispute(orderID, uuid.New(), "item_damaged", "", nil, now)
	require.NoError(t, err)
	require.NoError(t, first.CreateDispute(ctx, d1))
	require.NoError(t, second.CreateDispute(ctx, d2))

	require.NoError(t, first.Commit())
	assert.ErrorIs(t, second.Commit(), repository.ErrActiveDisputeExists)

	active, err := s.GetActiveDisputeByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, d1.ID, active.ID)
}

func TestTx_ClosedDisputeAllowsNewOne(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	orderID := uuid.New()
	now := time.Now()

	old, _ := entity.NewDispute(orderID, uuid.New(), "other", "", nil, now)
	require.NoError(t, repository.WithTx(ctx, s, func(tx repository.Tx) error {
		return tx.CreateDispute(ctx, old)
	}))

	fresh, _ := entity.NewDispute(orderID, uuid.New(), "other", "", nil, now)
	err := repository.WithTx(ctx, s, func(tx repository.Tx) error {
		d, err := tx.GetDisputeForUpdate(ctx, old.ID)
		if err != nil {
			return err
		}
		if err := d.Reject(uuid.New(), "", now); err != nil {
			return err
		}
		if err := tx.UpdateDispute(ctx, d); err != nil {
			return err
		}
		return tx.CreateDispute(ctx, fresh)
	})
	require.NoError(t, err)

	disputes, err := s.ListDisputesByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, disputes, 2)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	l := seedListing(s, 5)

	got, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	got.Quantity = 100
	*got.PriceCents = 1

	again, _ := s.GetListing(ctx, l.ID)
	assert.Equal(t, 5, again.Quantity)
	assert.Equal(t, int64(1000), *again.PriceCents)

	_, err = s.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ListExpiredTrades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mk := func(window time.Duration, paused bool) *entity.Trade {
		tr, err := entity.NewTrade(uuid.New(), uuid.New(), uuid.New(), nil, 100, 1, "", now)
		require.NoError(t, err)
		require.NoError(t, tr.TransitionTo(valueobject.TradeStatusAccepted, now))
		tr.StartTimer(now, window)
		if paused {
			require.NoError(t, tr.PauseTimer(now))
		}
		require.NoError(t, repository.WithTx(ctx, s, func(tx repository.Tx) error {
			return tx.CreateTrade(ctx, tr)
		}))
		return tr
	}

	expired := mk(time.Minute, false)
	mk(time.Hour, false)
	mk(time.Minute, true)
	later := mk(5*time.Minute, false)

	result, err := s.ListExpiredTrades(ctx, now.Add(10*time.Minute), nil, 10)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, expired.ID, result[0].ID)
	assert.Equal(t, later.ID, result[1].ID)

	result, err = s.ListExpiredTrades(ctx, now.Add(10*time.Minute), repository.CursorAfter(result[0]), 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, later.ID, result[0].ID)

	result, err = s.ListExpiredTrades(ctx, now.Add(10*time.Minute), repository.CursorAfter(later), 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}
