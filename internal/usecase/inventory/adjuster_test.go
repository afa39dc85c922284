package inventory_test

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
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

func newListing(store *memory.Store, qty int) *entity.Listing {
	l := &entity.Listing{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		CurrencyCode: "RUB",
		Quantity:     qty,
		Status:       valueobject.ListingStatusActive,
	}
	store.PutListing(l)
	return l
}

func TestAdjuster_ReserveThenRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	adj := inventory.NewAdjuster()
	l := newListing(store, 2)
	now := time.Now()

	err := repository.WithTx(ctx, store, func(tx repository.Tx) error {
		_, err := adj.Reserve(ctx, tx, l.ID, 2, now)
		return err
	})
	require.NoError(t, err)

	sold, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 0, sold.Quantity)
	assert.Equal(t, valueobject.ListingStatusSold, sold.Status)

	err = repository.WithTx(ctx, store, func(tx repository.Tx) error {
		_, err := adj.Restore(ctx, tx, l.ID, 2, now)
		return err
	})
	require.NoError(t, err)

	restored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 2, restored.Quantity)
	assert.Equal(t, valueobject.ListingStatusActive, restored.Status)
}

func TestAdjuster_ReserveLinesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	adj := inventory.NewAdjuster()
	plenty := newListing(store, 10)
	scarce := newListing(store, 1)

	err := repository.WithTx(ctx, store, func(tx repository.Tx) error {
		_, err := adj.ReserveLines(ctx, tx, []inventory.Line{
			{ListingID: plenty.ID, Quantity: 3},
			{ListingID: scarce.ID, Quantity: 2},
		}, time.Now())
		return err
	})
	assert.True(t, apperror.IsInvalidOperation(err))

	got, _ := store.GetListing(ctx, plenty.ID)
	assert.Equal(t, 10, got.Quantity)
}

func TestAdjuster_MissingListing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := repository.WithTx(ctx, store, func(tx repository.Tx) error {
		_, err := inventory.NewAdjuster().Restore(ctx, tx, uuid.New(), 1, time.Now())
		return err
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestMerge(t *testing.T) {
	id := uuid.New()
	other := uuid.New()

	merged := inventory.Merge([]inventory.Line{
		{ListingID: id, Quantity: 1},
		{ListingID: other, Quantity: 4},
		{ListingID: id, Quantity: 2},
	})

	require.Len(t, merged, 2)
	total := map[uuid.UUID]int{}
	for _, line := range merged {
		total[line.ListingID] = line.Quantity
	}
	assert.Equal(t, 3, total[id])
	assert.Equal(t, 4, total[other])
	assert.True(t, merged[0].ListingID.String() < merged[1].ListingID.String())
}
