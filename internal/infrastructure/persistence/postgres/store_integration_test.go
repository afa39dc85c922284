//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ignatzorin/swapmarket-backend/internal/db"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/postgres"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("swapmarket"),
		tcpostgres.WithUsername("market"),
		tcpostgres.WithPassword("market"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.RunMigrations(ctx, conn))
	return conn
}

func seedListing(t *testing.T, store *postgres.Store, qty int) *entity.Listing {
	t.Helper()
	price := int64(1000)
	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &entity.Listing{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Title:        "велосипед",
		PriceCents:   &price,
		CurrencyCode: "RUB",
		Quantity:     qty,
		Status:       valueobject.ListingStatusActive,
		DistressSale: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.PutListing(context.Background(), l))
	return l
}

func createOrder(t *testing.T, store *postgres.Store, listing *entity.Listing, qty int) *entity.Order {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	var order *entity.Order
	err := repository.WithTx(ctx, store, func(tx repository.Tx) error {
		locked, err := tx.GetListingForUpdate(ctx, listing.ID)
		if err != nil {
			return err
		}
		if err := locked.Reserve(qty, now); err != nil {
			return err
		}
		if err := tx.UpdateListing(ctx, locked); err != nil {
			return err
		}

		order = entity.NewOrder(uuid.New(), listing.OwnerID, "RUB", "pickup", now)
		order.AddItem(locked, qty, valueobject.DealTypeCash, nil)
		order.Escrow = entity.NewEscrowHold(order.ID, order.Total(), now)
		return tx.CreateOrder(ctx, order)
	})
	require.NoError(t, err)
	return order
}

func TestStore_OrderRoundTrip(t *testing.T) {
	store := postgres.NewStore(startPostgres(t))
	ctx := context.Background()
	listing := seedListing(t, store, 5)
	order := createOrder(t, store, listing, 2)

	got, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.TotalPriceCents)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1000), got.Items[0].PriceCents)
	require.NotNil(t, got.Escrow)
	assert.Equal(t, valueobject.EscrowStatusHeld, got.Escrow.Status)

	l, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Quantity)

	list, err := store.ListOrdersByUser(ctx, listing.OwnerID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 1)

	_, err = store.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_OneActiveDisputePerOrder(t *testing.T) {
	store := postgres.NewStore(startPostgres(t))
	ctx := context.Background()
	order := createOrder(t, store, seedListing(t, store, 5), 1)
	now := time.Now().UTC()

	first, err := entity.NewDispute(order.ID, order.BuyerID, "item_not_received", "нет посылки", []string{"https://img/1.jpg"}, now)
	require.NoError(t, err)
	require.NoError(t, repository.WithTx(ctx, store, func(tx repository.Tx) error {
		return tx.CreateDispute(ctx, first)
	}))

	second, err := entity.NewDispute(order.ID, order.SellerID, "other", "", nil, now)
	require.NoError(t, err)
	err = repository.WithTx(ctx, store, func(tx repository.Tx) error {
		return tx.CreateDispute(ctx, second)
	})
	assert.ErrorIs(t, err, repository.ErrActiveDisputeExists)

	active, err := store.GetActiveDisputeByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, []string{"https://img/1.jpg"}, active.EvidenceImages)

	require.NoError(t, repository.WithTx(ctx, store, func(tx repository.Tx) error {
		d, err := tx.GetDisputeForUpdate(ctx, first.ID)
		if err != nil {
			return err
		}
		if err := d.Resolve(valueobject.ResolutionNoAction, uuid.New(), "", now); err != nil {
			return err
		}
		return tx.UpdateDispute(ctx, d)
	}))

	require.NoError(t, repository.WithTx(ctx, store, func(tx repository.Tx) error {
		return tx.CreateDispute(ctx, second)
	}))

	history, err := store.ListDisputesByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	mine, err := store.ListDisputesByUser(ctx, order.SellerID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestStore_ListingLockSerializesReservations(t *testing.T) {
	store := postgres.NewStore(startPostgres(t))
	ctx := context.Background()
	listing := seedListing(t, store, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repository.WithTx(ctx, store, func(tx repository.Tx) error {
				l, err := tx.GetListingForUpdate(ctx, listing.ID)
				if err != nil {
					return err
				}
				if err := l.Reserve(1, time.Now().UTC()); err != nil {
					return err
				}
				return tx.UpdateListing(ctx, l)
			})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	l, err := store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Quantity)
	assert.Equal(t, valueobject.ListingStatusSold, l.Status)
}

func TestStore_ListExpiredTrades(t *testing.T) {
	store := postgres.NewStore(startPostgres(t))
	ctx := context.Background()
	listing := seedListing(t, store, 3)
	now := time.Now().UTC().Truncate(time.Microsecond)

	tr, err := entity.NewTrade(uuid.New(), listing.OwnerID, listing.ID, nil, 500, 1, "", now)
	require.NoError(t, err)
	require.NoError(t, tr.TransitionTo(valueobject.TradeStatusAccepted, now))
	tr.StartTimer(now, time.Hour)

	require.NoError(t, repository.WithTx(ctx, store, func(tx repository.Tx) error {
		return tx.CreateTrade(ctx, tr)
	}))

	expired, err := store.ListExpiredTrades(ctx, now.Add(30*time.Minute), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = store.ListExpiredTrades(ctx, now.Add(2*time.Hour), nil, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, tr.ID, expired[0].ID)

	expired, err = store.ListExpiredTrades(ctx, now.Add(2*time.Hour), repository.CursorAfter(tr), 10)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
