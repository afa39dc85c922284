// Package inventory меняет складские остатки объявлений. Через него проходят
// все три пути: создание заказа или сделки, протокол возврата и автоотмена по таймеру.
package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// Line - сколько единиц списать или вернуть по объявлению.
type Line struct {
	ListingID uuid.UUID
	Quantity  int
}

type Adjuster struct{}

func NewAdjuster() *Adjuster {
	return &Adjuster{}
}

// Reserve блокирует объявление и списывает qty единиц.
func (a *Adjuster) Reserve(ctx context.Context, tx repository.Tx, listingID uuid.UUID, qty int, now time.Time) (*entity.Listing, error) {
	listing, err := lockListing(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Reserve(qty, now); err != nil {
		return nil, err
	}
	if err := tx.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// Restore блокирует объявление, возвращает qty единиц и делает его активным.
func (a *Adjuster) Restore(ctx context.Context, tx repository.Tx, listingID uuid.UUID, qty int, now time.Time) (*entity.Listing, error) {
	listing, err := lockListing(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	listing.Restore(qty, now)
	if err := tx.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// ReserveLines списывает несколько позиций. Блокировки берутся в порядке id объявления,
// чтобы параллельные транзакции не упирались в deadlock. Строка с нулевым количеством
// только блокирует объявление.
func (a *Adjuster) ReserveLines(ctx context.Context, tx repository.Tx, lines []Line, now time.Time) (map[uuid.UUID]*entity.Listing, error) {
	locked := make(map[uuid.UUID]*entity.Listing)
	for _, line := range Merge(lines) {
		if line.Quantity == 0 {
			listing, err := lockListing(ctx, tx, line.ListingID)
			if err != nil {
				return nil, err
			}
			locked[listing.ID] = listing
			continue
		}
		listing, err := a.Reserve(ctx, tx, line.ListingID, line.Quantity, now)
		if err != nil {
			return nil, err
		}
		locked[listing.ID] = listing
	}
	return locked, nil
}

func (a *Adjuster) RestoreLines(ctx context.Context, tx repository.Tx, lines []Line, now time.Time) error {
	for _, line := range Merge(lines) {
		if _, err := a.Restore(ctx, tx, line.ListingID, line.Quantity, now); err != nil {
			return err
		}
	}
	return nil
}

// LinesFromItems собирает позиции заказа в строки склада.
func LinesFromItems(items []entity.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{ListingID: item.ListingID, Quantity: item.Quantity})
	}
	return lines
}

// Merge складывает количества по одному объявлению и сортирует по id.
func Merge(lines []Line) []Line {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		totals[line.ListingID] += line.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ListingID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ListingID.String() < merged[j].ListingID.String()
	})
	return merged
}

func lockListing(ctx context.Context, tx repository.Tx, id uuid.UUID) (*entity.Listing, error) {
	listing, err := tx.GetListingForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}
