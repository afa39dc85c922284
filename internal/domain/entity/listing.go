package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// Listing - складской срез объявления. Остальные поля принадлежат сервису каталога.
type Listing struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	PriceCents   *int64
	CurrencyCode string
	Quantity     int
	Status       valueobject.ListingStatus
	DistressSale bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l *Listing) HasPrice() bool {
	return l.PriceCents != nil
}

func (l *Listing) Price() valueobject.Money {
	if l.PriceCents == nil {
		return valueobject.Money{Currency: l.CurrencyCode}
	}
	return valueobject.Money{Cents: *l.PriceCents, Currency: l.CurrencyCode}
}

// Reserve списывает qty единиц; объявление без остатка уходит в sold.
func (l *Listing) Reserve(qty int, now time.Time) error {
	if qty < 1 {
		return apperror.New(apperror.ErrCodeValidation, "количество должно быть не меньше 1")
	}
	if l.Status != valueobject.ListingStatusActive {
		return apperror.New(apperror.ErrCodeInvalidOperation, "объявление недоступно для покупки")
	}
	if l.Quantity < qty {
		return apperror.New(apperror.ErrCodeInvalidOperation, "недостаточно товара в наличии")
	}

	l.Quantity -= qty
	if l.Quantity == 0 {
		l.Status = valueobject.ListingStatusSold
	}
	l.UpdatedAt = now
	return nil
}

// Restore возвращает qty единиц и всегда делает объявление активным, даже если оно было sold.
func (l *Listing) Restore(qty int, now time.Time) {
	l.Quantity += qty
	l.Status = valueobject.ListingStatusActive
	l.UpdatedAt = now
}
