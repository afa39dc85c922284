package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

type Order struct {
	ID               uuid.UUID
	BuyerID          uuid.UUID
	SellerID         uuid.UUID
	TotalPriceCents  int64
	CurrencyCode     string
	Status           valueobject.OrderStatus
	PaymentStatus    valueobject.PaymentStatus
	PaymentReference *string
	ShippingMethod   string
	ReversedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Items  []OrderItem
	Escrow *EscrowTransaction
}

// OrderItem принадлежит заказу и удаляется только вместе с ним.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ListingID     uuid.UUID
	Quantity      int
	DealType      valueobject.DealType
	PriceCents    int64
	BarterOfferID *uuid.UUID
}

func NewOrder(buyerID, sellerID uuid.UUID, currencyCode, shippingMethod string, now time.Time) *Order {
	return &Order{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		SellerID:       sellerID,
		CurrencyCode:   currencyCode,
		Status:         valueobject.OrderStatusPending,
		PaymentStatus:  valueobject.PaymentStatusUnpaid,
		ShippingMethod: shippingMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddItem фиксирует цену объявления на момент создания; бартерные позиции в сумму не входят.
func (o *Order) AddItem(listing *Listing, quantity int, dealType valueobject.DealType, barterOfferID *uuid.UUID) {
	var price int64
	if listing.PriceCents != nil {
		price = *listing.PriceCents
	}

	o.Items = append(o.Items, OrderItem{
		ID:            uuid.New(),
		OrderID:       o.ID,
		ListingID:     listing.ID,
		Quantity:      quantity,
		DealType:      dealType,
		PriceCents:    price,
		BarterOfferID: barterOfferID,
	})

	if dealType.IncludesCash() {
		o.TotalPriceCents += price * int64(quantity)
	}
}

func (o *Order) Total() valueobject.Money {
	return valueobject.Money{Cents: o.TotalPriceCents, Currency: o.CurrencyCode}
}

func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// CounterpartyOf возвращает второго участника заказа.
func (o *Order) CounterpartyOf(userID uuid.UUID) uuid.UUID {
	if userID == o.BuyerID {
		return o.SellerID
	}
	return o.BuyerID
}

// IsReversed: остатки по заказу уже возвращены на склад (отмена или протокол возврата).
func (o *Order) IsReversed() bool {
	return o.ReversedAt != nil
}

func (o *Order) TransitionTo(newStatus valueobject.OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(newStatus) {
		return apperror.New(apperror.ErrCodeInvalidOperation,
			fmt.Sprintf("переход заказа из %s в %s недопустим", o.Status, newStatus))
	}

	switch newStatus {
	case valueobject.OrderStatusPaid:
		o.PaymentStatus = valueobject.PaymentStatusPaid
	case valueobject.OrderStatusCancelled:
		if o.PaymentStatus == valueobject.PaymentStatusPaid {
			o.PaymentStatus = valueobject.PaymentStatusRefunded
		}
		o.ReversedAt = &now
	}

	o.Status = newStatus
	o.UpdatedAt = now
	return nil
}

// Reverse переводит заказ в cancelled/refunded из любого статуса. Вызывается только протоколом возврата.
func (o *Order) Reverse(now time.Time) {
	o.Status = valueobject.OrderStatusCancelled
	o.PaymentStatus = valueobject.PaymentStatusRefunded
	if o.ReversedAt == nil {
		o.ReversedAt = &now
	}
	o.UpdatedAt = now
}

func (o *Order) AttachPayment(reference string, now time.Time) {
	o.PaymentReference = &reference
	o.PaymentStatus = valueobject.PaymentStatusInitiated
	o.UpdatedAt = now
}
