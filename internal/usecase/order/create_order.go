package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

const maxOrderItems = 50

type CreateOrderInput struct {
	Items          []ItemInput
	ShippingMethod string
}

type ItemInput struct {
	ListingID     uuid.UUID
	Quantity      int
	DealType      string
	BarterOfferID *uuid.UUID
}

type orderLine struct {
	listingID     uuid.UUID
	quantity      int
	dealType      valueobject.DealType
	barterOfferID *uuid.UUID
}

type CreateOrderUseCase struct {
	store     repository.Store
	inventory *inventory.Adjuster
	escrow    *escrow.Ledger
	notifier  notify.Emitter
}

func NewCreateOrderUseCase(store repository.Store, inv *inventory.Adjuster, ledger *escrow.Ledger, notifier notify.Emitter) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		store:     store,
		inventory: inv,
		escrow:    ledger,
		notifier:  notifier,
	}
}

// Execute создаёт заказ: фиксирует цены позиций, списывает остатки и, для
// distress-объявлений, открывает эскроу. Всё в одной транзакции.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, actor entity.Actor, input CreateOrderInput) (_ *entity.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.Create", tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	lines, err := parseLines(input.Items)
	if err != nil {
		return nil, err
	}

	// дешёвые проверки до открытия транзакции
	listings := make([]*entity.Listing, len(lines))
	for i, line := range lines {
		listing, err := uc.store.GetListing(ctx, line.listingID)
		if err != nil {
			return nil, common.StoreError(err, apperror.ErrListingNotFound, "не удалось получить объявление")
		}
		listings[i] = listing
	}
	if _, err := checkListings(actor.ID, lines, listings); err != nil {
		return nil, err
	}

	var order *entity.Order
	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			now := time.Now().UTC()

			trades, err := claimTrades(ctx, tx, actor.ID, lines, now)
			if err != nil {
				return err
			}

			stock := make([]inventory.Line, len(lines))
			for i, line := range lines {
				qty := line.quantity
				// остаток уже списан при принятии сделки и переходит к заказу
				if trades[i] != nil && trades[i].InventoryReserved {
					qty = 0
				}
				stock[i] = inventory.Line{ListingID: line.listingID, Quantity: qty}
			}
			locked, err := uc.inventory.ReserveLines(ctx, tx, stock, now)
			if err != nil {
				return err
			}

			// объявления могли поменяться после предварительной проверки
			current := make([]*entity.Listing, len(lines))
			for i, line := range lines {
				current[i] = locked[line.listingID]
			}
			summary, err := checkListings(actor.ID, lines, current)
			if err != nil {
				return err
			}

			o := entity.NewOrder(actor.ID, summary.sellerID, summary.currency, input.ShippingMethod, now)
			for i, line := range lines {
				o.AddItem(current[i], line.quantity, line.dealType, line.barterOfferID)
			}
			uc.escrow.Hold(o, summary.distressSale, now)

			if err := tx.CreateOrder(ctx, o); err != nil {
				return err
			}
			for _, t := range trades {
				if t == nil {
					continue
				}
				t.InventoryReserved = false
				if err := tx.UpdateTrade(ctx, t); err != nil {
					return err
				}
			}
			order = o
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrListingNotFound, "не удалось создать заказ")
	}

	metrics.OrdersCreatedTotal.WithLabelValues(order.CurrencyCode, boolLabel(order.Escrow != nil)).Inc()
	metrics.OrdersCreatedAmountTotal.WithLabelValues(order.CurrencyCode).Add(float64(order.TotalPriceCents))

	logger.Entry().WithFields(logrus.Fields{
		"order_id":  order.ID,
		"buyer_id":  order.BuyerID,
		"seller_id": order.SellerID,
		"total":     order.TotalPriceCents,
	}).Info("заказ создан")

	uc.notifier.Notify(ctx, order.SellerID, notify.EventOrderCreated, map[string]any{
		"order_id":          order.ID,
		"buyer_id":          order.BuyerID,
		"total_price_cents": order.TotalPriceCents,
		"currency":          order.CurrencyCode,
	})

	return order, nil
}

func parseLines(items []ItemInput) ([]orderLine, error) {
	if len(items) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "заказ должен содержать хотя бы одну позицию")
	}
	if len(items) > maxOrderItems {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много позиций в заказе")
	}

	lines := make([]orderLine, 0, len(items))
	offers := make(map[uuid.UUID]struct{})
	for _, item := range items {
		if item.ListingID == uuid.Nil {
			return nil, apperror.New(apperror.ErrCodeValidation, "не указано объявление")
		}
		if item.Quantity < 1 {
			return nil, apperror.New(apperror.ErrCodeValidation, "количество должно быть не меньше 1")
		}
		dealType, err := valueobject.NewDealType(item.DealType)
		if err != nil {
			return nil, err
		}
		if item.BarterOfferID != nil {
			if dealType == valueobject.DealTypeCash {
				return nil, apperror.New(apperror.ErrCodeValidation, "бартерное предложение указывается только для обмена")
			}
			if _, dup := offers[*item.BarterOfferID]; dup {
				return nil, apperror.New(apperror.ErrCodeValidation, "бартерное предложение указано дважды")
			}
			offers[*item.BarterOfferID] = struct{}{}
		}
		lines = append(lines, orderLine{
			listingID:     item.ListingID,
			quantity:      item.Quantity,
			dealType:      dealType,
			barterOfferID: item.BarterOfferID,
		})
	}
	return lines, nil
}

// claimTrades проверяет бартерные предложения позиций и закрывает их заказом.
// Сделка должна быть принята этим покупателем по тому же объявлению и количеству.
func claimTrades(ctx context.Context, tx repository.Tx, buyerID uuid.UUID, lines []orderLine, now time.Time) ([]*entity.Trade, error) {
	trades := make([]*entity.Trade, len(lines))
	for i, line := range lines {
		if line.barterOfferID == nil {
			continue
		}

		t, err := tx.GetTradeForUpdate(ctx, *line.barterOfferID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.ErrTradeNotFound
			}
			return nil, err
		}

		switch {
		case t.BuyerID != buyerID:
			return nil, apperror.New(apperror.ErrCodeInvalidOperation, "бартерное предложение принадлежит другому покупателю")
		case t.ListingID != line.listingID:
			return nil, apperror.New(apperror.ErrCodeInvalidOperation, "бартерное предложение относится к другому объявлению")
		case !t.Status.InFlight():
			return nil, apperror.New(apperror.ErrCodeInvalidOperation, "бартерное предложение не принято продавцом")
		case t.Quantity != line.quantity:
			return nil, apperror.New(apperror.ErrCodeInvalidOperation, "количество не совпадает с бартерным предложением")
		case t.IsExpired(now):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "время сделки истекло")
		}

		if err := t.TransitionTo(valueobject.TradeStatusCompleted, now); err != nil {
			return nil, err
		}
		trades[i] = t
	}
	return trades, nil
}

type listingSummary struct {
	sellerID     uuid.UUID
	currency     string
	distressSale bool
}

// checkListings проверяет инварианты заказа: один продавец, покупатель не продавец,
// у денежных позиций есть цена в одной валюте.
func checkListings(buyerID uuid.UUID, lines []orderLine, listings []*entity.Listing) (listingSummary, error) {
	var summary listingSummary

	for i, listing := range listings {
		if listing == nil {
			return summary, apperror.ErrListingNotFound
		}
		if listing.OwnerID == buyerID {
			return summary, apperror.New(apperror.ErrCodeInvalidOperation, "нельзя купить собственное объявление")
		}
		if summary.sellerID == uuid.Nil {
			summary.sellerID = listing.OwnerID
		} else if summary.sellerID != listing.OwnerID {
			return summary, apperror.New(apperror.ErrCodeInvalidOperation, "все позиции заказа должны быть от одного продавца")
		}

		if lines[i].dealType.IncludesCash() {
			if !listing.HasPrice() {
				return summary, apperror.New(apperror.ErrCodeInvalidOperation, "у объявления не указана цена")
			}
			if summary.currency == "" {
				summary.currency = listing.CurrencyCode
			} else if summary.currency != listing.CurrencyCode {
				return summary, apperror.New(apperror.ErrCodeInvalidOperation, "позиции заказа в разных валютах")
			}
		}
		summary.distressSale = summary.distressSale || listing.DistressSale
	}

	if summary.sellerID == uuid.Nil {
		return summary, apperror.New(apperror.ErrCodeInvalidOperation, "не удалось определить продавца")
	}
	if summary.currency == "" {
		summary.currency = listings[0].CurrencyCode
	}
	if summary.currency == "" {
		summary.currency = valueobject.DefaultCurrency
	}
	return summary, nil
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
