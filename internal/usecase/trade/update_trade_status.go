package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

type UpdateTradeStatusInput struct {
	Status string
	// CashTopUpCents - новая доплата, только для countered.
	CashTopUpCents *int64
}

type UpdateTradeStatusUseCase struct {
	store     repository.Store
	inventory *inventory.Adjuster
	notifier  notify.Emitter
	settings  Settings
}

func NewUpdateTradeStatusUseCase(store repository.Store, inv *inventory.Adjuster, notifier notify.Emitter, settings Settings) *UpdateTradeStatusUseCase {
	return &UpdateTradeStatusUseCase{
		store:     store,
		inventory: inv,
		notifier:  notifier,
		settings:  settings,
	}
}

// Execute переводит сделку в новый статус. Принятие списывает остаток и запускает
// таймер, отмена возвращает остаток, если он был списан.
func (uc *UpdateTradeStatusUseCase) Execute(ctx context.Context, actor entity.Actor, tradeID uuid.UUID, input UpdateTradeStatusInput) (_ *entity.Trade, err error) {
	ctx, span := tracing.StartSpan(ctx, "trade.UpdateStatus", tracing.TradeID(tradeID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	status := valueobject.TradeStatus(input.Status)
	if !status.IsValid() || status == valueobject.TradeStatusPending {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректный статус сделки")
	}
	if status == valueobject.TradeStatusCountered {
		if input.CashTopUpCents == nil || *input.CashTopUpCents < 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "для встречного предложения нужна доплата")
		}
	}

	var previous valueobject.TradeStatus
	updated, err := mutate(ctx, uc.store, tradeID, func(tx repository.Tx, t *entity.Trade) error {
		now := uc.settings.now()
		if err := authorize(t, actor.ID, status); err != nil {
			return err
		}
		previous = t.Status

		switch status {
		case valueobject.TradeStatusAccepted:
			if err := t.TransitionTo(status, now); err != nil {
				return err
			}
			if _, err := uc.inventory.Reserve(ctx, tx, t.ListingID, t.Quantity, now); err != nil {
				return err
			}
			t.InventoryReserved = true
			t.StartTimer(now, uc.settings.window())

		case valueobject.TradeStatusCountered:
			if t.OfferedListingID == nil && *input.CashTopUpCents == 0 {
				return apperror.New(apperror.ErrCodeValidation, "предложение должно содержать товар или доплату")
			}
			if err := t.TransitionTo(status, now); err != nil {
				return err
			}
			t.CashTopUpCents = *input.CashTopUpCents

		case valueobject.TradeStatusCompleted:
			if t.IsExpired(now) {
				return apperror.New(apperror.ErrCodeInvalidState, "время сделки истекло")
			}
			if err := t.TransitionTo(status, now); err != nil {
				return err
			}

		case valueobject.TradeStatusCancelled:
			if err := t.TransitionTo(status, now); err != nil {
				return err
			}
			if t.InventoryReserved {
				if _, err := uc.inventory.Restore(ctx, tx, t.ListingID, t.Quantity, now); err != nil {
					return err
				}
				t.InventoryReserved = false
			}

		default:
			return t.TransitionTo(status, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Entry().WithFields(logrus.Fields{
		"trade_id": updated.ID,
		"from":     previous,
		"to":       updated.Status,
		"actor_id": actor.ID,
	}).Info("статус сделки изменён")

	uc.notifier.Notify(ctx, updated.CounterpartyOf(actor.ID), statusEvent(updated.Status), map[string]any{
		"trade_id": updated.ID,
		"from":     previous,
		"to":       updated.Status,
	})
	return updated, nil
}

// authorize: на исходное предложение отвечает продавец, на встречное - покупатель.
func authorize(t *entity.Trade, actorID uuid.UUID, status valueobject.TradeStatus) error {
	if !t.IsParty(actorID) {
		return apperror.ErrForbidden
	}

	responder := t.SellerID
	if t.Status == valueobject.TradeStatusCountered {
		responder = t.BuyerID
	}

	switch status {
	case valueobject.TradeStatusAccepted, valueobject.TradeStatusRejected:
		if actorID != responder {
			return apperror.New(apperror.ErrCodeForbidden, "ответить на предложение может только вторая сторона")
		}
	case valueobject.TradeStatusCountered, valueobject.TradeStatusCompleted:
		if actorID != t.SellerID {
			return apperror.New(apperror.ErrCodeForbidden, "действие доступно только продавцу")
		}
	case valueobject.TradeStatusWithdrawn:
		if actorID != t.BuyerID {
			return apperror.New(apperror.ErrCodeForbidden, "отозвать предложение может только покупатель")
		}
	}
	return nil
}

func statusEvent(status valueobject.TradeStatus) string {
	switch status {
	case valueobject.TradeStatusAccepted:
		return notify.EventTradeAccepted
	case valueobject.TradeStatusRejected:
		return notify.EventTradeRejected
	case valueobject.TradeStatusCountered:
		return notify.EventTradeCountered
	case valueobject.TradeStatusWithdrawn:
		return notify.EventTradeWithdrawn
	default:
		return notify.EventTradeStatusChanged
	}
}
