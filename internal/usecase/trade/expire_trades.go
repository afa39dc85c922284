package trade

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

// ExpireTradesUseCase отменяет принятые сделки с истёкшим таймером и возвращает остатки.
type ExpireTradesUseCase struct {
	store     repository.Store
	inventory *inventory.Adjuster
	notifier  notify.Emitter
	settings  Settings
}

func NewExpireTradesUseCase(store repository.Store, inv *inventory.Adjuster, notifier notify.Emitter, settings Settings) *ExpireTradesUseCase {
	return &ExpireTradesUseCase{
		store:     store,
		inventory: inv,
		notifier:  notifier,
		settings:  settings,
	}
}

// ExpireBatch - итог одного прохода. Next указывает за последнего просмотренного
// кандидата, в том числе за сделки, которые отменить не удалось.
type ExpireBatch struct {
	Scanned int
	Expired int
	Failed  int
	Next    *repository.TradeCursor
}

// Execute обрабатывает до limit кандидатов после after (nil - с начала).
// Ошибка по одной сделке логируется и не останавливает остальные.
func (uc *ExpireTradesUseCase) Execute(ctx context.Context, after *repository.TradeCursor, limit int) (ExpireBatch, error) {
	batch := ExpireBatch{Next: after}

	now := uc.settings.now()
	candidates, err := uc.store.ListExpiredTrades(ctx, now, after, limit)
	if err != nil {
		return batch, common.StoreError(err, nil, "не удалось получить просроченные сделки")
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		batch.Scanned++
		batch.Next = repository.CursorAfter(candidate)

		t, err := uc.expireOne(ctx, candidate)
		if err != nil {
			batch.Failed++
			logger.Entry().WithError(err).WithField("trade_id", candidate.ID).Warn("не удалось отменить просроченную сделку")
			continue
		}
		if t == nil {
			continue
		}

		batch.Expired++
		metrics.TradesExpiredTotal.Inc()
		payload := map[string]any{"trade_id": t.ID, "listing_id": t.ListingID}
		uc.notifier.Notify(ctx, t.BuyerID, notify.EventTradeExpired, payload)
		uc.notifier.Notify(ctx, t.SellerID, notify.EventTradeExpired, payload)
	}

	if batch.Expired > 0 {
		logger.Entry().WithField("count", batch.Expired).Info("просроченные сделки отменены")
	}
	return batch, nil
}

// expireOne возвращает nil без ошибки, если сделку успели продлить, поставить
// на паузу или завершить после выборки кандидатов.
func (uc *ExpireTradesUseCase) expireOne(ctx context.Context, candidate *entity.Trade) (*entity.Trade, error) {
	var expired *entity.Trade
	err := txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		expired = nil
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			now := uc.settings.now()
			t, err := tx.GetTradeForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !t.IsExpired(now) {
				return nil
			}

			if err := t.TransitionTo(valueobject.TradeStatusCancelled, now); err != nil {
				return err
			}
			if t.InventoryReserved {
				if _, err := uc.inventory.Restore(ctx, tx, t.ListingID, t.Quantity, now); err != nil {
					return err
				}
				t.InventoryReserved = false
			}
			if err := tx.UpdateTrade(ctx, t); err != nil {
				return err
			}
			expired = t
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось отменить сделку")
	}

	if expired != nil {
		logger.Entry().WithFields(logrus.Fields{
			"trade_id":   expired.ID,
			"listing_id": expired.ListingID,
			"quantity":   expired.Quantity,
		}).Info("сделка отменена по таймеру")
	}
	return expired, nil
}
