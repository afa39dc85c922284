// Package trade - бартерные сделки: предложение, ответ продавца, таймер
// завершения и автоотмена просроченных сделок.
package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/timer"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

// Settings - окно таймера и источник времени. Нулевое значение: 24 часа и time.Now.
type Settings struct {
	Window time.Duration
	Now    func() time.Time
}

func (s Settings) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Settings) window() time.Duration {
	if s.Window <= 0 {
		return timer.DefaultWindow
	}
	return s.Window
}

// mutate блокирует сделку, применяет apply и сохраняет результат.
// Права проверяются внутри apply по заблокированной строке.
func mutate(ctx context.Context, store repository.Store, tradeID uuid.UUID, apply func(tx repository.Tx, t *entity.Trade) error) (*entity.Trade, error) {
	var updated *entity.Trade
	err := txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, store, func(tx repository.Tx) error {
			t, err := tx.GetTradeForUpdate(ctx, tradeID)
			if err != nil {
				return err
			}
			if err := apply(tx, t); err != nil {
				return err
			}
			if err := tx.UpdateTrade(ctx, t); err != nil {
				return err
			}
			updated = t
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrTradeNotFound, "не удалось обновить сделку")
	}
	return updated, nil
}
