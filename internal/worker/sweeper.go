// Package worker - фоновые задачи сервиса.
package worker

import (
	"context"
	"time"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
)

// TradeExpirer вызывается sweeper'ом на каждом тике.
type TradeExpirer interface {
	Execute(ctx context.Context, after *repository.TradeCursor, limit int) (trade.ExpireBatch, error)
}

// Sweeper периодически отменяет сделки с истёкшим таймером.
type Sweeper struct {
	expirer  TradeExpirer
	interval time.Duration
	batch    int
}

func NewSweeper(expirer TradeExpirer, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{expirer: expirer, interval: interval, batch: batch}
}

// Run блокируется до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Entry().WithField("interval", s.interval.String()).Info("sweeper просроченных сделок запущен")
	for {
		select {
		case <-ctx.Done():
			logger.Entry().Info("sweeper просроченных сделок остановлен")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep идёт по очереди курсором: сделки, которые не удалось отменить, не
// загораживают следующие и повторяются на следующем тике.
func (s *Sweeper) sweep(ctx context.Context) {
	var cursor *repository.TradeCursor
	failed := 0
	defer func() {
		if failed > 0 {
			logger.Entry().WithField("failed", failed).Warn("часть просроченных сделок не отменена, повтор на следующем тике")
		}
	}()

	for {
		batch, err := s.expirer.Execute(ctx, cursor, s.batch)
		failed += batch.Failed
		if err != nil {
			if ctx.Err() == nil {
				logger.Entry().WithError(err).Error("ошибка при отмене просроченных сделок")
			}
			return
		}
		// неполная пачка: очередь кончилась
		if batch.Scanned < s.batch || batch.Next == nil {
			return
		}
		cursor = batch.Next
	}
}
