package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/timer"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

var errSellerOnly = apperror.New(apperror.ErrCodeForbidden, "управлять таймером может только продавец")

// TimerView - состояние таймера для клиента.
type TimerView struct {
	TradeID        uuid.UUID
	ExpiresAt      time.Time
	PausedAt       *time.Time
	ExtensionCount int
	ExtensionsLeft int
	State          timer.State
}

// ExtendResult: Requested=true значит, что покупатель попросил продление,
// а сама сделка не изменилась.
type ExtendResult struct {
	Trade     *entity.Trade
	Requested bool
}

type TradeTimerUseCase struct {
	store    repository.Store
	notifier notify.Emitter
	settings Settings
}

func NewTradeTimerUseCase(store repository.Store, notifier notify.Emitter, settings Settings) *TradeTimerUseCase {
	return &TradeTimerUseCase{store: store, notifier: notifier, settings: settings}
}

func (uc *TradeTimerUseCase) State(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (*TimerView, error) {
	t, err := uc.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrTradeNotFound, "не удалось получить сделку")
	}
	if !t.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	state, ok := t.TimerState(uc.settings.now())
	if !ok {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "таймер сделки не запущен")
	}
	return &TimerView{
		TradeID:        t.ID,
		ExpiresAt:      *t.TimerExpiresAt,
		PausedAt:       t.TimerPausedAt,
		ExtensionCount: t.ExtensionCount,
		ExtensionsLeft: timer.MaxExtensions - t.ExtensionCount,
		State:          state,
	}, nil
}

// Extend продлевает таймер на 30 минут (продавец) или отправляет продавцу запрос
// на продление (покупатель). Предусловия у обоих одинаковые.
func (uc *TradeTimerUseCase) Extend(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (_ *ExtendResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "trade.ExtendTimer", tracing.TradeID(tradeID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	current, err := uc.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrTradeNotFound, "не удалось получить сделку")
	}
	if !current.IsParty(actor.ID) {
		return nil, apperror.ErrForbidden
	}

	if actor.ID == current.BuyerID {
		if err := current.CanExtend(uc.settings.now()); err != nil {
			return nil, err
		}
		metrics.TimerExtensionsTotal.WithLabelValues("requested").Inc()
		uc.notifier.Notify(ctx, current.SellerID, notify.EventExtensionRequested, map[string]any{
			"trade_id":        current.ID,
			"extension_count": current.ExtensionCount,
		})
		return &ExtendResult{Trade: current, Requested: true}, nil
	}

	updated, err := mutate(ctx, uc.store, tradeID, func(_ repository.Tx, t *entity.Trade) error {
		if actor.ID != t.SellerID {
			return errSellerOnly
		}
		return t.Extend(uc.settings.now())
	})
	if err != nil {
		return nil, err
	}

	metrics.TimerExtensionsTotal.WithLabelValues("applied").Inc()
	logger.Entry().WithFields(logrus.Fields{
		"trade_id":        updated.ID,
		"extension_count": updated.ExtensionCount,
		"expires_at":      updated.TimerExpiresAt,
	}).Info("таймер сделки продлён")

	uc.notifier.Notify(ctx, updated.BuyerID, notify.EventTradeExtended, map[string]any{
		"trade_id":        updated.ID,
		"expires_at":      updated.TimerExpiresAt,
		"extension_count": updated.ExtensionCount,
	})
	return &ExtendResult{Trade: updated}, nil
}

// Pause замораживает таймер, пока продавец проверяет предоплату.
func (uc *TradeTimerUseCase) Pause(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (*entity.Trade, error) {
	return uc.sellerAction(ctx, actor, tradeID, notify.EventTradeTimerPaused, func(t *entity.Trade, now time.Time) error {
		return t.PauseTimer(now)
	})
}

func (uc *TradeTimerUseCase) Resume(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (*entity.Trade, error) {
	return uc.sellerAction(ctx, actor, tradeID, notify.EventTradeTimerResumed, func(t *entity.Trade, now time.Time) error {
		return t.ResumeTimer(now)
	})
}

func (uc *TradeTimerUseCase) sellerAction(ctx context.Context, actor entity.Actor, tradeID uuid.UUID, event string, apply func(*entity.Trade, time.Time) error) (*entity.Trade, error) {
	updated, err := mutate(ctx, uc.store, tradeID, func(_ repository.Tx, t *entity.Trade) error {
		if actor.ID != t.SellerID {
			if t.IsParty(actor.ID) {
				return errSellerOnly
			}
			return apperror.ErrForbidden
		}
		return apply(t, uc.settings.now())
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, updated.BuyerID, event, map[string]any{
		"trade_id":   updated.ID,
		"expires_at": updated.TimerExpiresAt,
	})
	return updated, nil
}
