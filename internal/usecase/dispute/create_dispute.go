package dispute

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

var errActiveDispute = apperror.New(apperror.ErrCodeConflict, "по заказу уже открыт спор")

type CreateDisputeInput struct {
	OrderID        uuid.UUID
	Reason         string
	Description    string
	EvidenceImages []string
}

type CreateDisputeUseCase struct {
	store    repository.Store
	notifier notify.Emitter
}

func NewCreateDisputeUseCase(store repository.Store, notifier notify.Emitter) *CreateDisputeUseCase {
	return &CreateDisputeUseCase{store: store, notifier: notifier}
}

// Execute открывает спор по заказу. Проверка «нет активного спора» повторяется
// внутри транзакции под блокировкой заказа; хранилище дополнительно держит
// уникальность активного спора на уровне индекса.
func (uc *CreateDisputeUseCase) Execute(ctx context.Context, actor entity.Actor, input CreateDisputeInput) (_ *entity.Dispute, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispute.Create", tracing.OrderID(input.OrderID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	order, err := uc.store.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if !order.IsParty(actor.ID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "открыть спор может только участник заказа")
	}
	if _, err := uc.store.GetActiveDisputeByOrder(ctx, order.ID); err == nil {
		return nil, errActiveDispute
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, common.StoreError(err, nil, "не удалось проверить споры по заказу")
	}

	dispute, err := entity.NewDispute(order.ID, actor.ID, input.Reason, input.Description, input.EvidenceImages, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			if _, err := tx.GetOrderForUpdate(ctx, order.ID); err != nil {
				return err
			}
			if _, err := tx.FindActiveDispute(ctx, order.ID); err == nil {
				return errActiveDispute
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			return tx.CreateDispute(ctx, dispute)
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось создать спор")
	}

	metrics.DisputesTotal.WithLabelValues("opened", "").Inc()
	logger.Entry().WithFields(logrus.Fields{
		"dispute_id":  dispute.ID,
		"order_id":    order.ID,
		"reporter_id": actor.ID,
		"reason":      dispute.Reason,
	}).Info("открыт спор по заказу")

	uc.notifier.Notify(ctx, order.CounterpartyOf(actor.ID), notify.EventDisputeOpened, map[string]any{
		"dispute_id": dispute.ID,
		"order_id":   order.ID,
		"reason":     dispute.Reason,
	})

	return dispute, nil
}
