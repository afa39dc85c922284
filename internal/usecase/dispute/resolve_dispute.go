package dispute

import (
	"context"
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
)

var errDisputeClosed = apperror.New(apperror.ErrCodeInvalidState, "спор уже закрыт")

type ResolveInput struct {
	Resolution string
	AdminNotes string
}

type ResolveDisputeUseCase struct {
	store    repository.Store
	reversal *ReversalProtocol
	notifier notify.Emitter
}

func NewResolveDisputeUseCase(store repository.Store, reversal *ReversalProtocol, notifier notify.Emitter) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{store: store, reversal: reversal, notifier: notifier}
}

// Execute закрывает спор решением администратора. Для full_refund сначала
// проходит протокол возврата, и только после его коммита спор помечается resolved.
func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, input ResolveInput) (_ *entity.Dispute, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispute.Resolve", tracing.DisputeID(disputeID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	if !actor.IsAdmin() {
		return nil, apperror.ErrAdminOnly
	}
	resolution, err := valueobject.NewDisputeResolution(input.Resolution)
	if err != nil {
		return nil, err
	}

	current, err := uc.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrDisputeNotFound, "не удалось получить спор")
	}
	if !current.IsActive() {
		return nil, errDisputeClosed
	}

	if resolution == valueobject.ResolutionFullRefund {
		if _, err := uc.reversal.Run(ctx, current.OrderID); err != nil {
			return nil, err
		}
	}

	var resolved *entity.Dispute
	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			d, err := tx.GetDisputeForUpdate(ctx, disputeID)
			if err != nil {
				return err
			}
			if err := d.Resolve(resolution, actor.ID, input.AdminNotes, time.Now().UTC()); err != nil {
				return err
			}
			if err := tx.UpdateDispute(ctx, d); err != nil {
				return err
			}
			resolved = d
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrDisputeNotFound, "не удалось закрыть спор")
	}

	metrics.DisputesTotal.WithLabelValues("resolved", string(resolution)).Inc()
	logger.Entry().WithFields(logrus.Fields{
		"dispute_id": resolved.ID,
		"order_id":   resolved.OrderID,
		"resolution": resolution,
		"admin_id":   actor.ID,
	}).Info("спор закрыт")

	uc.notifier.Notify(ctx, resolved.ReporterID, notify.EventDisputeResolved, map[string]any{
		"dispute_id": resolved.ID,
		"order_id":   resolved.OrderID,
		"resolution": resolution,
	})

	return resolved, nil
}
