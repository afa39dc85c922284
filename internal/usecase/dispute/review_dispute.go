package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

// ReviewDisputeUseCase - действия администратора без движения денег.
type ReviewDisputeUseCase struct {
	store    repository.Store
	notifier notify.Emitter
}

func NewReviewDisputeUseCase(store repository.Store, notifier notify.Emitter) *ReviewDisputeUseCase {
	return &ReviewDisputeUseCase{store: store, notifier: notifier}
}

func (uc *ReviewDisputeUseCase) StartReview(ctx context.Context, actor entity.Actor, disputeID uuid.UUID) (_ *entity.Dispute, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispute.StartReview", tracing.DisputeID(disputeID))
	defer func() { tracing.End(span, err) }()

	d, err := uc.mutate(ctx, actor, disputeID, func(d *entity.Dispute, now time.Time) error {
		return d.StartReview(now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, d.ReporterID, notify.EventDisputeUnderReview, map[string]any{
		"dispute_id": d.ID,
		"order_id":   d.OrderID,
	})
	return d, nil
}

func (uc *ReviewDisputeUseCase) Reject(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, notes string) (_ *entity.Dispute, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispute.Reject", tracing.DisputeID(disputeID))
	defer func() { tracing.End(span, err) }()

	d, err := uc.mutate(ctx, actor, disputeID, func(d *entity.Dispute, now time.Time) error {
		return d.Reject(actor.ID, notes, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.DisputesTotal.WithLabelValues("rejected", "").Inc()
	uc.notifier.Notify(ctx, d.ReporterID, notify.EventDisputeRejected, map[string]any{
		"dispute_id": d.ID,
		"order_id":   d.OrderID,
	})
	return d, nil
}

func (uc *ReviewDisputeUseCase) mutate(ctx context.Context, actor entity.Actor, disputeID uuid.UUID, apply func(*entity.Dispute, time.Time) error) (*entity.Dispute, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrAdminOnly
	}

	current, err := uc.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrDisputeNotFound, "не удалось получить спор")
	}
	if err := apply(current, time.Now().UTC()); err != nil {
		return nil, err
	}

	var updated *entity.Dispute
	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			d, err := tx.GetDisputeForUpdate(ctx, disputeID)
			if err != nil {
				return err
			}
			if err := apply(d, time.Now().UTC()); err != nil {
				return err
			}
			if err := tx.UpdateDispute(ctx, d); err != nil {
				return err
			}
			updated = d
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrDisputeNotFound, "не удалось обновить спор")
	}
	return updated, nil
}
