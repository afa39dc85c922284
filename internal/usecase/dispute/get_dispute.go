package dispute

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

type GetDisputeUseCase struct {
	reader repository.Reader
}

func NewGetDisputeUseCase(reader repository.Reader) *GetDisputeUseCase {
	return &GetDisputeUseCase{reader: reader}
}

func (uc *GetDisputeUseCase) Get(ctx context.Context, actor entity.Actor, disputeID uuid.UUID) (*entity.Dispute, error) {
	d, err := uc.reader.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrDisputeNotFound, "не удалось получить спор")
	}
	if actor.IsAdmin() || d.ReporterID == actor.ID {
		return d, nil
	}

	order, err := uc.reader.GetOrder(ctx, d.OrderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if !order.IsParty(actor.ID) {
		return nil, apperror.ErrForbidden
	}
	return d, nil
}

// GetByOrder - история споров по заказу, новые первыми.
func (uc *GetDisputeUseCase) GetByOrder(ctx context.Context, actor entity.Actor, orderID uuid.UUID) ([]*entity.Dispute, error) {
	order, err := uc.reader.GetOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if !order.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	disputes, err := uc.reader.ListDisputesByOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось получить споры по заказу")
	}
	return disputes, nil
}

func (uc *GetDisputeUseCase) ListMine(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Dispute, error) {
	limit, offset = common.Page(limit, offset)
	disputes, err := uc.reader.ListDisputesByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось получить список споров")
	}
	return disputes, nil
}
