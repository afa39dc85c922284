package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

type GetTradeUseCase struct {
	reader repository.Reader
}

func NewGetTradeUseCase(reader repository.Reader) *GetTradeUseCase {
	return &GetTradeUseCase{reader: reader}
}

func (uc *GetTradeUseCase) Get(ctx context.Context, actor entity.Actor, tradeID uuid.UUID) (*entity.Trade, error) {
	t, err := uc.reader.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrTradeNotFound, "не удалось получить сделку")
	}
	if !t.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	return t, nil
}

func (uc *GetTradeUseCase) ListMine(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Trade, error) {
	limit, offset = common.Page(limit, offset)
	trades, err := uc.reader.ListTradesByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось получить список сделок")
	}
	return trades, nil
}
