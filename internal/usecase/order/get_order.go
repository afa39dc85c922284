package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
)

type GetOrderUseCase struct {
	reader repository.Reader
}

func NewGetOrderUseCase(reader repository.Reader) *GetOrderUseCase {
	return &GetOrderUseCase{reader: reader}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, actor entity.Actor, orderID uuid.UUID) (*entity.Order, error) {
	order, err := uc.reader.GetOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if !order.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

type ListMyOrdersUseCase struct {
	reader repository.Reader
}

func NewListMyOrdersUseCase(reader repository.Reader) *ListMyOrdersUseCase {
	return &ListMyOrdersUseCase{reader: reader}
}

// Execute возвращает заказы, где пользователь покупатель или продавец, новые первыми.
func (uc *ListMyOrdersUseCase) Execute(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Order, error) {
	limit, offset = common.Page(limit, offset)
	orders, err := uc.reader.ListOrdersByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, common.StoreError(err, nil, "не удалось получить список заказов")
	}
	return orders, nil
}
