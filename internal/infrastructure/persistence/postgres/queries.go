package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
)

// Чтения, общие для пула и транзакции. lock добавляет FOR UPDATE.

func lockClause(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

func getListing(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, lock bool) (*entity.Listing, error) {
	var row listingRow
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1` + lockClause(lock)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return nil, mapError("get listing", err)
	}
	return row.toEntity(), nil
}

// getOrder читает заказ с позициями и эскроу. С lock блокируются строка заказа и эскроу.
func getOrder(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, lock bool) (*entity.Order, error) {
	var row orderRow
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1` + lockClause(lock)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return nil, mapError("get order", err)
	}
	orders := []*entity.Order{row.toEntity()}
	if err := attachChildren(ctx, q, orders, lock); err != nil {
		return nil, err
	}
	return orders[0], nil
}

func attachChildren(ctx context.Context, q sqlx.QueryerContext, orders []*entity.Order, lock bool) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*entity.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		byID[o.ID] = o
	}

	var items []itemRow
	itemsQuery := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, listing_id, id`
	if err := sqlx.SelectContext(ctx, q, &items, itemsQuery, pq.Array(ids)); err != nil {
		return mapError("list order items", err)
	}
	for _, item := range items {
		o := byID[item.OrderID]
		o.Items = append(o.Items, item.toEntity())
	}

	var escrows []escrowRow
	escrowQuery := `SELECT ` + escrowColumns + ` FROM escrow_transactions WHERE order_id = ANY($1)` + lockClause(lock)
	if err := sqlx.SelectContext(ctx, q, &escrows, escrowQuery, pq.Array(ids)); err != nil {
		return mapError("list escrow", err)
	}
	for _, e := range escrows {
		byID[e.OrderID].Escrow = e.toEntity()
	}
	return nil
}

func getDispute(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, lock bool) (*entity.Dispute, error) {
	var row disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1` + lockClause(lock)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return nil, mapError("get dispute", err)
	}
	return row.toEntity(), nil
}

func findActiveDispute(ctx context.Context, q sqlx.QueryerContext, orderID uuid.UUID, lock bool) (*entity.Dispute, error) {
	var row disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes
		WHERE order_id = $1 AND status IN ('open', 'under_review')
		LIMIT 1` + lockClause(lock)
	if err := sqlx.GetContext(ctx, q, &row, query, orderID); err != nil {
		return nil, mapError("find active dispute", err)
	}
	return row.toEntity(), nil
}

func getTrade(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, lock bool) (*entity.Trade, error) {
	var row tradeRow
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1` + lockClause(lock)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return nil, mapError("get trade", err)
	}
	return row.toEntity(), nil
}
