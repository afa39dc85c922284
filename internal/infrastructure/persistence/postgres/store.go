// Package postgres - хранилище ledger на PostgreSQL (sqlx + lib/pq).
// Блокировки строк через SELECT ... FOR UPDATE, уникальность активного спора
// держит частичный индекс disputes_one_active_per_order.
package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
)

type Store struct {
	db *sqlx.DB
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapError("begin transaction", err)
	}
	return &txStore{tx: tx}, nil
}

// PutListing создаёт или обновляет складской срез объявления. Вызывается
// синхронизацией с каталогом и в интеграционных тестах.
func (s *Store) PutListing(ctx context.Context, l *entity.Listing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			price_cents = EXCLUDED.price_cents,
			currency_code = EXCLUDED.currency_code,
			quantity = EXCLUDED.quantity,
			status = EXCLUDED.status,
			distress_sale = EXCLUDED.distress_sale,
			updated_at = EXCLUDED.updated_at
	`, l.ID, l.OwnerID, l.Title, l.PriceCents, l.CurrencyCode, l.Quantity, string(l.Status), l.DistressSale, l.CreatedAt, l.UpdatedAt)
	return mapError("put listing", err)
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return getListing(ctx, s.db, id, false)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return getOrder(ctx, s.db, id, false)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+` FROM orders
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, mapError("list orders", err)
	}

	orders := make([]*entity.Order, len(rows))
	for i, row := range rows {
		orders[i] = row.toEntity()
	}
	if err := attachChildren(ctx, s.db, orders, false); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return getDispute(ctx, s.db, id, false)
}

func (s *Store) GetActiveDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	return findActiveDispute(ctx, s.db, orderID, false)
}

func (s *Store) ListDisputesByOrder(ctx context.Context, orderID uuid.UUID) ([]*entity.Dispute, error) {
	var rows []disputeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE order_id = $1
		ORDER BY created_at DESC
	`, orderID)
	if err != nil {
		return nil, mapError("list disputes by order", err)
	}
	return disputesFromRows(rows), nil
}

// ListDisputesByUser - споры, где пользователь заявитель или участник заказа.
func (s *Store) ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Dispute, error) {
	var rows []disputeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT d.id, d.order_id, d.reporter_id, d.reason, d.description, d.evidence_images, d.status,
			d.resolution, d.admin_notes, d.resolved_by_id, d.resolved_at, d.created_at, d.updated_at
		FROM disputes d
		JOIN orders o ON o.id = d.order_id
		WHERE d.reporter_id = $1 OR o.buyer_id = $1 OR o.seller_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, mapError("list disputes by user", err)
	}
	return disputesFromRows(rows), nil
}

func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*entity.Trade, error) {
	return getTrade(ctx, s.db, id, false)
}

func (s *Store) ListTradesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Trade, error) {
	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+tradeColumns+` FROM trades
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, mapError("list trades", err)
	}
	return tradesFromRows(rows), nil
}

func (s *Store) ListExpiredTrades(ctx context.Context, now time.Time, after *repository.TradeCursor, limit int) ([]*entity.Trade, error) {
	// нулевой курсор стоит раньше любой строки
	cursor := repository.TradeCursor{}
	if after != nil {
		cursor = *after
	}

	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+tradeColumns+` FROM trades
		WHERE status IN ('accepted', 'awaiting_meetup')
			AND timer_paused_at IS NULL
			AND timer_expires_at <= $1
			AND (timer_expires_at, id) > ($2::timestamptz, $3::uuid)
		ORDER BY timer_expires_at, id
		LIMIT $4
	`, now, cursor.ExpiresAt, cursor.ID, limit)
	if err != nil {
		return nil, mapError("list expired trades", err)
	}
	return tradesFromRows(rows), nil
}

func disputesFromRows(rows []disputeRow) []*entity.Dispute {
	result := make([]*entity.Dispute, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result
}

func tradesFromRows(rows []tradeRow) []*entity.Trade {
	result := make([]*entity.Trade, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result
}
