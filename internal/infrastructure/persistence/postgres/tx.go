package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
)

type txStore struct {
	tx *sqlx.Tx
}

func (t *txStore) GetListingForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return getListing(ctx, t.tx, id, true)
}

func (t *txStore) UpdateListing(ctx context.Context, l *entity.Listing) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE listings SET quantity = $2, status = $3, updated_at = $4 WHERE id = $1
	`, l.ID, l.Quantity, string(l.Status), l.UpdatedAt)
	return affected("update listing", res, err)
}

func (t *txStore) CreateOrder(ctx context.Context, o *entity.Order) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, o.ID, o.BuyerID, o.SellerID, o.TotalPriceCents, o.CurrencyCode, string(o.Status), string(o.PaymentStatus),
		o.PaymentReference, o.ShippingMethod, o.ReversedAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapError("insert order", err)
	}

	items := newBatchInserter(t.tx, `INSERT INTO order_items (`+itemColumns+`)`, 7)
	for _, item := range o.Items {
		if err := items.Add(item.ID, o.ID, item.ListingID, item.Quantity, string(item.DealType), item.PriceCents, item.BarterOfferID); err != nil {
			return err
		}
	}
	if err := items.Flush(ctx); err != nil {
		return mapError("insert order items", err)
	}

	if o.Escrow != nil {
		e := o.Escrow
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO escrow_transactions (`+escrowColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, e.ID, e.OrderID, string(e.Status), e.AmountCents, e.CurrencyCode, e.HeldAt, e.ReleasedAt, e.RefundedAt, e.ExpiredAt, e.UpdatedAt)
		if err != nil {
			return mapError("insert escrow", err)
		}
	}
	return nil
}

func (t *txStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

// UpdateOrder сохраняет изменяемые поля заказа и его эскроу. Позиции неизменяемы.
func (t *txStore) UpdateOrder(ctx context.Context, o *entity.Order) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET
			status = $2,
			payment_status = $3,
			payment_reference = $4,
			reversed_at = $5,
			updated_at = $6
		WHERE id = $1
	`, o.ID, string(o.Status), string(o.PaymentStatus), o.PaymentReference, o.ReversedAt, o.UpdatedAt)
	if err := affected("update order", res, err); err != nil {
		return err
	}
	if o.Escrow != nil {
		return t.UpdateEscrow(ctx, o.Escrow)
	}
	return nil
}

func (t *txStore) UpdateEscrow(ctx context.Context, e *entity.EscrowTransaction) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE escrow_transactions SET
			status = $2,
			released_at = $3,
			refunded_at = $4,
			expired_at = $5,
			updated_at = $6
		WHERE id = $1
	`, e.ID, string(e.Status), e.ReleasedAt, e.RefundedAt, e.ExpiredAt, e.UpdatedAt)
	return affected("update escrow", res, err)
}

func (t *txStore) CreateDispute(ctx context.Context, d *entity.Dispute) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO disputes (`+disputeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, d.ID, d.OrderID, d.ReporterID, string(d.Reason), d.Description, pq.StringArray(d.EvidenceImages), string(d.Status),
		resolutionValue(d), d.AdminNotes, d.ResolvedByID, d.ResolvedAt, d.CreatedAt, d.UpdatedAt)
	return mapError("insert dispute", err)
}

func (t *txStore) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return getDispute(ctx, t.tx, id, true)
}

func (t *txStore) FindActiveDispute(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	return findActiveDispute(ctx, t.tx, orderID, true)
}

func (t *txStore) UpdateDispute(ctx context.Context, d *entity.Dispute) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE disputes SET
			status = $2,
			resolution = $3,
			admin_notes = $4,
			resolved_by_id = $5,
			resolved_at = $6,
			updated_at = $7
		WHERE id = $1
	`, d.ID, string(d.Status), resolutionValue(d), d.AdminNotes, d.ResolvedByID, d.ResolvedAt, d.UpdatedAt)
	return affected("update dispute", res, err)
}

func (t *txStore) CreateTrade(ctx context.Context, tr *entity.Trade) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, tr.ID, tr.BuyerID, tr.SellerID, tr.ListingID, tr.OfferedListingID, tr.CashTopUpCents, tr.Quantity, tr.Message,
		string(tr.Status), tr.TimerExpiresAt, tr.TimerPausedAt, tr.ExtensionCount, tr.InventoryReserved, tr.CreatedAt, tr.UpdatedAt)
	return mapError("insert trade", err)
}

func (t *txStore) GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trade, error) {
	return getTrade(ctx, t.tx, id, true)
}

func (t *txStore) UpdateTrade(ctx context.Context, tr *entity.Trade) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE trades SET
			status = $2,
			cash_top_up_cents = $3,
			timer_expires_at = $4,
			timer_paused_at = $5,
			extension_count = $6,
			inventory_reserved = $7,
			updated_at = $8
		WHERE id = $1
	`, tr.ID, string(tr.Status), tr.CashTopUpCents, tr.TimerExpiresAt, tr.TimerPausedAt, tr.ExtensionCount, tr.InventoryReserved, tr.UpdatedAt)
	return affected("update trade", res, err)
}

func (t *txStore) Commit() error {
	return mapError("commit", t.tx.Commit())
}

func (t *txStore) Rollback() error {
	return t.tx.Rollback()
}
