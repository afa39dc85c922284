package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
)

const (
	listingColumns = `id, owner_id, title, price_cents, currency_code, quantity, status, distress_sale, created_at, updated_at`
	orderColumns   = `id, buyer_id, seller_id, total_price_cents, currency_code, status, payment_status, payment_reference, shipping_method, reversed_at, created_at, updated_at`
	itemColumns    = `id, order_id, listing_id, quantity, deal_type, price_cents, barter_offer_id`
	escrowColumns  = `id, order_id, status, amount_cents, currency_code, held_at, released_at, refunded_at, expired_at, updated_at`
	disputeColumns = `id, order_id, reporter_id, reason, description, evidence_images, status, resolution, admin_notes, resolved_by_id, resolved_at, created_at, updated_at`
	tradeColumns   = `id, buyer_id, seller_id, listing_id, offered_listing_id, cash_top_up_cents, quantity, message, status, timer_expires_at, timer_paused_at, extension_count, inventory_reserved, created_at, updated_at`
)

type listingRow struct {
	ID           uuid.UUID `db:"id"`
	OwnerID      uuid.UUID `db:"owner_id"`
	Title        string    `db:"title"`
	PriceCents   *int64    `db:"price_cents"`
	CurrencyCode string    `db:"currency_code"`
	Quantity     int       `db:"quantity"`
	Status       string    `db:"status"`
	DistressSale bool      `db:"distress_sale"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r listingRow) toEntity() *entity.Listing {
	return &entity.Listing{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		PriceCents:   r.PriceCents,
		CurrencyCode: r.CurrencyCode,
		Quantity:     r.Quantity,
		Status:       valueobject.ListingStatus(r.Status),
		DistressSale: r.DistressSale,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type orderRow struct {
	ID               uuid.UUID  `db:"id"`
	BuyerID          uuid.UUID  `db:"buyer_id"`
	SellerID         uuid.UUID  `db:"seller_id"`
	TotalPriceCents  int64      `db:"total_price_cents"`
	CurrencyCode     string     `db:"currency_code"`
	Status           string     `db:"status"`
	PaymentStatus    string     `db:"payment_status"`
	PaymentReference *string    `db:"payment_reference"`
	ShippingMethod   string     `db:"shipping_method"`
	ReversedAt       *time.Time `db:"reversed_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r orderRow) toEntity() *entity.Order {
	return &entity.Order{
		ID:               r.ID,
		BuyerID:          r.BuyerID,
		SellerID:         r.SellerID,
		TotalPriceCents:  r.TotalPriceCents,
		CurrencyCode:     r.CurrencyCode,
		Status:           valueobject.OrderStatus(r.Status),
		PaymentStatus:    valueobject.PaymentStatus(r.PaymentStatus),
		PaymentReference: r.PaymentReference,
		ShippingMethod:   r.ShippingMethod,
		ReversedAt:       r.ReversedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type itemRow struct {
	ID            uuid.UUID  `db:"id"`
	OrderID       uuid.UUID  `db:"order_id"`
	ListingID     uuid.UUID  `db:"listing_id"`
	Quantity      int        `db:"quantity"`
	DealType      string     `db:"deal_type"`
	PriceCents    int64      `db:"price_cents"`
	BarterOfferID *uuid.UUID `db:"barter_offer_id"`
}

func (r itemRow) toEntity() entity.OrderItem {
	return entity.OrderItem{
		ID:            r.ID,
		OrderID:       r.OrderID,
		ListingID:     r.ListingID,
		Quantity:      r.Quantity,
		DealType:      valueobject.DealType(r.DealType),
		PriceCents:    r.PriceCents,
		BarterOfferID: r.BarterOfferID,
	}
}

type escrowRow struct {
	ID           uuid.UUID  `db:"id"`
	OrderID      uuid.UUID  `db:"order_id"`
	Status       string     `db:"status"`
	AmountCents  int64      `db:"amount_cents"`
	CurrencyCode string     `db:"currency_code"`
	HeldAt       time.Time  `db:"held_at"`
	ReleasedAt   *time.Time `db:"released_at"`
	RefundedAt   *time.Time `db:"refunded_at"`
	ExpiredAt    *time.Time `db:"expired_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (r escrowRow) toEntity() *entity.EscrowTransaction {
	return &entity.EscrowTransaction{
		ID:           r.ID,
		OrderID:      r.OrderID,
		Status:       valueobject.EscrowStatus(r.Status),
		AmountCents:  r.AmountCents,
		CurrencyCode: r.CurrencyCode,
		HeldAt:       r.HeldAt,
		ReleasedAt:   r.ReleasedAt,
		RefundedAt:   r.RefundedAt,
		ExpiredAt:    r.ExpiredAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type disputeRow struct {
	ID             uuid.UUID      `db:"id"`
	OrderID        uuid.UUID      `db:"order_id"`
	ReporterID     uuid.UUID      `db:"reporter_id"`
	Reason         string         `db:"reason"`
	Description    string         `db:"description"`
	EvidenceImages pq.StringArray `db:"evidence_images"`
	Status         string         `db:"status"`
	Resolution     *string        `db:"resolution"`
	AdminNotes     *string        `db:"admin_notes"`
	ResolvedByID   *uuid.UUID     `db:"resolved_by_id"`
	ResolvedAt     *time.Time     `db:"resolved_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:             r.ID,
		OrderID:        r.OrderID,
		ReporterID:     r.ReporterID,
		Reason:         valueobject.DisputeReason(r.Reason),
		Description:    r.Description,
		EvidenceImages: []string(r.EvidenceImages),
		Status:         valueobject.DisputeStatus(r.Status),
		AdminNotes:     r.AdminNotes,
		ResolvedByID:   r.ResolvedByID,
		ResolvedAt:     r.ResolvedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Resolution != nil {
		resolution := valueobject.DisputeResolution(*r.Resolution)
		d.Resolution = &resolution
	}
	return d
}

func resolutionValue(d *entity.Dispute) *string {
	if d.Resolution == nil {
		return nil
	}
	s := string(*d.Resolution)
	return &s
}

type tradeRow struct {
	ID                uuid.UUID  `db:"id"`
	BuyerID           uuid.UUID  `db:"buyer_id"`
	SellerID          uuid.UUID  `db:"seller_id"`
	ListingID         uuid.UUID  `db:"listing_id"`
	OfferedListingID  *uuid.UUID `db:"offered_listing_id"`
	CashTopUpCents    int64      `db:"cash_top_up_cents"`
	Quantity          int        `db:"quantity"`
	Message           string     `db:"message"`
	Status            string     `db:"status"`
	TimerExpiresAt    *time.Time `db:"timer_expires_at"`
	TimerPausedAt     *time.Time `db:"timer_paused_at"`
	ExtensionCount    int        `db:"extension_count"`
	InventoryReserved bool       `db:"inventory_reserved"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (r tradeRow) toEntity() *entity.Trade {
	return &entity.Trade{
		ID:                r.ID,
		BuyerID:           r.BuyerID,
		SellerID:          r.SellerID,
		ListingID:         r.ListingID,
		OfferedListingID:  r.OfferedListingID,
		CashTopUpCents:    r.CashTopUpCents,
		Quantity:          r.Quantity,
		Message:           r.Message,
		Status:            valueobject.TradeStatus(r.Status),
		TimerExpiresAt:    r.TimerExpiresAt,
		TimerPausedAt:     r.TimerPausedAt,
		ExtensionCount:    r.ExtensionCount,
		InventoryReserved: r.InventoryReserved,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
