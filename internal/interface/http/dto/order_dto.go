package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/order"
)

type CreateOrderRequest struct {
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingMethod string             `json:"shipping_method" binding:"max=64"`
}

type OrderItemRequest struct {
	ListingID     uuid.UUID  `json:"listing_id" binding:"required"`
	Quantity      int        `json:"quantity" binding:"required,gte=1"`
	DealType      string     `json:"deal_type"`
	BarterOfferID *uuid.UUID `json:"barter_offer_id"`
}

func (r CreateOrderRequest) ToInput() order.CreateOrderInput {
	items := make([]order.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, order.ItemInput{
			ListingID:     it.ListingID,
			Quantity:      it.Quantity,
			DealType:      it.DealType,
			BarterOfferID: it.BarterOfferID,
		})
	}
	return order.CreateOrderInput{Items: items, ShippingMethod: r.ShippingMethod}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	BuyerID          uuid.UUID           `json:"buyer_id"`
	SellerID         uuid.UUID           `json:"seller_id"`
	TotalPriceCents  int64               `json:"total_price_cents"`
	CurrencyCode     string              `json:"currency_code"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	ShippingMethod   string              `json:"shipping_method,omitempty"`
	ReversedAt       *time.Time          `json:"reversed_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Items            []OrderItemResponse `json:"items"`
	Escrow           *EscrowResponse     `json:"escrow,omitempty"`
}

type OrderItemResponse struct {
	ID            uuid.UUID  `json:"id"`
	ListingID     uuid.UUID  `json:"listing_id"`
	Quantity      int        `json:"quantity"`
	DealType      string     `json:"deal_type"`
	PriceCents    int64      `json:"price_cents"`
	BarterOfferID *uuid.UUID `json:"barter_offer_id,omitempty"`
}

type EscrowResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderID      uuid.UUID  `json:"order_id"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amount_cents"`
	CurrencyCode string     `json:"currency_code"`
	HeldAt       time.Time  `json:"held_at"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	ExpiredAt    *time.Time `json:"expired_at,omitempty"`
}

func ToOrderResponse(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		BuyerID:          o.BuyerID,
		SellerID:         o.SellerID,
		TotalPriceCents:  o.TotalPriceCents,
		CurrencyCode:     o.CurrencyCode,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		ShippingMethod:   o.ShippingMethod,
		ReversedAt:       o.ReversedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Items:            make([]OrderItemResponse, 0, len(o.Items)),
	}

	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:            it.ID,
			ListingID:     it.ListingID,
			Quantity:      it.Quantity,
			DealType:      string(it.DealType),
			PriceCents:    it.PriceCents,
			BarterOfferID: it.BarterOfferID,
		})
	}

	if o.Escrow != nil {
		escrow := ToEscrowResponse(o.Escrow)
		resp.Escrow = &escrow
	}
	return resp
}

func ToOrderResponses(orders []*entity.Order) []OrderResponse {
	responses := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		responses = append(responses, ToOrderResponse(o))
	}
	return responses
}

func ToEscrowResponse(e *entity.EscrowTransaction) EscrowResponse {
	return EscrowResponse{
		ID:           e.ID,
		OrderID:      e.OrderID,
		Status:       string(e.Status),
		AmountCents:  e.AmountCents,
		CurrencyCode: e.CurrencyCode,
		HeldAt:       e.HeldAt,
		ReleasedAt:   e.ReleasedAt,
		RefundedAt:   e.RefundedAt,
		ExpiredAt:    e.ExpiredAt,
	}
}
