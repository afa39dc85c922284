package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/timer"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
)

type CreateOfferRequest struct {
	ListingID        uuid.UUID  `json:"listing_id" binding:"required"`
	OfferedListingID *uuid.UUID `json:"offered_listing_id"`
	CashTopUpCents   int64      `json:"cash_top_up_cents" binding:"gte=0"`
	Quantity         int        `json:"quantity" binding:"gte=0"`
	Message          string     `json:"message"`
}

func (r CreateOfferRequest) ToInput() trade.CreateOfferInput {
	return trade.CreateOfferInput{
		ListingID:        r.ListingID,
		OfferedListingID: r.OfferedListingID,
		CashTopUpCents:   r.CashTopUpCents,
		Quantity:         r.Quantity,
		Message:          r.Message,
	}
}

type UpdateTradeStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	CashTopUpCents *int64 `json:"cash_top_up_cents"`
}

type CounterOfferRequest struct {
	CashTopUpCents *int64 `json:"cash_top_up_cents" binding:"required"`
}

type TradeResponse struct {
	ID               uuid.UUID      `json:"id"`
	BuyerID          uuid.UUID      `json:"buyer_id"`
	SellerID         uuid.UUID      `json:"seller_id"`
	ListingID        uuid.UUID      `json:"listing_id"`
	OfferedListingID *uuid.UUID     `json:"offered_listing_id,omitempty"`
	CashTopUpCents   int64          `json:"cash_top_up_cents"`
	Quantity         int            `json:"quantity"`
	Message          string         `json:"message,omitempty"`
	Status           string         `json:"status"`
	ExtensionCount   int            `json:"extension_count"`
	Timer            *TimerResponse `json:"timer,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type TimerResponse struct {
	ExpiresAt      time.Time  `json:"expires_at"`
	PausedAt       *time.Time `json:"paused_at,omitempty"`
	RemainingMs    int64      `json:"remaining_ms"`
	IsPaused       bool       `json:"is_paused"`
	IsExpired      bool       `json:"is_expired"`
	ExtensionCount int        `json:"extension_count"`
	ExtensionsLeft int        `json:"extensions_left"`
}

type ExtendTimerResponse struct {
	Requested bool          `json:"requested"`
	Trade     TradeResponse `json:"trade"`
}

// ToTradeResponse включает состояние таймера на момент now, если таймер запущен.
func ToTradeResponse(t *entity.Trade, now time.Time) TradeResponse {
	resp := TradeResponse{
		ID:               t.ID,
		BuyerID:          t.BuyerID,
		SellerID:         t.SellerID,
		ListingID:        t.ListingID,
		OfferedListingID: t.OfferedListingID,
		CashTopUpCents:   t.CashTopUpCents,
		Quantity:         t.Quantity,
		Message:          t.Message,
		Status:           string(t.Status),
		ExtensionCount:   t.ExtensionCount,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if state, ok := t.TimerState(now); ok {
		resp.Timer = &TimerResponse{
			ExpiresAt:      *t.TimerExpiresAt,
			PausedAt:       t.TimerPausedAt,
			RemainingMs:    state.RemainingMs(),
			IsPaused:       state.IsPaused,
			IsExpired:      state.IsExpired,
			ExtensionCount: t.ExtensionCount,
			ExtensionsLeft: timer.MaxExtensions - t.ExtensionCount,
		}
	}
	return resp
}

func ToTradeResponses(trades []*entity.Trade, now time.Time) []TradeResponse {
	responses := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		responses = append(responses, ToTradeResponse(t, now))
	}
	return responses
}

func ToTimerResponse(v *trade.TimerView) TimerResponse {
	return TimerResponse{
		ExpiresAt:      v.ExpiresAt,
		PausedAt:       v.PausedAt,
		RemainingMs:    v.State.RemainingMs(),
		IsPaused:       v.State.IsPaused,
		IsExpired:      v.State.IsExpired,
		ExtensionCount: v.ExtensionCount,
		ExtensionsLeft: v.ExtensionsLeft,
	}
}
