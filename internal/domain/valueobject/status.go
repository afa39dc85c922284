package valueobject

import "github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo описывает переходы, доступные продавцу. Отмена оплаченного
// или выполненного заказа по спору идёт мимо этой таблицы, через протокол возврата.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	transitions := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusFulfilled, OrderStatusCancelled},
		OrderStatusFulfilled: {},
		OrderStatusCancelled: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusCancelled
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

// PaymentStatus живёт независимо от статуса заказа.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type DealType string

const (
	DealTypeCash           DealType = "cash"
	DealTypeBarter         DealType = "barter"
	DealTypeCashPlusBarter DealType = "cash_plus_barter"
)

func (d DealType) IsValid() bool {
	switch d {
	case DealTypeCash, DealTypeBarter, DealTypeCashPlusBarter:
		return true
	}
	return false
}

// IncludesCash сообщает, участвует ли позиция в денежной сумме заказа.
func (d DealType) IncludesCash() bool {
	return d == DealTypeCash || d == DealTypeCashPlusBarter
}

func NewDealType(dealType string) (DealType, error) {
	if dealType == "" {
		return DealTypeCash, nil
	}
	d := DealType(dealType)
	if !d.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип сделки")
	}
	return d, nil
}

type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
	EscrowStatusExpired  EscrowStatus = "expired"
)

// CanTransitionTo: удержание может только завершиться, вернуться в held нельзя.
func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	if s != EscrowStatusHeld {
		return false
	}
	switch newStatus {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired:
		return true
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusUnderReview
}

type DisputeResolution string

const (
	ResolutionFullRefund    DisputeResolution = "full_refund"
	ResolutionPartialRefund DisputeResolution = "partial_refund"
	ResolutionNoAction      DisputeResolution = "no_action"
	ResolutionWarningIssued DisputeResolution = "warning_issued"
)

func NewDisputeResolution(resolution string) (DisputeResolution, error) {
	r := DisputeResolution(resolution)
	switch r {
	case ResolutionFullRefund, ResolutionPartialRefund, ResolutionNoAction, ResolutionWarningIssued:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректное решение по спору")
}

type DisputeReason string

const (
	ReasonItemNotReceived    DisputeReason = "item_not_received"
	ReasonItemNotAsDescribed DisputeReason = "item_not_as_described"
	ReasonItemDamaged        DisputeReason = "item_damaged"
	ReasonSellerUnresponsive DisputeReason = "seller_unresponsive"
	ReasonBuyerUnresponsive  DisputeReason = "buyer_unresponsive"
	ReasonPaymentIssue       DisputeReason = "payment_issue"
	ReasonOther              DisputeReason = "other"
)

func NewDisputeReason(reason string) (DisputeReason, error) {
	r := DisputeReason(reason)
	switch r {
	case ReasonItemNotReceived, ReasonItemNotAsDescribed, ReasonItemDamaged,
		ReasonSellerUnresponsive, ReasonBuyerUnresponsive, ReasonPaymentIssue, ReasonOther:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная причина спора")
}

type TradeStatus string

const (
	TradeStatusPending        TradeStatus = "pending"
	TradeStatusAccepted       TradeStatus = "accepted"
	TradeStatusRejected       TradeStatus = "rejected"
	TradeStatusCountered      TradeStatus = "countered"
	TradeStatusCancelled      TradeStatus = "cancelled"
	TradeStatusWithdrawn      TradeStatus = "withdrawn"
	TradeStatusAwaitingMeetup TradeStatus = "awaiting_meetup"
	TradeStatusCompleted      TradeStatus = "completed"
)

func (s TradeStatus) IsValid() bool {
	switch s {
	case TradeStatusPending, TradeStatusAccepted, TradeStatusRejected, TradeStatusCountered,
		TradeStatusCancelled, TradeStatusWithdrawn, TradeStatusAwaitingMeetup, TradeStatusCompleted:
		return true
	}
	return false
}

func (s TradeStatus) CanTransitionTo(newStatus TradeStatus) bool {
	transitions := map[TradeStatus][]TradeStatus{
		TradeStatusPending:        {TradeStatusAccepted, TradeStatusRejected, TradeStatusCountered, TradeStatusWithdrawn, TradeStatusCancelled},
		TradeStatusCountered:      {TradeStatusAccepted, TradeStatusRejected, TradeStatusWithdrawn, TradeStatusCancelled},
		TradeStatusAccepted:       {TradeStatusAwaitingMeetup, TradeStatusCompleted, TradeStatusCancelled},
		TradeStatusAwaitingMeetup: {TradeStatusCompleted, TradeStatusCancelled},
	}

	for _, status := range transitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// InFlight: сделка принята и идёт таймер завершения.
func (s TradeStatus) InFlight() bool {
	return s == TradeStatusAccepted || s == TradeStatusAwaitingMeetup
}

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusDraft    ListingStatus = "draft"
	ListingStatusArchived ListingStatus = "archived"
)
