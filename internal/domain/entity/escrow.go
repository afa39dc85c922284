package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// EscrowTransaction - состояние удержания средств по заказу, независимое от журнала платёжного провайдера.
type EscrowTransaction struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	Status       valueobject.EscrowStatus
	AmountCents  int64
	CurrencyCode string
	HeldAt       time.Time
	ReleasedAt   *time.Time
	RefundedAt   *time.Time
	ExpiredAt    *time.Time
	UpdatedAt    time.Time
}

func NewEscrowHold(orderID uuid.UUID, amount valueobject.Money, now time.Time) *EscrowTransaction {
	return &EscrowTransaction{
		ID:           uuid.New(),
		OrderID:      orderID,
		Status:       valueobject.EscrowStatusHeld,
		AmountCents:  amount.Cents,
		CurrencyCode: amount.Currency,
		HeldAt:       now,
		UpdatedAt:    now,
	}
}

func (e *EscrowTransaction) TransitionTo(newStatus valueobject.EscrowStatus, now time.Time) error {
	if !e.Status.CanTransitionTo(newStatus) {
		return apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("эскроу в статусе %s нельзя перевести в %s", e.Status, newStatus))
	}

	switch newStatus {
	case valueobject.EscrowStatusReleased:
		e.ReleasedAt = &now
	case valueobject.EscrowStatusRefunded:
		e.RefundedAt = &now
	case valueobject.EscrowStatusExpired:
		e.ExpiredAt = &now
	}
	e.Status = newStatus
	e.UpdatedAt = now
	return nil
}

// ClawBack возвращает покупателю уже выпущенные продавцу средства. Доступно
// только протоколу возврата по спору, обычный TransitionTo этого перехода не допускает.
func (e *EscrowTransaction) ClawBack(now time.Time) error {
	if e.Status != valueobject.EscrowStatusReleased {
		return apperror.New(apperror.ErrCodeInvalidState,
			fmt.Sprintf("эскроу в статусе %s нельзя отозвать", e.Status))
	}
	e.RefundedAt = &now
	e.Status = valueobject.EscrowStatusRefunded
	e.UpdatedAt = now
	return nil
}
