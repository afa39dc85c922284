// Package escrow ведёт журнал удержания средств по заказам.
package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

type Ledger struct {
	reader repository.Reader
}

func NewLedger(reader repository.Reader) *Ledger {
	return &Ledger{reader: reader}
}

// Hold открывает удержание для заказа с distress-позицией и ненулевой денежной суммой.
// Эскроу прикрепляется к заказу и сохраняется вместе с ним.
func (l *Ledger) Hold(order *entity.Order, distressSale bool, now time.Time) *entity.EscrowTransaction {
	if !distressSale || order.TotalPriceCents <= 0 {
		return nil
	}
	order.Escrow = entity.NewEscrowHold(order.ID, order.Total(), now)
	return order.Escrow
}

// Release переводит средства продавцу после выполнения заказа.
func (l *Ledger) Release(ctx context.Context, tx repository.Tx, order *entity.Order, now time.Time) error {
	return l.transition(ctx, tx, order, valueobject.EscrowStatusReleased, now)
}

// Refund возвращает средства покупателю. Повторный вызов по уже возвращённому эскроу ничего не делает.
func (l *Ledger) Refund(ctx context.Context, tx repository.Tx, order *entity.Order, now time.Time) error {
	if order.Escrow != nil && order.Escrow.Status == valueobject.EscrowStatusRefunded {
		return nil
	}
	return l.transition(ctx, tx, order, valueobject.EscrowStatusRefunded, now)
}

// ClawBack отзывает выпущенные средства при полном возврате по спору.
func (l *Ledger) ClawBack(ctx context.Context, tx repository.Tx, order *entity.Order, now time.Time) error {
	if order.Escrow == nil {
		return nil
	}
	if err := order.Escrow.ClawBack(now); err != nil {
		return err
	}
	return tx.UpdateEscrow(ctx, order.Escrow)
}

// Expire закрывает удержание по неоплаченному заказу.
func (l *Ledger) Expire(ctx context.Context, tx repository.Tx, order *entity.Order, now time.Time) error {
	return l.transition(ctx, tx, order, valueobject.EscrowStatusExpired, now)
}

func (l *Ledger) transition(ctx context.Context, tx repository.Tx, order *entity.Order, status valueobject.EscrowStatus, now time.Time) error {
	if order.Escrow == nil {
		return nil
	}
	if err := order.Escrow.TransitionTo(status, now); err != nil {
		return err
	}
	return tx.UpdateEscrow(ctx, order.Escrow)
}

// Get отдаёт эскроу по заказу участнику заказа или администратору.
func (l *Ledger) Get(ctx context.Context, actor entity.Actor, orderID uuid.UUID) (*entity.EscrowTransaction, error) {
	order, err := l.reader.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заказ")
	}
	if !order.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if order.Escrow == nil {
		return nil, apperror.ErrEscrowNotFound
	}
	return order.Escrow, nil
}
