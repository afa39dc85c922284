package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

// ReversalProtocol откатывает последствия заказа при полном возврате по спору:
// возвращает остатки, закрывает эскроу возвратом (выпущенное продавцу отзывается),
// отменяет заказ.
//
// Остатки возвращаются только если у заказа нет отметки ReversedAt, поэтому
// повторный запуск после сбоя между коммитом и закрытием спора безопасен.
type ReversalProtocol struct {
	store     repository.Store
	inventory *inventory.Adjuster
	escrow    *escrow.Ledger
	gateway   repository.PaymentGateway
	attempts  int
}

func NewReversalProtocol(store repository.Store, inv *inventory.Adjuster, ledger *escrow.Ledger, gateway repository.PaymentGateway) *ReversalProtocol {
	return &ReversalProtocol{
		store:     store,
		inventory: inv,
		escrow:    ledger,
		gateway:   gateway,
		attempts:  txretry.DefaultAttempts,
	}
}

// ReversalResult - итог отката. InventoryRestored=false значит, что остатки уже
// были возвращены раньше (отмена заказа или прошлый запуск).
type ReversalResult struct {
	Order             *entity.Order
	InventoryRestored bool
}

func (p *ReversalProtocol) Run(ctx context.Context, orderID uuid.UUID) (_ *ReversalResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "dispute.Reversal", tracing.OrderID(orderID))
	defer func() {
		if err != nil {
			metrics.ReversalsTotal.WithLabelValues("failed").Inc()
		}
		tracing.End(span, err)
	}()

	current, err := p.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}

	// возврат у провайдера до транзакции; ключ идемпотентности один на заказ
	if current.PaymentStatus == valueobject.PaymentStatusPaid && current.PaymentReference != nil {
		if err := p.gateway.Refund(ctx, *current.PaymentReference, common.RefundIdempotencyKey(orderID)); err != nil {
			if apperror.Is(err, apperror.ErrCodePayment) {
				return nil, err
			}
			return nil, apperror.Wrap(err, apperror.ErrCodePayment, "не удалось вернуть платёж")
		}
	}

	result := &ReversalResult{}
	err = txretry.Do(ctx, p.attempts, func() error {
		result.InventoryRestored = false
		return repository.WithTx(ctx, p.store, func(tx repository.Tx) error {
			now := time.Now().UTC()

			// заказ перечитывается внутри транзакции, а не берётся из current
			o, err := tx.GetOrderForUpdate(ctx, orderID)
			if err != nil {
				return err
			}

			if !o.IsReversed() {
				if err := p.inventory.RestoreLines(ctx, tx, inventory.LinesFromItems(o.Items), now); err != nil {
					return err
				}
				result.InventoryRestored = true
			}

			// истёкшее эскроу денег не держит, возвращённое уже закрыто
			if o.Escrow != nil {
				switch o.Escrow.Status {
				case valueobject.EscrowStatusHeld:
					err = p.escrow.Refund(ctx, tx, o, now)
				case valueobject.EscrowStatusReleased:
					err = p.escrow.ClawBack(ctx, tx, o, now)
				}
				if err != nil {
					return err
				}
			}

			o.Reverse(now)
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
			result.Order = o
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось выполнить возврат по заказу")
	}

	outcome := "skipped"
	if result.InventoryRestored {
		outcome = "applied"
	}
	metrics.ReversalsTotal.WithLabelValues(outcome).Inc()

	logger.Entry().WithFields(logrus.Fields{
		"order_id":           orderID,
		"inventory_restored": result.InventoryRestored,
	}).Info("возврат по заказу выполнен")

	return result, nil
}
