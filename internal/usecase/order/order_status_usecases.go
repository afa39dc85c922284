package order

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
	"github.com/ignatzorin/swapmarket-backend/internal/notify"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/txretry"
	"github.com/ignatzorin/swapmarket-backend/internal/tracing"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/common"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
)

// UpdateOrderStatusUseCase - переходы статуса заказа, доступные продавцу.
type UpdateOrderStatusUseCase struct {
	store     repository.Store
	inventory *inventory.Adjuster
	escrow    *escrow.Ledger
	gateway   repository.PaymentGateway
	notifier  notify.Emitter
}

func NewUpdateOrderStatusUseCase(store repository.Store, inv *inventory.Adjuster, ledger *escrow.Ledger, gateway repository.PaymentGateway, notifier notify.Emitter) *UpdateOrderStatusUseCase {
	return &UpdateOrderStatusUseCase{
		store:     store,
		inventory: inv,
		escrow:    ledger,
		gateway:   gateway,
		notifier:  notifier,
	}
}

func (uc *UpdateOrderStatusUseCase) Execute(ctx context.Context, actor entity.Actor, orderID uuid.UUID, status string) (_ *entity.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.UpdateStatus", tracing.OrderID(orderID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	newStatus, err := valueobject.NewOrderStatus(status)
	if err != nil {
		return nil, err
	}

	current, err := uc.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if current.SellerID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "менять статус заказа может только продавец")
	}
	if current.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "заказ уже завершён")
	}
	if !current.Status.CanTransitionTo(newStatus) {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "переход статуса заказа недопустим")
	}

	// деньги возвращаются до транзакции: при ошибке шлюза ledger не меняется
	if newStatus == valueobject.OrderStatusCancelled && current.PaymentStatus == valueobject.PaymentStatusPaid && current.PaymentReference != nil {
		if err := uc.gateway.Refund(ctx, *current.PaymentReference, common.RefundIdempotencyKey(orderID)); err != nil {
			return nil, paymentError(err, "не удалось вернуть платёж")
		}
	}

	var (
		updated  *entity.Order
		previous valueobject.OrderStatus
	)
	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			now := time.Now().UTC()

			o, err := tx.GetOrderForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			previous = o.Status
			if err := o.TransitionTo(newStatus, now); err != nil {
				return err
			}

			switch newStatus {
			case valueobject.OrderStatusFulfilled:
				if err := uc.escrow.Release(ctx, tx, o, now); err != nil {
					return err
				}
			case valueobject.OrderStatusCancelled:
				if err := uc.inventory.RestoreLines(ctx, tx, inventory.LinesFromItems(o.Items), now); err != nil {
					return err
				}
				if previous == valueobject.OrderStatusPaid {
					err = uc.escrow.Refund(ctx, tx, o, now)
				} else {
					err = uc.escrow.Expire(ctx, tx, o, now)
				}
				if err != nil {
					return err
				}
			}

			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
			updated = o
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось обновить статус заказа")
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(previous), string(updated.Status)).Inc()
	logger.Entry().WithFields(logrus.Fields{
		"order_id": updated.ID,
		"from":     previous,
		"to":       updated.Status,
	}).Info("статус заказа изменён")

	uc.notifier.Notify(ctx, updated.BuyerID, notify.EventOrderStatusChanged, map[string]any{
		"order_id":        updated.ID,
		"status":          updated.Status,
		"previous_status": previous,
		"payment_status":  updated.PaymentStatus,
	})

	return updated, nil
}

// InitiatePaymentUseCase запрашивает у шлюза ссылку на оплату заказа.
type InitiatePaymentUseCase struct {
	store    repository.Store
	gateway  repository.PaymentGateway
	notifier notify.Emitter
}

func NewInitiatePaymentUseCase(store repository.Store, gateway repository.PaymentGateway, notifier notify.Emitter) *InitiatePaymentUseCase {
	return &InitiatePaymentUseCase{store: store, gateway: gateway, notifier: notifier}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, actor entity.Actor, orderID uuid.UUID) (_ *entity.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.InitiatePayment", tracing.OrderID(orderID), tracing.ActorID(actor.ID))
	defer func() { tracing.End(span, err) }()

	current, err := uc.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось получить заказ")
	}
	if current.BuyerID != actor.ID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "оплатить заказ может только покупатель")
	}
	if current.Status != valueobject.OrderStatusPending {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "оплатить можно только ожидающий заказ")
	}
	if current.TotalPriceCents <= 0 {
		return nil, apperror.New(apperror.ErrCodeInvalidOperation, "в заказе нет денежной части")
	}
	if current.PaymentReference != nil {
		return current, nil
	}

	// повтор после сбоя между шлюзом и коммитом получает тот же платёж
	reference, err := uc.gateway.Initiate(ctx, current.ID, current.TotalPriceCents, current.CurrencyCode, common.PaymentIdempotencyKey(orderID))
	if err != nil {
		return nil, paymentError(err, "не удалось создать платёж")
	}

	var updated *entity.Order
	err = txretry.Do(ctx, txretry.DefaultAttempts, func() error {
		return repository.WithTx(ctx, uc.store, func(tx repository.Tx) error {
			o, err := tx.GetOrderForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if o.Status != valueobject.OrderStatusPending {
				return apperror.New(apperror.ErrCodeInvalidOperation, "оплатить можно только ожидающий заказ")
			}
			// параллельный запрос уже сохранил ссылку
			if o.PaymentReference != nil {
				updated = o
				return nil
			}
			o.AttachPayment(reference, time.Now().UTC())
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return err
			}
			updated = o
			return nil
		})
	})
	if err != nil {
		return nil, common.StoreError(err, apperror.ErrOrderNotFound, "не удалось сохранить платёж")
	}

	uc.notifier.Notify(ctx, updated.SellerID, notify.EventOrderPaymentInitiated, map[string]any{
		"order_id":  updated.ID,
		"reference": *updated.PaymentReference,
	})
	return updated, nil
}

// paymentError гарантирует код PAYMENT_ERROR для любой ошибки шлюза.
func paymentError(err error, message string) error {
	if apperror.Is(err, apperror.ErrCodePayment) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodePayment, message)
}
