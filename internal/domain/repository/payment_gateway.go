package repository

import (
	"context"

	"github.com/google/uuid"
)

// PaymentGateway - внешний платёжный провайдер. Ошибки адаптеры возвращают как
// apperror с кодом PAYMENT_ERROR; ядро их не повторяет.
type PaymentGateway interface {
	// Initiate создаёт платёж. Повтор с тем же idempotencyKey возвращает ту же ссылку.
	Initiate(ctx context.Context, orderID uuid.UUID, amountCents int64, currency, idempotencyKey string) (string, error)
	// Refund возвращает платёж. idempotencyKey защищает от двойного возврата при повторе.
	Refund(ctx context.Context, reference, idempotencyKey string) error
}
