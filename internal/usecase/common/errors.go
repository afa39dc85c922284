package common

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// StoreError переводит ошибку хранилища в AppError. Ошибки приложения проходят как есть.
// notFound - что вернуть на repository.ErrNotFound.
func StoreError(err error, notFound *apperror.AppError, message string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		if notFound != nil {
			return notFound
		}
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "запись не найдена")
	case errors.Is(err, repository.ErrActiveDisputeExists):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "по заказу уже открыт спор")
	case repository.IsRetryable(err):
		return apperror.Wrap(err, apperror.ErrRetryTransaction.Code, apperror.ErrRetryTransaction.Message)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(err, apperror.ErrCodeInternal, "операция прервана")
	default:
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
	}
}

// PaymentIdempotencyKey - один ключ создания платежа на заказ: повторный запрос
// оплаты получает у провайдера тот же платёж.
func PaymentIdempotencyKey(orderID uuid.UUID) string {
	return "payment-" + orderID.String()
}

// RefundIdempotencyKey - один ключ возврата на заказ, кто бы его ни инициировал.
func RefundIdempotencyKey(orderID uuid.UUID) string {
	return "refund-" + orderID.String()
}

// Page нормализует limit/offset списков.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
