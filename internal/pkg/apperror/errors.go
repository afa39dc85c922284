package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodePayment          ErrorCode = "PAYMENT_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError    ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidOperation, ErrCodeLimitExceeded:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidState:
		return http.StatusPreconditionFailed
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodePayment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки приложения или INTERNAL_ERROR для чужих ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return Is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return Is(err, ErrCodeConflict)
}

func IsInvalidState(err error) bool {
	return Is(err, ErrCodeInvalidState)
}

func IsInvalidOperation(err error) bool {
	return Is(err, ErrCodeInvalidOperation)
}

var (
	ErrOrderNotFound    = New(ErrCodeNotFound, "заказ не найден")
	ErrListingNotFound  = New(ErrCodeNotFound, "объявление не найдено")
	ErrDisputeNotFound  = New(ErrCodeNotFound, "спор не найден")
	ErrTradeNotFound    = New(ErrCodeNotFound, "предложение обмена не найдено")
	ErrEscrowNotFound   = New(ErrCodeNotFound, "эскроу по заказу не найдено")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden        = New(ErrCodeForbidden, "недостаточно прав")
	ErrAdminOnly        = New(ErrCodeForbidden, "действие доступно только администратору")
	ErrRetryTransaction = New(ErrCodeConflict, "данные были изменены параллельно, повторите запрос")
)
