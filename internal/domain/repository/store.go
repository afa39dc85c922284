package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
)

var (
	ErrNotFound = errors.New("repository: запись не найдена")
	// ErrConflict - строку изменили параллельно (оптимистичная блокировка,
	// serialization failure, deadlock). Транзакцию можно повторить.
	ErrConflict = errors.New("repository: конфликт параллельного изменения")
	// ErrActiveDisputeExists - по заказу уже есть открытый спор. Повтор не поможет.
	ErrActiveDisputeExists = errors.New("repository: по заказу уже есть активный спор")
)

func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Reader - чтения вне транзакции для дешёвых предварительных проверок.
type Reader interface {
	GetListing(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Order, error)
	GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	GetActiveDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error)
	ListDisputesByOrder(ctx context.Context, orderID uuid.UUID) ([]*entity.Dispute, error)
	ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Dispute, error)
	GetTrade(ctx context.Context, id uuid.UUID) (*entity.Trade, error)
	ListTradesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Trade, error)
	// ListExpiredTrades отдаёт кандидатов на автоотмену в порядке (timer_expires_at, id),
	// начиная после after (nil - с начала). Внутри транзакции их нужно перепроверить.
	ListExpiredTrades(ctx context.Context, now time.Time, after *TradeCursor, limit int) ([]*entity.Trade, error)
}

// TradeCursor - позиция в выборке просроченных сделок.
type TradeCursor struct {
	ExpiresAt time.Time
	ID        uuid.UUID
}

// CursorAfter возвращает позицию сразу за сделкой t.
func CursorAfter(t *entity.Trade) *TradeCursor {
	c := &TradeCursor{ID: t.ID}
	if t.TimerExpiresAt != nil {
		c.ExpiresAt = *t.TimerExpiresAt
	}
	return c
}

// Before сообщает, идёт ли позиция (expiresAt, id) до курсора или совпадает с ним.
func (c *TradeCursor) Before(expiresAt time.Time, id uuid.UUID) bool {
	if !expiresAt.Equal(c.ExpiresAt) {
		return expiresAt.Before(c.ExpiresAt)
	}
	return id.String() <= c.ID.String()
}

// Tx - единица работы. Методы ...ForUpdate блокируют строку до конца транзакции
// (или запоминают её версию для проверки при Commit).
type Tx interface {
	GetListingForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	UpdateListing(ctx context.Context, listing *entity.Listing) error

	// CreateOrder сохраняет заказ вместе с позициями и эскроу, если оно есть.
	CreateOrder(ctx context.Context, order *entity.Order) error
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	UpdateOrder(ctx context.Context, order *entity.Order) error
	UpdateEscrow(ctx context.Context, escrow *entity.EscrowTransaction) error

	CreateDispute(ctx context.Context, dispute *entity.Dispute) error
	GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindActiveDispute(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error)
	UpdateDispute(ctx context.Context, dispute *entity.Dispute) error

	CreateTrade(ctx context.Context, trade *entity.Trade) error
	GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trade, error)
	UpdateTrade(ctx context.Context, trade *entity.Trade) error

	Commit() error
	Rollback() error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Store - полное хранилище ledger: чтения плюс транзакции.
type Store interface {
	Reader
	UnitOfWork
}
