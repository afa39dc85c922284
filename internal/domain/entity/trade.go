package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/timer"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// Trade - бартерное предложение покупателя по объявлению продавца.
type Trade struct {
	ID                uuid.UUID
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	ListingID         uuid.UUID
	OfferedListingID  *uuid.UUID
	CashTopUpCents    int64
	Quantity          int
	Message           string
	Status            valueobject.TradeStatus
	TimerExpiresAt    *time.Time
	TimerPausedAt     *time.Time
	ExtensionCount    int
	InventoryReserved bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewTrade(buyerID, sellerID, listingID uuid.UUID, offeredListingID *uuid.UUID, cashTopUpCents int64, quantity int, message string, now time.Time) (*Trade, error) {
	if quantity < 1 {
		return nil, apperror.New(apperror.ErrCodeValidation, "количество должно быть не меньше 1")
	}
	if cashTopUpCents < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "доплата не может быть отрицательной")
	}
	if offeredListingID == nil && cashTopUpCents == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "предложение должно содержать товар или доплату")
	}

	return &Trade{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		SellerID:         sellerID,
		ListingID:        listingID,
		OfferedListingID: offeredListingID,
		CashTopUpCents:   cashTopUpCents,
		Quantity:         quantity,
		Message:          message,
		Status:           valueobject.TradeStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (t *Trade) IsParty(userID uuid.UUID) bool {
	return t.BuyerID == userID || t.SellerID == userID
}

func (t *Trade) CounterpartyOf(userID uuid.UUID) uuid.UUID {
	if userID == t.BuyerID {
		return t.SellerID
	}
	return t.BuyerID
}

func (t *Trade) TransitionTo(newStatus valueobject.TradeStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(newStatus) {
		return apperror.New(apperror.ErrCodeInvalidOperation,
			fmt.Sprintf("переход сделки из %s в %s недопустим", t.Status, newStatus))
	}
	t.Status = newStatus
	t.UpdatedAt = now
	return nil
}

// StartTimer запускает окно завершения сделки с нуля.
func (t *Trade) StartTimer(now time.Time, window time.Duration) {
	expiresAt := now.Add(window)
	t.TimerExpiresAt = &expiresAt
	t.TimerPausedAt = nil
	t.ExtensionCount = 0
	t.UpdatedAt = now
}

// TimerState возвращает false, если таймер ещё не запускался.
func (t *Trade) TimerState(now time.Time) (timer.State, bool) {
	if t.TimerExpiresAt == nil {
		return timer.State{}, false
	}
	return timer.Compute(*t.TimerExpiresAt, t.TimerPausedAt, now), true
}

// IsExpired: сделка в работе, таймер истёк и не на паузе.
func (t *Trade) IsExpired(now time.Time) bool {
	if !t.Status.InFlight() {
		return false
	}
	state, ok := t.TimerState(now)
	return ok && !state.IsPaused && state.IsExpired
}

// CanExtend - общее предусловие продления для продавца и запроса от покупателя.
func (t *Trade) CanExtend(now time.Time) error {
	if t.ExtensionCount >= timer.MaxExtensions {
		return apperror.New(apperror.ErrCodeLimitExceeded, "лимит продлений таймера исчерпан")
	}
	state, ok := t.TimerState(now)
	if !ok || !t.Status.InFlight() {
		return apperror.New(apperror.ErrCodeInvalidState, "таймер сделки не запущен")
	}
	if state.IsPaused {
		return apperror.New(apperror.ErrCodeInvalidState, "таймер на паузе")
	}
	if state.IsExpired {
		return apperror.New(apperror.ErrCodeInvalidState, "время сделки истекло")
	}
	return nil
}

func (t *Trade) Extend(now time.Time) error {
	if err := t.CanExtend(now); err != nil {
		return err
	}
	expiresAt := t.TimerExpiresAt.Add(timer.ExtensionStep)
	t.TimerExpiresAt = &expiresAt
	t.ExtensionCount++
	t.UpdatedAt = now
	return nil
}

// PauseTimer замораживает остаток, пока продавец проверяет предоплату.
func (t *Trade) PauseTimer(now time.Time) error {
	state, ok := t.TimerState(now)
	if !ok || !t.Status.InFlight() {
		return apperror.New(apperror.ErrCodeInvalidState, "таймер сделки не запущен")
	}
	if state.IsPaused {
		return apperror.New(apperror.ErrCodeInvalidState, "таймер уже на паузе")
	}
	if state.IsExpired {
		return apperror.New(apperror.ErrCodeInvalidState, "время сделки истекло")
	}
	t.TimerPausedAt = &now
	t.UpdatedAt = now
	return nil
}

// ResumeTimer продолжает отсчёт с замороженного остатка.
func (t *Trade) ResumeTimer(now time.Time) error {
	if t.TimerPausedAt == nil || t.TimerExpiresAt == nil {
		return apperror.New(apperror.ErrCodeInvalidState, "таймер не на паузе")
	}
	if !t.Status.InFlight() {
		return apperror.New(apperror.ErrCodeInvalidState, "сделка уже завершена")
	}
	remaining := t.TimerExpiresAt.Sub(*t.TimerPausedAt)
	if remaining < 0 {
		remaining = 0
	}
	expiresAt := now.Add(remaining)
	t.TimerExpiresAt = &expiresAt
	t.TimerPausedAt = nil
	t.UpdatedAt = now
	return nil
}
