// Package timer считает оставшееся время «анти-гостинг» таймера сделки.
// Таймер не тикает сам: состояние выводится из сохранённых отметок времени.
package timer

import "time"

const (
	// ExtensionStep - на сколько продавец продлевает таймер за один раз.
	ExtensionStep = 30 * time.Minute
	MaxExtensions = 3
	DefaultWindow = 24 * time.Hour
)

type State struct {
	Remaining time.Duration
	IsPaused  bool
	IsExpired bool
}

func (s State) RemainingMs() int64 {
	return s.Remaining.Milliseconds()
}

// Compute возвращает состояние таймера на момент now. На паузе остаток
// заморожен как expiresAt − pausedAt и от now не зависит.
func Compute(expiresAt time.Time, pausedAt *time.Time, now time.Time) State {
	var remaining time.Duration
	if pausedAt != nil {
		remaining = expiresAt.Sub(*pausedAt)
	} else {
		remaining = expiresAt.Sub(now)
	}
	if remaining < 0 {
		remaining = 0
	}

	return State{
		Remaining: remaining,
		IsPaused:  pausedAt != nil,
		IsExpired: remaining <= 0,
	}
}
