// Package notify доставляет уведомления пользователям по принципу fire-and-forget.
// Ошибки доставки логируются и никогда не возвращаются вызывающему.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/goroutine"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/metrics"
)

const (
	EventOrderCreated          = "order.created"
	EventOrderStatusChanged    = "order.status_changed"
	EventOrderPaymentInitiated = "order.payment_initiated"
	EventDisputeOpened         = "dispute.opened"
	EventDisputeUnderReview    = "dispute.under_review"
	EventDisputeResolved       = "dispute.resolved"
	EventDisputeRejected       = "dispute.rejected"
	EventTradeOffered          = "trade.offered"
	EventTradeAccepted         = "trade.accepted"
	EventTradeRejected         = "trade.rejected"
	EventTradeCountered        = "trade.countered"
	EventTradeWithdrawn        = "trade.withdrawn"
	EventTradeStatusChanged    = "trade.status_changed"
	EventTradeExtended         = "trade.timer_extended"
	EventExtensionRequested    = "trade.extension_requested"
	EventTradeTimerPaused      = "trade.timer_paused"
	EventTradeTimerResumed     = "trade.timer_resumed"
	EventTradeExpired          = "trade.expired"
)

// Emitter используется ядром. Notify возвращается сразу.
type Emitter interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload any)
}

type Event struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Type       string    `json:"type"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink представляет один канал доставки (Kafka, WebSocket).
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Dispatcher рассылает событие во все sink'и, каждый в своей горутине.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload any) {
	event := Event{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	// запрос к этому моменту может уже завершиться
	base := context.WithoutCancel(ctx)

	for _, sink := range d.sinks {
		d.wg.Add(1)
		goroutine.SafeGo("notify:"+sink.Name(), func() {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := sink.Send(sendCtx, event); err != nil {
				metrics.NotificationFailuresTotal.WithLabelValues(sink.Name()).Inc()
				logger.Entry().WithFields(logrus.Fields{
					"sink":    sink.Name(),
					"event":   event.Type,
					"user_id": event.UserID,
				}).WithError(err).Warn("не удалось доставить уведомление")
			}
		})
	}
}

// Wait дожидается отправки уже запущенных уведомлений (graceful shutdown, тесты).
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Nop отбрасывает все события.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, string, any) {}
