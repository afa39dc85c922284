// Package payment - адаптеры платёжных провайдеров.
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jaevor/go-nanoid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

const (
	offlineReferencePrefix = "offline_"

	offlineIssuedSize = 10000
	offlineIssuedTTL  = 24 * time.Hour
)

// OfflineGateway - оплата банковским переводом вне платформы. Ссылка нужна, чтобы
// продавец сверил перевод; возврат тоже делается вручную и только фиксируется.
type OfflineGateway struct {
	newID func() string

	mu     sync.Mutex
	issued *expirable.LRU[string, string] // ключ идемпотентности -> выданная ссылка
}

func NewOfflineGateway() (*OfflineGateway, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("payment: не удалось создать генератор ссылок: %w", err)
	}
	return &OfflineGateway{
		newID:  gen,
		issued: expirable.NewLRU[string, string](offlineIssuedSize, nil, offlineIssuedTTL),
	}, nil
}

func (g *OfflineGateway) Initiate(ctx context.Context, orderID uuid.UUID, amountCents int64, currency, idempotencyKey string) (string, error) {
	if amountCents <= 0 {
		return "", apperror.New(apperror.ErrCodePayment, "сумма платежа должна быть положительной")
	}

	g.mu.Lock()
	reference, seen := g.issued.Get(idempotencyKey)
	if !seen {
		reference = offlineReferencePrefix + g.newID()
		if idempotencyKey != "" {
			g.issued.Add(idempotencyKey, reference)
		}
	}
	g.mu.Unlock()
	if seen {
		return reference, nil
	}

	logger.Entry().WithFields(logrus.Fields{
		"order_id":  orderID,
		"reference": reference,
		"amount":    amountCents,
		"currency":  currency,
	}).Info("offline: ожидается банковский перевод")
	return reference, nil
}

func (g *OfflineGateway) Refund(ctx context.Context, reference, idempotencyKey string) error {
	if reference == "" {
		return apperror.New(apperror.ErrCodePayment, "нет ссылки на платёж для возврата")
	}
	logger.Entry().WithFields(logrus.Fields{
		"reference":       reference,
		"idempotency_key": idempotencyKey,
	}).Info("offline: возврат зафиксирован, перевод выполняется вручную")
	return nil
}
