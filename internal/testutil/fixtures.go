// Package testutil - общие фикстуры для тестов use case'ов и HTTP слоя.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/memory"
)

func User(id uuid.UUID) entity.Actor {
	return entity.Actor{ID: id, Role: entity.RoleUser}
}

func Admin() entity.Actor {
	return entity.Actor{ID: uuid.New(), Role: entity.RoleAdmin}
}

type ListingOption func(*entity.Listing)

func WithOwner(id uuid.UUID) ListingOption {
	return func(l *entity.Listing) { l.OwnerID = id }
}

func WithQuantity(qty int) ListingOption {
	return func(l *entity.Listing) { l.Quantity = qty }
}

func WithPrice(cents int64) ListingOption {
	return func(l *entity.Listing) { l.PriceCents = &cents }
}

func WithoutPrice() ListingOption {
	return func(l *entity.Listing) { l.PriceCents = nil }
}

func WithCurrency(code string) ListingOption {
	return func(l *entity.Listing) { l.CurrencyCode = code }
}

func DistressSale() ListingOption {
	return func(l *entity.Listing) { l.DistressSale = true }
}

// SeedListing кладёт в стор активное объявление: 1 шт. по 1000 копеек, если не указано иное.
func SeedListing(store *memory.Store, opts ...ListingOption) *entity.Listing {
	price := int64(1000)
	now := time.Now()
	l := &entity.Listing{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Title:        "test listing",
		PriceCents:   &price,
		CurrencyCode: "RUB",
		Quantity:     1,
		Status:       valueobject.ListingStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(l)
	}
	store.PutListing(l)
	return l
}

type Notification struct {
	UserID  uuid.UUID
	Type    string
	Payload any
}

// RecordingEmitter запоминает уведомления синхронно.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []Notification
}

func (r *RecordingEmitter) Notify(ctx context.Context, userID uuid.UUID, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Notification{UserID: userID, Type: eventType, Payload: payload})
}

func (r *RecordingEmitter) Events() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.events...)
}

func (r *RecordingEmitter) OfType(eventType string) []Notification {
	var result []Notification
	for _, e := range r.Events() {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// GatewayMock - мок платёжного шлюза на testify/mock.
type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) Initiate(ctx context.Context, orderID uuid.UUID, amountCents int64, currency, idempotencyKey string) (string, error) {
	args := m.Called(ctx, orderID, amountCents, currency, idempotencyKey)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) Refund(ctx context.Context, reference, idempotencyKey string) error {
	args := m.Called(ctx, reference, idempotencyKey)
	return args.Error(0)
}

// Clock - управляемые часы для тестов таймера.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
