// Package memory - хранилище ledger в памяти с оптимистичными транзакциями.
// Используется в тестах и при STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
)

var errTxDone = errors.New("memory: транзакция уже завершена")

type kind uint8

const (
	kindListing kind = iota
	kindOrder
	kindDispute
	kindTrade
)

type rowKey struct {
	kind kind
	id   uuid.UUID
}

// Store держит зафиксированные строки и их версии. Транзакция запоминает
// версии прочитанных строк и проверяет их при Commit.
type Store struct {
	mu       sync.RWMutex
	versions map[rowKey]int64
	listings map[uuid.UUID]*entity.Listing
	orders   map[uuid.UUID]*entity.Order
	disputes map[uuid.UUID]*entity.Dispute
	trades   map[uuid.UUID]*entity.Trade
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		versions: make(map[rowKey]int64),
		listings: make(map[uuid.UUID]*entity.Listing),
		orders:   make(map[uuid.UUID]*entity.Order),
		disputes: make(map[uuid.UUID]*entity.Dispute),
		trades:   make(map[uuid.UUID]*entity.Trade),
	}
}

// PutListing создаёт или перезаписывает объявление. Объявлениями владеет каталог,
// здесь это нужно для тестов и локального запуска.
func (s *Store) PutListing(listing *entity.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = cloneListing(listing)
	s.versions[rowKey{kindListing, listing.ID}]++
}

func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{
		s:        s,
		seen:     make(map[rowKey]int64),
		created:  make(map[rowKey]bool),
		listings: make(map[uuid.UUID]*entity.Listing),
		orders:   make(map[uuid.UUID]*entity.Order),
		disputes: make(map[uuid.UUID]*entity.Dispute),
		trades:   make(map[uuid.UUID]*entity.Trade),
	}, nil
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneListing(l), nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Order
	for _, o := range s.orders {
		if o.IsParty(userID) {
			result = append(result, cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, limit, offset), nil
}

func (s *Store) GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDispute(d), nil
}

func (s *Store) GetActiveDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.disputes {
		if d.OrderID == orderID && d.IsActive() {
			return cloneDispute(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListDisputesByOrder(ctx context.Context, orderID uuid.UUID) ([]*entity.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Dispute
	for _, d := range s.disputes {
		if d.OrderID == orderID {
			result = append(result, cloneDispute(d))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// ListDisputesByUser возвращает споры по заказам, где пользователь - покупатель или продавец.
func (s *Store) ListDisputesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Dispute
	for _, d := range s.disputes {
		o, ok := s.orders[d.OrderID]
		if d.ReporterID == userID || (ok && o.IsParty(userID)) {
			result = append(result, cloneDispute(d))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, limit, offset), nil
}

func (s *Store) GetTrade(ctx context.Context, id uuid.UUID) (*entity.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTrade(t), nil
}

func (s *Store) ListTradesByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Trade
	for _, t := range s.trades {
		if t.IsParty(userID) {
			result = append(result, cloneTrade(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return page(result, limit, offset), nil
}

func (s *Store) ListExpiredTrades(ctx context.Context, now time.Time, after *repository.TradeCursor, limit int) ([]*entity.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entity.Trade
	for _, t := range s.trades {
		if !t.IsExpired(now) {
			continue
		}
		if after != nil && after.Before(*t.TimerExpiresAt, t.ID) {
			continue
		}
		result = append(result, cloneTrade(t))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.TimerExpiresAt.Equal(*b.TimerExpiresAt) {
			return a.TimerExpiresAt.Before(*b.TimerExpiresAt)
		}
		return a.ID.String() < b.ID.String()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
