package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
)

// tx буферизует записи до Commit. seen хранит версию строки на момент
// первого чтения; если к Commit версия сменилась, транзакция получает ErrConflict.
type tx struct {
	s       *Store
	done    bool
	seen    map[rowKey]int64
	created map[rowKey]bool

	listings map[uuid.UUID]*entity.Listing
	orders   map[uuid.UUID]*entity.Order
	disputes map[uuid.UUID]*entity.Dispute
	trades   map[uuid.UUID]*entity.Trade
}

// load читает строку: сначала из буфера транзакции, затем из стора с фиксацией версии.
func load[T any](t *tx, k kind, id uuid.UUID, staged, committed map[uuid.UUID]*T, clone func(*T) *T) (*T, error) {
	if t.done {
		return nil, errTxDone
	}
	if row, ok := staged[id]; ok {
		return clone(row), nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	row, ok := committed[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	key := rowKey{k, id}
	if _, ok := t.seen[key]; !ok {
		t.seen[key] = t.s.versions[key]
	}
	return clone(row), nil
}

// stage кладёт изменённую строку в буфер. Строка должна существовать.
func stage[T any](t *tx, k kind, id uuid.UUID, row *T, staged, committed map[uuid.UUID]*T, clone func(*T) *T) error {
	if t.done {
		return errTxDone
	}
	key := rowKey{k, id}
	if _, ok := staged[id]; !ok && !t.created[key] {
		t.s.mu.RLock()
		_, exists := committed[id]
		if exists {
			if _, ok := t.seen[key]; !ok {
				t.seen[key] = t.s.versions[key]
			}
		}
		t.s.mu.RUnlock()
		if !exists {
			return repository.ErrNotFound
		}
	}
	staged[id] = clone(row)
	return nil
}

func (t *tx) insert(k kind, id uuid.UUID) error {
	if t.done {
		return errTxDone
	}
	key := rowKey{k, id}
	if t.created[key] {
		return repository.ErrConflict
	}
	t.s.mu.RLock()
	_, exists := t.s.versions[key]
	t.s.mu.RUnlock()
	if exists {
		return repository.ErrConflict
	}
	t.created[key] = true
	return nil
}

func (t *tx) GetListingForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return load(t, kindListing, id, t.listings, t.s.listings, cloneListing)
}

func (t *tx) UpdateListing(ctx context.Context, listing *entity.Listing) error {
	return stage(t, kindListing, listing.ID, listing, t.listings, t.s.listings, cloneListing)
}

func (t *tx) CreateOrder(ctx context.Context, order *entity.Order) error {
	if err := t.insert(kindOrder, order.ID); err != nil {
		return err
	}
	t.orders[order.ID] = cloneOrder(order)
	return nil
}

func (t *tx) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return load(t, kindOrder, id, t.orders, t.s.orders, cloneOrder)
}

func (t *tx) UpdateOrder(ctx context.Context, order *entity.Order) error {
	return stage(t, kindOrder, order.ID, order, t.orders, t.s.orders, cloneOrder)
}

// UpdateEscrow: эскроу хранится внутри строки заказа.
func (t *tx) UpdateEscrow(ctx context.Context, escrow *entity.EscrowTransaction) error {
	order, err := t.GetOrderForUpdate(ctx, escrow.OrderID)
	if err != nil {
		return err
	}
	if order.Escrow == nil || order.Escrow.ID != escrow.ID {
		return repository.ErrNotFound
	}
	e := *escrow
	order.Escrow = &e
	return t.UpdateOrder(ctx, order)
}

func (t *tx) CreateDispute(ctx context.Context, dispute *entity.Dispute) error {
	if err := t.insert(kindDispute, dispute.ID); err != nil {
		return err
	}
	t.disputes[dispute.ID] = cloneDispute(dispute)
	return nil
}

func (t *tx) GetDisputeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return load(t, kindDispute, id, t.disputes, t.s.disputes, cloneDispute)
}

func (t *tx) FindActiveDispute(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	if t.done {
		return nil, errTxDone
	}
	for _, d := range t.disputes {
		if d.OrderID == orderID && d.IsActive() {
			return cloneDispute(d), nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, d := range t.s.disputes {
		if d.OrderID != orderID || !d.IsActive() {
			continue
		}
		if staged, ok := t.disputes[d.ID]; ok && !staged.IsActive() {
			continue
		}
		return cloneDispute(d), nil
	}
	return nil, repository.ErrNotFound
}

func (t *tx) UpdateDispute(ctx context.Context, dispute *entity.Dispute) error {
	return stage(t, kindDispute, dispute.ID, dispute, t.disputes, t.s.disputes, cloneDispute)
}

func (t *tx) CreateTrade(ctx context.Context, trade *entity.Trade) error {
	if err := t.insert(kindTrade, trade.ID); err != nil {
		return err
	}
	t.trades[trade.ID] = cloneTrade(trade)
	return nil
}

func (t *tx) GetTradeForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trade, error) {
	return load(t, kindTrade, id, t.trades, t.s.trades, cloneTrade)
}

func (t *tx) UpdateTrade(ctx context.Context, trade *entity.Trade) error {
	return stage(t, kindTrade, trade.ID, trade, t.trades, t.s.trades, cloneTrade)
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range t.seen {
		if s.versions[key] != version {
			return repository.ErrConflict
		}
	}
	for key := range t.created {
		if _, exists := s.versions[key]; exists {
			return repository.ErrConflict
		}
	}
	if err := t.checkActiveDisputes(); err != nil {
		return err
	}

	for id, l := range t.listings {
		s.listings[id] = l
		s.versions[rowKey{kindListing, id}]++
	}
	for id, o := range t.orders {
		s.orders[id] = o
		s.versions[rowKey{kindOrder, id}]++
	}
	for id, d := range t.disputes {
		s.disputes[id] = d
		s.versions[rowKey{kindDispute, id}]++
	}
	for id, tr := range t.trades {
		s.trades[id] = tr
		s.versions[rowKey{kindTrade, id}]++
	}
	return nil
}

// checkActiveDisputes - аналог частичного уникального индекса disputes(order_id)
// по статусам open/under_review. Вызывается под блокировкой стора.
func (t *tx) checkActiveDisputes() error {
	for _, d := range t.disputes {
		if !d.IsActive() {
			continue
		}
		for _, other := range t.s.disputes {
			if other.ID == d.ID || other.OrderID != d.OrderID || !other.IsActive() {
				continue
			}
			if staged, ok := t.disputes[other.ID]; ok && !staged.IsActive() {
				continue
			}
			return repository.ErrActiveDisputeExists
		}
	}
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	return nil
}
