package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
)

type fakeExpirer struct {
	mu      sync.Mutex
	calls   int
	cursors []*repository.TradeCursor
	results []trade.ExpireBatch
	err     error
}

func (f *fakeExpirer) Execute(ctx context.Context, after *repository.TradeCursor, limit int) (trade.ExpireBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.cursors = append(f.cursors, after)
	if f.err != nil {
		return trade.ExpireBatch{Next: after}, f.err
	}
	if len(f.results) == 0 {
		return trade.ExpireBatch{Next: after}, nil
	}
	batch := f.results[0]
	f.results = f.results[1:]
	return batch, nil
}

func (f *fakeExpirer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func cursorAt(offset time.Duration) *repository.TradeCursor {
	return &repository.TradeCursor{ExpiresAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC).Add(offset), ID: uuid.New()}
}

func TestSweeper_DrainsFullBatches(t *testing.T) {
	first, second := cursorAt(0), cursorAt(time.Minute)
	expirer := &fakeExpirer{results: []trade.ExpireBatch{
		{Scanned: 2, Expired: 2, Next: first},
		{Scanned: 2, Expired: 2, Next: second},
		{Scanned: 1, Expired: 1, Next: cursorAt(2 * time.Minute)},
	}}
	s := NewSweeper(expirer, time.Minute, 2)

	s.sweep(context.Background())
	assert.Equal(t, 3, expirer.Calls())
	assert.Equal(t, []*repository.TradeCursor{nil, first, second}, expirer.cursors)
}

func TestSweeper_FailingBatchDoesNotBlockQueue(t *testing.T) {
	stuck := cursorAt(0)
	expirer := &fakeExpirer{results: []trade.ExpireBatch{
		{Scanned: 2, Failed: 2, Next: stuck},
		{Scanned: 1, Expired: 1, Next: cursorAt(time.Minute)},
	}}
	s := NewSweeper(expirer, time.Minute, 2)

	s.sweep(context.Background())
	assert.Equal(t, 2, expirer.Calls())
	assert.Equal(t, []*repository.TradeCursor{nil, stuck}, expirer.cursors)

	// следующий тик снова начинает с головы очереди
	expirer.results = []trade.ExpireBatch{{Scanned: 1, Failed: 1, Next: stuck}}
	s.sweep(context.Background())
	assert.Nil(t, expirer.cursors[2])
}

func TestSweeper_StopsOnError(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	s := NewSweeper(expirer, time.Minute, 2)

	s.sweep(context.Background())
	assert.Equal(t, 1, expirer.Calls())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	expirer := &fakeExpirer{}
	s := NewSweeper(expirer, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return expirer.Calls() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
