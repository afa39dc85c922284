package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute_Running(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	state := Compute(base.Add(time.Hour), nil, base.Add(15*time.Minute))

	assert.Equal(t, 45*time.Minute, state.Remaining)
	assert.False(t, state.IsPaused)
	assert.False(t, state.IsExpired)
	assert.Equal(t, int64(45*60*1000), state.RemainingMs())
}

func TestCompute_PausedIsFrozen(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := base.Add(60 * time.Minute)
	pausedAt := base.Add(10 * time.Minute)

	state := Compute(expiresAt, &pausedAt, base.Add(50*time.Minute))
	assert.Equal(t, 50*time.Minute, state.Remaining)
	assert.True(t, state.IsPaused)
	assert.False(t, state.IsExpired)

	// даже далеко за дедлайном пауза держит остаток
	later := Compute(expiresAt, &pausedAt, base.Add(48*time.Hour))
	assert.Equal(t, 50*time.Minute, later.Remaining)
}

func TestCompute_Expired(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	state := Compute(base, nil, base.Add(time.Second))
	assert.Equal(t, time.Duration(0), state.Remaining)
	assert.True(t, state.IsExpired)

	exact := Compute(base, nil, base)
	assert.True(t, exact.IsExpired)
}

func TestCompute_PausedAfterDeadline(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pausedAt := base.Add(time.Minute)

	state := Compute(base, &pausedAt, base)
	assert.True(t, state.IsPaused)
	assert.True(t, state.IsExpired)
	assert.Equal(t, time.Duration(0), state.Remaining)
}
