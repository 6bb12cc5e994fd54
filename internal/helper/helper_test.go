package helper

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"dn_farming/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("")
	os.Exit(m.Run())
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, nil, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(err error) bool {
		return !errors.Is(err, fatal)
	}, func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, nil, func() error {
		calls++
		return errors.New("still broken")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExponentialDelay(t *testing.T) {
	// base 10ms, 3 провала -> паузы 10ms + 20ms
	start := time.Now()
	err := Retry(context.Background(), 3, 10*time.Millisecond, nil, func() error {
		return errors.New("still broken")
	})
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, nil, func() error {
		calls++
		return errors.New("x")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRoundDownToDecimals(t *testing.T) {
	assert.InDelta(t, 3.85, RoundDownToDecimals(3.857142, 2), 1e-9)
	assert.InDelta(t, 5.4, RoundDownToDecimals(5.4, 1), 1e-9)
	assert.InDelta(t, 5.0, RoundDownToDecimals(5.9999, 0), 1e-9)
}

func TestRoundToTick(t *testing.T) {
	assert.InDelta(t, 100.10, RoundDownToTick(100.14, 0.05), 1e-9)
	assert.InDelta(t, 100.15, RoundUpToTick(100.11, 0.05), 1e-9)
	// нулевой тик — без изменений
	assert.InDelta(t, 100.14, RoundDownToTick(100.14, 0), 1e-9)
}

func TestAbs(t *testing.T) {
	assert.Equal(t, 1.5, Abs(-1.5))
	assert.Equal(t, 1.5, Abs(1.5))
	assert.Equal(t, 0.0, Abs(0))
}
