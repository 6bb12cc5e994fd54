package closepolicy

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"dn_farming/internal/models"
	"dn_farming/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("")
	os.Exit(m.Run())
}

func TestAwait_PositiveImmediately(t *testing.T) {
	p := New(1.0, time.Minute)

	reason, err := p.Await(context.Background(), func() (float64, bool) {
		return 2.5, true
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClosePositivePnl, reason)
}

func TestAwait_StaleDataBlocksEarlyClose(t *testing.T) {
	p := Policy{MinimalPnl: 1.0, CheckDelay: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond}

	// PnL выше порога, но данные несвежие: ждём до таймаута
	reason, err := p.Await(context.Background(), func() (float64, bool) {
		return 5.0, false
	})
	require.NoError(t, err)
	assert.Equal(t, models.CloseTimeoutPnl, reason)
}

func TestAwait_RecoversWithinWindow(t *testing.T) {
	p := Policy{MinimalPnl: 0, CheckDelay: time.Second, PollInterval: 5 * time.Millisecond}

	var calls atomic.Int64
	start := time.Now()
	reason, err := p.Await(context.Background(), func() (float64, bool) {
		// первые ~30мс в минусе, потом восстановление
		if calls.Add(1); time.Since(start) < 30*time.Millisecond {
			return -1.5, true
		}
		return 0.5, true
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClosePnlRecovered, reason)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAwait_ForcedCloseAtDeadline(t *testing.T) {
	p := Policy{MinimalPnl: 0, CheckDelay: 40 * time.Millisecond, PollInterval: 5 * time.Millisecond}

	start := time.Now()
	reason, err := p.Await(context.Background(), func() (float64, bool) {
		return -3.0, true
	})
	require.NoError(t, err)
	assert.Equal(t, models.CloseTimeoutPnl, reason)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestAwait_Interrupted(t *testing.T) {
	p := Policy{MinimalPnl: 0, CheckDelay: time.Minute, PollInterval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	reason, err := p.Await(ctx, func() (float64, bool) {
		return -1.0, true
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.CloseInterrupted, reason)
}
