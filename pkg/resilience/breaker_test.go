package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errRemote = errors.New("remote failure")

func newTestBreaker(t *testing.T, cooldown time.Duration, retries int) *Breaker {
	t.Helper()
	return NewBreaker(Settings{
		Name:             "test",
		FailureThreshold: 3,
		Cooldown:         cooldown,
		Retries:          retries,
		RetryDelay:       time.Millisecond,
	}, zap.NewNop())
}

func failingOp(calls *int32) Operation {
	return func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(calls, 1)
		return nil, errRemote
	}
}

func TestThreeConsecutiveFailuresOpenCircuit(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 0)
	var calls int32

	for i := 0; i < 3; i++ {
		_, err := b.Execute(context.Background(), failingOp(&calls))
		require.ErrorIs(t, err, errRemote)
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.EqualValues(t, 3, calls)
}

func TestOpenCircuitShortCircuitsWithoutRemoteCall(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 0)
	var calls int32

	for i := 0; i < 3; i++ {
		b.Execute(context.Background(), failingOp(&calls))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	before := atomic.LoadInt32(&calls)
	_, err := b.Execute(context.Background(), failingOp(&calls))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "no remote attempt while open")
}

func TestHalfOpenSuccessClosesAndResetsFailures(t *testing.T) {
	cooldown := 50 * time.Millisecond
	b := newTestBreaker(t, cooldown, 0)
	var calls int32

	for i := 0; i < 3; i++ {
		b.Execute(context.Background(), failingOp(&calls))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(cooldown + 20*time.Millisecond)

	// One trial call is let through; its success closes the circuit.
	result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Zero(t, b.Counts().ConsecutiveFailures)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cooldown := 50 * time.Millisecond
	b := newTestBreaker(t, cooldown, 0)
	var calls int32

	for i := 0; i < 3; i++ {
		b.Execute(context.Background(), failingOp(&calls))
	}
	time.Sleep(cooldown + 20*time.Millisecond)

	_, err := b.Execute(context.Background(), failingOp(&calls))
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, gobreaker.StateOpen, b.State())
}

func TestRetryBudgetCountsAsOneCircuitFailure(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 2)
	var calls int32

	_, err := b.Execute(context.Background(), failingOp(&calls))
	require.ErrorIs(t, err, errRemote)

	// Three attempts on the wire (1 + 2 retries), one failure on the circuit.
	assert.EqualValues(t, 3, calls)
	assert.EqualValues(t, 1, b.Counts().ConsecutiveFailures)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestRetrySucceedsMidBudget(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 2)
	var calls int32

	result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errRemote
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.EqualValues(t, 3, calls)
	assert.Zero(t, b.Counts().ConsecutiveFailures)
}

func TestSuccessfulNegativeResultKeepsCircuitHealthy(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 0)

	// A definitive "not found" is a successful call with a negative result.
	for i := 0; i < 5; i++ {
		result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, false, result)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Zero(t, b.Counts().ConsecutiveFailures)
}

func TestExecuteStopsRetryingOnContextCancel(t *testing.T) {
	b := newTestBreaker(t, time.Minute, 5)
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := b.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return nil, errRemote
	})
	require.Error(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}
