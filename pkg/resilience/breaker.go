package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker short-circuits a call without
// attempting the remote operation. Callers use it to switch to their fallback.
var ErrCircuitOpen = errors.New("circuit open: remote call not attempted")

// Settings for one protected dependency. One Breaker per dependency, created
// at startup and passed by handle to callers; the state is local to the
// process, not shared across replicas.
type Settings struct {
	Name             string
	FailureThreshold uint32        // consecutive failures that open the circuit
	Cooldown         time.Duration // open duration before the half-open trial
	Retries          int           // extra attempts per call, 0 = single attempt
	RetryDelay       time.Duration
}

// Operation is a single remote call attempt. A nil error is a success even if
// the result is negative (e.g. a remote 404 mapped to a not-found result);
// only genuine failures (timeouts, 5xx, transport errors) should be returned
// as errors, because errors count against the circuit.
type Operation func(ctx context.Context) (interface{}, error)

type Breaker struct {
	cb         *gobreaker.CircuitBreaker
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewBreaker(s Settings, logger *zap.Logger) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 3
	}
	if s.Cooldown == 0 {
		s.Cooldown = 30 * time.Second
	}
	b := &Breaker{
		retries:    s.Retries,
		retryDelay: s.RetryDelay,
		logger:     logger,
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1, // exactly one trial call while half-open
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b
}

// Execute runs op under the circuit breaker. The retry loop runs inside a
// single breaker execution, so an exhausted retry budget counts as exactly one
// circuit failure, not one per attempt. When the circuit is open the call is
// not attempted and ErrCircuitOpen is returned immediately.
func (b *Breaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt <= b.retries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(b.retryDelay):
				}
				b.logger.Debug("retrying remote call",
					zap.String("breaker", b.cb.Name()),
					zap.Int("attempt", attempt+1),
				)
			}
			v, opErr := op(ctx)
			if opErr == nil {
				return v, nil
			}
			lastErr = opErr
		}
		return nil, lastErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State reports the current circuit state (closed, half-open, open).
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts exposes the breaker's rolling counters, mainly for tests and health
// reporting.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}
