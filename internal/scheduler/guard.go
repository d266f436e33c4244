package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rickgao/baserate-arb/internal/metrics"
	"github.com/rickgao/baserate-arb/internal/retry"
)

// ErrCollaboratorUnavailable is returned when a collaborator call fails after
// retries, times out, or is rejected by an open circuit breaker.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// GuardConfig bounds the calls made to one collaborator.
type GuardConfig struct {
	RPS   float64 // zero means unlimited
	Burst int
	// Timeout applies to each attempt. Zero disables it.
	Timeout time.Duration
	Retry   retry.Policy
	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold int
	OpenTimeout      time.Duration
}

// Guard wraps calls to one collaborator with a rate limiter, a circuit
// breaker, a retry policy and a per-attempt timeout.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	policy  retry.Policy
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewGuard creates a guard named after its collaborator.
func NewGuard(name string, cfg GuardConfig, m *metrics.Metrics, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	threshold := uint32(5)
	if cfg.FailureThreshold > 0 {
		threshold = uint32(cfg.FailureThreshold)
	}

	g := &Guard{
		name:    name,
		limiter: rate.NewLimiter(limit, max(1, cfg.Burst)),
		policy:  cfg.Retry,
		timeout: cfg.Timeout,
		metrics: m,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// Definitive answers (not found, invalid input) say nothing about
		// the collaborator's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !retry.Retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"collaborator", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.SetBreakerState(name, int(to))
		},
	})
	m.SetBreakerState(name, int(gobreaker.StateClosed))
	return g
}

// Name returns the collaborator name.
func (g *Guard) Name() string { return g.name }

// State returns the breaker state.
func (g *Guard) State() string { return g.breaker.State().String() }

// Do runs fn under the guard. Transient failures that outlive the retry
// policy, timeouts and breaker rejections are wrapped in
// ErrCollaboratorUnavailable. Errors fn marks as definitive (not retryable)
// are returned unchanged.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		_, err := g.breaker.Execute(func() (any, error) {
			callCtx, cancel := g.callContext(ctx)
			defer cancel()
			return nil, fn(callCtx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return retry.Permanent(err)
		}
		return err
	})

	switch {
	case err == nil:
		g.metrics.CollaboratorCall(g.name, "ok")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.CollaboratorCall(g.name, "rejected")
	case ctx.Err() != nil:
		g.metrics.CollaboratorCall(g.name, "cancelled")
		return err
	case !retry.Retryable(err) && !errors.Is(err, context.DeadlineExceeded):
		g.metrics.CollaboratorCall(g.name, "error")
		return err
	default:
		g.metrics.CollaboratorCall(g.name, "unavailable")
	}
	return fmt.Errorf("%w: %s: %w", ErrCollaboratorUnavailable, g.name, err)
}

func (g *Guard) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
