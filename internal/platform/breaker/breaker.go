package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/solace-backend/internal/platform/logger"
)

// Guard bounds a flaky collaborator: each call gets its own deadline and
// consecutive failures open the circuit so later calls fail fast.
type Guard struct {
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

type Config struct {
	Name        string
	Timeout     time.Duration
	MaxRequests uint32
	Interval    time.Duration
	OpenFor     time.Duration
	MinRequests uint32
	// FailureRatio trips the breaker once MinRequests have been observed.
	FailureRatio float64
}

func DefaultConfig(name string, timeout time.Duration) Config {
	return Config{
		Name:         name,
		Timeout:      timeout,
		MaxRequests:  3,
		Interval:     30 * time.Second,
		OpenFor:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

func New(cfg Config, log *logger.Logger) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}
	if log != nil {
		breakerLog := log.With("breaker", cfg.Name)
		settings.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
			breakerLog.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		}
	}
	return &Guard{cb: gobreaker.NewCircuitBreaker(settings), timeout: cfg.Timeout}
}

func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn under g. A nil guard just runs fn.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	out, err := g.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(callCtx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func (g *Guard) State() string {
	if g == nil {
		return gobreaker.StateClosed.String()
	}
	return g.cb.State().String()
}
