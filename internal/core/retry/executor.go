package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/vietddude/pointboard/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts   int           `yaml:"max_attempts"   toml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"  toml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"      toml:"max_delay"`
	JitterPercent uint64        `yaml:"jitter_percent" toml:"jitter_percent"` // 50 = 0.5x..1.5x
}

// DefaultConfig returns 3 attempts starting at 100ms, capped at 5s, ±50% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 50,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.JitterPercent > 100 {
		c.JitterPercent = 100
	}
	return c
}

// NewBackoff builds the delay sequence for one Run: InitialDelay * 2^attempt,
// capped at MaxDelay, then jittered, stopping after MaxAttempts-1 retries.
func NewBackoff(cfg Config) goretry.Backoff {
	b := goretry.NewExponential(cfg.InitialDelay)
	b = goretry.WithCappedDuration(cfg.MaxDelay, b)
	if cfg.JitterPercent > 0 {
		b = goretry.WithJitterPercent(cfg.JitterPercent, b)
	}
	return goretry.WithMaxRetries(uint64(cfg.MaxAttempts-1), b)
}

// Executor re-runs an operation while its failures classify as Retryable.
type Executor struct {
	cfg      Config
	classify Classifier
	log      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClassifier replaces the default Classify function.
func WithClassifier(c Classifier) Option {
	return func(e *Executor) {
		e.classify = c
	}
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(cfg Config, log *slog.Logger, opts ...Option) *Executor {
	if log == nil {
		log = slog.Default()
	}
	e := &Executor{
		cfg:      cfg.WithDefaults(),
		classify: Classify,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

// Run calls fn until it succeeds, fails with a NonRetryable error, or the
// attempt budget is spent. The last error is returned unchanged. If ctx ends
// while waiting between attempts, ctx.Err() is returned.
func (e *Executor) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	var lastErr error

	backoff := NewBackoff(e.cfg)
	logged := goretry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := backoff.Next()
		if !stop {
			e.log.Warn("Retrying operation",
				"op", op,
				"attempt", attempt,
				"max_attempts", e.cfg.MaxAttempts,
				"delay", delay,
				"error", lastErr,
			)
			metrics.RetryAttempts.WithLabelValues(op, "retried").Inc()
		}
		return delay, stop
	})

	err := goretry.Do(ctx, logged, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if e.classify(err) == NonRetryable {
			metrics.RetryAttempts.WithLabelValues(op, "non_retryable").Inc()
			return err
		}
		if attempt >= e.cfg.MaxAttempts {
			metrics.RetryAttempts.WithLabelValues(op, "exhausted").Inc()
		}
		return goretry.RetryableError(err)
	})
	return err
}

// Do is Run for operations that produce a value.
func Do[T any](
	ctx context.Context,
	e *Executor,
	op string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var out T
	err := e.Run(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
