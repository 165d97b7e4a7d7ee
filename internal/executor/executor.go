package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kalambet/resumesync/internal/credentials"
)

const defaultAttemptTimeout = 60 * time.Second

var (
	// ErrNoCredentials is returned without any network activity when the
	// pool is empty.
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrAllCredentialsExhausted matches every *ExhaustedError.
	ErrAllCredentialsExhausted = errors.New("all credentials exhausted")

	// ErrTerminal marks provider errors that will fail the same way on every
	// credential (e.g. a malformed request). Only honoured with WithFastFail.
	ErrTerminal = errors.New("terminal provider error")

	// ErrRateLimited is recorded when a credential's local limiter has no
	// token available and the credential is skipped.
	ErrRateLimited = errors.New("credential locally rate limited")
)

// ExhaustedError reports that every credential was tried and failed. It
// unwraps to both ErrAllCredentialsExhausted and the last underlying error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all credentials exhausted after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrAllCredentialsExhausted, e.Last}
}

// Executor runs an operation against the credential pool, rotating through a
// shuffled order until one credential succeeds.
type Executor struct {
	pool     *credentials.Pool
	timeout  time.Duration
	fastFail bool
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	limiters map[string]*rate.Limiter
}

// Option configures an Executor.
type Option func(*Executor)

// WithAttemptTimeout bounds each individual credential attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRand injects the shuffle source (for deterministic tests).
func WithRand(r *rand.Rand) Option {
	return func(e *Executor) { e.rng = r }
}

// WithFastFail stops rotation on errors wrapping ErrTerminal.
func WithFastFail() Option {
	return func(e *Executor) { e.fastFail = true }
}

// WithRateLimit gives every distinct credential its own token bucket. A
// credential without a free token is skipped, never waited on.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(e *Executor) {
		e.limiters = make(map[string]*rate.Limiter)
		for _, c := range e.pool.All() {
			if _, ok := e.limiters[c]; !ok {
				e.limiters[c] = rate.NewLimiter(limit, burst)
			}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor over pool. The pool may be empty.
func New(pool *credentials.Pool, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		timeout: defaultAttemptTimeout,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Available reports whether any credential is configured.
func (e *Executor) Available() bool { return !e.pool.Empty() }

func (e *Executor) order() []string {
	creds := e.pool.All()
	e.mu.Lock()
	e.rng.Shuffle(len(creds), func(i, j int) { creds[i], creds[j] = creds[j], creds[i] })
	e.mu.Unlock()
	return creds
}

// Do calls op with credentials in random order, one at a time, and returns
// the first success. It never sleeps between attempts.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context, cred string) (T, error)) (T, error) {
	var zero T

	creds := e.order()
	if len(creds) == 0 {
		return zero, ErrNoCredentials
	}

	var last error
	attempts := 0
	for i, cred := range creds {
		if err := ctx.Err(); err != nil {
			if attempts == 0 {
				return zero, err
			}
			last = err
			break
		}
		attempts++

		if lim := e.limiters[cred]; lim != nil && !lim.Allow() {
			last = fmt.Errorf("credential %s: %w", credentials.Mask(cred), ErrRateLimited)
			e.logger.Warn("credential skipped", "credential", credentials.Mask(cred), "attempt", i+1, "of", len(creds), "reason", "rate_limit")
			continue
		}

		v, err := attempt(ctx, e.timeout, cred, op)
		if err == nil {
			if i > 0 {
				e.logger.Info("credential rotation recovered", "credential", credentials.Mask(cred), "attempt", i+1)
			}
			return v, nil
		}

		last = err
		e.logger.Warn("credential attempt failed",
			"credential", credentials.Mask(cred),
			"attempt", i+1,
			"of", len(creds),
			"class", Classify(err),
			"error", err,
		)

		if e.fastFail && errors.Is(err, ErrTerminal) {
			break
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Last: last}
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, e *Executor, op func(ctx context.Context, cred string) error) error {
	_, err := Do(ctx, e, func(ctx context.Context, cred string) (struct{}, error) {
		return struct{}{}, op(ctx, cred)
	})
	return err
}

func attempt[T any](ctx context.Context, timeout time.Duration, cred string, op func(ctx context.Context, cred string) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := op(actx, cred)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return v, err
}
