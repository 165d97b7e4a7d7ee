package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/resumesync/internal/credentials"
)

func newTestExecutor(creds []string, opts ...Option) *Executor {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return New(credentials.NewPool(creds), opts...)
}

// recorder is a fake operation that fails until call number succeedOn.
type recorder struct {
	mu        sync.Mutex
	seen      []string
	succeedOn int
	err       error
}

func (r *recorder) op(ctx context.Context, cred string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, cred)
	if r.succeedOn > 0 && len(r.seen) == r.succeedOn {
		return "ok:" + cred, nil
	}
	if r.err != nil {
		return "", r.err
	}
	return "", fmt.Errorf("failure %d", len(r.seen))
}

func TestDo_NoCredentials(t *testing.T) {
	e := newTestExecutor(nil)
	rec := &recorder{}

	_, err := Do(context.Background(), e, rec.op)
	require.ErrorIs(t, err, ErrNoCredentials)
	assert.Empty(t, rec.seen, "operation must not run without credentials")
	assert.False(t, e.Available())
}

func TestDo_AllFail_ReturnsLastError(t *testing.T) {
	e := newTestExecutor([]string{"key-a", "key-b", "key-c"})
	rec := &recorder{}

	_, err := Do(context.Background(), e, rec.op)
	require.Error(t, err)
	assert.Len(t, rec.seen, 3)
	assert.ElementsMatch(t, []string{"key-a", "key-b", "key-c"}, rec.seen)

	assert.ErrorIs(t, err, ErrAllCredentialsExhausted)
	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
	assert.EqualError(t, ex.Last, "failure 3")
}

func TestDo_KthSucceeds(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			e := newTestExecutor([]string{"k1", "k2", "k3", "k4"})
			rec := &recorder{succeedOn: k}

			got, err := Do(context.Background(), e, rec.op)
			require.NoError(t, err)
			assert.Len(t, rec.seen, k)
			assert.Equal(t, "ok:"+rec.seen[k-1], got)
		})
	}
}

func TestDo_DuplicateCredentialsUseSlots(t *testing.T) {
	e := newTestExecutor([]string{"same", "same"})
	rec := &recorder{}

	_, err := Do(context.Background(), e, rec.op)
	require.Error(t, err)
	assert.Equal(t, []string{"same", "same"}, rec.seen)
}

func TestDo_FirstCredentialRoughlyUniform(t *testing.T) {
	creds := []string{"a", "b", "c", "d"}
	e := newTestExecutor(creds)

	const runs = 4000
	firsts := make(map[string]int)
	for range runs {
		var first string
		_, _ = Do(context.Background(), e, func(ctx context.Context, cred string) (int, error) {
			first = cred
			return 1, nil
		})
		firsts[first]++
	}

	expected := runs / len(creds)
	for _, c := range creds {
		assert.InDelta(t, expected, firsts[c], float64(expected)*0.2, "credential %s first %d times", c, firsts[c])
	}
}

func TestDo_AttemptTimeoutRotates(t *testing.T) {
	e := newTestExecutor([]string{"slow", "fast"}, WithAttemptTimeout(20*time.Millisecond))

	var calls int
	got, err := Do(context.Background(), e, func(ctx context.Context, cred string) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 2, calls)
}

func TestDo_TimeoutCountsAsFailure(t *testing.T) {
	e := newTestExecutor([]string{"only"}, WithAttemptTimeout(10*time.Millisecond))

	_, err := Do(context.Background(), e, func(ctx context.Context, cred string) (string, error) {
		<-ctx.Done()
		return "", errors.New("transport gave up")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ClassTimeout, Classify(err))
}

func TestDo_DoesNotSleepBetweenCredentials(t *testing.T) {
	creds := make([]string, 50)
	for i := range creds {
		creds[i] = fmt.Sprintf("key-%02d", i)
	}
	e := newTestExecutor(creds)
	rec := &recorder{}

	start := time.Now()
	_, err := Do(context.Background(), e, rec.op)
	require.Error(t, err)
	assert.Len(t, rec.seen, 50)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_FastFailStopsOnTerminal(t *testing.T) {
	terminal := fmt.Errorf("bad request: %w", ErrTerminal)

	rec := &recorder{err: terminal}
	_, err := Do(context.Background(), newTestExecutor([]string{"a", "b", "c"}, WithFastFail()), rec.op)
	require.ErrorIs(t, err, ErrTerminal)
	assert.Len(t, rec.seen, 1)

	rec = &recorder{err: terminal}
	_, err = Do(context.Background(), newTestExecutor([]string{"a", "b", "c"}), rec.op)
	require.ErrorIs(t, err, ErrTerminal)
	assert.Len(t, rec.seen, 3, "without fast-fail every credential is attempted")
}

func TestDo_ParentCancelStopsRotation(t *testing.T) {
	e := newTestExecutor([]string{"a", "b", "c"})
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	_, err := Do(ctx, e, func(ctx context.Context, cred string) (string, error) {
		calls++
		cancel()
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrAllCredentialsExhausted)
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	e := newTestExecutor([]string{"a", "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := Do(ctx, e, rec.op)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAllCredentialsExhausted, "no credential was tried")
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Empty(t, rec.seen)
}

func TestDo_RateLimitedCredentialIsSkipped(t *testing.T) {
	e := newTestExecutor([]string{"only"}, WithRateLimit(0.001, 1))

	var calls int
	op := func(ctx context.Context, cred string) (string, error) {
		calls++
		return "ok", nil
	}

	_, err := Do(context.Background(), e, op)
	require.NoError(t, err)

	_, err = Do(context.Background(), e, op)
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestRun(t *testing.T) {
	e := newTestExecutor([]string{"a", "b"})
	var calls int
	err := Run(context.Background(), e, func(ctx context.Context, cred string) error {
		calls++
		if calls == 2 {
			return nil
		}
		return errors.New("nope")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ClassTimeout},
		{"local limiter", ErrRateLimited, ClassRateLimit},
		{"429", statusErr(429), ClassRateLimit},
		{"503", statusErr(503), ClassServer},
		{"400", statusErr(400), ClassTerminal},
		{"401", statusErr(401), ClassAuth},
		{"wrapped terminal", fmt.Errorf("x: %w", ErrTerminal), ClassTerminal},
		{"gemini quota", errors.New("Error 429, RESOURCE_EXHAUSTED"), ClassRateLimit},
		{"other", errors.New("connection reset"), ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
