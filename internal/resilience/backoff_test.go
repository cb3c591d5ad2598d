package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately and records requested delays.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func TestDelay(t *testing.T) {
	assert.Equal(t, time.Second, Delay(time.Second, 1))
	assert.Equal(t, 2*time.Second, Delay(time.Second, 2))
	assert.Equal(t, 4*time.Second, Delay(time.Second, 3))
	assert.Equal(t, time.Second, Delay(time.Second, 0))
}

func TestPolicy_StopsAfterMaxAttempts(t *testing.T) {
	p := NewPolicy(time.Second, 3)
	assert.Equal(t, time.Second, p.NextBackOff())
	assert.Equal(t, 2*time.Second, p.NextBackOff())
	assert.Equal(t, backoff.Stop, p.NextBackOff())

	p.Reset()
	assert.Equal(t, time.Second, p.NextBackOff())
}

func TestRetry_ExhaustsRetryableFailures(t *testing.T) {
	timer := newInstantTimer()
	var notified []int
	attempts, err := Retry(context.Background(), NewPolicy(time.Second, 3), timer,
		func(ctx context.Context, attempt int) error {
			return errors.New("service unavailable")
		},
		func(attempt int, err error, v Verdict, next time.Duration) {
			notified = append(notified, attempt)
			assert.True(t, v.Retryable)
		})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, notified)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.delays)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	timer := newInstantTimer()
	authErr := errors.New("invalid api key")
	attempts, err := Retry(context.Background(), NewPolicy(time.Second, 3), timer,
		func(ctx context.Context, attempt int) error { return authErr }, nil)

	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, timer.delays)
}

func TestRetry_SucceedsAfterFailure(t *testing.T) {
	timer := newInstantTimer()
	attempts, err := Retry(context.Background(), NewPolicy(time.Second, 3), timer,
		func(ctx context.Context, attempt int) error {
			if attempt == 1 {
				return context.DeadlineExceeded
			}
			return nil
		}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
