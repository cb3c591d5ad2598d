package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultBaseDelay   = time.Second
	DefaultMaxAttempts = 3
)

// Delay returns base * 2^(attempt-1). Attempts below 1 are treated as 1.
func Delay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// Policy is a deterministic exponential backoff without jitter. It satisfies
// backoff.BackOff and stops after MaxAttempts calls to the operation.
type Policy struct {
	Base        time.Duration
	MaxAttempts int

	attempt int
}

func NewPolicy(base time.Duration, maxAttempts int) *Policy {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Policy{Base: base, MaxAttempts: maxAttempts}
}

// NextBackOff is called after a failed attempt.
func (p *Policy) NextBackOff() time.Duration {
	p.attempt++
	if p.attempt >= p.MaxAttempts {
		return backoff.Stop
	}
	return Delay(p.Base, p.attempt)
}

func (p *Policy) Reset() {
	p.attempt = 0
}

// RetryNotify is called between attempts with the failed attempt number, its
// error and the delay before the next one.
type RetryNotify func(attempt int, err error, verdict Verdict, next time.Duration)

// Retry runs op until it succeeds, returns a non retryable error, or the
// policy gives up. It returns the number of attempts made and the last error.
// A nil timer uses wall clock sleeps.
func Retry(ctx context.Context, policy *Policy, timer backoff.Timer, op func(ctx context.Context, attempt int) error, notify RetryNotify) (int, error) {
	attempts := 0
	var lastVerdict Verdict

	operation := func() error {
		attempts++
		err := op(ctx, attempts)
		if err == nil {
			return nil
		}
		lastVerdict = Classify(err)
		if !lastVerdict.Retryable {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, next time.Duration) {
			notify(attempts, err, lastVerdict, next)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(policy, ctx), onRetry, timer)
	return attempts, err
}
