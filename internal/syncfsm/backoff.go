package syncfsm

import (
	"math/rand"
	"time"
)

// RetryPolicy configures the exponential backoff used to schedule a
// document's next attempt after a transient failure. The formula
// (delay = min(maxDelay, base*factor^retries) jittered by +/-jitter%)
// mirrors internal/retry.Retrier's calculateDelay/nextDelay, reimplemented
// here rather than reused directly because the Retrier blocks the calling
// goroutine for the whole backoff window — the state machine instead needs
// to persist RETRYING and return immediately, scheduling the next attempt
// for a later tick of the retry loop.
type RetryPolicy struct {
	Base       time.Duration
	Factor     float64
	MaxDelay   time.Duration
	MaxRetries int
	Jitter     float64
}

// DefaultRetryPolicy returns the policy named in §4.7: base=1s, factor=2,
// maxDelay=60s, maxRetries=5, +/-10% jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Base:       time.Second,
		Factor:     2.0,
		MaxDelay:   60 * time.Second,
		MaxRetries: 5,
		Jitter:     0.1,
	}
}

// delay returns the backoff duration before retry attempt number retries
// (1-indexed: the first retry after an initial failure passes retries=1).
func (p RetryPolicy) delay(retries int) time.Duration {
	d := float64(p.Base)
	for i := 1; i < retries; i++ {
		d *= p.Factor
		if d > float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}

	if p.Jitter <= 0 {
		return time.Duration(d)
	}
	delta := d * p.Jitter
	min := d - delta
	max := d + delta
	return time.Duration(min + rand.Float64()*(max-min))
}
