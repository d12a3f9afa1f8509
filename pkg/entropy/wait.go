package entropy

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitPolicy controls how long a caller waits for a provider to become ready.
type WaitPolicy struct {
	// Interval between readiness probes.
	Interval time.Duration

	// MaxProbes bounds the number of probes after the first one.
	MaxProbes uint64
}

// DefaultWaitPolicy probes every 50ms for roughly one second.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Interval:  50 * time.Millisecond,
		MaxProbes: 20,
	}
}

// WaitReady blocks until p reports ready, the policy is exhausted or ctx is
// done. Retrying here is the caller's job; Fill itself never retries.
func WaitReady(ctx context.Context, p Provider, policy WaitPolicy) error {
	if p == nil {
		return ErrSourceNotReady
	}
	if policy.Interval <= 0 {
		policy = DefaultWaitPolicy()
	}

	probe := func() error {
		if p.Ready() {
			return nil
		}
		return ErrSourceNotReady
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), policy.MaxProbes),
		ctx,
	)
	if err := backoff.Retry(probe, b); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ErrSourceNotReady, ctxErr)
		}
		return err
	}
	return nil
}
