package membership

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errNotYetVisible = errors.New("change not visible yet")

// verifier polls for a submitted change to become visible with bounded
// exponential backoff.
type verifier struct {
	initial  time.Duration
	max      time.Duration
	attempts uint64
}

func newVerifier(cfg Config) verifier {
	return verifier{initial: cfg.VerifyInitialInterval, max: cfg.VerifyMaxInterval, attempts: cfg.VerifyAttempts}
}

// wait calls check until it reports true, the attempts run out or ctx is done.
// Check errors count as "not yet". It reports whether the change was seen;
// ctx cancellation only stops the waiting.
func (v verifier) wait(ctx context.Context, check func(context.Context) (bool, error), notify func(err error, next time.Duration)) bool {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(v.initial),
		backoff.WithMaxInterval(v.max),
		backoff.WithMaxElapsedTime(0),
		backoff.WithRandomizationFactor(0),
	)
	var policy backoff.BackOff = exp
	if v.attempts > 0 {
		policy = backoff.WithMaxRetries(exp, v.attempts-1)
	}

	err := backoff.RetryNotify(func() error {
		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotYetVisible
		}
		return nil
	}, backoff.WithContext(policy, ctx), notify)
	return err == nil
}
