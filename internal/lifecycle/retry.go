package lifecycle

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-retry"
)

// startupDriver bounds the number of full create/start/ready attempts. Each
// attempt starts over from the not-created state; a previous attempt's
// partially created container is never implicitly picked up (explicit reuse
// matching is the resolver's separate job).
type startupDriver struct {
	attempts int
	log      *log.Logger
}

// run executes work up to attempts times, stopping at the first success.
// Every failed attempt is logged with its 1-based index. The last failure is
// returned unwrapped; the caller wraps it into a LaunchError.
func (d *startupDriver) run(ctx context.Context, work func(context.Context) error) error {
	attempts := d.attempts
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		d.log.Debug("starting container", "attempt", attempt, "max_attempts", attempts)
		if err := work(ctx); err != nil {
			d.log.Warn("container start attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	return err
}
