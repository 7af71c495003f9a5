package migrate

import (
	"context"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	gometrics "github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"
	"time"
)

// RunOptions control how Run drives a migrator
type RunOptions struct {
	// BytesPerSecond paces the migration; 0 means unlimited
	BytesPerSecond float64
	// MaxRetries is the number of consecutive failed steps tolerated before Run gives up
	MaxRetries int
	// InitialBackoff and MaxBackoff bound the jittered exponential wait between retries
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// ReportInterval is the interval of the progress log line; 0 disables it
	ReportInterval time.Duration
	// OnStep is called after every successful MoveSome with the bytes moved
	OnStep func(n int64)
}

// DefaultRunOptions returns the options used by the CLI
func DefaultRunOptions() RunOptions {
	return RunOptions{
		MaxRetries:     10,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		ReportInterval: 10 * time.Second,
	}
}

// throughput is registered with the go-metrics default registry so it shows
// up under /debug/metrics of the serving process
var throughput = gometrics.GetOrRegisterMeter("rkv.migrate.bytes", gometrics.DefaultRegistry)

// Run calls m.MoveSome until no key is left, then m.Finish. A Finish that
// still finds keys on the source sends the run back to moving. Failed steps are
// retried with backoff; the checkpoint makes stopping at any point safe, so
// a cancelled ctx simply ends the run with ctx.Err().
func Run(ctx context.Context, m *Migrator, opts RunOptions) error {
	var limiter *rate.Limiter
	if opts.BytesPerSecond > 0 {
		burst := int(opts.BytesPerSecond)
		if burst < int(m.cfg.BatchBytes) {
			burst = int(m.cfg.BatchBytes)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.BytesPerSecond), burst)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialBackoff
	bo.MaxInterval = opts.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	start := time.Now()
	lastReport := start
	failures, lateWrites := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := m.MoveSome(ctx)
		if err != nil {
			failures++
			if failures > opts.MaxRetries {
				return errors.Wrapf(err, "giving up after %d attempts", failures)
			}
			wait := bo.NextBackOff()
			Logger.Warningf("step failed (attempt %d/%d), retrying in %s", failures, opts.MaxRetries, wait)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		failures = 0
		bo.Reset()

		if n == 0 {
			err := m.Finish(ctx)
			if err == nil {
				break
			}
			// keys written after the last step send the run back to moving
			if !errors.Is(err, ErrNotDrained) || lateWrites >= opts.MaxRetries {
				return err
			}
			lateWrites++
			Logger.Infof("source changed before finishing (%d/%d): %v", lateWrites, opts.MaxRetries, err)
			continue
		}
		throughput.Mark(n)
		if opts.OnStep != nil {
			opts.OnStep(n)
		}

		if limiter != nil {
			tokens := int(n)
			if tokens > limiter.Burst() {
				tokens = limiter.Burst()
			}
			if err := limiter.WaitN(ctx, tokens); err != nil {
				return err
			}
		}

		if opts.ReportInterval > 0 && time.Since(lastReport) >= opts.ReportInterval {
			st := m.Status()
			Logger.Infof("moved %d keys (%d bytes), at %q, %.0f B/s",
				st.KeysMoved, st.BytesMoved, st.Checkpoint, throughput.Rate1())
			lastReport = time.Now()
		}
	}

	Logger.Infof("migration of %s finished in %s", m.cfg.Move, time.Since(start).Round(time.Millisecond))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
