package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc runs one polling iteration and returns a delay override for the
// sleep that follows; zero means the configured interval.
type TickFunc func(ctx context.Context) time.Duration

// Options tune poller behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Poller drives the serial fetch-decide-sleep loop. At most one tick runs at
// a time; there is no catch-up for missed intervals.
type Poller struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Poller instance.
func New(opts Options, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		panic("poller interval must be positive")
	}
	return &Poller{opts: opts, logger: logger.With().Str("component", "poller").Logger()}
}

// Run blocks, invoking tick then sleeping until ctx is cancelled. The first
// tick runs immediately after the optional startup delay.
func (p *Poller) Run(ctx context.Context, tick TickFunc) error {
	if p.opts.StartupDelay > 0 {
		if err := sleep(ctx, p.opts.StartupDelay); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := tick(ctx)
		if delay <= 0 {
			delay = p.opts.Interval
		} else {
			p.logger.Debug().Dur("delay", delay).Msg("tick requested custom delay")
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
