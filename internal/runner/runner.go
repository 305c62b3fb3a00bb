package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumizone/internal/anim"
	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

// Config wires one runner to its zone.
type Config struct {
	Zone   zone.Zone
	Anim   anim.Animation
	Params anim.Params
	Box    *frame.Mailbox

	// FailureLimit is how many consecutive bad steps flip the zone back to
	// static. <=0 selects the default of 3.
	FailureLimit int

	// OnFallback fires once, from the runner goroutine, right before it
	// exits after exhausting FailureLimit.
	OnFallback func(zoneID string, reason error)

	Log zerolog.Logger
}

// Runner drives one animation at its own cadence and publishes each produced
// frame into the zone's mailbox. It never matches the render cadence; the
// mailbox decouples the two.
type Runner struct {
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the runner goroutine.
func Start(cfg Config) *Runner {
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 3
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{cfg: cfg, cancel: cancel, done: make(chan struct{})}
	go r.loop(ctx)
	return r
}

// Stop cancels the runner and waits for its goroutine to exit. Idempotent.
func (r *Runner) Stop() {
	r.cancel()
	<-r.done
}

// Done reports runner exit; closed on cancellation or fallback.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	start := time.Now()
	fails := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		px, err := r.step(time.Since(start))
		switch {
		case err != nil:
			fails++
			r.cfg.Log.Warn().Err(err).
				Str("zone", r.cfg.Zone.ID).
				Int("consecutive", fails).
				Msg("animation step failed")
		case px != nil:
			f := frame.New(r.cfg.Zone.ID, px, r.cfg.Zone.Priority, r.cfg.Box.NextSeq())
			perr := r.cfg.Box.Publish(f)
			switch {
			case perr == nil:
				fails = 0
			case errors.Is(perr, frame.ErrStaleFrame):
				// Reordered write; dropped and counted by the mailbox.
			default:
				// Malformed output is a producer fault. The last good frame
				// stays resident.
				fails++
				r.cfg.Log.Warn().Err(perr).
					Str("zone", r.cfg.Zone.ID).
					Int("consecutive", fails).
					Msg("frame rejected")
			}
		default:
			// Animation skipped this step.
			fails = 0
		}

		if fails >= r.cfg.FailureLimit {
			reason := fmt.Errorf("%d consecutive step failures", fails)
			r.cfg.Log.Error().
				Str("zone", r.cfg.Zone.ID).
				Str("animation", r.cfg.Anim.Name()).
				Msg("falling back to static")
			if r.cfg.OnFallback != nil {
				r.cfg.OnFallback(r.cfg.Zone.ID, reason)
			}
			return
		}

		if !sleep(ctx, r.cfg.Anim.Interval()) {
			return
		}
	}
}

// step calls the animation with a recovery boundary so a panicking animation
// cannot take down anything beyond its own zone.
func (r *Runner) step(elapsed time.Duration) (px []frame.Color, err error) {
	defer func() {
		if p := recover(); p != nil {
			px = nil
			err = fmt.Errorf("animation panic: %v", p)
		}
	}()
	return r.cfg.Anim.Step(elapsed, r.cfg.Params)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
