package sched

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumizone/internal/compose"
	"github.com/coreman2200/funtimes-lumizone/internal/event"
	"github.com/coreman2200/funtimes-lumizone/internal/led"
)

// Config tunes the render loop.
type Config struct {
	FPS            int           // target render rate; <=0 selects 60
	PushTimeout    time.Duration // slow-push warning threshold; <=0 selects one period
	DriftThreshold int           // consecutive overruns before a drift event; <=0 selects 30

	Compositor *compose.Compositor
	Source     compose.Source
	Driver     led.Driver
	Bus        event.Bus
	Log        zerolog.Logger
}

// Stats is a point-in-time view of the loop's health counters.
type Stats struct {
	Ticks         uint64 `json:"ticks"`
	Overruns      uint64 `json:"overruns"`
	SkippedPushes uint64 `json:"skipped_pushes"`
	PushErrors    uint64 `json:"push_errors"`
	Degraded      bool   `json:"degraded"`
}

// Scheduler owns the fixed-cadence tick loop: compose, hand off to the push
// worker, account timing. The composed buffer is the scheduler's alone for
// the duration of a tick; the push worker only ever sees the encoded byte
// copy, so a stalled hardware transport can never tear a frame or stretch
// the render period. Dropping a push is always preferred over blocking.
type Scheduler struct {
	cfg    Config
	period time.Duration

	free chan []byte // encoded buffers not currently held by the push worker
	push chan pushJob

	ticks    atomic.Uint64
	overruns atomic.Uint64
	skipped  atomic.Uint64
	pushErrs atomic.Uint64
	degraded atomic.Bool
}

// New builds a scheduler. It does not start ticking until Run.
func New(cfg Config) *Scheduler {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = 30
	}
	if cfg.Bus == nil {
		cfg.Bus = event.Discard{}
	}
	period := time.Second / time.Duration(cfg.FPS)
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = period
	}

	s := &Scheduler{
		cfg:    cfg,
		period: period,
		free:   make(chan []byte, 2),
		push:   make(chan pushJob, 2),
	}
	return s
}

type pushJob struct {
	buf  []byte
	done chan error
}

// Period reports the tick period.
func (s *Scheduler) Period() time.Duration { return s.period }

// Stats returns a snapshot of the health counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:         s.ticks.Load(),
		Overruns:      s.overruns.Load(),
		SkippedPushes: s.skipped.Load(),
		PushErrors:    s.pushErrs.Load(),
		Degraded:      s.degraded.Load(),
	}
}

// Run ticks until ctx is cancelled. A tick that has started always
// completes; cancellation is only observed between ticks.
func (s *Scheduler) Run(ctx context.Context) {
	// Strip size is fixed for the process lifetime; two encode buffers
	// rotate between the tick and the push worker.
	stripBytes := len(s.cfg.Compositor.Compose(s.cfg.Source)) * 3
	s.free <- make([]byte, stripBytes)
	s.free <- make([]byte, stripBytes)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pushWorker()
	}()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			close(s.push)
			wg.Wait()
			return
		case <-ticker.C:
			// A tick overrun leaves the next tick already pending on the
			// ticker, so it fires immediately; further missed ticks are
			// dropped by the ticker, never queued as catch-up work.
			elapsed, pushed := s.tick()
			s.ticks.Add(1)
			if elapsed > s.period {
				s.overruns.Add(1)
			}
			// A skipped push means the transport is still wedged; it keeps
			// the degraded episode alive even though the tick itself was
			// quick.
			if elapsed > s.period || !pushed {
				consecutive++
				if consecutive == s.cfg.DriftThreshold {
					s.degraded.Store(true)
					detail := fmt.Sprintf("%d consecutive overruns at %d fps", consecutive, s.cfg.FPS)
					s.cfg.Log.Warn().Str("detail", detail).Msg("sustained render drift")
					s.cfg.Bus.Publish(event.New("", event.RenderDrift, detail))
				}
			} else {
				consecutive = 0
				s.degraded.Store(false)
			}
		}
	}
}

func (s *Scheduler) tick() (time.Duration, bool) {
	start := time.Now()
	pixels := s.cfg.Compositor.Compose(s.cfg.Source)

	pushed := true
	select {
	case buf := <-s.free:
		compose.EncodeRGB(buf, pixels)
		job := pushJob{buf: buf, done: make(chan error, 1)}
		s.push <- job
		// Wait for the push, but only up to the budget: a wedged transport
		// costs this one tick, never the cadence. The worker keeps the
		// buffer until the late write returns.
		timeout := time.NewTimer(s.cfg.PushTimeout)
		select {
		case err := <-job.done:
			timeout.Stop()
			if err != nil {
				s.pushErrs.Add(1)
				s.cfg.Log.Warn().Err(err).Msg("hardware push failed")
				s.cfg.Bus.Publish(event.New("", event.PushFailed, err.Error()))
			}
		case <-timeout.C:
			s.pushErrs.Add(1)
			s.cfg.Log.Warn().Dur("budget", s.cfg.PushTimeout).Msg("hardware push timed out")
			s.cfg.Bus.Publish(event.New("", event.PushFailed, "push timeout"))
		}
	default:
		// Both buffers are still with the push worker: the transport is
		// stalled. Skip this push rather than wait it out.
		s.skipped.Add(1)
		pushed = false
	}
	return time.Since(start), pushed
}

// pushWorker owns all driver writes, so an overdue write from a stalled
// transport can never race the next tick's encode.
func (s *Scheduler) pushWorker() {
	for job := range s.push {
		err := s.cfg.Driver.Write(job.buf)
		job.done <- err
		s.free <- job.buf
	}
}
