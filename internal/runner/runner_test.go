package runner

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumizone/internal/anim"
	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

// scripted is an animation whose step behavior is driven by a function.
type scripted struct {
	ivl  time.Duration
	step func(n int) ([]frame.Color, error)
	n    int
}

func (s *scripted) Name() string            { return "scripted" }
func (s *scripted) Interval() time.Duration { return s.ivl }
func (s *scripted) Step(time.Duration, anim.Params) ([]frame.Color, error) {
	s.n++
	return s.step(s.n)
}

func testZone() zone.Zone {
	return zone.Zone{ID: "z1", Pixels: 4, Offset: 0, Priority: 0, Mode: zone.Animation}
}

func goodPixels() []frame.Color { return make([]frame.Color, 4) }

func TestRunnerPublishesWithIncreasingSeq(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	r := Start(Config{
		Zone: testZone(),
		Anim: &scripted{ivl: time.Millisecond, step: func(int) ([]frame.Color, error) { return goodPixels(), nil }},
		Box:  box,
		Log:  zerolog.Nop(),
	})
	defer r.Stop()

	deadline := time.After(time.Second)
	for {
		if f := box.Snapshot(); f != nil && f.Seq >= 3 {
			if f.ZoneID != "z1" {
				t.Fatalf("wrong zone id %q", f.ZoneID)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("runner never published 3 frames")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRunnerFallbackFiresOnce(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	var calls atomic.Int32
	r := Start(Config{
		Zone:         testZone(),
		Anim:         &scripted{ivl: time.Millisecond, step: func(int) ([]frame.Color, error) { return nil, errors.New("boom") }},
		Box:          box,
		FailureLimit: 3,
		OnFallback:   func(string, error) { calls.Add(1) },
		Log:          zerolog.Nop(),
	})
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not exit after consecutive failures")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fallback fired %d times", got)
	}
}

func TestRunnerRecoverFromOccasionalFailure(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	// Fail twice, succeed, repeat: never reaches the limit of 3.
	r := Start(Config{
		Zone: testZone(),
		Anim: &scripted{ivl: time.Millisecond, step: func(n int) ([]frame.Color, error) {
			if n%3 != 0 {
				return nil, errors.New("flaky")
			}
			return goodPixels(), nil
		}},
		Box:          box,
		FailureLimit: 3,
		OnFallback:   func(string, error) { t.Error("fallback must not fire") },
		Log:          zerolog.Nop(),
	})
	defer r.Stop()

	deadline := time.After(time.Second)
	for box.Snapshot() == nil {
		select {
		case <-deadline:
			t.Fatal("no frame published")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRunnerPanicIsIsolated(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	var calls atomic.Int32
	r := Start(Config{
		Zone:         testZone(),
		Anim:         &scripted{ivl: time.Millisecond, step: func(int) ([]frame.Color, error) { panic("bad animation") }},
		Box:          box,
		FailureLimit: 2,
		OnFallback:   func(string, error) { calls.Add(1) },
		Log:          zerolog.Nop(),
	})
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("panicking runner did not fall back")
	}
	if calls.Load() != 1 {
		t.Fatalf("fallback fired %d times", calls.Load())
	}
}

func TestRunnerWrongPixelCountKeepsLastGood(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	r := Start(Config{
		Zone: testZone(),
		Anim: &scripted{ivl: time.Millisecond, step: func(n int) ([]frame.Color, error) {
			if n == 1 {
				return goodPixels(), nil
			}
			return make([]frame.Color, 9), nil // malformed from then on
		}},
		Box:          box,
		FailureLimit: 3,
		Log:          zerolog.Nop(),
	})
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not fall back on malformed frames")
	}
	f := box.Snapshot()
	if f == nil || f.Seq != 1 {
		t.Fatalf("expected first good frame resident, got %#v", f)
	}
}

func TestStopIsPrompt(t *testing.T) {
	box := frame.NewMailbox(4, 1)
	r := Start(Config{
		Zone: testZone(),
		// Long interval: Stop must interrupt the sleep.
		Anim: &scripted{ivl: time.Minute, step: func(int) ([]frame.Color, error) { return goodPixels(), nil }},
		Box:  box,
		Log:  zerolog.Nop(),
	})
	start := time.Now()
	r.Stop()
	if time.Since(start) > time.Second {
		t.Fatal("stop was not prompt")
	}
}
