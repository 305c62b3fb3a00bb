package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lumizone/internal/anim"
	"github.com/coreman2200/funtimes-lumizone/internal/compose"
	"github.com/coreman2200/funtimes-lumizone/internal/event"
	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/led"
	"github.com/coreman2200/funtimes-lumizone/internal/sched"
	"github.com/coreman2200/funtimes-lumizone/internal/supervisor"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

// Headless pipeline exercise: three zones at mismatched cadences against the
// sim driver, then a stats dump.
func main() {
	var fps int
	var seconds int
	flag.IntVar(&fps, "fps", 60, "render frames per second")
	flag.IntVar(&seconds, "seconds", 5, "how long to run")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	reg := zone.NewRegistry(90)
	sup := supervisor.New(supervisor.Config{
		Registry:   reg,
		Animations: anim.Defaults(),
		Bus:        event.LogBus{L: log.Logger},
		Log:        log.Logger,
	})

	zones := []zone.Zone{
		{ID: "fast", Pixels: 30, Offset: 0, Priority: 1, Mode: zone.Animation, BaseColor: frame.Color{R: 32}},
		{ID: "slow", Pixels: 30, Offset: 30, Priority: 0, Mode: zone.Animation, BaseColor: frame.Color{G: 32}},
		{ID: "still", Pixels: 30, Offset: 60, Priority: 0, Mode: zone.Static, BaseColor: frame.Color{B: 64}},
	}
	for _, z := range zones {
		if err := sup.AddZone(z); err != nil {
			log.Fatal().Err(err).Str("zone", z.ID).Msg("add zone")
		}
	}
	// ~200 steps/sec vs 1 step/sec: the mailboxes absorb the mismatch.
	if err := sup.StartAnimation("fast", "rainbow", anim.Params{"interval_ms": 5}); err != nil {
		log.Fatal().Err(err).Msg("start fast")
	}
	if err := sup.StartAnimation("slow", "pulse", anim.Params{"interval_ms": 1000, "hz": 0.2}); err != nil {
		log.Fatal().Err(err).Msg("start slow")
	}

	drv := led.NewSim(log.Logger, 60)
	scheduler := sched.New(sched.Config{
		FPS:        fps,
		Compositor: compose.New(reg.StripPixels(), frame.Color{}),
		Source:     sup,
		Driver:     drv,
		Bus:        event.LogBus{L: log.Logger},
		Log:        log.Logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
	defer cancel()
	scheduler.Run(ctx)
	sup.Shutdown()

	st := scheduler.Stats()
	fmt.Printf("ticks=%d overruns=%d skipped=%d push_errors=%d frames=%d\n",
		st.Ticks, st.Overruns, st.SkippedPushes, st.PushErrors, drv.Frames())
}
