package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-lumizone/internal/anim"
	"github.com/coreman2200/funtimes-lumizone/internal/compose"
	"github.com/coreman2200/funtimes-lumizone/internal/config"
	"github.com/coreman2200/funtimes-lumizone/internal/event"
	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/led"
	"github.com/coreman2200/funtimes-lumizone/internal/sched"
	"github.com/coreman2200/funtimes-lumizone/internal/supervisor"
	"github.com/coreman2200/funtimes-lumizone/internal/ws"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

func main() {
	// ---- Flags (config.yaml overrides most) ----
	var (
		pixels     = flag.Int("pixels", 150, "total LEDs on the strip")
		fps        = flag.Int("fps", 60, "target frames per second")
		driver     = flag.String("driver", "sim", "driver: nrz | screen | sim")
		colorOrder = flag.String("color", "GRB", "LED color order (e.g. GRB, RGB)")
		addr       = flag.String("addr", ":8080", "HTTP listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// ---- Load config.yaml (optional) ----
	var cfg *config.Config
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}

	// ---- Effective params ----
	ePixels, eFPS, eColor, eAddr := *pixels, *fps, *colorOrder, *addr
	pushTimeout := time.Duration(0)
	driftThreshold := 0
	failureLimit := 0
	priorityLayers := 0
	if cfg != nil {
		if cfg.StripPixels > 0 {
			ePixels = cfg.StripPixels
		}
		if cfg.Render.FPS > 0 {
			eFPS = cfg.Render.FPS
		}
		if cfg.ColorOrder != "" {
			eColor = cfg.ColorOrder
		}
		if cfg.Addr != "" {
			eAddr = cfg.Addr
		}
		pushTimeout = time.Duration(cfg.Render.PushTimeoutMs) * time.Millisecond
		driftThreshold = cfg.Render.DriftThreshold
		failureLimit = cfg.FailureLimit
		priorityLayers = cfg.PriorityLayers
	}

	// ---- Driver selection: -sim-only overrides; otherwise config then flag ----
	selected := *driver
	if cfg != nil && cfg.Driver != "" {
		selected = cfg.Driver
	}
	if *simOnly {
		selected = "sim"
	}

	var drv led.Driver
	switch selected {
	case "sim":
		drv = led.NewSim(log.Logger, 300)

	case "screen":
		drv = led.NewScreen(ePixels)

	case "nrz":
		port := ""
		speedHz := 2_400_000
		if cfg != nil {
			if cfg.SPI.Port != "" {
				port = cfg.SPI.Port
			}
			if cfg.SPI.SpeedHz != 0 {
				speedHz = cfg.SPI.SpeedHz
			}
		}
		d, err := led.NewNRZ(port, ePixels, speedHz, eColor)
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "nrz").
				Str("port", port).
				Int("speed_hz", speedHz).
				Msg("NRZ init failed; falling back to SIM")
			drv = led.NewSim(log.Logger, 300)
		} else {
			drv = d
		}

	default:
		log.Warn().Str("driver", selected).Msg("unknown driver; using SIM")
		drv = led.NewSim(log.Logger, 300)
	}

	// ---- Pipeline ----
	bus := &event.Relay{}
	bus.Add(event.LogBus{L: log.Logger})

	reg := zone.NewRegistry(ePixels)
	sup := supervisor.New(supervisor.Config{
		Registry:       reg,
		Animations:     anim.Defaults(),
		Bus:            bus,
		PriorityLayers: priorityLayers,
		FailureLimit:   failureLimit,
		Log:            log.Logger,
	})

	comp := compose.New(ePixels, frame.Color{})
	scheduler := sched.New(sched.Config{
		FPS:            eFPS,
		PushTimeout:    pushTimeout,
		DriftThreshold: driftThreshold,
		Compositor:     comp,
		Source:         sup,
		Driver:         drv,
		Bus:            bus,
		Log:            log.Logger,
	})

	hub := ws.NewHub(scheduler, sup)
	bus.Add(hub)

	// ---- Zones from config ----
	if cfg != nil {
		for _, zc := range cfg.Zones {
			base := frame.Color{}
			if zc.Color != "" {
				base, _ = config.ParseColor(zc.Color)
			}
			z := zone.Zone{
				ID:        zc.ID,
				Pixels:    zc.Pixels,
				Offset:    zc.Offset,
				Priority:  zc.Priority,
				Mode:      zone.Mode(zc.Mode),
				BaseColor: base,
			}
			if err := sup.AddZone(z); err != nil {
				log.Error().Err(err).Str("zone", zc.ID).Msg("zone rejected")
				continue
			}
			if z.Mode == zone.Animation && zc.Animation != nil {
				if err := sup.StartAnimation(zc.ID, zc.Animation.Kind, anim.Params(zc.Animation.Params)); err != nil {
					log.Error().Err(err).Str("zone", zc.ID).Msg("animation rejected")
				}
			}
		}
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/events", hub.HandleEventsWS)
	mux.HandleFunc("/health", hub.HandleHealth)

	srv := &http.Server{
		Addr:         eAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run render loop & server ----
	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Run(ctx)
	go func() {
		log.Info().Str("addr", eAddr).Str("driver", selected).Int("fps", eFPS).Msg("starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	cancel()
	sup.Shutdown()
	_ = srv.Close()
	_ = drv.Close()
}
