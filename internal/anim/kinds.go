package anim

import (
	"math"
	"time"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
)

// Solid fills the zone with a single color. Steps slowly; the mailbox keeps
// the last frame resident between emissions.
// Params: "r","g","b" (0..255).
type Solid struct {
	pixels []frame.Color
}

func NewSolid(pixelCount int, p Params) (Animation, error) {
	c := frame.Color{
		R: clamp8(p.Get("r", 255)),
		G: clamp8(p.Get("g", 255)),
		B: clamp8(p.Get("b", 255)),
	}
	px := make([]frame.Color, pixelCount)
	for i := range px {
		px[i] = c
	}
	return &Solid{pixels: px}, nil
}

func (s *Solid) Name() string            { return "solid" }
func (s *Solid) Interval() time.Duration { return time.Second }
func (s *Solid) Step(_ time.Duration, _ Params) ([]frame.Color, error) {
	out := make([]frame.Color, len(s.pixels))
	copy(out, s.pixels)
	return out, nil
}

// Pulse breathes a color with a sine envelope.
// Params: "r","g","b", "hz" (default 0.5), "interval_ms" (default 20).
type Pulse struct {
	n    int
	ivl  time.Duration
	base frame.Color
	hz   float64
}

func NewPulse(pixelCount int, p Params) (Animation, error) {
	return &Pulse{
		n:    pixelCount,
		ivl:  interval(p, 20),
		base: frame.Color{R: clamp8(p.Get("r", 255)), G: clamp8(p.Get("g", 0)), B: clamp8(p.Get("b", 0))},
		hz:   p.Get("hz", 0.5),
	}, nil
}

func (a *Pulse) Name() string            { return "pulse" }
func (a *Pulse) Interval() time.Duration { return a.ivl }
func (a *Pulse) Step(elapsed time.Duration, _ Params) ([]frame.Color, error) {
	level := 0.5 + 0.5*math.Sin(2*math.Pi*a.hz*elapsed.Seconds())
	c := frame.Color{
		R: uint8(float64(a.base.R) * level),
		G: uint8(float64(a.base.G) * level),
		B: uint8(float64(a.base.B) * level),
	}
	out := make([]frame.Color, a.n)
	for i := range out {
		out[i] = c
	}
	return out, nil
}

// Rainbow sweeps an HSV gradient along the zone.
// Params: "speed" (hue cycles/sec, default 0.1), "brightness" (0..1),
// "interval_ms" (default 16).
type Rainbow struct {
	n   int
	ivl time.Duration
}

func NewRainbow(pixelCount int, p Params) (Animation, error) {
	return &Rainbow{n: pixelCount, ivl: interval(p, 16)}, nil
}

func (a *Rainbow) Name() string            { return "rainbow" }
func (a *Rainbow) Interval() time.Duration { return a.ivl }
func (a *Rainbow) Step(elapsed time.Duration, p Params) ([]frame.Color, error) {
	speed := p.Get("speed", 0.1)
	bright := p.Get("brightness", 1.0)
	phase := elapsed.Seconds() * speed
	out := make([]frame.Color, a.n)
	for i := range out {
		u := float64(i) / float64(maxInt(1, a.n-1))
		h := math.Mod(u+phase, 1.0)
		r, g, b := hsvToRGB(h, 1.0, bright)
		out[i] = frame.Color{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255)}
	}
	return out, nil
}

// Chase runs a bright dot over a dim background.
// Params: "r","g","b" for the dot, "width" (default 3), "interval_ms"
// (default 40).
type Chase struct {
	n     int
	ivl   time.Duration
	dot   frame.Color
	width int
	pos   int
}

func NewChase(pixelCount int, p Params) (Animation, error) {
	w := int(p.Get("width", 3))
	if w < 1 {
		w = 1
	}
	return &Chase{
		n:     pixelCount,
		ivl:   interval(p, 40),
		dot:   frame.Color{R: clamp8(p.Get("r", 255)), G: clamp8(p.Get("g", 255)), B: clamp8(p.Get("b", 255))},
		width: w,
	}, nil
}

func (a *Chase) Name() string            { return "chase" }
func (a *Chase) Interval() time.Duration { return a.ivl }
func (a *Chase) Step(_ time.Duration, _ Params) ([]frame.Color, error) {
	out := make([]frame.Color, a.n)
	for i := 0; i < a.width; i++ {
		out[(a.pos+i)%a.n] = a.dot
	}
	a.pos = (a.pos + 1) % a.n
	return out, nil
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
