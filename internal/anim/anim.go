package anim

import (
	"fmt"
	"sort"
	"time"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
)

// Params are animation-specific numeric knobs.
type Params map[string]float64

// Get returns the named param or def when absent.
func (p Params) Get(name string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Animation computes one zone's pixels per step. Step may return nil pixels
// to skip an emission; an error counts as a producer fault. Implementations
// run on a single runner goroutine and need no internal locking.
type Animation interface {
	Name() string
	// Interval is the animation's natural inter-step delay, independent of
	// the render cadence.
	Interval() time.Duration
	Step(elapsed time.Duration, p Params) ([]frame.Color, error)
}

// Factory builds an animation for a zone of pixelCount pixels.
type Factory func(pixelCount int, p Params) (Animation, error)

// Registry is a closed table of animation kinds.
type Registry struct{ m map[string]Factory }

func NewRegistry() *Registry { return &Registry{m: map[string]Factory{}} }

func (r *Registry) Register(kind string, f Factory) {
	if f == nil {
		return
	}
	r.m[kind] = f
}

// New builds an animation of the given kind.
func (r *Registry) New(kind string, pixelCount int, p Params) (Animation, error) {
	f, ok := r.m[kind]
	if !ok {
		return nil, fmt.Errorf("unknown animation kind %q", kind)
	}
	return f(pixelCount, p)
}

func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults returns a registry with every built-in kind installed.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register("solid", NewSolid)
	r.Register("pulse", NewPulse)
	r.Register("rainbow", NewRainbow)
	r.Register("chase", NewChase)
	return r
}

// interval reads the shared "interval_ms" param, in milliseconds.
func interval(p Params, defMs float64) time.Duration {
	ms := p.Get("interval_ms", defMs)
	if ms <= 0 {
		ms = defMs
	}
	return time.Duration(ms * float64(time.Millisecond))
}
