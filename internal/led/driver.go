package led

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Sim discards frames, keeping a counter and an occasional debug line. Used
// when no hardware is present and in headless simulation.
type Sim struct {
	count atomic.Uint64
	log   zerolog.Logger
	every uint64
}

// NewSim builds a simulator that logs one summary line per `every` frames
// (0 disables logging).
func NewSim(log zerolog.Logger, every uint64) *Sim {
	return &Sim{log: log, every: every}
}

func (s *Sim) Write(rgb []byte) error {
	n := s.count.Add(1)
	if s.every > 0 && n%s.every == 0 {
		var r, g, b uint64
		px := uint64(len(rgb) / 3)
		for i := 0; i+2 < len(rgb); i += 3 {
			r += uint64(rgb[i])
			g += uint64(rgb[i+1])
			b += uint64(rgb[i+2])
		}
		if px == 0 {
			px = 1
		}
		s.log.Debug().
			Uint64("frame", n).
			Uint64("avg_r", r/px).
			Uint64("avg_g", g/px).
			Uint64("avg_b", b/px).
			Msg("sim frame")
	}
	return nil
}

func (s *Sim) Close() error { return nil }

// Frames reports how many frames have been written.
func (s *Sim) Frames() uint64 { return s.count.Load() }

// reorder remaps RGB bytes into the strip's channel order, e.g. "GRB".
func reorder(dst, rgb []byte, order string) error {
	if len(order) != 3 {
		return fmt.Errorf("bad color order %q", order)
	}
	for i := 0; i+2 < len(rgb); i += 3 {
		for j := 0; j < 3; j++ {
			switch order[j] {
			case 'R':
				dst[i+j] = rgb[i]
			case 'G':
				dst[i+j] = rgb[i+1]
			case 'B':
				dst[i+j] = rgb[i+2]
			default:
				return fmt.Errorf("bad color order %q", order)
			}
		}
	}
	return nil
}
