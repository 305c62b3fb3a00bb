package led

import (
	"fmt"
	"image"
	"sync"

	screen "periph.io/x/devices/v3/screen1d"
)

// Screen renders the strip as a row of ANSI color blocks in the terminal.
// Useful for eyeballing zone layout without hardware.
type Screen struct {
	mu    sync.Mutex
	dev   *screen.Dev
	img   *image.NRGBA
	count int
}

// NewScreen prepares a terminal preview for count pixels.
func NewScreen(count int) *Screen {
	return &Screen{
		dev:   screen.New(&screen.Opts{X: count}),
		img:   image.NewNRGBA(image.Rect(0, 0, count, 1)),
		count: count,
	}
}

func (s *Screen) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rgb) != s.count*3 {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), s.count)
	}
	for i := 0; i < s.count; i++ {
		o := i * 4
		s.img.Pix[o+0] = rgb[i*3+0]
		s.img.Pix[o+1] = rgb[i*3+1]
		s.img.Pix[o+2] = rgb[i*3+2]
		s.img.Pix[o+3] = 0xFF
	}
	if err := s.dev.Draw(s.dev.Bounds(), s.img, image.Point{}); err != nil {
		return fmt.Errorf("screen draw: %w", err)
	}
	return nil
}

func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Halt()
}
