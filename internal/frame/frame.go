package frame

import "time"

// Color is one RGB pixel as sent to the strip.
type Color struct{ R, G, B uint8 }

// Frame is one complete pixel buffer for a single zone, produced by one
// animation step. Immutable after construction: the pixel slice must not be
// modified once the frame has been published.
type Frame struct {
	ZoneID   string
	Pixels   []Color
	Priority int           // defaults to the zone's priority class
	Seq      uint64        // monotonic per zone
	TTL      time.Duration // 0 = never expires; >0 marks a transient overlay

	producedAt time.Time
}

// New builds a frame stamped with the monotonic clock.
func New(zoneID string, pixels []Color, priority int, seq uint64) *Frame {
	return &Frame{
		ZoneID:     zoneID,
		Pixels:     pixels,
		Priority:   priority,
		Seq:        seq,
		producedAt: time.Now(),
	}
}

// ProducedAt reports when the frame was built.
func (f *Frame) ProducedAt() time.Time { return f.producedAt }

// Expired reports whether a transient frame's TTL has elapsed.
func (f *Frame) Expired(now time.Time) bool {
	return f.TTL > 0 && now.Sub(f.producedAt) > f.TTL
}
