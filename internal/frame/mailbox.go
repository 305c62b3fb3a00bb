package frame

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrStaleFrame means the published sequence number does not advance the
	// slot's current content. The write is a no-op.
	ErrStaleFrame = errors.New("stale frame sequence")
	// ErrPixelCount means the frame's pixel length does not match the zone.
	// The slot keeps its last good frame.
	ErrPixelCount = errors.New("pixel count mismatch")
	// ErrBadLayer means the frame's priority maps outside the mailbox layers.
	ErrBadLayer = errors.New("priority layer out of range")
)

// Mailbox is a per-zone, single-slot-per-layer holder of "the most recent
// frame". Writers overwrite, readers snapshot; neither blocks the other.
// Each priority layer is an independent atomic pointer, so a fast producer
// and the render tick touch disjoint memory once the swap completes.
type Mailbox struct {
	layers []atomic.Pointer[Frame]
	pixels int
	seq    atomic.Uint64

	staleDrops atomic.Uint64
	badFrames  atomic.Uint64
}

// NewMailbox creates a mailbox for a zone of pixelCount pixels with the given
// number of priority layers (at least 1).
func NewMailbox(pixelCount, priorityLayers int) *Mailbox {
	if priorityLayers < 1 {
		priorityLayers = 1
	}
	return &Mailbox{
		layers: make([]atomic.Pointer[Frame], priorityLayers),
		pixels: pixelCount,
	}
}

// NextSeq hands out the next per-zone sequence number. Owned by the mailbox
// rather than the runner so monotonicity survives runner restarts.
func (m *Mailbox) NextSeq() uint64 { return m.seq.Add(1) }

// Publish installs f as the latest frame for its priority layer. O(1), never
// blocks. A frame whose sequence number does not advance the layer's current
// content is dropped (ErrStaleFrame); a frame with the wrong pixel length is
// rejected and the last good frame stays resident (ErrPixelCount).
func (m *Mailbox) Publish(f *Frame) error {
	if len(f.Pixels) != m.pixels {
		m.badFrames.Add(1)
		return ErrPixelCount
	}
	layer := f.Priority
	if layer < 0 || layer >= len(m.layers) {
		m.badFrames.Add(1)
		return ErrBadLayer
	}
	slot := &m.layers[layer]
	for {
		cur := slot.Load()
		if cur != nil && f.Seq <= cur.Seq {
			m.staleDrops.Add(1)
			return ErrStaleFrame
		}
		if slot.CompareAndSwap(cur, f) {
			return nil
		}
	}
}

// Snapshot returns the highest-priority live frame, or nil if nothing has
// been published yet. O(layers), never blocks, never removes content.
// Expired transient frames are skipped and lazily cleared.
func (m *Mailbox) Snapshot() *Frame {
	now := time.Now()
	for layer := len(m.layers) - 1; layer >= 0; layer-- {
		f := m.layers[layer].Load()
		if f == nil {
			continue
		}
		if f.Expired(now) {
			m.layers[layer].CompareAndSwap(f, nil)
			continue
		}
		return f
	}
	return nil
}

// Clear empties every layer. The sequence counter is deliberately not reset
// so a later producer cannot publish behind an in-flight snapshot.
func (m *Mailbox) Clear() {
	for i := range m.layers {
		m.layers[i].Store(nil)
	}
}

// PixelCount reports the pixel length this mailbox accepts.
func (m *Mailbox) PixelCount() int { return m.pixels }

// StaleDrops reports how many publishes were dropped for stale sequence.
func (m *Mailbox) StaleDrops() uint64 { return m.staleDrops.Load() }

// BadFrames reports how many publishes were rejected as malformed.
func (m *Mailbox) BadFrames() uint64 { return m.badFrames.Load() }
