package frame

import (
	"sync"
	"testing"
	"time"
)

func pix(n int, c Color) []Color {
	p := make([]Color, n)
	for i := range p {
		p[i] = c
	}
	return p
}

func TestPublishOverwrites(t *testing.T) {
	m := NewMailbox(4, 1)
	for i := 0; i < 100; i++ {
		f := New("a", pix(4, Color{R: uint8(i)}), 0, m.NextSeq())
		if err := m.Publish(f); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	got := m.Snapshot()
	if got == nil {
		t.Fatal("expected a frame")
	}
	if got.Seq != 100 || got.Pixels[0].R != 99 {
		t.Fatalf("expected latest frame visible, got seq=%d r=%d", got.Seq, got.Pixels[0].R)
	}
}

func TestStalePublishIsNoOp(t *testing.T) {
	m := NewMailbox(2, 1)
	cur := New("a", pix(2, Color{G: 200}), 0, 5)
	if err := m.Publish(cur); err != nil {
		t.Fatalf("publish: %v", err)
	}
	stale := New("a", pix(2, Color{G: 1}), 0, 4)
	if err := m.Publish(stale); err != ErrStaleFrame {
		t.Fatalf("expected ErrStaleFrame, got %v", err)
	}
	if got := m.Snapshot(); got != cur {
		t.Fatalf("snapshot changed by stale publish: %#v", got)
	}
	if m.StaleDrops() != 1 {
		t.Fatalf("expected 1 stale drop, got %d", m.StaleDrops())
	}
}

func TestBadPixelCountFailsClosed(t *testing.T) {
	m := NewMailbox(3, 1)
	good := New("a", pix(3, Color{B: 9}), 0, m.NextSeq())
	if err := m.Publish(good); err != nil {
		t.Fatalf("publish: %v", err)
	}
	bad := New("a", pix(7, Color{}), 0, m.NextSeq())
	if err := m.Publish(bad); err != ErrPixelCount {
		t.Fatalf("expected ErrPixelCount, got %v", err)
	}
	if got := m.Snapshot(); got != good {
		t.Fatal("last good frame should stay resident")
	}
	if m.BadFrames() != 1 {
		t.Fatalf("expected 1 bad frame, got %d", m.BadFrames())
	}
}

func TestHighestLayerWins(t *testing.T) {
	m := NewMailbox(2, 3)
	base := New("a", pix(2, Color{R: 10}), 0, m.NextSeq())
	overlay := New("a", pix(2, Color{R: 250}), 2, m.NextSeq())
	if err := m.Publish(base); err != nil {
		t.Fatalf("base: %v", err)
	}
	if err := m.Publish(overlay); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if got := m.Snapshot(); got != overlay {
		t.Fatalf("expected overlay visible, got %#v", got)
	}
	if err := m.Publish(New("a", pix(2, Color{}), 5, m.NextSeq())); err != ErrBadLayer {
		t.Fatalf("expected ErrBadLayer, got %v", err)
	}
}

func TestTransientOverlayExpires(t *testing.T) {
	m := NewMailbox(1, 2)
	base := New("a", pix(1, Color{G: 80}), 0, m.NextSeq())
	ov := New("a", pix(1, Color{R: 255}), 1, m.NextSeq())
	ov.TTL = 5 * time.Millisecond
	if err := m.Publish(base); err != nil {
		t.Fatalf("base: %v", err)
	}
	if err := m.Publish(ov); err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if got := m.Snapshot(); got != ov {
		t.Fatal("overlay should win while live")
	}
	time.Sleep(10 * time.Millisecond)
	if got := m.Snapshot(); got != base {
		t.Fatalf("expected base after overlay expiry, got %#v", got)
	}
}

func TestClearKeepsSeqMonotonic(t *testing.T) {
	m := NewMailbox(1, 1)
	_ = m.Publish(New("a", pix(1, Color{}), 0, m.NextSeq()))
	m.Clear()
	if m.Snapshot() != nil {
		t.Fatal("expected empty after clear")
	}
	if s := m.NextSeq(); s != 2 {
		t.Fatalf("sequence counter must survive clear, got %d", s)
	}
}

// One fast writer, one reader at a different cadence. The reader must always
// observe a complete frame with a non-decreasing sequence.
func TestConcurrentPublishSnapshot(t *testing.T) {
	m := NewMailbox(8, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			c := Color{R: uint8(i), G: uint8(i), B: uint8(i)}
			_ = m.Publish(New("a", pix(8, c), 0, m.NextSeq()))
		}
	}()

	var lastSeq uint64
	for i := 0; i < 2000; i++ {
		f := m.Snapshot()
		if f == nil {
			continue
		}
		if f.Seq < lastSeq {
			t.Fatalf("sequence went backwards: %d -> %d", lastSeq, f.Seq)
		}
		lastSeq = f.Seq
		for _, p := range f.Pixels {
			if p != f.Pixels[0] {
				t.Fatalf("torn frame at seq %d", f.Seq)
			}
		}
	}
	close(done)
	wg.Wait()
}
