package compose

import (
	"sort"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

// Source is the compositor's view of the running system: the configured
// zones and each zone's mailbox. The supervisor implements it.
type Source interface {
	Zones() []zone.Zone
	Mailbox(zoneID string) (*frame.Mailbox, bool)
}

// Compositor merges per-zone frames into one full-strip buffer. The buffer
// persists across ticks: a zone with no mailbox content keeps whatever its
// range last showed (the configured default color before the first frame).
// Compose is a pure merge over the fixed-size buffer; it performs no I/O and
// its only allocation is the small per-tick merge order slice.
type Compositor struct {
	strip []frame.Color
	order []entry
}

type entry struct {
	z zone.Zone
	f *frame.Frame
}

// New allocates a compositor for stripPixels pixels, filled with def.
func New(stripPixels int, def frame.Color) *Compositor {
	strip := make([]frame.Color, stripPixels)
	for i := range strip {
		strip[i] = def
	}
	return &Compositor{strip: strip}
}

// Compose snapshots every zone's mailbox and merges the results into the
// strip in ascending (frame priority, zone id) order, so a higher-priority
// frame unconditionally overwrites any overlapping lower-priority range and
// equal priorities resolve deterministically by zone id. The returned slice
// is the compositor's own buffer: the caller owns it until the next Compose
// call and must not retain it past that.
func (c *Compositor) Compose(src Source) []frame.Color {
	c.order = c.order[:0]
	for _, z := range src.Zones() {
		box, ok := src.Mailbox(z.ID)
		if !ok {
			continue
		}
		f := box.Snapshot()
		if f == nil {
			continue
		}
		c.order = append(c.order, entry{z: z, f: f})
	}

	// Zones() is sorted by id, so a stable sort on priority alone keeps the
	// documented tie-break.
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.order[i].f.Priority < c.order[j].f.Priority
	})

	for _, e := range c.order {
		end := e.z.End()
		if end > len(c.strip) || len(e.f.Pixels) != e.z.Pixels {
			// Registry validation makes this unreachable; skip rather than
			// corrupt neighbouring zones.
			continue
		}
		copy(c.strip[e.z.Offset:end], e.f.Pixels)
	}
	return c.strip
}

// EncodeRGB packs pixels into dst as R,G,B bytes for the hardware driver.
// dst must be 3*len(pixels) long.
func EncodeRGB(dst []byte, pixels []frame.Color) {
	for i, p := range pixels {
		dst[i*3+0] = p.R
		dst[i*3+1] = p.G
		dst[i*3+2] = p.B
	}
}
