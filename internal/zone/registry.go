package zone

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
)

// Mode is a zone's render mode.
type Mode string

const (
	Static    Mode = "static"
	Animation Mode = "animation"
)

// Zone describes one independently addressable region of the strip.
// A Zone value is immutable in the registry: runtime changes (mode,
// priority) go through Replace with a fresh value, never in-place mutation,
// so a compositor pass mid-read always sees a consistent entry.
type Zone struct {
	ID        string
	Pixels    int
	Offset    int // start index into the physical strip
	Priority  int
	Mode      Mode
	BaseColor frame.Color
}

// End returns the exclusive end of the zone's output range.
func (z Zone) End() int { return z.Offset + z.Pixels }

// Registry holds the configured zones. Read-mostly; admin updates replace
// whole entries under the write lock while render ticks take sorted
// snapshots under the read lock.
type Registry struct {
	mu    sync.RWMutex
	zones map[string]Zone
	strip int // total pixels on the physical strip
}

// NewRegistry creates a registry for a strip of stripPixels pixels.
func NewRegistry(stripPixels int) *Registry {
	return &Registry{zones: map[string]Zone{}, strip: stripPixels}
}

// StripPixels reports the physical strip length.
func (r *Registry) StripPixels() int { return r.strip }

// Add validates and inserts a new zone.
func (r *Registry) Add(z Zone) error {
	if err := r.validate(z); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.zones[z.ID]; ok {
		return fmt.Errorf("zone %q already exists", z.ID)
	}
	for _, other := range r.zones {
		if z.Offset < other.End() && other.Offset < z.End() {
			return fmt.Errorf("zone %q overlaps zone %q", z.ID, other.ID)
		}
	}
	r.zones[z.ID] = z
	return nil
}

// Replace swaps the stored entry for z.ID in one step. The id must exist and
// the output range must not change (range edits go through Remove+Add).
func (r *Registry) Replace(z Zone) error {
	if err := r.validate(z); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.zones[z.ID]
	if !ok {
		return fmt.Errorf("unknown zone %q", z.ID)
	}
	if old.Offset != z.Offset || old.Pixels != z.Pixels {
		return fmt.Errorf("zone %q: output range is immutable", z.ID)
	}
	r.zones[z.ID] = z
	return nil
}

// Remove deletes a zone. Unknown ids are a safe no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.zones, id)
	r.mu.Unlock()
}

// Get returns the zone by id.
func (r *Registry) Get(id string) (Zone, bool) {
	r.mu.RLock()
	z, ok := r.zones[id]
	r.mu.RUnlock()
	return z, ok
}

// Snapshot returns all zones sorted by id. The slice is the caller's.
func (r *Registry) Snapshot() []Zone {
	r.mu.RLock()
	out := make([]Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) validate(z Zone) error {
	if z.ID == "" {
		return fmt.Errorf("zone id is empty")
	}
	if z.Pixels <= 0 {
		return fmt.Errorf("zone %q: pixel count %d", z.ID, z.Pixels)
	}
	if z.Offset < 0 || z.End() > r.strip {
		return fmt.Errorf("zone %q: range [%d,%d) outside strip of %d", z.ID, z.Offset, z.End(), r.strip)
	}
	if z.Priority < 0 {
		return fmt.Errorf("zone %q: negative priority", z.ID)
	}
	switch z.Mode {
	case Static, Animation:
	default:
		return fmt.Errorf("zone %q: unknown mode %q", z.ID, z.Mode)
	}
	return nil
}
