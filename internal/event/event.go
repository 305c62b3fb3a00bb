package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Condition names what happened.
type Condition string

const (
	AnimationStarted Condition = "animation.started"
	AnimationStopped Condition = "animation.stopped"
	AnimationFailed  Condition = "animation.failed"
	ZoneFellBack     Condition = "zone.fellback"
	RenderDrift      Condition = "render.drift"
	PushFailed       Condition = "push.failed"
)

// Event is one status notification from the supervisor or the scheduler.
type Event struct {
	ID        string    `json:"id"`
	Zone      string    `json:"zone,omitempty"`
	Condition Condition `json:"condition"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// New stamps an event with an id and the current time.
func New(zoneID string, c Condition, detail string) Event {
	return Event{
		ID:        uuid.NewString(),
		Zone:      zoneID,
		Condition: c,
		Detail:    detail,
		At:        time.Now(),
	}
}

// Bus receives status events. Publish must not block the caller for long;
// render and supervisor paths call it inline.
type Bus interface {
	Publish(Event)
}

// LogBus writes events to a zerolog logger.
type LogBus struct{ L zerolog.Logger }

func (b LogBus) Publish(e Event) {
	b.L.Info().
		Str("event_id", e.ID).
		Str("zone", e.Zone).
		Str("condition", string(e.Condition)).
		Str("detail", e.Detail).
		Msg("status event")
}

// FanOut forwards each event to every sink.
type FanOut []Bus

func (f FanOut) Publish(e Event) {
	for _, b := range f {
		if b != nil {
			b.Publish(e)
		}
	}
}

// Relay forwards to sinks that may be added after construction, which lets
// components built early publish to sinks built late.
type Relay struct {
	mu    sync.RWMutex
	sinks []Bus
}

func (r *Relay) Add(b Bus) {
	if b == nil {
		return
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, b)
	r.mu.Unlock()
}

func (r *Relay) Publish(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.sinks {
		b.Publish(e)
	}
}

// Discard drops everything; handy in tests.
type Discard struct{}

func (Discard) Publish(Event) {}
