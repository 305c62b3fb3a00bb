package supervisor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumizone/internal/anim"
	"github.com/coreman2200/funtimes-lumizone/internal/event"
	"github.com/coreman2200/funtimes-lumizone/internal/frame"
	"github.com/coreman2200/funtimes-lumizone/internal/runner"
	"github.com/coreman2200/funtimes-lumizone/internal/zone"
)

// Supervisor owns the per-zone mailboxes and animation runners. It is the
// administrative boundary: every start/stop/priority call lands here, is
// validated here, and never reaches the render path if invalid. It also
// implements compose.Source for the scheduler.
type Supervisor struct {
	reg   *zone.Registry
	anims *anim.Registry
	bus   event.Bus
	log   zerolog.Logger

	layers       int
	failureLimit int

	mu      sync.RWMutex
	boxes   map[string]*frame.Mailbox
	runners map[string]*runner.Runner
	specs   map[string]animSpec
}

// animSpec remembers how a runner was started so the supervisor can restart
// it with an updated zone entry.
type animSpec struct {
	kind   string
	params anim.Params
}

// Config wires a supervisor.
type Config struct {
	Registry   *zone.Registry
	Animations *anim.Registry
	Bus        event.Bus

	// PriorityLayers is how many overlay layers each mailbox carries.
	// <=0 selects 4.
	PriorityLayers int
	// FailureLimit is forwarded to every runner. <=0 selects 3.
	FailureLimit int

	Log zerolog.Logger
}

func New(cfg Config) *Supervisor {
	if cfg.PriorityLayers <= 0 {
		cfg.PriorityLayers = 4
	}
	if cfg.Bus == nil {
		cfg.Bus = event.Discard{}
	}
	return &Supervisor{
		reg:          cfg.Registry,
		anims:        cfg.Animations,
		bus:          cfg.Bus,
		log:          cfg.Log,
		layers:       cfg.PriorityLayers,
		failureLimit: cfg.FailureLimit,
		boxes:        map[string]*frame.Mailbox{},
		runners:      map[string]*runner.Runner{},
		specs:        map[string]animSpec{},
	}
}

// Zones implements compose.Source.
func (s *Supervisor) Zones() []zone.Zone { return s.reg.Snapshot() }

// Mailbox implements compose.Source.
func (s *Supervisor) Mailbox(zoneID string) (*frame.Mailbox, bool) {
	s.mu.RLock()
	b, ok := s.boxes[zoneID]
	s.mu.RUnlock()
	return b, ok
}

// AddZone registers a zone and activates its mailbox. STATIC zones get their
// base color published immediately so the first composition shows it.
func (s *Supervisor) AddZone(z zone.Zone) error {
	if z.Priority < 0 || z.Priority >= s.layers {
		return fmt.Errorf("zone %q: priority %d outside [0,%d)", z.ID, z.Priority, s.layers)
	}
	if err := s.reg.Add(z); err != nil {
		return err
	}
	box := frame.NewMailbox(z.Pixels, s.layers)
	s.mu.Lock()
	s.boxes[z.ID] = box
	s.mu.Unlock()
	if z.Mode == zone.Static {
		s.publishSolid(z, box, z.BaseColor)
	}
	return nil
}

// RemoveZone stops any runner and drops the zone. The strip pixels the zone
// occupied keep their last composed color; paint them via SetStatic first if
// they should go dark.
func (s *Supervisor) RemoveZone(zoneID string) {
	s.stopRunner(zoneID)
	s.mu.Lock()
	delete(s.boxes, zoneID)
	s.mu.Unlock()
	s.reg.Remove(zoneID)
}

// StartAnimation switches the zone to ANIMATION mode and starts a fresh
// runner for the given kind. Any existing runner is stopped first and the
// mailbox cleared, so under rapid repeated calls the last one wins.
func (s *Supervisor) StartAnimation(zoneID, kind string, params anim.Params) error {
	z, ok := s.reg.Get(zoneID)
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	a, err := s.anims.New(kind, z.Pixels, params)
	if err != nil {
		return err
	}

	// Stop the old runner before touching the registry: a fallback firing
	// from the dying runner flips the zone to static, and that write must
	// land before ours.
	s.stopRunner(zoneID)

	z.Mode = zone.Animation
	if err := s.reg.Replace(z); err != nil {
		return err
	}

	s.mu.Lock()
	box := s.boxes[zoneID]
	if box == nil {
		s.mu.Unlock()
		return fmt.Errorf("zone %q has no mailbox", zoneID)
	}
	box.Clear()
	r := runner.Start(runner.Config{
		Zone:         z,
		Anim:         a,
		Params:       params,
		Box:          box,
		FailureLimit: s.failureLimit,
		OnFallback:   s.fallback,
		Log:          s.log,
	})
	s.runners[zoneID] = r
	s.specs[zoneID] = animSpec{kind: kind, params: params}
	s.mu.Unlock()

	s.bus.Publish(event.New(zoneID, event.AnimationStarted, kind))
	return nil
}

// StopAnimation cancels the zone's runner, leaving the last composed pixels
// resident. Calling it on a zone with no runner is a safe no-op.
func (s *Supervisor) StopAnimation(zoneID string) {
	if s.stopRunner(zoneID) {
		if z, ok := s.reg.Get(zoneID); ok {
			z.Mode = zone.Static
			_ = s.reg.Replace(z)
		}
		s.bus.Publish(event.New(zoneID, event.AnimationStopped, ""))
	}
}

// SetStatic stops any animation and paints the zone a solid color.
func (s *Supervisor) SetStatic(zoneID string, col frame.Color) error {
	z, ok := s.reg.Get(zoneID)
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	s.stopRunner(zoneID)
	z.Mode = zone.Static
	z.BaseColor = col
	if err := s.reg.Replace(z); err != nil {
		return err
	}
	box, ok := s.Mailbox(zoneID)
	if !ok {
		return fmt.Errorf("zone %q has no mailbox", zoneID)
	}
	s.publishSolid(z, box, col)
	return nil
}

// SetZonePriority moves the zone to a new priority class. A running animation
// is restarted so its frames carry the new priority; a static zone gets its
// base color republished. Frames already in flight keep the priority they
// were emitted with.
func (s *Supervisor) SetZonePriority(zoneID string, priority int) error {
	z, ok := s.reg.Get(zoneID)
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	if priority < 0 || priority >= s.layers {
		return fmt.Errorf("priority %d outside [0,%d)", priority, s.layers)
	}
	z.Priority = priority
	if err := s.reg.Replace(z); err != nil {
		return err
	}

	s.mu.RLock()
	spec, running := s.specs[zoneID]
	s.mu.RUnlock()
	if running {
		return s.StartAnimation(zoneID, spec.kind, spec.params)
	}
	if box, ok := s.Mailbox(zoneID); ok && z.Mode == zone.Static {
		box.Clear()
		s.publishSolid(z, box, z.BaseColor)
	}
	return nil
}

// Flash publishes a transient overlay: a solid color at the given priority
// layer that expires after ttl and uncovers whatever runs beneath it.
func (s *Supervisor) Flash(zoneID string, col frame.Color, priority int, ttl time.Duration) error {
	z, ok := s.reg.Get(zoneID)
	if !ok {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	box, ok := s.Mailbox(zoneID)
	if !ok {
		return fmt.Errorf("zone %q has no mailbox", zoneID)
	}
	px := make([]frame.Color, z.Pixels)
	for i := range px {
		px[i] = col
	}
	f := frame.New(zoneID, px, priority, box.NextSeq())
	f.TTL = ttl
	return box.Publish(f)
}

// Shutdown stops every runner and waits for them.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	runners := s.runners
	s.runners = map[string]*runner.Runner{}
	s.specs = map[string]animSpec{}
	s.mu.Unlock()
	for _, r := range runners {
		r.Stop()
	}
}

// fallback runs on a runner goroutine after it exhausts its failure limit:
// flip the zone to STATIC with its configured base color, exactly once.
func (s *Supervisor) fallback(zoneID string, reason error) {
	s.mu.Lock()
	delete(s.runners, zoneID)
	delete(s.specs, zoneID)
	s.mu.Unlock()

	z, ok := s.reg.Get(zoneID)
	if !ok {
		return
	}
	z.Mode = zone.Static
	if err := s.reg.Replace(z); err != nil {
		s.log.Error().Err(err).Str("zone", zoneID).Msg("fallback replace failed")
		return
	}
	if box, ok := s.Mailbox(zoneID); ok {
		s.publishSolid(z, box, z.BaseColor)
	}
	s.bus.Publish(event.New(zoneID, event.AnimationFailed, reason.Error()))
	s.bus.Publish(event.New(zoneID, event.ZoneFellBack, "static base color"))
}

// stopRunner cancels and waits out the zone's runner, reporting whether one
// was running.
func (s *Supervisor) stopRunner(zoneID string) bool {
	s.mu.Lock()
	r := s.runners[zoneID]
	delete(s.runners, zoneID)
	delete(s.specs, zoneID)
	s.mu.Unlock()
	if r == nil {
		return false
	}
	r.Stop()
	return true
}

func (s *Supervisor) publishSolid(z zone.Zone, box *frame.Mailbox, col frame.Color) {
	px := make([]frame.Color, z.Pixels)
	for i := range px {
		px[i] = col
	}
	if err := box.Publish(frame.New(z.ID, px, z.Priority, box.NextSeq())); err != nil {
		s.log.Warn().Err(err).Str("zone", z.ID).Msg("static publish failed")
	}
}
