package event

import "testing"

type capture struct{ got []Event }

func (c *capture) Publish(e Event) { c.got = append(c.got, e) }

func TestNewStampsIDAndTime(t *testing.T) {
	e := New("z1", AnimationStarted, "rainbow")
	if e.ID == "" {
		t.Fatal("missing event id")
	}
	if e.At.IsZero() {
		t.Fatal("missing timestamp")
	}
	if e.Zone != "z1" || e.Condition != AnimationStarted {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestFanOutForwardsToAllSinks(t *testing.T) {
	a, b := &capture{}, &capture{}
	FanOut{a, nil, b}.Publish(New("", RenderDrift, ""))
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("fanout missed a sink: %d/%d", len(a.got), len(b.got))
	}
}

func TestRelayDeliversToLateSinks(t *testing.T) {
	r := &Relay{}
	r.Publish(New("", PushFailed, "before any sink")) // dropped, no sinks yet
	c := &capture{}
	r.Add(c)
	r.Publish(New("z", ZoneFellBack, ""))
	if len(c.got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(c.got))
	}
}
