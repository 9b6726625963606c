package activity

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// scriptedSampler replays a fixed sequence of samples. The last entry
// repeats once the script runs out.
type scriptedSampler struct {
	i       int
	samples []scriptedSample
}

type scriptedSample struct {
	p   Point
	err error
}

func (s *scriptedSampler) Sample() (Point, error) {
	if s.i >= len(s.samples) {
		last := s.samples[len(s.samples)-1]
		return last.p, last.err
	}
	cur := s.samples[s.i]
	s.i++
	return cur.p, cur.err
}

func newTestDetector(sampler Sampler) (*Detector, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDetector(DefaultConfig(), sampler, zap.NewNop())
	d.now = clock.Now
	return d, clock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// seed initializes the session the way Start does, without the tick loop.
func seed(d *Detector, p Point) {
	d.last = p
	d.state = State{
		LastX:            p.X,
		LastY:            p.Y,
		LastActivityTime: d.now(),
		IsActive:         true,
		Status:           StatusActive,
	}
}

func TestDetector_IdleTransitions(t *testing.T) {
	sampler := &scriptedSampler{samples: []scriptedSample{
		{p: Point{100, 100}}, // unchanged ticks
	}}
	d, clock := newTestDetector(sampler)
	seed(d, Point{100, 100})

	// Inside the threshold the detector stays active.
	clock.Advance(30 * time.Second)
	update := d.check()
	if update.Status != StatusActive || !update.IsActive {
		t.Fatalf("expected active inside threshold, got %+v", update)
	}

	// First qualifying tick past the threshold: warning 1.
	clock.Advance(35 * time.Second)
	update = d.check()
	if update.Status != StatusWarning || update.IdleWarnings != 1 {
		t.Fatalf("expected first warning, got %+v", update)
	}
	if update.IdleTimeMs != 65_000 {
		t.Errorf("IdleTimeMs = %d, want 65000", update.IdleTimeMs)
	}

	// Second: warning 2.
	clock.Advance(5 * time.Second)
	update = d.check()
	if update.Status != StatusWarning || update.IdleWarnings != 2 {
		t.Fatalf("expected second warning, got %+v", update)
	}

	// Third: paused, and it stays paused.
	clock.Advance(5 * time.Second)
	update = d.check()
	if update.Status != StatusPaused || update.IdleWarnings != 3 {
		t.Fatalf("expected paused, got %+v", update)
	}
	clock.Advance(5 * time.Second)
	if update = d.check(); update.Status != StatusPaused {
		t.Fatalf("expected paused to persist, got %+v", update)
	}

	// One movement fully clears the idle state, no hysteresis.
	sampler.samples = []scriptedSample{{p: Point{250, 180}}}
	sampler.i = 0
	clock.Advance(5 * time.Second)
	update = d.check()
	if update.Status != StatusActive || update.IdleWarnings != 0 || update.IdleTimeMs != 0 {
		t.Fatalf("expected movement to reset to active, got %+v", update)
	}

	state := d.State()
	if state.LastX != 250 || state.LastY != 180 {
		t.Errorf("state position = (%d,%d), want (250,180)", state.LastX, state.LastY)
	}
}

func TestDetector_SamplerFailureFailsOpen(t *testing.T) {
	sampler := &scriptedSampler{samples: []scriptedSample{
		{err: errors.New("no display")},
	}}
	d, clock := newTestDetector(sampler)
	seed(d, Point{100, 100})

	// Long idle, then a failed sample: reported unknown, treated as moved.
	clock.Advance(90 * time.Second)
	update := d.check()
	if update.Status != StatusUnknown {
		t.Fatalf("expected unknown on sampler failure, got %+v", update)
	}
	if !update.IsActive || update.IdleTimeMs != 0 {
		t.Errorf("failure should count as movement, got %+v", update)
	}

	// The fabricated sample offsets the last position by one unit.
	state := d.State()
	if state.LastX != 101 || state.LastY != 100 {
		t.Errorf("state position = (%d,%d), want (101,100)", state.LastX, state.LastY)
	}
}

func TestDetector_ResetIdleWarnings(t *testing.T) {
	sampler := &scriptedSampler{samples: []scriptedSample{{p: Point{100, 100}}}}
	d, clock := newTestDetector(sampler)
	seed(d, Point{100, 100})

	clock.Advance(2 * time.Minute)
	for i := 0; i < 3; i++ {
		d.check()
		clock.Advance(5 * time.Second)
	}
	if d.State().Status != StatusPaused {
		t.Fatal("setup: expected paused state")
	}

	d.ResetIdleWarnings()

	state := d.State()
	if state.Status != StatusActive || state.IdleWarnings != 0 || !state.IsActive {
		t.Errorf("expected manual reset to active, got %+v", state)
	}
}

func TestDetector_StartStop(t *testing.T) {
	sampler := &scriptedSampler{samples: []scriptedSample{{p: Point{10, 20}}}}
	d, _ := newTestDetector(sampler)

	d.Start(func(Update) {})

	state := d.State()
	if state.Status != StatusActive || state.LastX != 10 || state.LastY != 20 {
		t.Errorf("start should seed an active state, got %+v", state)
	}

	// Stop is idempotent.
	d.Stop()
	d.Stop()
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		status Status
		want   float64
	}{
		{StatusActive, 1.0},
		{StatusWarning, 0.5},
		{StatusPaused, 0.0},
		{StatusUnknown, 1.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := Multiplier(tt.status); got != tt.want {
				t.Errorf("Multiplier(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Point
		wantErr bool
	}{
		{"xdotool", "x:662 y:377 screen:0 window:702546", Point{662, 377}, false},
		{"cliclick", "662,377", Point{662, 377}, false},
		{"cliclick padded", " 662, 377\n", Point{662, 377}, false},
		{"garbage", "no cursor here", Point{}, true},
		{"partial xdotool", "x:662 screen:0", Point{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePoint(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePoint(%q) error = %v, wantErr %v", tt.out, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parsePoint(%q) = %+v, want %+v", tt.out, got, tt.want)
			}
		})
	}
}
