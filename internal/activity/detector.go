package activity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the detector's verdict on operator presence.
type Status string

const (
	StatusActive  Status = "active"
	StatusWarning Status = "warning"
	StatusPaused  Status = "paused"
	// StatusUnknown is reported when the cursor could not be sampled.
	// Treated as active for reward purposes (fail-open).
	StatusUnknown Status = "unknown"
)

// Default detection knobs.
const (
	DefaultCheckInterval   = 5 * time.Second
	DefaultIdleThreshold   = 60 * time.Second
	DefaultMaxIdleWarnings = 3
)

// Config holds the detection policy knobs.
type Config struct {
	CheckInterval   time.Duration
	IdleThreshold   time.Duration
	MaxIdleWarnings int
}

// DefaultConfig returns the production detection policy.
func DefaultConfig() Config {
	return Config{
		CheckInterval:   DefaultCheckInterval,
		IdleThreshold:   DefaultIdleThreshold,
		MaxIdleWarnings: DefaultMaxIdleWarnings,
	}
}

// State is a snapshot of the monitoring session.
type State struct {
	LastX            int       `json:"lastX"`
	LastY            int       `json:"lastY"`
	LastActivityTime time.Time `json:"lastActivityTime"`
	IsActive         bool      `json:"isActive"`
	IdleWarnings     int       `json:"idleWarnings"`
	Status           Status    `json:"status"`
}

// Update is delivered to the status callback on every tick.
type Update struct {
	Status       Status `json:"status"`
	IsActive     bool   `json:"isActive"`
	IdleTimeMs   int64  `json:"idleTimeMs"`
	IdleWarnings int    `json:"idleWarnings,omitempty"`
}

// advance applies one sample to the state. moved reports whether the cursor
// position differs from the previous sample. Pure; the invariant is that
// idleWarnings resets to zero exactly when movement is detected and grows
// only while the idle threshold keeps being exceeded.
func advance(s State, moved bool, now time.Time, cfg Config) State {
	if moved {
		s.LastActivityTime = now
		s.IdleWarnings = 0
		s.IsActive = true
		s.Status = StatusActive
		return s
	}

	if now.Sub(s.LastActivityTime) > cfg.IdleThreshold {
		s.IdleWarnings++
		s.IsActive = false
		if s.IdleWarnings >= cfg.MaxIdleWarnings {
			s.Status = StatusPaused
		} else {
			s.Status = StatusWarning
		}
		return s
	}

	// Unmoved but still inside the threshold: nothing changes.
	s.IsActive = true
	return s
}

// Multiplier maps a status to the point-accrual scaling factor.
func Multiplier(status Status) float64 {
	switch status {
	case StatusWarning:
		return 0.5
	case StatusPaused:
		return 0.0
	default:
		// Active, and unknown by the fail-open rule.
		return 1.0
	}
}

// Detector samples operator presence on a timer and runs the idle state
// machine. One monitoring session per Detector; state is discarded on Stop.
type Detector struct {
	cfg     Config
	sampler Sampler
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   State
	last    Point
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDetector creates a detector with the given policy and sampler.
func NewDetector(cfg Config, sampler Sampler, logger *zap.Logger) *Detector {
	return &Detector{
		cfg:     cfg,
		sampler: sampler,
		logger:  logger,
		now:     time.Now,
	}
}

// Start seeds the state with one immediate sample and begins the tick loop.
// onChange receives an Update on every tick. No-op when already running.
func (d *Detector) Start(onChange func(Update)) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})

	now := d.now()
	seed, err := d.sampler.Sample()
	if err != nil {
		d.logger.Warn("Initial cursor sample failed, assuming active", zap.Error(err))
	}
	d.last = seed
	d.state = State{
		LastX:            seed.X,
		LastY:            seed.Y,
		LastActivityTime: now,
		IsActive:         true,
		Status:           StatusActive,
	}
	d.mu.Unlock()

	d.logger.Info("Activity monitoring started",
		zap.Duration("interval", d.cfg.CheckInterval),
		zap.Duration("idleThreshold", d.cfg.IdleThreshold))

	d.wg.Add(1)
	go d.run(onChange)
}

// Stop cancels the tick loop. Idempotent.
func (d *Detector) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Activity monitoring stopped")
}

// ResetIdleWarnings forces the state back to active without waiting for a
// real movement sample. Manual override.
func (d *Detector) ResetIdleWarnings() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state.IdleWarnings = 0
	d.state.IsActive = true
	d.state.Status = StatusActive
	d.state.LastActivityTime = d.now()
}

// State returns a read-only snapshot for diagnostics.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) run(onChange func(Update)) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			onChange(d.check())
		}
	}
}

// check takes one sample and advances the state machine. Sampling failures
// are logged and papered over with a synthetic moved-by-one sample so the
// loop keeps running and reward accrual is not blocked on a platform error.
func (d *Detector) check() Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	degraded := false

	p, err := d.sampler.Sample()
	if err != nil {
		d.logger.Warn("Cursor sample failed, assuming movement", zap.Error(err))
		p = Point{X: d.last.X + 1, Y: d.last.Y}
		degraded = true
	}

	moved := p != d.last
	d.state = advance(d.state, moved, now, d.cfg)
	d.state.LastX = p.X
	d.state.LastY = p.Y
	d.last = p

	status := d.state.Status
	if degraded {
		status = StatusUnknown
	}

	update := Update{
		Status:     status,
		IsActive:   d.state.IsActive,
		IdleTimeMs: now.Sub(d.state.LastActivityTime).Milliseconds(),
	}
	if !d.state.IsActive {
		update.IdleWarnings = d.state.IdleWarnings
	}
	return update
}
