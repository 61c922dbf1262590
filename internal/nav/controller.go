package nav

import (
	"log"
	"math"
	"time"

	"github.com/tidewater-labs/helmsman/internal/gps"
	"github.com/tidewater-labs/helmsman/internal/rf"
)

// Steering thresholds. A correction only fires when the boat is more than
// HeadingTolerance degrees off the target bearing, and never more often
// than once per MinCorrectionInterval: each correction has an unmeasured
// effect on heading, so the controller waits for fresh fix/heading samples
// before judging whether another one is needed.
const (
	HeadingTolerance      = 15.0 // degrees
	MinDistanceMeters     = 5.0  // arrival threshold
	MinCorrectionInterval = 2000 * time.Millisecond
)

// Mode is the navigation state machine mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeNavigating
	ModeArrived
)

// String returns the mode name for logs and status payloads.
func (m Mode) String() string {
	switch m {
	case ModeNavigating:
		return "NAVIGATING"
	case ModeArrived:
		return "ARRIVED"
	default:
		return "IDLE"
	}
}

// Waypoint is a navigation target.
type Waypoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// State is the controller's externally visible navigation state.
type State struct {
	Mode             Mode
	Target           Waypoint
	TargetSet        bool
	DistanceToTarget float64 // meters
	BearingToTarget  float64 // degrees [0,360)
	RelativeAngle    float64 // degrees (-180,180], positive = target to the right
	LastCorrection   time.Time
}

// Steerer transmits one steering command. Satisfied by *rf.Transmitter.
type Steerer interface {
	Transmit(cmd rf.Command, repeatCount int)
}

// Controller turns GPS fixes and compass headings into steering commands.
// All methods must be called from the single control-loop goroutine.
type Controller struct {
	state       State
	enabled     bool
	hadGoodFix  bool // a usable fix has been seen while enabled
	steerer     Steerer
	repeatCount int

	now func() time.Time
}

// NewController creates a controller that steers through s, transmitting
// each correction repeatCount times.
func NewController(s Steerer, repeatCount int) *Controller {
	if repeatCount < 1 {
		repeatCount = 1
	}
	return &Controller{
		steerer:     s,
		repeatCount: repeatCount,
		now:         time.Now,
	}
}

// SetTarget sets the navigation target for this episode. A previously
// reached destination is forgotten so the state machine can re-enter
// NAVIGATING on the next update.
func (c *Controller) SetTarget(latitude, longitude float64) {
	c.state.Target = Waypoint{Latitude: latitude, Longitude: longitude}
	c.state.TargetSet = true
	if c.state.Mode == ModeArrived {
		c.state.Mode = ModeIdle
	}
	log.Printf("nav: new target set: %.6f, %.6f", latitude, longitude)
}

// ClearTarget drops the target and returns the controller to IDLE.
func (c *Controller) ClearTarget() {
	c.state.Target = Waypoint{}
	c.state.TargetSet = false
	c.state.Mode = ModeIdle
	c.state.DistanceToTarget = 0
	c.state.BearingToTarget = 0
	c.state.RelativeAngle = 0
	log.Printf("nav: target cleared")
}

// SetNavigationEnabled turns steering on or off. Disabling drops the
// state machine back to IDLE; the target is kept.
func (c *Controller) SetNavigationEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.state.Mode = ModeIdle
		c.hadGoodFix = false
	}
}

// IsNavigationEnabled reports whether steering is currently enabled.
// It turns false on its own when the fix interlock trips.
func (c *Controller) IsNavigationEnabled() bool {
	return c.enabled
}

// HasValidTarget reports whether a target has been set this episode.
func (c *Controller) HasValidTarget() bool {
	return c.state.TargetSet
}

// HasArrived reports whether the destination has been reached.
func (c *Controller) HasArrived() bool {
	return c.state.Mode == ModeArrived
}

// GetState returns a copy of the navigation state.
func (c *Controller) GetState() State {
	return c.state
}

// Update runs one tick of the state machine against the latest fix and
// compass heading, and may transmit a single steering correction.
func (c *Controller) Update(fix gps.Fix, heading float64) {
	if !fix.Usable() {
		// Safety interlock: if we were actively navigating on good fixes
		// and the fix degrades, stop steering entirely rather than chase
		// stale or unreliable positions.
		if c.enabled && c.hadGoodFix {
			c.enabled = false
			c.hadGoodFix = false
			c.state.Mode = ModeIdle
			log.Printf("nav: fix lost or degraded (fix=%v sats=%d hdop=%.1f), navigation disabled",
				fix.HasFix, fix.Satellites, fix.HDOP)
		}
		return
	}

	if c.enabled {
		c.hadGoodFix = true
	}
	if !c.enabled || !c.state.TargetSet {
		c.state.Mode = ModeIdle
		return
	}

	c.state.DistanceToTarget = Distance(
		fix.Latitude, fix.Longitude,
		c.state.Target.Latitude, c.state.Target.Longitude)
	c.state.BearingToTarget = Bearing(
		fix.Latitude, fix.Longitude,
		c.state.Target.Latitude, c.state.Target.Longitude)
	c.state.RelativeAngle = RelativeAngle(c.state.BearingToTarget, heading)

	// ARRIVED is sticky: once the boat has been within the threshold it
	// stays arrived until the target is cleared or replaced, so drift
	// just past the radius does not restart steering.
	if c.state.Mode == ModeArrived {
		return
	}
	if c.state.DistanceToTarget <= MinDistanceMeters {
		c.state.Mode = ModeArrived
		log.Printf("nav: destination reached (%.1f m)", c.state.DistanceToTarget)
		return
	}
	c.state.Mode = ModeNavigating

	c.maybeCorrect()
}

// maybeCorrect fires at most one rate-limited steering correction.
func (c *Controller) maybeCorrect() {
	if math.Abs(c.state.RelativeAngle) <= HeadingTolerance {
		return
	}
	now := c.now()
	if now.Sub(c.state.LastCorrection) < MinCorrectionInterval {
		return
	}

	// Transmit is fire-and-forget over an open-loop channel; the timestamp
	// advances whether or not the signal was received.
	c.state.LastCorrection = now
	if c.state.RelativeAngle > 0 {
		log.Printf("nav: turning RIGHT (off by %.1f deg)", c.state.RelativeAngle)
		c.steerer.Transmit(rf.SteerRight, c.repeatCount)
	} else {
		log.Printf("nav: turning LEFT (off by %.1f deg)", -c.state.RelativeAngle)
		c.steerer.Transmit(rf.SteerLeft, c.repeatCount)
	}
}
