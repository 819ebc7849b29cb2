package motion

import (
	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Aimer positions the pan/tilt servos from normalized [-1, 1] values.
type Aimer interface {
	Aim(pan, tilt float64) error
}

// AxisID names one of the two aiming axes.
type AxisID int

const (
	Pan AxisID = iota
	Tilt
)

func (a AxisID) String() string {
	if a == Tilt {
		return "tilt"
	}
	return "pan"
}

// Stick is a normalized stick deflection, X driving pan and Y driving tilt.
type Stick struct {
	X, Y float64
}

// Controller orchestrates the pan and tilt axes. During a session it evolves
// the live values and pushes them to the servos; before a session it can
// evolve the preview targets held in Config instead. Both uses share the
// same per-axis generator state.
type Controller struct {
	aimer Aimer
	rng   Rand

	pan, tilt         Axis
	livePan, liveTilt float64
}

func NewController(aimer Aimer, rng Rand) *Controller {
	return &Controller{
		aimer: aimer,
		rng:   rng,
		pan:   NewAxis(),
		tilt:  NewAxis(),
	}
}

// Seed copies the preview targets into the live axis state.
func (c *Controller) Seed(cfg *drill.Config) {
	c.livePan = cfg.PanTarget
	c.liveTilt = cfg.TiltTarget
	debug.Verbose("Motion: seeded live aim pan=%.3f tilt=%.3f", c.livePan, c.liveTilt)
}

// Live returns the live pan and tilt values.
func (c *Controller) Live() (pan, tilt float64) {
	return c.livePan, c.liveTilt
}

// SetLive overwrites the live values, clamped to [-1, 1].
func (c *Controller) SetLive(pan, tilt float64) {
	c.livePan = drill.ClampFloat(pan, -drill.AxisLimit, drill.AxisLimit)
	c.liveTilt = drill.ClampFloat(tilt, -drill.AxisLimit, drill.AxisLimit)
}

// Aim pushes the live values to the servos.
func (c *Controller) Aim() error {
	return c.aimer.Aim(c.livePan, c.liveTilt)
}

// AimTargets pushes the preview targets to the servos.
func (c *Controller) AimTargets(cfg *drill.Config) error {
	return c.aimer.Aim(cfg.PanTarget, cfg.TiltTarget)
}

// Step advances both live axes by one tick and updates the servos.
// LIVE axes follow the stick, the others follow their generator.
func (c *Controller) Step(cfg *drill.Config, now drill.Millis, stick Stick) error {
	if cfg.PanMode == drill.AxisLive {
		c.livePan = ApplyStick(c.livePan, stick.X)
	} else {
		c.livePan = c.pan.Advance(c.livePan, PanParams(cfg), now, c.rng)
	}

	if cfg.TiltMode == drill.AxisLive {
		c.liveTilt = ApplyStick(c.liveTilt, stick.Y)
	} else {
		c.liveTilt = c.tilt.Advance(c.liveTilt, TiltParams(cfg), now, c.rng)
	}

	return c.Aim()
}

// Preview advances the Config target of one axis, as if a session were
// running with only that axis enabled, and moves the servos to the targets.
func (c *Controller) Preview(cfg *drill.Config, axis AxisID, now drill.Millis) error {
	switch axis {
	case Pan:
		cfg.PanTarget = c.pan.Advance(cfg.PanTarget, PanParams(cfg), now, c.rng)
	case Tilt:
		cfg.TiltTarget = c.tilt.Advance(cfg.TiltTarget, TiltParams(cfg), now, c.rng)
	}
	return c.AimTargets(cfg)
}
