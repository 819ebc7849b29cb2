package motion

import (
	"math"

	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Incremental aim tuning for LIVE mode.
const (
	StickThreshold = 0.05
	AimStep        = 0.025
	AimFastGain    = 2.8

	// Raw joystick readings are 10-bit with a dead band around the centre.
	StickCenter   = 512
	StickDeadzone = 70

	randomAttempts = 20
	randomSteps    = 10000
)

// Rand is the random source used by RANDOM mode. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Params are the per-axis tuning values the generator reads from Config.
type Params struct {
	Mode          drill.AxisMode
	Auto1Speed    float64
	Auto2Step     float64
	Auto2Pause    drill.Millis
	RandomMinDist float64
	RandomPause   drill.Millis
	Min, Max      float64
}

// PanParams extracts the pan axis parameters from cfg.
func PanParams(cfg *drill.Config) Params {
	return Params{
		Mode:          cfg.PanMode,
		Auto1Speed:    cfg.PanAuto1Speed,
		Auto2Step:     cfg.PanAuto2Step,
		Auto2Pause:    drill.Millis(cfg.PanAuto2PauseMs),
		RandomMinDist: cfg.PanRandomMinDist,
		RandomPause:   drill.Millis(cfg.PanRandomPauseMs),
		Min:           cfg.PanMin,
		Max:           cfg.PanMax,
	}
}

// TiltParams extracts the tilt axis parameters from cfg.
func TiltParams(cfg *drill.Config) Params {
	return Params{
		Mode:          cfg.TiltMode,
		Auto1Speed:    cfg.TiltAuto1Speed,
		Auto2Step:     cfg.TiltAuto2Step,
		Auto2Pause:    drill.Millis(cfg.TiltAuto2PauseMs),
		RandomMinDist: cfg.TiltRandomMinDist,
		RandomPause:   drill.Millis(cfg.TiltRandomPauseMs),
		Min:           cfg.TiltMin,
		Max:           cfg.TiltMax,
	}
}

// Axis is the generator state of one axis: sweep direction and the time of
// the last AUTO2/RANDOM step.
type Axis struct {
	Dir      float64
	LastStep drill.Millis
}

// NewAxis returns an axis sweeping towards Max first.
func NewAxis() Axis {
	return Axis{Dir: 1}
}

// Advance returns the next value of an axis in p.Mode. LIVE values are not
// touched here; see ApplyStick. A degenerate range (Max <= Min) never advances.
func (a *Axis) Advance(value float64, p Params, now drill.Millis, rng Rand) float64 {
	if p.Max <= p.Min {
		return value
	}
	if a.Dir == 0 {
		a.Dir = 1
	}

	switch p.Mode {
	case drill.AxisAuto1:
		return a.bounce(value+a.Dir*p.Auto1Speed, p)

	case drill.AxisAuto2:
		if now.Since(a.LastStep) < p.Auto2Pause {
			return value
		}
		a.LastStep = now
		return a.bounce(value+a.Dir*p.Auto2Step, p)

	case drill.AxisRandom:
		if now.Since(a.LastStep) < p.RandomPause {
			return value
		}
		a.LastStep = now
		return pickRandomTarget(value, p, rng)
	}
	return value
}

// bounce clamps v into [Min, Max] and reverses the sweep at either end.
func (a *Axis) bounce(v float64, p Params) float64 {
	if v >= p.Max {
		v = p.Max
		a.Dir = -1
	}
	if v <= p.Min {
		v = p.Min
		a.Dir = 1
	}
	return v
}

func pickRandomTarget(current float64, p Params, rng Rand) float64 {
	span := p.Max - p.Min
	for range randomAttempts {
		t := p.Min + float64(rng.IntN(randomSteps+1))/randomSteps*span
		if math.Abs(t-current) >= p.RandomMinDist {
			return t
		}
	}
	// No qualifying draw: step away from the centre of the range.
	next := current - p.RandomMinDist
	if current < (p.Min+p.Max)/2 {
		next = current + p.RandomMinDist
	}
	return drill.ClampFloat(next, p.Min, p.Max)
}

// ApplyStick moves value by the incremental aim law: deflections below
// StickThreshold are ignored, larger ones accelerate with their magnitude.
func ApplyStick(value, stick float64) float64 {
	mag := math.Abs(stick)
	if mag < StickThreshold {
		return value
	}
	delta := stick * AimStep * (1 + mag*AimFastGain)
	return drill.ClampFloat(value+delta, -drill.AxisLimit, drill.AxisLimit)
}

// StickFromRaw converts a 10-bit joystick reading into [-1, 1].
func StickFromRaw(raw int) float64 {
	d := raw - StickCenter
	if d > -StickDeadzone && d < StickDeadzone {
		return 0
	}
	return drill.ClampFloat(float64(d)/StickCenter, -1, 1)
}
