package servo

import (
	"errors"
	"fmt"
	"math"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/pwm"
)

// MaxAngle is the top of the hobby servo travel.
const MaxAngle = 180

// DefaultPulse is the pulse range a hobby servo expects for 0..180 degrees.
var DefaultPulse = pwm.PulseRange{MinUS: 544, MaxUS: 2400}

// ErrCalibration is returned for calibrations that are not min <= mid <= max
// within [0, MaxAngle].
var ErrCalibration = errors.New("invalid servo calibration")

// Calibration holds the servo angles, in degrees, reached at -1, 0 and +1.
type Calibration struct {
	Min int `json:"min" yaml:"min"`
	Mid int `json:"mid" yaml:"mid"`
	Max int `json:"max" yaml:"max"`
}

// Factory calibrations.
var (
	DefaultPan  = Calibration{Min: 15, Mid: 70, Max: 125}
	DefaultTilt = Calibration{Min: 45, Mid: 100, Max: 120}
)

// Validate checks the ordering and bounds of c.
func (c Calibration) Validate() error {
	if c.Min < 0 || c.Max > MaxAngle || c.Min > c.Mid || c.Mid > c.Max {
		return fmt.Errorf("%w: %d/%d/%d", ErrCalibration, c.Min, c.Mid, c.Max)
	}
	return nil
}

// NormalizedToAngle maps x in [-1, 1] onto the calibration. The two halves
// are scaled independently so 0 always lands on Mid.
func (c Calibration) NormalizedToAngle(x float64) int {
	x = math.Max(-1, math.Min(1, x))
	if x < 0 {
		a := float64(c.Mid) + x*float64(c.Mid-c.Min)
		return clampInt(int(math.Round(a)), c.Min, c.Mid)
	}
	a := float64(c.Mid) + x*float64(c.Max-c.Mid)
	return clampInt(int(math.Round(a)), c.Mid, c.Max)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Servo is one calibrated hobby servo on a PWM channel.
type Servo struct {
	name    string
	pwm     pwm.Driver
	channel int
	cal     Calibration
	angle   int
}

// NewServo configures channel and moves the servo to its mid position.
func NewServo(p pwm.Driver, name string, channel int, cal Calibration, pulse pwm.PulseRange) (*Servo, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("servo %s: %w", name, err)
	}
	if err := p.Configure(channel, pulse); err != nil {
		return nil, fmt.Errorf("servo %s: %w", name, err)
	}
	s := &Servo{name: name, pwm: p, channel: channel, cal: cal, angle: -1}
	if err := s.SetNormalized(0); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNormalized moves the servo to the angle mapped from x.
func (s *Servo) SetNormalized(x float64) error {
	angle := s.cal.NormalizedToAngle(x)
	if angle == s.angle {
		return nil
	}
	if err := s.pwm.SetFraction(s.channel, float64(angle)/MaxAngle); err != nil {
		return fmt.Errorf("servo %s: %w", s.name, err)
	}
	s.angle = angle
	debug.Trace("Servo %s: %d deg", s.name, angle)
	return nil
}

// SetCalibration replaces the calibration. The new mapping applies on the
// next SetNormalized.
func (s *Servo) SetCalibration(cal Calibration) error {
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("servo %s: %w", s.name, err)
	}
	s.cal = cal
	s.angle = -1
	return nil
}

func (s *Servo) Calibration() Calibration { return s.cal }

// Angle returns the last commanded angle, or -1 before the first command.
func (s *Servo) Angle() int { return s.angle }

// Axis names accepted by Pair.
const (
	AxisPan  = "pan"
	AxisTilt = "tilt"
)

// Pair is the pan/tilt head.
type Pair struct {
	Pan  *Servo
	Tilt *Servo
}

func (p *Pair) servo(axis string) (*Servo, error) {
	switch axis {
	case AxisPan:
		return p.Pan, nil
	case AxisTilt:
		return p.Tilt, nil
	}
	return nil, fmt.Errorf("unknown servo axis %q", axis)
}

// SetCalibration replaces the calibration of the named axis.
func (p *Pair) SetCalibration(axis string, cal Calibration) error {
	s, err := p.servo(axis)
	if err != nil {
		return err
	}
	return s.SetCalibration(cal)
}

// Calibration returns the calibration of the named axis.
func (p *Pair) Calibration(axis string) (Calibration, error) {
	s, err := p.servo(axis)
	if err != nil {
		return Calibration{}, err
	}
	return s.Calibration(), nil
}

// Aim moves both servos to the normalized pan and tilt positions.
func (p *Pair) Aim(pan, tilt float64) error {
	return errors.Join(p.Pan.SetNormalized(pan), p.Tilt.SetNormalized(tilt))
}
