package motor

import (
	"fmt"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/gpio"
	"github.com/cjeanneret/PongGo/internal/hw/pwm"
)

// MaxSpeed is the magnitude of a full-duty command.
const MaxSpeed = 255

// Config holds the hardware configuration for one DC motor behind an H-bridge.
type Config struct {
	Name     string
	Channel  int  // PWM channel carrying the duty cycle
	In1Pin   int  // H-bridge input 1 (BCM)
	In2Pin   int  // H-bridge input 2 (BCM)
	Inverted bool // swap directions when the motor is wired backwards
}

// Motor drives a DC motor: PWM duty sets the speed, two GPIOs set the direction.
type Motor struct {
	gpio gpio.Driver
	pwm  pwm.Driver
	cfg  Config
}

// NewMotor configures the pins and leaves the motor released.
func NewMotor(g gpio.Driver, p pwm.Driver, cfg Config) (*Motor, error) {
	if err := g.SetupPin(cfg.In1Pin, gpio.Output); err != nil {
		return nil, fmt.Errorf("motor %s in1: %w", cfg.Name, err)
	}
	if err := g.SetupPin(cfg.In2Pin, gpio.Output); err != nil {
		return nil, fmt.Errorf("motor %s in2: %w", cfg.Name, err)
	}
	if err := p.Configure(cfg.Channel, pwm.FullPeriod); err != nil {
		return nil, fmt.Errorf("motor %s pwm: %w", cfg.Name, err)
	}
	m := &Motor{gpio: g, pwm: p, cfg: cfg}
	if err := m.Release(); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the configured motor name.
func (m *Motor) Name() string {
	return m.cfg.Name
}

// Drive runs the motor at speed in [-MaxSpeed, MaxSpeed]; the sign selects
// the direction. Out-of-range values are clamped. Zero coasts.
func (m *Motor) Drive(speed int) error {
	if speed > MaxSpeed {
		speed = MaxSpeed
	} else if speed < -MaxSpeed {
		speed = -MaxSpeed
	}
	if speed == 0 {
		return m.Release()
	}

	forward := speed > 0
	if m.cfg.Inverted {
		forward = !forward
	}
	magnitude := speed
	if magnitude < 0 {
		magnitude = -magnitude
	}

	debug.Trace("Motor %s: drive %d", m.cfg.Name, speed)

	// Drop duty before flipping direction so the bridge never sees both
	// a new direction and the old duty.
	if err := m.pwm.SetFraction(m.cfg.Channel, 0); err != nil {
		return fmt.Errorf("motor %s: %w", m.cfg.Name, err)
	}
	if err := m.setDirection(forward); err != nil {
		return err
	}
	if err := m.pwm.SetFraction(m.cfg.Channel, float64(magnitude)/MaxSpeed); err != nil {
		return fmt.Errorf("motor %s: %w", m.cfg.Name, err)
	}
	return nil
}

func (m *Motor) setDirection(forward bool) error {
	in1, in2 := gpio.High, gpio.Low
	if !forward {
		in1, in2 = gpio.Low, gpio.High
	}
	if err := m.gpio.WritePin(m.cfg.In1Pin, in1); err != nil {
		return fmt.Errorf("motor %s in1: %w", m.cfg.Name, err)
	}
	if err := m.gpio.WritePin(m.cfg.In2Pin, in2); err != nil {
		return fmt.Errorf("motor %s in2: %w", m.cfg.Name, err)
	}
	return nil
}

// Release cuts the duty and lets the motor coast.
func (m *Motor) Release() error {
	debug.Trace("Motor %s: release", m.cfg.Name)
	if err := m.pwm.SetFraction(m.cfg.Channel, 0); err != nil {
		return fmt.Errorf("motor %s: %w", m.cfg.Name, err)
	}
	if err := m.gpio.WritePin(m.cfg.In1Pin, gpio.Low); err != nil {
		return fmt.Errorf("motor %s in1: %w", m.cfg.Name, err)
	}
	if err := m.gpio.WritePin(m.cfg.In2Pin, gpio.Low); err != nil {
		return fmt.Errorf("motor %s in2: %w", m.cfg.Name, err)
	}
	return nil
}
