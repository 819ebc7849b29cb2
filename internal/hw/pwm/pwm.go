package pwm

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/PongGo/internal/debug"
)

// PulseRange is the pulse width, in microseconds, produced at fraction 0
// and fraction 1 on a channel.
type PulseRange struct {
	MinUS float64
	MaxUS float64
}

// PeriodUS is the PWM period at the controller's 50 Hz output.
const PeriodUS = 20000.0

// FullPeriod maps fractions straight to duty cycle. Motor channels use it.
var FullPeriod = PulseRange{MinUS: 0, MaxUS: PeriodUS}

// ChannelCount is the number of outputs on one controller.
const ChannelCount = 16

// Driver is a multi-channel PWM output.
type Driver interface {
	// Configure prepares channel for output within r.
	Configure(channel int, r PulseRange) error
	// SetFraction sets channel to MinUS + f*(MaxUS-MinUS); f is clamped to [0,1].
	SetFraction(channel int, f float64) error
	Close() error
}

func checkChannel(channel int) error {
	if channel < 0 || channel >= ChannelCount {
		return fmt.Errorf("pwm channel %d out of range [0,%d)", channel, ChannelCount)
	}
	return nil
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// MockDriver remembers the last fraction per channel.
type MockDriver struct {
	mu        sync.Mutex
	ranges    map[int]PulseRange
	fractions map[int]float64
}

// NewMockDriver returns an empty MockDriver.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		ranges:    make(map[int]PulseRange),
		fractions: make(map[int]float64),
	}
}

// NewDriver returns the PCA9685 driver, or a mock when mock is true.
func NewDriver(mock bool, address byte, device string) (Driver, error) {
	if mock {
		debug.Info("Using MOCK PWM driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewPCA9685Driver(address, device)
}

func (m *MockDriver) Configure(channel int, r PulseRange) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranges[channel] = r
	debug.PWM("Configure", channel, r)
	return nil
}

func (m *MockDriver) SetFraction(channel int, f float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ranges[channel]; !ok {
		return fmt.Errorf("pwm channel %d not configured", channel)
	}
	f = clampFraction(f)
	m.fractions[channel] = f
	debug.PWM("SetFraction", channel, f)
	return nil
}

// Fraction returns the last fraction written to channel.
func (m *MockDriver) Fraction(channel int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fractions[channel]
}

func (m *MockDriver) Close() error {
	debug.Trace("PWM Close (mock)")
	return nil
}
