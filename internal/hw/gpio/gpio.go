package gpio

import (
	"sync"

	"github.com/cjeanneret/PongGo/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode selects direction and, for inputs, the pull resistor.
type PinMode int

const (
	Input         PinMode = iota // floating input
	Output                       // push-pull output
	InputPullUp                  // idles high
	InputPullDown                // idles low
)

// IsInput reports whether mode configures an input.
func (m PinMode) IsInput() bool { return m != Output }

// Driver defines the abstract interface for controlling GPIOs.
// The robot uses it for the H-bridge direction pins and the link status pin.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// MockDriver logs actions and remembers pin levels so reads return what was
// last written or injected with SetInput. Used for development on PC.
type MockDriver struct {
	mu     sync.Mutex
	levels map[int]Level
}

// NewMockDriver returns an empty MockDriver.
func NewMockDriver() *MockDriver {
	return &MockDriver{levels: make(map[int]Level)}
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewRPiRealDriver()
}

// SetupPin on the mock puts a pulled input at its idle level.
func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	switch mode {
	case InputPullUp:
		m.set(pin, High)
	case InputPullDown:
		m.set(pin, Low)
	}
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.set(pin, level)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level := m.levels[pin]
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// SetInput simulates an external signal on pin, such as the link module's
// status output.
func (m *MockDriver) SetInput(pin int, level Level) {
	m.set(pin, level)
}

func (m *MockDriver) set(pin int, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.levels == nil {
		m.levels = make(map[int]Level)
	}
	m.levels[pin] = level
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
