package gpio

import (
	"fmt"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver drives the Raspberry Pi header through go-rpio's memory mapped
// registers. It remembers every pin it touched so Close can park them.
type RPiDriver struct {
	pins  map[int]rpio.Pin
	modes map[int]PinMode
}

// NewRPiRealDriver maps /dev/gpiomem. It needs a Raspberry Pi and either the
// gpio group or root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}
	return &RPiDriver{
		pins:  make(map[int]rpio.Pin),
		modes: make(map[int]PinMode),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p := rpio.Pin(pin)

	switch mode {
	case Output:
		p.Output()
		p.Low()
	case Input:
		p.Input()
		p.PullOff()
	case InputPullUp:
		p.Input()
		p.PullUp()
	case InputPullDown:
		p.Input()
		p.PullDown()
	default:
		return fmt.Errorf("pin %d: unknown mode %d", pin, mode)
	}

	r.pins[pin] = p
	r.modes[pin] = mode
	return nil
}

// pin returns a configured pin, setting it up with mode on first use.
func (r *RPiDriver) pin(n int, mode PinMode) (rpio.Pin, error) {
	if p, ok := r.pins[n]; ok {
		return p, nil
	}
	if err := r.SetupPin(n, mode); err != nil {
		return 0, err
	}
	return r.pins[n], nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	p, err := r.pin(pin, Output)
	if err != nil {
		return err
	}
	if r.modes[pin].IsInput() {
		return fmt.Errorf("pin %d: write to an input", pin)
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	p, err := r.pin(pin, Input)
	if err != nil {
		return Low, err
	}
	level := Level(p.Read() == rpio.High)
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// Close drives outputs low, so no H-bridge is left energised, then returns
// every pin to a floating input and unmaps the registers.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")
	for n, p := range r.pins {
		if r.modes[n] == Output {
			p.Low()
		}
		p.Input()
		p.PullOff()
	}
	return rpio.Close()
}
