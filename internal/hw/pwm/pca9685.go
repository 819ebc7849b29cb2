package pwm

import (
	"fmt"

	"github.com/googolgl/go-i2c"
	"github.com/googolgl/go-pca9685"

	"github.com/cjeanneret/PongGo/internal/debug"
)

// Default bus settings for the PCA9685 board.
const (
	DefaultAddress = 0x40
	DefaultDevice  = "/dev/i2c-1"
)

// PCA9685Driver drives a PCA9685 16-channel board over I2C.
type PCA9685Driver struct {
	bus      *i2c.Options
	dev      *pca9685.PCA9685
	channels map[int]*pca9685.Servo
}

// NewPCA9685Driver opens the I2C bus and initializes the board.
func NewPCA9685Driver(address byte, device string) (*PCA9685Driver, error) {
	debug.Info("Initializing PCA9685 at 0x%02x on %s", address, device)

	bus, err := i2c.New(address, device)
	if err != nil {
		return nil, fmt.Errorf("open i2c %s: %w", device, err)
	}
	dev, err := pca9685.New(bus, nil)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init pca9685: %w", err)
	}
	return &PCA9685Driver{
		bus:      bus,
		dev:      dev,
		channels: make(map[int]*pca9685.Servo),
	}, nil
}

func (d *PCA9685Driver) Configure(channel int, r PulseRange) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	debug.PWM("Configure", channel, r)
	d.channels[channel] = d.dev.ServoNew(channel, &pca9685.ServOptions{
		AcRange:  pca9685.ServoRangeDef,
		MinPulse: float32(r.MinUS),
		MaxPulse: float32(r.MaxUS),
	})
	return nil
}

func (d *PCA9685Driver) SetFraction(channel int, f float64) error {
	ch, ok := d.channels[channel]
	if !ok {
		return fmt.Errorf("pwm channel %d not configured", channel)
	}
	f = clampFraction(f)
	debug.PWM("SetFraction", channel, f)
	if err := ch.Fraction(float32(f)); err != nil {
		return fmt.Errorf("set pwm channel %d: %w", channel, err)
	}
	return nil
}

// Close drives every configured channel to fraction 0 and releases the bus.
func (d *PCA9685Driver) Close() error {
	debug.Trace("PWM Close (pca9685)")
	for channel, ch := range d.channels {
		if err := ch.Fraction(0); err != nil {
			debug.Verbose("PWM: zeroing channel %d: %v", channel, err)
		}
	}
	return d.bus.Close()
}
