package launcher

import (
	"fmt"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Motor is a DC motor driven with a signed duty in [-255, 255].
type Motor interface {
	Drive(speed int) error
	Release() error
}

// speedCache remembers the last command issued to a motor so identical
// commands are not re-sent.
type speedCache struct {
	speed int
	known bool
}

func (c *speedCache) same(speed int) bool {
	return c.known && c.speed == speed
}

func (c *speedCache) set(speed int) {
	c.speed = speed
	c.known = true
}

// Launcher drives the three flywheels.
type Launcher struct {
	motors [3]Motor
	cache  [3]speedCache
}

// NewLauncher creates a launcher from the M1, M2 and M3 motors.
func NewLauncher(m1, m2, m3 Motor) *Launcher {
	return &Launcher{motors: [3]Motor{m1, m2, m3}}
}

// Update applies the spin-aware mapping of cfg, re-commanding only the
// motors whose speed changed.
func (l *Launcher) Update(cfg *drill.Config) error {
	speeds := MotorSpeeds(cfg.LauncherPower, cfg.SpinMode, cfg.SpinIntensity)
	for i, s := range speeds {
		if err := l.command(i, s); err != nil {
			return err
		}
	}
	return nil
}

func (l *Launcher) command(i, speed int) error {
	if l.cache[i].same(speed) {
		return nil
	}
	if err := l.motors[i].Drive(speed); err != nil {
		return fmt.Errorf("launcher motor M%d: %w", i+1, err)
	}
	l.cache[i].set(speed)
	debug.Motor(fmt.Sprintf("M%d", i+1), speed)
	return nil
}

// SoftStart commands every flywheel at RampSpeed(power) with no spin bias and
// seeds the cache with that value. The next Update applies the full mapping.
func (l *Launcher) SoftStart(power int) (int, error) {
	ramp := RampSpeed(power)
	l.ResetCache()
	for i, m := range l.motors {
		if err := m.Drive(ramp); err != nil {
			return ramp, fmt.Errorf("soft start M%d: %w", i+1, err)
		}
	}
	l.SetCache([3]int{ramp, ramp, ramp})
	debug.Live("Launcher soft start at %d (power %d)", ramp, power)
	return ramp, nil
}

// ResetCache forgets the last commands so the next Update re-sends all three.
func (l *Launcher) ResetCache() {
	l.cache = [3]speedCache{}
}

// SetCache pre-seeds the cache with speeds already applied by the caller.
func (l *Launcher) SetCache(speeds [3]int) {
	for i, s := range speeds {
		l.cache[i].set(s)
	}
}

// Speeds returns the cached speeds and whether each is known.
func (l *Launcher) Speeds() (speeds [3]int, known [3]bool) {
	for i, c := range l.cache {
		speeds[i], known[i] = c.speed, c.known
	}
	return speeds, known
}

// Release stops all flywheels and clears the cache.
func (l *Launcher) Release() error {
	var firstErr error
	for i, m := range l.motors {
		if err := m.Release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release M%d: %w", i+1, err)
		}
	}
	l.ResetCache()
	return firstErr
}
