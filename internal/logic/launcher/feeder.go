package launcher

import (
	"fmt"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Feeder drives the ball feeder motor (M4). At session start it runs in
// reverse for a pullback window so a loaded ball retracts before the
// flywheels reach full speed, then follows the configured duty cycle.
type Feeder struct {
	motor    Motor
	pullback drill.Millis

	pulling       bool
	pullbackStart drill.Millis
	cache         speedCache
}

// NewFeeder creates a feeder with the given pullback window.
func NewFeeder(m Motor, pullback drill.Millis) *Feeder {
	return &Feeder{motor: m, pullback: pullback}
}

// BeginPullback opens the reverse window starting at now.
func (f *Feeder) BeginPullback(now drill.Millis) {
	f.pulling = f.pullback > 0
	f.pullbackStart = now
	f.cache = speedCache{}
}

// InPullback reports whether the reverse window is still open at now.
func (f *Feeder) InPullback(now drill.Millis) bool {
	return f.pulling && now.Since(f.pullbackStart) < f.pullback
}

// Target returns the signed feeder speed for cfg at now.
func (f *Feeder) Target(cfg *drill.Config, now drill.Millis) int {
	if f.InPullback(now) {
		return -cfg.FeederSpeed
	}
	if FeederOn(cfg.FeederMode, cfg.FeederCustomOnMs, cfg.FeederCustomOffMs, now) {
		return cfg.FeederSpeed
	}
	return 0
}

// Update drives the feeder for the current tick.
func (f *Feeder) Update(cfg *drill.Config, now drill.Millis) error {
	if f.pulling && !f.InPullback(now) {
		f.pulling = false
		f.cache = speedCache{}
	}

	speed := f.Target(cfg, now)
	if f.cache.same(speed) {
		return nil
	}

	var err error
	if speed == 0 {
		err = f.motor.Release()
	} else {
		err = f.motor.Drive(speed)
	}
	if err != nil {
		return fmt.Errorf("feeder: %w", err)
	}
	f.cache.set(speed)
	debug.Motor("M4", speed)
	return nil
}

// Release stops the feeder and clears any pullback.
func (f *Feeder) Release() error {
	f.pulling = false
	f.cache = speedCache{}
	if err := f.motor.Release(); err != nil {
		return fmt.Errorf("release feeder: %w", err)
	}
	return nil
}

// Speed returns the last speed commanded to the feeder, 0 when released.
func (f *Feeder) Speed() int {
	if !f.cache.known {
		return 0
	}
	return f.cache.speed
}
