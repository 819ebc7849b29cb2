package launcher

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// MotorCount is the number of DC motors on the robot (three flywheels plus the feeder).
const MotorCount = 4

// Rig groups the launcher and the feeder so a session can start, run and
// stop all four motors together.
type Rig struct {
	Launcher *Launcher
	Feeder   *Feeder

	motors [MotorCount]Motor
}

// NewRig wires three flywheel motors and the feeder motor.
func NewRig(m1, m2, m3, feeder Motor, pullback drill.Millis) *Rig {
	return &Rig{
		Launcher: NewLauncher(m1, m2, m3),
		Feeder:   NewFeeder(feeder, pullback),
		motors:   [MotorCount]Motor{m1, m2, m3, feeder},
	}
}

// Start performs the first soft-start phase and opens the feeder pullback.
func (r *Rig) Start(cfg *drill.Config, now drill.Millis) error {
	if _, err := r.Launcher.SoftStart(cfg.LauncherPower); err != nil {
		return err
	}
	r.Feeder.BeginPullback(now)
	return r.Feeder.Update(cfg, now)
}

// Update applies cfg to every motor for the current tick.
func (r *Rig) Update(cfg *drill.Config, now drill.Millis) error {
	if err := r.Launcher.Update(cfg); err != nil {
		return err
	}
	return r.Feeder.Update(cfg, now)
}

// Stop releases all four motors.
func (r *Rig) Stop() error {
	return errors.Join(r.Launcher.Release(), r.Feeder.Release())
}

// TestMotor releases every motor, then runs motor which (1..4) forward at
// speed. which == 0 or speed == 0 only releases.
func (r *Rig) TestMotor(which, speed int) error {
	if err := r.Stop(); err != nil {
		return err
	}
	if which == 0 || speed == 0 {
		return nil
	}
	if which < 1 || which > MotorCount {
		return fmt.Errorf("motor test: no motor M%d", which)
	}
	speed = drill.ClampInt(speed, 0, MaxSpeed)
	debug.Live("Motor test M%d at %d", which, speed)
	if err := r.motors[which-1].Drive(speed); err != nil {
		return fmt.Errorf("motor test M%d: %w", which, err)
	}
	return nil
}
