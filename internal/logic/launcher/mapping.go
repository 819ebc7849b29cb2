// Package launcher maps launcher power, spin and feeder settings onto the
// four DC motors of the robot.
package launcher

import (
	"math"

	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

const (
	// MaxSpeed is the largest duty magnitude a motor accepts.
	MaxSpeed = 255

	// RampFloor keeps the soft-start speed high enough to overcome static friction.
	RampFloor = 50
)

// MotorAngles are the positions of the three flywheels around the launch axis:
// M1 at 12 o'clock, M2 at 4 o'clock, M3 at 8 o'clock.
var MotorAngles = [3]float64{0, 120, 240}

// Alignment is 1 when a motor sits on the spin direction and 0 when it is opposite.
func Alignment(motorDeg, targetDeg float64) float64 {
	diff := (motorDeg - targetDeg) * math.Pi / 180
	return (math.Cos(diff) + 1) / 2
}

// MotorSpeeds returns the signed duty of each flywheel. Negative values run
// the motor in reverse, which happens when intensity exceeds 255 and a motor
// is far enough from the spin direction.
func MotorSpeeds(power int, spin drill.SpinMode, intensity int) [3]int {
	var speeds [3]int
	target, ok := spin.AngleDeg()
	factor := float64(intensity) / 255

	for i, motorDeg := range MotorAngles {
		s := power
		if ok && intensity != 0 {
			s = int(math.Round(float64(power) * (1 - factor*(1-Alignment(motorDeg, target)))))
		}
		speeds[i] = drill.ClampInt(s, -MaxSpeed, MaxSpeed)
	}
	return speeds
}

// RampSpeed is the first-phase soft-start speed for a given power.
func RampSpeed(power int) int {
	return max(power/2, RampFloor)
}

// FeederOn reports whether the feeder duty cycle is in its "on" window at now.
// The phase comes from the absolute clock so every consumer stays in step.
func FeederOn(mode drill.FeederMode, customOnMs, customOffMs int, now drill.Millis) bool {
	if mode == drill.FeedContinuous {
		return true
	}
	onMs, offMs := mode.Period(customOnMs, customOffMs)
	cycle := onMs + offMs
	if cycle <= 0 || onMs < 0 {
		return false
	}
	return uint32(now)%uint32(cycle) < uint32(onMs)
}
