package robot

import (
	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/logic/motion"
	"github.com/cjeanneret/PongGo/internal/logic/session"
)

// Input is a request from the console or the web dashboard. Inputs are
// applied by the control loop at the start of a tick, in arrival order.
type Input interface {
	apply(e *Engine)
}

// StickInput sets the stick deflection used by LIVE axes.
type StickInput motion.Stick

func (in StickInput) apply(e *Engine) {
	e.stick = motion.Stick(in)
}

// StartInput starts a session.
type StartInput struct{}

func (StartInput) apply(e *Engine) {
	e.start()
}

// StopInput ends the running session, if any, and returns to Home.
type StopInput struct {
	Reason session.StopReason
}

func (in StopInput) apply(e *Engine) {
	e.stop(in.Reason)
}

// ScreenInput switches the UI page.
type ScreenInput struct {
	Screen Screen
}

func (in ScreenInput) apply(e *Engine) {
	e.setScreen(in.Screen)
}

// CalibrationInput replaces and persists the calibration of one servo.
type CalibrationInput struct {
	Axis        string
	Calibration servo.Calibration
}

func (in CalibrationInput) apply(e *Engine) {
	e.calibrate(in.Axis, in.Calibration)
}

// MotorTestInput runs a single motor (1..4) forward at Speed. Motor 0 or
// Speed 0 ends the test.
type MotorTestInput struct {
	Motor int
	Speed int
}

func (in MotorTestInput) apply(e *Engine) {
	e.testMotor(in.Motor, in.Speed)
}

// LineInput is handled exactly like a line received from the peer.
type LineInput struct {
	Line string
}

func (in LineInput) apply(e *Engine) {
	debug.Link("local", in.Line)
	e.link.HandleLine(in.Line)
}
