package robot

import (
	"strings"

	"github.com/cjeanneret/PongGo/internal/logic/motion"
)

// Screen is the page the operator UI is showing.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenWizard
	ScreenPan
	ScreenTilt
	ScreenLauncher
	ScreenSpin
	ScreenFeeder
	ScreenTimer
	ScreenRunning
	ScreenInfo
	ScreenSettings
	ScreenSettingsServo
	ScreenSettingsMotor
)

var screenLabels = [...]string{
	ScreenHome:          "HOME",
	ScreenWizard:        "WIZARD",
	ScreenPan:           "PAN",
	ScreenTilt:          "TILT",
	ScreenLauncher:      "LAUNCHER",
	ScreenSpin:          "SPIN",
	ScreenFeeder:        "FEEDER",
	ScreenTimer:         "TIMER",
	ScreenRunning:       "RUNNING",
	ScreenInfo:          "INFO",
	ScreenSettings:      "SETTINGS",
	ScreenSettingsServo: "SERVO",
	ScreenSettingsMotor: "MOTOR",
}

func (s Screen) String() string {
	if s < 0 || int(s) >= len(screenLabels) {
		return "?"
	}
	return screenLabels[s]
}

// ParseScreen looks a screen up by label, ignoring case.
func ParseScreen(label string) (Screen, bool) {
	for i, l := range screenLabels {
		if strings.EqualFold(l, label) {
			return Screen(i), true
		}
	}
	return ScreenHome, false
}

// PreviewAxis returns the axis whose trajectory is previewed on s.
func (s Screen) PreviewAxis() (motion.AxisID, bool) {
	switch s {
	case ScreenPan:
		return motion.Pan, true
	case ScreenTilt:
		return motion.Tilt, true
	}
	return 0, false
}
