package robot

import (
	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Snapshot is a read-only copy of the engine state for the UIs.
type Snapshot struct {
	Now         drill.Millis      `json:"now"`
	Screen      string            `json:"screen"`
	Running     bool              `json:"running"`
	SessionID   string            `json:"session_id,omitempty"`
	PlayedMs    int64             `json:"played_ms"`
	MaxPlayedMs int64             `json:"max_played_ms"`
	Timer       string            `json:"timer"`
	LivePan     float64           `json:"live_pan"`
	LiveTilt    float64           `json:"live_tilt"`
	Motors      [4]int            `json:"motors"`
	MotorTest   bool              `json:"motor_test"`
	Feeding     bool              `json:"feeding"`
	Link        link.State        `json:"link"`
	PanCal      servo.Calibration `json:"pan_calibration"`
	TiltCal     servo.Calibration `json:"tilt_calibration"`
	Config      drill.Config      `json:"config"`
}

// Snapshot returns the state published by the last tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

func (e *Engine) publish() {
	s := Snapshot{
		Now:         e.now,
		Screen:      e.screen.String(),
		Running:     e.session.Running,
		PlayedMs:    e.session.Elapsed(e.now).Milliseconds(),
		MaxPlayedMs: e.session.MaxPlayed.Milliseconds(),
		Timer:       drill.TimerLabel(e.cfg.TimerIndex),
		MotorTest:   e.motorTest,
		Link:        e.link.State(),
		Config:      e.cfg,
	}
	if e.session.Running {
		s.SessionID = e.session.ID.String()
	}
	s.LivePan, s.LiveTilt = e.motion.Live()
	speeds, _ := e.rig.Launcher.Speeds()
	copy(s.Motors[:], speeds[:])
	s.Motors[3] = e.rig.Feeder.Speed()
	s.Feeding = s.Motors[3] > 0
	s.PanCal, _ = e.head.Calibration(servo.AxisPan)
	s.TiltCal, _ = e.head.Calibration(servo.AxisTilt)

	e.mu.Lock()
	e.snap = s
	e.mu.Unlock()
}
