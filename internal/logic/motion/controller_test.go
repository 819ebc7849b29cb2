package motion

import (
	"testing"

	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// recordingAimer records every servo command.
type recordingAimer struct {
	calls [][2]float64
}

func (a *recordingAimer) Aim(pan, tilt float64) error {
	a.calls = append(a.calls, [2]float64{pan, tilt})
	return nil
}

func (a *recordingAimer) last() [2]float64 {
	return a.calls[len(a.calls)-1]
}

func TestController_SeedCopiesTargets(t *testing.T) {
	c := NewController(&recordingAimer{}, &seqRand{})
	cfg := drill.Default()
	cfg.PanTarget = 0.4
	cfg.TiltTarget = -0.3

	c.Seed(&cfg)

	pan, tilt := c.Live()
	if pan != 0.4 || tilt != -0.3 {
		t.Errorf("Live() = (%v, %v), want (0.4, -0.3)", pan, tilt)
	}
}

func TestController_StepLiveFollowsStick(t *testing.T) {
	aimer := &recordingAimer{}
	c := NewController(aimer, &seqRand{})
	cfg := drill.Default()

	if err := c.Step(&cfg, 0, Stick{X: 1, Y: 0.01}); err != nil {
		t.Fatalf("Step: %v", err)
	}

	pan, tilt := c.Live()
	want := AimStep * (1 + AimFastGain)
	if !almostEqual(pan, want) {
		t.Errorf("pan = %v, want %v", pan, want)
	}
	if tilt != 0 {
		t.Errorf("tilt below threshold should not move, got %v", tilt)
	}
	if len(aimer.calls) != 1 || aimer.last() != [2]float64{pan, tilt} {
		t.Errorf("servos should receive live values, got %v", aimer.calls)
	}
}

func TestController_StepAuto1(t *testing.T) {
	aimer := &recordingAimer{}
	c := NewController(aimer, &seqRand{})
	cfg := drill.Default()
	cfg.PanMode = drill.AxisAuto1
	cfg.PanAuto1Speed = 0.05

	for i := 0; i < 4; i++ {
		c.Step(&cfg, drill.Millis(i*20), Stick{})
	}
	pan, _ := c.Live()
	if !almostEqual(pan, 0.2) {
		t.Errorf("pan after 4 ticks = %v, want 0.2", pan)
	}
}

func TestController_PreviewMovesTargetNotLive(t *testing.T) {
	aimer := &recordingAimer{}
	c := NewController(aimer, &seqRand{})
	cfg := drill.Default()
	cfg.TiltMode = drill.AxisAuto2
	cfg.TiltAuto2Step = 0.25
	cfg.TiltAuto2PauseMs = 1000

	if err := c.Preview(&cfg, Tilt, 1000); err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if !almostEqual(cfg.TiltTarget, 0.25) {
		t.Errorf("TiltTarget = %v, want 0.25", cfg.TiltTarget)
	}
	if cfg.PanTarget != 0 {
		t.Errorf("PanTarget should not move, got %v", cfg.PanTarget)
	}
	if _, tilt := c.Live(); tilt != 0 {
		t.Errorf("live tilt should not move during preview, got %v", tilt)
	}
	if aimer.last() != [2]float64{0, cfg.TiltTarget} {
		t.Errorf("servos should follow targets, got %v", aimer.last())
	}
}

func TestController_SetLiveClamps(t *testing.T) {
	c := NewController(&recordingAimer{}, &seqRand{})
	c.SetLive(2, -5)
	pan, tilt := c.Live()
	if pan != 1 || tilt != -1 {
		t.Errorf("Live() = (%v, %v), want (1, -1)", pan, tilt)
	}
}
