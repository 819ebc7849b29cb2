// Package drill holds the shared drill configuration: aiming modes, launcher
// power and spin, feeder duty cycle and session timer. The control loop owns
// the single live instance; every writer clamps before committing.
package drill

// Documented ranges for each Config field.
const (
	AxisLimit = 1.0

	Auto1SpeedMin = 0.005
	Auto1SpeedMax = 0.08

	Auto2StepMin  = 0.05
	Auto2StepMax  = 0.5
	Auto2PauseMin = 100
	Auto2PauseMax = 10000

	RandomMinDistMin = 0.1
	RandomMinDistMax = 0.5
	RandomPauseMin   = 500
	RandomPauseMax   = 30000

	PowerMax     = 255
	IntensityMax = 512
	FeederMax    = 255

	CustomMsMin = 100
	CustomMsMax = 10000
)

// Config is the drill record shared between the on-device UI and the remote app.
type Config struct {
	PanMode  AxisMode `json:"pan_mode"`
	TiltMode AxisMode `json:"tilt_mode"`

	PanTarget  float64 `json:"pan_target"`
	TiltTarget float64 `json:"tilt_target"`

	PanMin  float64 `json:"pan_min"`
	PanMax  float64 `json:"pan_max"`
	TiltMin float64 `json:"tilt_min"`
	TiltMax float64 `json:"tilt_max"`

	PanAuto1Speed   float64 `json:"pan_auto1_speed"`
	PanAuto2Step    float64 `json:"pan_auto2_step"`
	PanAuto2PauseMs int     `json:"pan_auto2_pause_ms"`

	TiltAuto1Speed   float64 `json:"tilt_auto1_speed"`
	TiltAuto2Step    float64 `json:"tilt_auto2_step"`
	TiltAuto2PauseMs int     `json:"tilt_auto2_pause_ms"`

	PanRandomMinDist  float64 `json:"pan_random_min_dist"`
	PanRandomPauseMs  int     `json:"pan_random_pause_ms"`
	TiltRandomMinDist float64 `json:"tilt_random_min_dist"`
	TiltRandomPauseMs int     `json:"tilt_random_pause_ms"`

	LauncherPower int      `json:"launcher_power"`
	SpinMode      SpinMode `json:"spin_mode"`
	SpinIntensity int      `json:"spin_intensity"` // >255 lets a misaligned motor run in reverse

	FeederMode        FeederMode `json:"feeder_mode"`
	FeederSpeed       int        `json:"feeder_speed"`
	FeederCustomOnMs  int        `json:"feeder_custom_on_ms"`
	FeederCustomOffMs int        `json:"feeder_custom_off_ms"`

	TimerIndex int `json:"timer_index"`
}

// Default returns the boot-time configuration.
func Default() Config {
	return Config{
		PanMode:  AxisLive,
		TiltMode: AxisLive,

		PanMin:  -1,
		PanMax:  1,
		TiltMin: -1,
		TiltMax: 1,

		PanAuto1Speed:    0.035,
		PanAuto2Step:     0.25,
		PanAuto2PauseMs:  1000,
		TiltAuto1Speed:   0.035,
		TiltAuto2Step:    0.25,
		TiltAuto2PauseMs: 1000,

		PanRandomMinDist:  0.2,
		PanRandomPauseMs:  1500,
		TiltRandomMinDist: 0.2,
		TiltRandomPauseMs: 1500,

		LauncherPower: 255,
		SpinMode:      SpinNone,
		SpinIntensity: 255,

		FeederMode:        FeedContinuous,
		FeederSpeed:       160,
		FeederCustomOnMs:  1000,
		FeederCustomOffMs: 1000,
	}
}

// Clamp coerces every field into its documented range.
func (c *Config) Clamp() {
	c.PanMode = AxisModeFromInt(int(c.PanMode))
	c.TiltMode = AxisModeFromInt(int(c.TiltMode))

	c.PanTarget = ClampFloat(c.PanTarget, -AxisLimit, AxisLimit)
	c.TiltTarget = ClampFloat(c.TiltTarget, -AxisLimit, AxisLimit)
	c.PanMin = ClampFloat(c.PanMin, -AxisLimit, AxisLimit)
	c.PanMax = ClampFloat(c.PanMax, -AxisLimit, AxisLimit)
	c.TiltMin = ClampFloat(c.TiltMin, -AxisLimit, AxisLimit)
	c.TiltMax = ClampFloat(c.TiltMax, -AxisLimit, AxisLimit)

	c.PanAuto1Speed = ClampFloat(c.PanAuto1Speed, Auto1SpeedMin, Auto1SpeedMax)
	c.TiltAuto1Speed = ClampFloat(c.TiltAuto1Speed, Auto1SpeedMin, Auto1SpeedMax)
	c.PanAuto2Step = ClampFloat(c.PanAuto2Step, Auto2StepMin, Auto2StepMax)
	c.TiltAuto2Step = ClampFloat(c.TiltAuto2Step, Auto2StepMin, Auto2StepMax)
	c.PanAuto2PauseMs = ClampInt(c.PanAuto2PauseMs, Auto2PauseMin, Auto2PauseMax)
	c.TiltAuto2PauseMs = ClampInt(c.TiltAuto2PauseMs, Auto2PauseMin, Auto2PauseMax)

	c.PanRandomMinDist = ClampFloat(c.PanRandomMinDist, RandomMinDistMin, RandomMinDistMax)
	c.TiltRandomMinDist = ClampFloat(c.TiltRandomMinDist, RandomMinDistMin, RandomMinDistMax)
	c.PanRandomPauseMs = ClampInt(c.PanRandomPauseMs, RandomPauseMin, RandomPauseMax)
	c.TiltRandomPauseMs = ClampInt(c.TiltRandomPauseMs, RandomPauseMin, RandomPauseMax)

	c.LauncherPower = ClampInt(c.LauncherPower, 0, PowerMax)
	c.SpinMode = SpinModeFromInt(int(c.SpinMode))
	c.SpinIntensity = ClampInt(c.SpinIntensity, 0, IntensityMax)

	c.FeederMode = FeederModeFromInt(int(c.FeederMode))
	c.FeederSpeed = ClampInt(c.FeederSpeed, 0, FeederMax)
	c.FeederCustomOnMs = ClampInt(c.FeederCustomOnMs, CustomMsMin, CustomMsMax)
	c.FeederCustomOffMs = ClampInt(c.FeederCustomOffMs, CustomMsMin, CustomMsMax)

	c.TimerIndex = ClampInt(c.TimerIndex, 0, TimerCount-1)
}

// ClampFloat limits v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
