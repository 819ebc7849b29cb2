package drill

// AxisMode selects how a pan or tilt value evolves over time.
type AxisMode int

const (
	AxisLive AxisMode = iota
	AxisAuto1
	AxisAuto2
	AxisRandom
	axisModeCount
)

var axisModeLabels = [...]string{"LIVE", "AUTO1", "AUTO2", "RANDOM"}

// AxisModeFromInt decodes a wire value. Unknown values resolve to AxisLive.
func AxisModeFromInt(v int) AxisMode {
	if v < 0 || v >= int(axisModeCount) {
		return AxisLive
	}
	return AxisMode(v)
}

func (m AxisMode) String() string {
	if m < 0 || m >= axisModeCount {
		return "?"
	}
	return axisModeLabels[m]
}

// SpinMode is the compass direction of the spin bias, or SpinNone.
// 0° is N (12 o'clock), 90° is E (3 o'clock).
type SpinMode int

const (
	SpinNone SpinMode = iota
	SpinN
	SpinNE
	SpinE
	SpinSE
	SpinS
	SpinSW
	SpinW
	SpinNW
	spinModeCount
)

var spinModeLabels = [...]string{"NONE", "N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// SpinModeFromInt decodes a wire value. Unknown values resolve to SpinNone.
func SpinModeFromInt(v int) SpinMode {
	if v < 0 || v >= int(spinModeCount) {
		return SpinNone
	}
	return SpinMode(v)
}

func (s SpinMode) String() string {
	if s < 0 || s >= spinModeCount {
		return "?"
	}
	return spinModeLabels[s]
}

// AngleDeg returns the target spin angle in degrees (0..315).
// ok is false for SpinNone, which has no directional bias.
func (s SpinMode) AngleDeg() (deg float64, ok bool) {
	if s <= SpinNone || s >= spinModeCount {
		return 0, false
	}
	return float64(s-SpinN) * 45, true
}

// FeederMode selects the feeder duty cycle.
type FeederMode int

const (
	FeedContinuous FeederMode = iota
	FeedPulse1_1
	FeedPulse2_1
	FeedPulse2_2
	FeedCustom
	feederModeCount
)

var feederModeLabels = [...]string{"CONT", "P1/1", "P2/1", "P2/2", "CUSTOM"}

// FeederModeFromInt decodes a wire value. Unknown values resolve to FeedContinuous.
func FeederModeFromInt(v int) FeederMode {
	if v < 0 || v >= int(feederModeCount) {
		return FeedContinuous
	}
	return FeederMode(v)
}

func (m FeederMode) String() string {
	if m < 0 || m >= feederModeCount {
		return "?"
	}
	return feederModeLabels[m]
}

// feederPeriods holds the fixed on/off windows in ms for the pulse modes.
var feederPeriods = map[FeederMode][2]int{
	FeedPulse1_1: {1000, 1000},
	FeedPulse2_1: {2000, 1000},
	FeedPulse2_2: {2000, 2000},
}

// Period returns the on/off windows for m. Continuous returns (0, 0);
// Custom returns the supplied values.
func (m FeederMode) Period(customOnMs, customOffMs int) (onMs, offMs int) {
	switch m {
	case FeedContinuous:
		return 0, 0
	case FeedCustom:
		return customOnMs, customOffMs
	}
	p, ok := feederPeriods[m]
	if !ok {
		return 0, 0
	}
	return p[0], p[1]
}
