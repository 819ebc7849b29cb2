package link

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// ConfigFieldCount is the number of integers in a config frame.
const ConfigFieldCount = 26

// MaxNameLen bounds the device name taken from an identify frame.
const MaxNameLen = 24

const (
	configMarker = "<C,"
	configEnd    = '>'
	fixedPoint   = 1000
)

var (
	// ErrIncomplete means a config frame marker was found but the line does not end with '>'.
	ErrIncomplete = errors.New("config frame incomplete")
	// ErrInvalid means the config frame is empty or carries fewer than 26 fields.
	ErrInvalid = errors.New("config frame invalid")
	// ErrNoFrame means the line carries no config frame marker.
	ErrNoFrame = errors.New("no config frame")
)

// ParseConfigFrame decodes "<C,f0,...,f25>" into a new Config. The segment
// after the last "<C," marker is used; fields beyond the 26th are ignored.
// Out-of-range values are clamped, never rejected.
func ParseConfigFrame(line string) (drill.Config, error) {
	start := strings.LastIndex(line, configMarker)
	if start < 0 {
		return drill.Config{}, ErrNoFrame
	}
	if line[len(line)-1] != configEnd {
		return drill.Config{}, ErrIncomplete
	}
	body := line[start+len(configMarker) : len(line)-1]

	var v [ConfigFieldCount]int
	n := 0
	for n < ConfigFieldCount && body != "" {
		v[n] = atoi(body)
		n++
		if i := strings.IndexByte(body, ','); i >= 0 {
			body = body[i+1:]
		} else {
			body = ""
		}
	}
	if n < ConfigFieldCount {
		return drill.Config{}, ErrInvalid
	}

	cfg := drill.Config{
		PanMode:    drill.AxisModeFromInt(v[0]),
		TiltMode:   drill.AxisModeFromInt(v[1]),
		PanTarget:  fromFixed(v[2]),
		TiltTarget: fromFixed(v[3]),
		PanMin:     fromFixed(v[4]),
		PanMax:     fromFixed(v[5]),
		TiltMin:    fromFixed(v[6]),
		TiltMax:    fromFixed(v[7]),

		PanAuto1Speed:    fromFixed(v[8]),
		PanAuto2Step:     fromFixed(v[9]),
		PanAuto2PauseMs:  v[10],
		TiltAuto1Speed:   fromFixed(v[11]),
		TiltAuto2Step:    fromFixed(v[12]),
		TiltAuto2PauseMs: v[13],

		PanRandomMinDist:  fromFixed(v[14]),
		PanRandomPauseMs:  v[15],
		TiltRandomMinDist: fromFixed(v[16]),
		TiltRandomPauseMs: v[17],

		LauncherPower: v[18],
		SpinMode:      drill.SpinModeFromInt(v[19]),
		SpinIntensity: v[20],

		FeederMode:        drill.FeederModeFromInt(v[21]),
		FeederSpeed:       v[22],
		FeederCustomOnMs:  v[23],
		FeederCustomOffMs: v[24],
		TimerIndex:        v[25],
	}
	cfg.Clamp()
	return cfg, nil
}

// EncodeConfigFrame is the peer-side encoder for ParseConfigFrame.
func EncodeConfigFrame(cfg drill.Config) string {
	fields := [ConfigFieldCount]int{
		int(cfg.PanMode),
		int(cfg.TiltMode),
		toFixed(cfg.PanTarget),
		toFixed(cfg.TiltTarget),
		toFixed(cfg.PanMin),
		toFixed(cfg.PanMax),
		toFixed(cfg.TiltMin),
		toFixed(cfg.TiltMax),
		toFixed(cfg.PanAuto1Speed),
		toFixed(cfg.PanAuto2Step),
		cfg.PanAuto2PauseMs,
		toFixed(cfg.TiltAuto1Speed),
		toFixed(cfg.TiltAuto2Step),
		cfg.TiltAuto2PauseMs,
		toFixed(cfg.PanRandomMinDist),
		cfg.PanRandomPauseMs,
		toFixed(cfg.TiltRandomMinDist),
		cfg.TiltRandomPauseMs,
		cfg.LauncherPower,
		int(cfg.SpinMode),
		cfg.SpinIntensity,
		int(cfg.FeederMode),
		cfg.FeederSpeed,
		cfg.FeederCustomOnMs,
		cfg.FeederCustomOffMs,
		cfg.TimerIndex,
	}

	var sb strings.Builder
	sb.WriteString(configMarker)
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(f))
	}
	sb.WriteByte(configEnd)
	return sb.String()
}

// ParseAim decodes "A,<pan*1000>,<tilt*1000>". Missing values read as 0 and
// the result is clamped to [-1, 1].
func ParseAim(line string) (pan, tilt float64) {
	rest := strings.TrimPrefix(line, "A,")
	p := atoi(rest)
	t := 0
	if i := strings.IndexByte(rest, ','); i >= 0 {
		t = atoi(rest[i+1:])
	}
	pan = drill.ClampFloat(fromFixed(p), -drill.AxisLimit, drill.AxisLimit)
	tilt = drill.ClampFloat(fromFixed(t), -drill.AxisLimit, drill.AxisLimit)
	return pan, tilt
}

// EncodeAim formats a live-aim telemetry line without its terminator.
func EncodeAim(pan, tilt float64) string {
	return "A," + strconv.Itoa(toFixed(pan)) + "," + strconv.Itoa(toFixed(tilt))
}

// ParseName extracts the device name following the first "N," in line. The
// name stops at ',', '\r', '\n' or after MaxNameLen bytes.
func ParseName(line string) (string, bool) {
	i := strings.Index(line, "N,")
	if i < 0 {
		return "", false
	}
	rest := line[i+2:]
	if j := strings.IndexAny(rest, ",\r\n"); j >= 0 {
		rest = rest[:j]
	}
	if len(rest) > MaxNameLen {
		rest = rest[:MaxNameLen]
	}
	return rest, true
}

func fromFixed(v int) float64 {
	return float64(v) / fixedPoint
}

func toFixed(f float64) int {
	return int(math.Round(f * fixedPoint))
}

// atoi reads a leading decimal integer the lenient way: leading blanks and a
// sign are accepted, parsing stops at the first non-digit and a string with
// no digits yields 0. Values saturate at the int32 range.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	v := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + int(s[i]-'0')
		if v > math.MaxInt32 {
			v = math.MaxInt32 + 1
		}
	}
	if neg {
		v = -v
	}
	return max(min(v, math.MaxInt32), math.MinInt32)
}
