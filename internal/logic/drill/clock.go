package drill

import "time"

// Millis is a free-running millisecond counter that wraps at 2^32.
type Millis uint32

// MillisOf converts a monotonic duration since boot into a Millis reading.
func MillisOf(d time.Duration) Millis {
	return Millis(uint64(d / time.Millisecond))
}

// Since returns m - earlier using unsigned arithmetic, so the result stays
// correct across a wraparound of the counter.
func (m Millis) Since(earlier Millis) Millis {
	return m - earlier
}

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

var timerTable = [...]struct {
	label string
	d     time.Duration
}{
	{"OFF", 0},
	{"15s", 15 * time.Second},
	{"30s", 30 * time.Second},
	{"1m", time.Minute},
	{"2m", 2 * time.Minute},
	{"5m", 5 * time.Minute},
}

// TimerCount is the number of selectable session timers.
const TimerCount = len(timerTable)

// TimerDuration returns the auto-stop duration for index i. 0 means no timer.
func TimerDuration(i int) time.Duration {
	if i < 0 || i >= TimerCount {
		return 0
	}
	return timerTable[i].d
}

// TimerLabel returns the display label for index i.
func TimerLabel(i int) string {
	if i < 0 || i >= TimerCount {
		return "?"
	}
	return timerTable[i].label
}
