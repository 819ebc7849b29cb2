package motion

import (
	"math"
	"testing"

	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// seqRand returns the queued values in order, then repeats the last one.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[min(r.i, len(r.vals)-1)]
	r.i++
	return v % n
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func auto1Params(speed, lo, hi float64) Params {
	return Params{Mode: drill.AxisAuto1, Auto1Speed: speed, Min: lo, Max: hi}
}

// ---------- AUTO1 ----------

func TestAdvance_Auto1StaysInRange(t *testing.T) {
	cases := []struct {
		name   string
		speed  float64
		lo, hi float64
	}{
		{"full_range", 0.035, -1, 1},
		{"narrow", 0.08, -0.1, 0.1},
		{"offset", 0.005, 0.2, 0.9},
		{"coarse", 0.08, -0.5, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAxis()
			p := auto1Params(tc.speed, tc.lo, tc.hi)
			v := tc.lo
			for i := 0; i < 2000; i++ {
				v = a.Advance(v, p, drill.Millis(i), nil)
				if v < tc.lo || v > tc.hi {
					t.Fatalf("tick %d: value %v left [%v, %v]", i, v, tc.lo, tc.hi)
				}
			}
		})
	}
}

func TestAdvance_Auto1FlipsAtBoundaries(t *testing.T) {
	a := NewAxis()
	p := auto1Params(0.08, -0.2, 0.2)
	v := 0.0
	prevDir := a.Dir
	for i := 0; i < 200; i++ {
		v = a.Advance(v, p, 0, nil)
		if a.Dir != prevDir {
			if a.Dir == -1 && v != p.Max {
				t.Fatalf("flip to -1 at %v, want at max %v", v, p.Max)
			}
			if a.Dir == 1 && v != p.Min {
				t.Fatalf("flip to +1 at %v, want at min %v", v, p.Min)
			}
		} else if v == p.Max || v == p.Min {
			t.Fatalf("reached boundary %v without flipping", v)
		}
		prevDir = a.Dir
	}
}

// ---------- AUTO2 ----------

func TestAdvance_Auto2WaitsForPause(t *testing.T) {
	a := NewAxis()
	p := Params{Mode: drill.AxisAuto2, Auto2Step: 0.25, Auto2Pause: 1000, Min: -1, Max: 1}

	v := a.Advance(0, p, 1000, nil)
	if !almostEqual(v, 0.25) {
		t.Fatalf("first step = %v, want 0.25", v)
	}
	for now := drill.Millis(1001); now < 2000; now += 7 {
		if got := a.Advance(v, p, now, nil); got != v {
			t.Fatalf("value changed at %d before pause elapsed: %v", now, got)
		}
	}
	if got := a.Advance(v, p, 2000, nil); !almostEqual(got, 0.5) {
		t.Errorf("step after pause = %v, want 0.5", got)
	}
}

func TestAdvance_Auto2AcrossClockWrap(t *testing.T) {
	a := Axis{Dir: 1, LastStep: drill.Millis(math.MaxUint32 - 100)}
	p := Params{Mode: drill.AxisAuto2, Auto2Step: 0.1, Auto2Pause: 500, Min: -1, Max: 1}

	if got := a.Advance(0, p, 200, nil); got != 0 {
		t.Errorf("301ms after wrap should not step, got %v", got)
	}
	if got := a.Advance(0, p, 399, nil); !almostEqual(got, 0.1) {
		t.Errorf("500ms after wrap should step, got %v", got)
	}
}

// ---------- RANDOM ----------

func TestAdvance_RandomRespectsMinDist(t *testing.T) {
	a := NewAxis()
	p := Params{Mode: drill.AxisRandom, RandomMinDist: 0.3, RandomPause: 500, Min: -1, Max: 1}
	// Draws map to min + n/10000*2: 5000 -> 0.0 (too close), 5100 -> 0.02, 9000 -> 0.8.
	rng := &seqRand{vals: []int{5000, 5100, 9000}}

	got := a.Advance(0, p, 500, rng)
	if !almostEqual(got, 0.8) {
		t.Errorf("target = %v, want 0.8", got)
	}
	if math.Abs(got-0) < p.RandomMinDist {
		t.Errorf("|target - current| = %v < minDist", math.Abs(got))
	}
	if a.LastStep != 500 {
		t.Errorf("LastStep = %d, want 500", a.LastStep)
	}
}

func TestAdvance_RandomFallback(t *testing.T) {
	cases := []struct {
		name    string
		current float64
		want    float64
	}{
		{"below_centre_steps_up", -0.05, 0.25},
		{"above_centre_steps_down", 0.05, -0.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAxis()
			p := Params{Mode: drill.AxisRandom, RandomMinDist: 0.3, RandomPause: 500, Min: -1, Max: 1}
			// Every draw lands on 0.0, within minDist of current.
			rng := &seqRand{vals: []int{5000}}
			got := a.Advance(tc.current, p, 500, rng)
			if !almostEqual(got, tc.want) {
				t.Errorf("fallback = %v, want %v", got, tc.want)
			}
			if rng.i != randomAttempts {
				t.Errorf("draws = %d, want %d", rng.i, randomAttempts)
			}
		})
	}
}

func TestAdvance_RandomWaitsForPause(t *testing.T) {
	a := NewAxis()
	a.LastStep = 1000
	p := Params{Mode: drill.AxisRandom, RandomMinDist: 0.1, RandomPause: 1500, Min: -1, Max: 1}
	rng := &seqRand{vals: []int{10000}}
	if got := a.Advance(0.3, p, 2499, rng); got != 0.3 {
		t.Errorf("value changed before pause: %v", got)
	}
	if rng.i != 0 {
		t.Error("no draw should happen before the pause elapses")
	}
}

// ---------- Degenerate and LIVE ----------

func TestAdvance_DegenerateRangeDoesNotMove(t *testing.T) {
	for _, mode := range []drill.AxisMode{drill.AxisAuto1, drill.AxisAuto2, drill.AxisRandom} {
		t.Run(mode.String(), func(t *testing.T) {
			a := NewAxis()
			p := Params{Mode: mode, Auto1Speed: 0.05, Auto2Step: 0.2, RandomMinDist: 0.2, Min: 0.5, Max: 0.5}
			if got := a.Advance(0.1, p, 100000, &seqRand{}); got != 0.1 {
				t.Errorf("degenerate range advanced to %v", got)
			}
		})
	}
}

func TestAdvance_LiveUntouched(t *testing.T) {
	a := NewAxis()
	p := Params{Mode: drill.AxisLive, Min: -1, Max: 1}
	if got := a.Advance(0.42, p, 5000, nil); got != 0.42 {
		t.Errorf("LIVE should not advance, got %v", got)
	}
}

// ---------- Stick ----------

func TestApplyStick(t *testing.T) {
	cases := []struct {
		name         string
		value, stick float64
		want         float64
	}{
		{"below_threshold", 0.3, 0.04, 0.3},
		{"half_right", 0, 0.5, 0.5 * AimStep * (1 + 0.5*AimFastGain)},
		{"full_left", 0, -1, -AimStep * (1 + AimFastGain)},
		{"clamped_high", 0.99, 1, 1},
		{"clamped_low", -0.99, -1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ApplyStick(tc.value, tc.stick); !almostEqual(got, tc.want) {
				t.Errorf("ApplyStick(%v, %v) = %v, want %v", tc.value, tc.stick, got, tc.want)
			}
		})
	}
}

func TestStickFromRaw(t *testing.T) {
	cases := []struct {
		raw  int
		want float64
	}{
		{512, 0},
		{512 + 69, 0},
		{512 - 69, 0},
		{512 + 256, 0.5},
		{0, -1},
		{1023, 511.0 / 512},
	}
	for _, tc := range cases {
		if got := StickFromRaw(tc.raw); !almostEqual(got, tc.want) {
			t.Errorf("StickFromRaw(%d) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
