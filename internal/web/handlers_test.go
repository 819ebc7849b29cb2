package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
	"github.com/cjeanneret/PongGo/internal/logic/motion"
	"github.com/cjeanneret/PongGo/internal/logic/session"
	"github.com/cjeanneret/PongGo/internal/robot"
)

// ---------- Fakes ----------

type fakeEngine struct {
	mu     sync.Mutex
	snap   robot.Snapshot
	inputs []robot.Input
	err    error
}

func (f *fakeEngine) Snapshot() robot.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) Submit(_ context.Context, in robot.Input) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inputs = append(f.inputs, in)
	return nil
}

func (f *fakeEngine) submitted() []robot.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]robot.Input(nil), f.inputs...)
}

type fakeHistory struct {
	recs  []session.Record
	err   error
	asked int
}

func (f *fakeHistory) Recent(n int) ([]session.Record, error) {
	f.asked = n
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.recs) {
		return f.recs[:n], nil
	}
	return f.recs, nil
}

func newTestHandlers(eng *fakeEngine, hist History) *Handlers {
	staticFS := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>test</html>")},
	}
	return NewHandlers(NewStatusBroadcaster(), eng, hist, staticFS)
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// ---------- Validation ----------

func TestValidateStick(t *testing.T) {
	cases := []struct {
		name    string
		s       StickRequest
		wantErr bool
	}{
		{"centre", StickRequest{0, 0}, false},
		{"corners", StickRequest{-1, 1}, false},
		{"x beyond", StickRequest{1.01, 0}, true},
		{"y beyond", StickRequest{0, -2}, true},
		{"NaN", StickRequest{math.NaN(), 0}, true},
		{"+Inf", StickRequest{0, math.Inf(1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStick(tc.s)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStick(%+v) = %v, wantErr %v", tc.s, err, tc.wantErr)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{"start", "START", false},
		{"max length", strings.Repeat("A", 255), false},
		{"empty", "", true},
		{"too long", strings.Repeat("A", 256), true},
		{"two lines", "S\nP", true},
		{"carriage return", "START\r", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCommand(CommandRequest{Line: tc.line})
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCommand = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateMotorTest(t *testing.T) {
	cases := []struct {
		name    string
		m       MotorTestRequest
		wantErr bool
	}{
		{"off", MotorTestRequest{0, 0}, false},
		{"feeder full", MotorTestRequest{4, 255}, false},
		{"motor 5", MotorTestRequest{5, 100}, true},
		{"negative motor", MotorTestRequest{-1, 100}, true},
		{"speed 256", MotorTestRequest{1, 256}, true},
		{"reverse", MotorTestRequest{1, -10}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMotorTest(tc.m)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateMotorTest(%+v) = %v, wantErr %v", tc.m, err, tc.wantErr)
			}
		})
	}
}

// ---------- Status ----------

func TestHandleStatus(t *testing.T) {
	eng := &fakeEngine{snap: robot.Snapshot{Screen: "PAN", Running: true, Motors: [4]int{1, 2, 3, 4}}}
	h := newTestHandlers(eng, nil)
	w := httptest.NewRecorder()

	h.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got robot.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Screen != "PAN" || !got.Running || got.Motors != [4]int{1, 2, 3, 4} {
		t.Errorf("snapshot = %+v", got)
	}
}

// ---------- Inputs ----------

func TestHandleStartStop(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandlers(eng, nil)

	if w := post(h.HandleStart, "/start", ""); w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", w.Code)
	}
	if w := post(h.HandleStop, "/stop", ""); w.Code != http.StatusAccepted {
		t.Fatalf("stop status = %d", w.Code)
	}

	got := eng.submitted()
	if len(got) != 2 {
		t.Fatalf("inputs = %v, want 2", got)
	}
	if _, ok := got[0].(robot.StartInput); !ok {
		t.Errorf("first input = %T, want StartInput", got[0])
	}
	if stop, ok := got[1].(robot.StopInput); !ok || stop.Reason != session.StopWeb {
		t.Errorf("second input = %#v, want StopInput{web}", got[1])
	}
}

func TestHandleCommand(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandlers(eng, nil)

	w := post(h.HandleCommand, "/command", `{"line":"A,500,-250"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	got := eng.submitted()
	if len(got) != 1 || got[0] != (robot.LineInput{Line: "A,500,-250"}) {
		t.Errorf("inputs = %#v", got)
	}
}

func TestHandleCommand_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"empty line", `{"line":""}`},
		{"too long", `{"line":"` + strings.Repeat("x", 300) + `"}`},
		{"embedded newline", `{"line":"S\nP"}`},
		{"oversized body", `{"line":"` + strings.Repeat("x", 8<<10) + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{}
			h := newTestHandlers(eng, nil)
			w := post(h.HandleCommand, "/command", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if n := len(eng.submitted()); n != 0 {
				t.Errorf("%d inputs submitted, want none", n)
			}
		})
	}
}

func TestHandleCommands_ListsTable(t *testing.T) {
	h := newTestHandlers(&fakeEngine{}, nil)
	w := httptest.NewRecorder()

	h.HandleCommands(w, httptest.NewRequest(http.MethodGet, "/commands", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var help []CommandHelp
	if err := json.Unmarshal(w.Body.Bytes(), &help); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(help) != 6 {
		t.Fatalf("got %d commands, want 6", len(help))
	}
	if help[0].Name != "stop" || help[1].Name != "start" {
		t.Errorf("order = %s, %s; stop must come before start", help[0].Name, help[1].Name)
	}
	for _, c := range help {
		if c.Description == "" {
			t.Errorf("command %s has no description", c.Name)
		}
	}
}

func TestHandleStick(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandlers(eng, nil)

	if w := post(h.HandleStick, "/stick", `{"x":0.5,"y":-1}`); w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if w := post(h.HandleStick, "/stick", `{"x":3,"y":0}`); w.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	got := eng.submitted()
	want := robot.StickInput(motion.Stick{X: 0.5, Y: -1})
	if len(got) != 1 || got[0] != want {
		t.Errorf("inputs = %#v, want [%#v]", got, want)
	}
}

func TestHandleScreen(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandlers(eng, nil)

	if w := post(h.HandleScreen, "/screen", `{"screen":"pan"}`); w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if w := post(h.HandleScreen, "/screen", `{"screen":"nowhere"}`); w.Code != http.StatusBadRequest {
		t.Errorf("unknown screen status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	got := eng.submitted()
	if len(got) != 1 || got[0] != (robot.ScreenInput{Screen: robot.ScreenPan}) {
		t.Errorf("inputs = %#v", got)
	}
}

func TestHandleCalibration(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"valid tilt", `{"axis":"tilt","min":40,"mid":90,"max":130}`, http.StatusAccepted},
		{"unknown axis", `{"axis":"roll","min":40,"mid":90,"max":130}`, http.StatusBadRequest},
		{"unordered", `{"axis":"pan","min":100,"mid":90,"max":130}`, http.StatusBadRequest},
		{"beyond 180", `{"axis":"pan","min":0,"mid":90,"max":200}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{}
			h := newTestHandlers(eng, nil)
			w := post(h.HandleCalibration, "/calibration", tc.body)
			if w.Code != tc.code {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.code, w.Body.String())
			}
			if tc.code != http.StatusAccepted {
				return
			}
			want := robot.CalibrationInput{Axis: servo.AxisTilt, Calibration: servo.Calibration{Min: 40, Mid: 90, Max: 130}}
			if got := eng.submitted(); len(got) != 1 || got[0] != want {
				t.Errorf("inputs = %#v, want [%#v]", got, want)
			}
		})
	}
}

func TestHandleMotorTest(t *testing.T) {
	eng := &fakeEngine{}
	h := newTestHandlers(eng, nil)

	if w := post(h.HandleMotorTest, "/motor-test", `{"motor":2,"speed":120}`); w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if w := post(h.HandleMotorTest, "/motor-test", `{"motor":9,"speed":120}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad motor status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	got := eng.submitted()
	if len(got) != 1 || got[0] != (robot.MotorTestInput{Motor: 2, Speed: 120}) {
		t.Errorf("inputs = %#v", got)
	}
}

func TestSubmit_EngineBusy(t *testing.T) {
	eng := &fakeEngine{err: context.DeadlineExceeded}
	h := newTestHandlers(eng, nil)

	if w := post(h.HandleStart, "/start", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ---------- History ----------

func TestHandleHistory(t *testing.T) {
	started := time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)
	id := uuid.New()
	hist := &fakeHistory{recs: []session.Record{{
		ID:        id,
		StartedAt: started,
		Played:    42 * time.Second,
		Reason:    session.StopTimer,
		Config:    drill.Default(),
	}}}
	h := newTestHandlers(&fakeEngine{}, hist)
	w := httptest.NewRecorder()

	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/history?limit=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if hist.asked != 5 {
		t.Errorf("Recent asked for %d, want 5", hist.asked)
	}
	var got []HistoryEntry
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.ID != id.String() || e.PlayedMs != 42000 || e.Reason != "timer" || !e.StartedAt.Equal(started) {
		t.Errorf("entry = %+v", e)
	}
	if !strings.HasPrefix(e.Config, "<C,") || !strings.HasSuffix(e.Config, ">") {
		t.Errorf("config frame = %q, want a <C,...> frame", e.Config)
	}
}

func TestHandleHistory_DefaultLimit(t *testing.T) {
	hist := &fakeHistory{}
	h := newTestHandlers(&fakeEngine{}, hist)
	w := httptest.NewRecorder()

	h.HandleHistory(w, httptest.NewRequest(http.MethodGet, "/history", nil))

	if w.Code != http.StatusOK || hist.asked != defaultHistoryLimit {
		t.Errorf("status = %d, asked = %d", w.Code, hist.asked)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHandleHistory_Errors(t *testing.T) {
	cases := []struct {
		name string
		hist History
		url  string
		code int
	}{
		{"not configured", nil, "/history", http.StatusServiceUnavailable},
		{"limit zero", &fakeHistory{}, "/history?limit=0", http.StatusBadRequest},
		{"limit too big", &fakeHistory{}, "/history?limit=1000", http.StatusBadRequest},
		{"limit not a number", &fakeHistory{}, "/history?limit=ten", http.StatusBadRequest},
		{"store failure", &fakeHistory{err: errors.New("disk gone")}, "/history", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(&fakeEngine{}, tc.hist)
			w := httptest.NewRecorder()
			h.HandleHistory(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if w.Code != tc.code {
				t.Errorf("status = %d, want %d", w.Code, tc.code)
			}
		})
	}
}

// ---------- ServeIndex ----------

func TestServeIndex(t *testing.T) {
	h := newTestHandlers(&fakeEngine{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.ServeIndex(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/html; charset=utf-8", ct)
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("body should contain HTML content")
	}
}

// ---------- Routing ----------

func TestServerMux_Routes(t *testing.T) {
	eng := &fakeEngine{}
	mux := NewServer(":0", NewStatusBroadcaster(), eng, nil).Mux()

	cases := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/static/app.js", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodPost, "/start", http.StatusAccepted},
		{http.MethodGet, "/start", http.StatusMethodNotAllowed},
		{http.MethodGet, "/history", http.StatusServiceUnavailable},
		{http.MethodGet, "/commands", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.code {
				t.Errorf("status = %d, want %d", w.Code, tc.code)
			}
		})
	}
}
