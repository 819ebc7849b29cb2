package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/launcher"
	"github.com/cjeanneret/PongGo/internal/logic/motion"
	"github.com/cjeanneret/PongGo/internal/logic/session"
	"github.com/cjeanneret/PongGo/internal/robot"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 10

// submitTimeout bounds how long a request waits for room in the engine queue.
const submitTimeout = time.Second

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Engine is the part of the control loop the dashboard drives.
type Engine interface {
	Snapshot() robot.Snapshot
	Submit(ctx context.Context, in robot.Input) error
}

// History lists finished sessions, newest first.
type History interface {
	Recent(n int) ([]session.Record, error)
}

// CommandRequest is a raw protocol line, handled as if the app had sent it.
type CommandRequest struct {
	Line string `json:"line"`
}

// StickRequest is a virtual joystick deflection, each axis in [-1, 1].
// CommandHelp describes one protocol command.
type CommandHelp struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type StickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScreenRequest selects a UI page by label.
type ScreenRequest struct {
	Screen string `json:"screen"`
}

// CalibrationRequest replaces one servo calibration.
type CalibrationRequest struct {
	Axis string `json:"axis"`
	servo.Calibration
}

// MotorTestRequest runs one motor alone. Motor 0 or Speed 0 ends the test.
type MotorTestRequest struct {
	Motor int `json:"motor"`
	Speed int `json:"speed"`
}

// HistoryEntry is a finished session as shown by the dashboard.
type HistoryEntry struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	PlayedMs  int64     `json:"played_ms"`
	Reason    string    `json:"reason"`
	Config    string    `json:"config_frame"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Engine      Engine
	History     History
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If history is nil, GET /history returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, engine Engine, history History, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Engine:      engine,
		History:     history,
		staticFS:    staticFS,
	}
}

// ValidateStick checks that both axes are finite and within [-1, 1].
func ValidateStick(s StickRequest) error {
	for name, v := range map[string]float64{"x": s.X, "y": s.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
		if v < -1 || v > 1 {
			return fmt.Errorf("%s must be between -1 and 1", name)
		}
	}
	return nil
}

// ValidateCommand checks a raw protocol line.
func ValidateCommand(c CommandRequest) error {
	if c.Line == "" {
		return errors.New("line is empty")
	}
	if len(c.Line) > link.MaxLineLen {
		return fmt.Errorf("line longer than %d characters", link.MaxLineLen)
	}
	// One request carries one line; the engine does not split it.
	if strings.ContainsAny(c.Line, "\r\n") {
		return errors.New("line must not contain line terminators")
	}
	return nil
}

// ValidateMotorTest checks the motor index and speed.
func ValidateMotorTest(m MotorTestRequest) error {
	if m.Motor < 0 || m.Motor > launcher.MotorCount {
		return fmt.Errorf("motor must be between 0 and %d", launcher.MotorCount)
	}
	if m.Speed < 0 || m.Speed > launcher.MaxSpeed {
		return fmt.Errorf("speed must be between 0 and %d", launcher.MaxSpeed)
	}
	return nil
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleStatus returns the latest engine snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Snapshot())
}

// HandleCommands lists the protocol lines POST /command understands, in the
// order the link tries them.
func (h *Handlers) HandleCommands(w http.ResponseWriter, r *http.Request) {
	table := link.Commands()
	help := make([]CommandHelp, 0, len(table))
	for _, c := range table {
		help = append(help, CommandHelp{Name: c.Name, Description: c.Description})
	}
	writeJSON(w, http.StatusOK, help)
}

// HandleHistory returns the most recent sessions. ?limit=n caps the count.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "history not configured", http.StatusServiceUnavailable)
		return
	}
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			http.Error(w, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := h.History.Recent(limit)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	entries := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, HistoryEntry{
			ID:        rec.ID.String(),
			StartedAt: rec.StartedAt,
			PlayedMs:  rec.Played.Milliseconds(),
			Reason:    string(rec.Reason),
			Config:    link.EncodeConfigFrame(rec.Config),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleStart handles POST /start.
func (h *Handlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, robot.StartInput{})
}

// HandleStop handles POST /stop.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, robot.StopInput{Reason: session.StopWeb})
}

// HandleCommand handles POST /command with a raw protocol line.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decode(w, r, &req) {
		return
	}
	if err := ValidateCommand(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, robot.LineInput{Line: req.Line})
}

// HandleStick handles POST /stick.
func (h *Handlers) HandleStick(w http.ResponseWriter, r *http.Request) {
	var req StickRequest
	if !decode(w, r, &req) {
		return
	}
	if err := ValidateStick(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, robot.StickInput(motion.Stick{X: req.X, Y: req.Y}))
}

// HandleScreen handles POST /screen.
func (h *Handlers) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if !decode(w, r, &req) {
		return
	}
	screen, ok := robot.ParseScreen(req.Screen)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown screen %q", req.Screen), http.StatusBadRequest)
		return
	}
	h.submit(w, r, robot.ScreenInput{Screen: screen})
}

// HandleCalibration handles POST /calibration.
func (h *Handlers) HandleCalibration(w http.ResponseWriter, r *http.Request) {
	var req CalibrationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Axis != servo.AxisPan && req.Axis != servo.AxisTilt {
		http.Error(w, "axis must be pan or tilt", http.StatusBadRequest)
		return
	}
	if err := req.Calibration.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, robot.CalibrationInput{Axis: req.Axis, Calibration: req.Calibration})
}

// HandleMotorTest handles POST /motor-test.
func (h *Handlers) HandleMotorTest(w http.ResponseWriter, r *http.Request) {
	var req MotorTestRequest
	if !decode(w, r, &req) {
		return
	}
	if err := ValidateMotorTest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.submit(w, r, robot.MotorTestInput{Motor: req.Motor, Speed: req.Speed})
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, in robot.Input) {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if err := h.Engine.Submit(ctx, in); err != nil {
		http.Error(w, "control loop busy", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
