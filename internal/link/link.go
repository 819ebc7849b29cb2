// Package link implements the line protocol spoken with the companion app
// over the serial link: session control, device identification, live aim and
// bulk configuration frames, plus the status-pin liveness debounce.
package link

import (
	"errors"
	"fmt"
	"io"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// Replies sent to the peer.
const (
	ReplyStarted    = "OK,S"
	ReplyConfigOK   = "OK,C"
	ReplyIncomplete = "ERR,C,INCOMPLETE"
	ReplyInvalid    = "ERR,C,INVALID"
)

// Controller is what the protocol drives. The control loop implements it.
type Controller interface {
	StartSession()
	StopSession()
	SetAim(pan, tilt float64)
	ApplyConfig(cfg drill.Config)
}

// State is the link state visible to the UI.
type State struct {
	Connected  bool   `json:"connected"`
	DeviceName string `json:"device_name"`
}

// Link decodes lines from the peer and dispatches them to a Controller.
// It is not safe for concurrent use; the control loop owns it.
type Link struct {
	ctrl   Controller
	out    io.Writer
	reader LineReader
	live   *Liveness
	state  State

	telemetry Telemetry
}

// New creates a Link writing replies and telemetry to out.
func New(ctrl Controller, out io.Writer, live *Liveness, telemetryEvery drill.Millis) *Link {
	if out == nil {
		out = io.Discard
	}
	if live == nil {
		live = NewLiveness(DefaultConnectHold, DefaultDisconnectHold)
	}
	return &Link{
		ctrl:      ctrl,
		out:       out,
		live:      live,
		telemetry: Telemetry{Every: telemetryEvery},
	}
}

// State returns the current link state.
func (l *Link) State() State {
	return l.state
}

// Feed consumes raw bytes from the serial port and dispatches every completed line.
func (l *Link) Feed(p []byte) {
	for _, b := range p {
		if line, ok := l.reader.Feed(b); ok {
			l.HandleLine(line)
		}
	}
}

// HandleLine dispatches one complete line.
func (l *Link) HandleLine(line string) {
	if line == "" {
		return
	}
	debug.Link("rx", line)
	for _, cmd := range commands {
		if !cmd.Match(line) {
			continue
		}
		if cmd.Run(l, line) {
			return
		}
	}
	l.unknown(line)
}

// unknown is the explicit branch for lines no command claims: they are dropped.
func (l *Link) unknown(line string) {
	debug.Verbose("Link: ignoring line %q", line)
}

// Sample feeds the status pin level read at now into the liveness debounce.
// It returns true when the connected state changed.
func (l *Link) Sample(connectedLevel bool, now drill.Millis) bool {
	switch l.live.Sample(connectedLevel, l.state.Connected, now) {
	case Connect:
		if !l.state.Connected {
			l.state.Connected = true
			debug.Info("Link: connected (status pin)")
			return true
		}
	case Disconnect:
		return l.Disconnect()
	}
	return false
}

// Disconnect clears the link state. It returns false if already disconnected.
func (l *Link) Disconnect() bool {
	if !l.state.Connected {
		return false
	}
	l.state = State{}
	l.live.Reset()
	debug.Info("Link: disconnected")
	return true
}

func (l *Link) identify(name string) {
	l.state.Connected = true
	l.state.DeviceName = name
	l.live.Reset()
	if name == "" {
		name = "(none)"
	}
	debug.Info("Link: connected name=%s", name)
}

func (l *Link) applyConfigFrame(line string) {
	cfg, err := ParseConfigFrame(line)
	switch {
	case errors.Is(err, ErrIncomplete):
		debug.Live("Link: config rejected: %v", err)
		l.reply(ReplyIncomplete)
	case err != nil:
		debug.Live("Link: config rejected: %v", err)
		l.reply(ReplyInvalid)
	default:
		l.ctrl.ApplyConfig(cfg)
		l.reply(ReplyConfigOK)
	}
}

func (l *Link) reply(msg string) {
	debug.Link("tx", msg)
	if _, err := io.WriteString(l.out, msg+"\n"); err != nil {
		debug.Error(fmt.Errorf("link reply %q: %w", msg, err))
	}
}

// ReportAim sends live-aim telemetry when the peer is connected, the aim
// changed since the last report and the throttle interval has passed.
func (l *Link) ReportAim(pan, tilt float64, now drill.Millis) bool {
	if !l.state.Connected {
		return false
	}
	msg, ok := l.telemetry.Next(pan, tilt, now)
	if !ok {
		return false
	}
	l.reply(msg)
	return true
}

// Telemetry throttles live-aim reports.
type Telemetry struct {
	Every drill.Millis

	sent     bool
	last     string
	lastSent drill.Millis
}

// Next returns the line to send for pan/tilt at now, if any.
func (t *Telemetry) Next(pan, tilt float64, now drill.Millis) (string, bool) {
	msg := EncodeAim(pan, tilt)
	if t.sent && (msg == t.last || now.Since(t.lastSent) < t.Every) {
		return "", false
	}
	t.sent = true
	t.last = msg
	t.lastSent = now
	return msg, true
}
