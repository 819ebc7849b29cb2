package link

import "github.com/cjeanneret/PongGo/internal/logic/drill"

// Default hold-off windows of the status pin debounce.
const (
	DefaultConnectHold    drill.Millis = 1500
	DefaultDisconnectHold drill.Millis = 2000
)

// Liveness debounces the link module's status pin. Many BLE modules blink
// the pin while advertising and hold it steady once a central is connected,
// so "connected" requires the level to be held for ConnectHold. Once
// connected, the link drops only after DisconnectHold of continuous absence.
type Liveness struct {
	ConnectHold    drill.Millis
	DisconnectHold drill.Millis

	levelSince   drill.Millis
	levelHeld    bool
	missingSince drill.Millis
	missing      bool
}

// NewLiveness returns a debouncer with the given windows.
func NewLiveness(connectHold, disconnectHold drill.Millis) *Liveness {
	return &Liveness{ConnectHold: connectHold, DisconnectHold: disconnectHold}
}

// Reset forgets both running windows.
func (l *Liveness) Reset() {
	l.levelHeld = false
	l.missing = false
}

// Verdict is the outcome of one Sample.
type Verdict int

const (
	Hold       Verdict = iota // keep the current state
	Connect                   // the pin has been steady long enough
	Disconnect                // the pin has been absent long enough
)

// Sample feeds the pin state observed at now. connectedLevel is true when the
// pin reads the level that means "connected". connected is the current link state.
func (l *Liveness) Sample(connectedLevel bool, connected bool, now drill.Millis) Verdict {
	if connectedLevel {
		if !l.levelHeld {
			l.levelHeld = true
			l.levelSince = now
		}
	} else {
		l.levelHeld = false
	}

	if l.levelHeld && now.Since(l.levelSince) >= l.ConnectHold {
		l.missing = false
		return Connect
	}

	if !connected {
		l.missing = false
		return Hold
	}
	if !l.missing {
		l.missing = true
		l.missingSince = now
		return Hold
	}
	if now.Since(l.missingSince) >= l.DisconnectHold {
		l.missing = false
		return Disconnect
	}
	return Hold
}
