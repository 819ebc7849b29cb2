// Package session tracks timed play sessions: start/stop transitions, the
// played-time high-water mark and the optional auto-stop timer.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
)

// StopReason says why a session ended.
type StopReason string

const (
	StopPeer    StopReason = "peer"
	StopTimer   StopReason = "timer"
	StopConsole StopReason = "console"
	StopWeb     StopReason = "web"
	StopHalt    StopReason = "halt"
	StopRestart StopReason = "restart" // a start arrived while running
)

// Record summarizes a finished session for the history store.
type Record struct {
	ID        uuid.UUID
	StartedAt time.Time
	Played    time.Duration
	Reason    StopReason
	Config    drill.Config
}

// Session is the Idle/Running state machine. MaxPlayed never decreases and
// lives until the process restarts.
type Session struct {
	Running   bool
	StartedAt drill.Millis
	MaxPlayed time.Duration
	ID        uuid.UUID

	startWall time.Time
}

// Start enters Running at now. Starting an already running session restarts
// its clock under a new ID.
func (s *Session) Start(now drill.Millis) {
	s.Running = true
	s.StartedAt = now
	s.ID = uuid.New()
	s.startWall = time.Now()
	debug.Session("started "+s.ID.String(), time.Duration(0))
}

// Elapsed returns the time played in the current session, or 0 when idle.
func (s *Session) Elapsed(now drill.Millis) time.Duration {
	if !s.Running {
		return 0
	}
	return now.Since(s.StartedAt).Duration()
}

// Tick updates the high-water mark and reports whether the configured
// timer has run out. A zero timer never expires.
func (s *Session) Tick(now drill.Millis, timer time.Duration) bool {
	if !s.Running {
		return false
	}
	played := s.Elapsed(now)
	if played > s.MaxPlayed {
		s.MaxPlayed = played
	}
	return timer > 0 && played >= timer
}

// Stop returns to Idle and describes the finished session. ok is false when
// no session was running.
func (s *Session) Stop(reason StopReason, now drill.Millis, cfg drill.Config) (rec Record, ok bool) {
	if !s.Running {
		return Record{}, false
	}
	played := s.Elapsed(now)
	if played > s.MaxPlayed {
		s.MaxPlayed = played
	}
	s.Running = false
	debug.Session("stopped ("+string(reason)+")", played)
	return Record{
		ID:        s.ID,
		StartedAt: s.startWall,
		Played:    played,
		Reason:    reason,
		Config:    cfg,
	}, true
}
