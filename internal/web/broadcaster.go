package web

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/PongGo/internal/robot"
)

// LevelState marks events that carry an engine snapshot instead of a log line.
const LevelState = "state"

// StatusEvent represents a single status message for SSE.
type StatusEvent struct {
	Time  string          `json:"t"`
	Level string          `json:"l,omitempty"`
	Msg   string          `json:"msg,omitempty"`
	State json.RawMessage `json:"state,omitempty"`
}

// StatusBroadcaster distributes status messages to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	})
}

// BroadcastState sends an already encoded snapshot with level "state".
func (b *StatusBroadcaster) BroadcastState(state json.RawMessage) {
	b.send(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Level: LevelState,
		State: state,
	})
}

func (b *StatusBroadcaster) send(evt StatusEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with log.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}

// Snapshotter is anything that publishes engine snapshots.
type Snapshotter interface {
	Snapshot() robot.Snapshot
}

// RunStateFeed polls src every period and broadcasts the snapshot when it
// changed, ignoring the clock. It returns when ctx is cancelled.
func RunStateFeed(ctx context.Context, b *StatusBroadcaster, src Snapshotter, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			last = publishState(b, src.Snapshot(), last)
		}
	}
}

// publishState broadcasts snap unless it encodes like last, and returns the
// encoding to compare against next time.
func publishState(b *StatusBroadcaster, snap robot.Snapshot, last []byte) []byte {
	snap.Now = 0
	data, err := json.Marshal(snap)
	if err != nil || bytes.Equal(data, last) {
		return last
	}
	b.BroadcastState(data)
	return data
}
