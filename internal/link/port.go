package link

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/cjeanneret/PongGo/internal/debug"
)

// readTimeout bounds each blocking read so Pump notices cancellation.
const readTimeout = 100 * time.Millisecond

// OpenPort opens the serial port connected to the link module (8N1).
func OpenPort(name string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	debug.Info("Serial port %s opened at %d baud", name, baud)
	return port, nil
}

// ModuleInitSteps is the AT sequence sent to an HM-10 style module before the
// link is used: a burst that wakes the module from sleep, the advertised name,
// then a reset so the name takes effect. Each step is followed by its pause.
func ModuleInitSteps(name string) []ModuleStep {
	return []ModuleStep{
		{Wait: 500 * time.Millisecond},
		{Send: strings.Repeat("x", 80), Wait: 100 * time.Millisecond},
		{Send: "AT+NAME" + name, Wait: 200 * time.Millisecond},
		{Send: "AT+RESET", Wait: 2500 * time.Millisecond},
	}
}

// ModuleStep is one write to the module followed by a pause.
type ModuleStep struct {
	Send string
	Wait time.Duration
}

// InitModule plays steps on w. It returns early if ctx is cancelled.
func InitModule(ctx context.Context, w io.Writer, steps []ModuleStep) error {
	for _, st := range steps {
		if st.Send != "" {
			debug.Link("at", st.Send)
			if _, err := io.WriteString(w, st.Send); err != nil {
				return fmt.Errorf("init link module: %w", err)
			}
		}
		if st.Wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(st.Wait):
		}
	}
	return nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// Pump reads r until ctx is cancelled or r fails, forwarding each chunk of
// bytes to out. It is the only goroutine touching the read side of the port.
func Pump(ctx context.Context, r io.Reader, out chan<- []byte) error {
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			debug.Trace("Link: read %d bytes", n)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read link: %w", err)
		}
	}
}
