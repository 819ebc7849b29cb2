package link

import "strings"

// Command is one entry of the dispatch table. Commands are tried in order;
// Run returns true when the line is fully consumed.
type Command struct {
	Name        string
	Match       func(line string) bool
	Run         func(l *Link, line string) bool
	Description string
}

func firstByte(b byte) func(string) bool {
	return func(line string) bool { return line[0] == b }
}

var (
	StopCommand = &Command{
		Name: "stop",
		Match: func(line string) bool {
			return line[0] == 'P' || strings.HasPrefix(line, "STOP")
		},
		Run: func(l *Link, line string) bool {
			if line == "P" || strings.HasPrefix(line, "STOP") {
				l.ctrl.StopSession()
			}
			return true
		},
		Description: "P or STOP: end the session and return to the home screen. Other P lines are dropped.",
	}
	StartCommand = &Command{
		Name:  "start",
		Match: firstByte('S'),
		Run: func(l *Link, line string) bool {
			if line == "S" || strings.HasPrefix(line, "START") {
				l.ctrl.StartSession()
				l.reply(ReplyStarted)
			}
			return true
		},
		Description: "S or START: begin a session. Other S lines are dropped.",
	}
	DisconnectCommand = &Command{
		Name: "disconnect",
		Match: func(line string) bool {
			return line == "D" || strings.HasPrefix(line, "DISCONNECT")
		},
		Run: func(l *Link, line string) bool {
			l.Disconnect()
			return true
		},
		Description: "D or DISCONNECT: clear the link state.",
	}
	IdentifyCommand = &Command{
		Name: "identify",
		Match: func(line string) bool {
			return strings.Contains(line, "N,")
		},
		Run: func(l *Link, line string) bool {
			name, _ := ParseName(line)
			l.identify(name)
			// Aim and config lines carrying a name are still processed.
			return line[0] != 'A' && line[0] != 'C'
		},
		Description: "N,<name> anywhere in a line: mark connected and record the device name.",
	}
	AimCommand = &Command{
		Name: "aim",
		Match: func(line string) bool {
			return strings.HasPrefix(line, "A,")
		},
		Run: func(l *Link, line string) bool {
			pan, tilt := ParseAim(line)
			l.ctrl.SetAim(pan, tilt)
			return true
		},
		Description: "A,<pan*1000>,<tilt*1000>: set the live aim and the preview targets.",
	}
	ConfigCommand = &Command{
		Name: "config",
		Match: func(line string) bool {
			return strings.Contains(line, configMarker)
		},
		Run: func(l *Link, line string) bool {
			l.applyConfigFrame(line)
			return true
		},
		Description: "<C,f0,...,f25>: replace the drill configuration.",
	}
)

// StopCommand is listed before StartCommand so "STOP" is not taken for an S line.
var commands = []*Command{
	StopCommand,
	StartCommand,
	DisconnectCommand,
	IdentifyCommand,
	AimCommand,
	ConfigCommand,
}

// Commands returns the dispatch table in evaluation order.
func Commands() []*Command {
	return commands
}
