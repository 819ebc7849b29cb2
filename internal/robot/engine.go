// Package robot runs the control loop: it owns the drill configuration, the
// session, the aiming head and the motors, and applies every input from the
// serial link, the console and the web dashboard on a single goroutine.
package robot

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/gpio"
	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
	"github.com/cjeanneret/PongGo/internal/logic/launcher"
	"github.com/cjeanneret/PongGo/internal/logic/motion"
	"github.com/cjeanneret/PongGo/internal/logic/session"
)

// maxDrain bounds how many queued inputs one tick applies.
const maxDrain = 64

// Head is the pan/tilt servo pair.
type Head interface {
	motion.Aimer
	SetCalibration(axis string, cal servo.Calibration) error
	Calibration(axis string) (servo.Calibration, error)
}

// CalibrationSaver persists servo calibrations.
type CalibrationSaver interface {
	SaveCalibration(axis string, cal servo.Calibration) error
}

// Options wires an Engine to its hardware and collaborators.
type Options struct {
	Config drill.Config
	Head   Head
	Motors [launcher.MotorCount]launcher.Motor // M1, M2, M3 flywheels then the feeder

	// GPIO and StatusPin feed the link liveness debounce. StatusPin 0
	// disables sampling; the link then relies on N, and D frames only.
	GPIO             gpio.Driver
	StatusPin        int
	StatusActiveHigh bool

	LinkOut        io.Writer
	ConnectHold    drill.Millis
	DisconnectHold drill.Millis
	TelemetryEvery drill.Millis
	FeederPullback drill.Millis

	Rand         motion.Rand
	History      chan<- session.Record // finished sessions, dropped when full
	Calibrations CalibrationSaver
}

// Engine is the control loop. Tick must only be called from one goroutine;
// other goroutines talk to the engine through Submit, LinkInput and Snapshot.
type Engine struct {
	cfg     drill.Config
	head    Head
	motion  *motion.Controller
	rig     *launcher.Rig
	session session.Session
	link    *link.Link

	gpio             gpio.Driver
	statusPin        int
	statusActiveHigh bool

	history      chan<- session.Record
	calibrations CalibrationSaver

	screen    Screen
	stick     motion.Stick
	now       drill.Millis
	ramping   bool
	motorTest bool

	inputs chan Input
	linkIn chan []byte

	mu   sync.RWMutex
	snap Snapshot
}

// NewEngine builds an engine and points the head at the configured targets.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Head == nil {
		return nil, fmt.Errorf("engine: no servo head")
	}
	for i, m := range opts.Motors {
		if m == nil {
			return nil, fmt.Errorf("engine: motor M%d missing", i+1)
		}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	connectHold, disconnectHold := opts.ConnectHold, opts.DisconnectHold
	if connectHold == 0 {
		connectHold = link.DefaultConnectHold
	}
	if disconnectHold == 0 {
		disconnectHold = link.DefaultDisconnectHold
	}

	cfg := opts.Config
	cfg.Clamp()
	m := opts.Motors
	e := &Engine{
		cfg:              cfg,
		head:             opts.Head,
		motion:           motion.NewController(opts.Head, rng),
		rig:              launcher.NewRig(m[0], m[1], m[2], m[3], opts.FeederPullback),
		gpio:             opts.GPIO,
		statusPin:        opts.StatusPin,
		statusActiveHigh: opts.StatusActiveHigh,
		history:          opts.History,
		calibrations:     opts.Calibrations,
		inputs:           make(chan Input, 32),
		linkIn:           make(chan []byte, 64),
	}
	e.link = link.New(peer{e}, opts.LinkOut, link.NewLiveness(connectHold, disconnectHold), opts.TelemetryEvery)

	if e.gpio != nil && e.statusPin > 0 {
		// Pull toward the idle level so a missing module reads as disconnected.
		mode := gpio.InputPullDown
		if !e.statusActiveHigh {
			mode = gpio.InputPullUp
		}
		if err := e.gpio.SetupPin(e.statusPin, mode); err != nil {
			return nil, fmt.Errorf("engine: status pin %d: %w", e.statusPin, err)
		}
	}
	if err := e.motion.AimTargets(&e.cfg); err != nil {
		return nil, fmt.Errorf("engine: initial aim: %w", err)
	}
	e.publish()
	return e, nil
}

// Submit queues an input for the next tick.
func (e *Engine) Submit(ctx context.Context, in Input) error {
	select {
	case e.inputs <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LinkInput is where the serial reader delivers raw bytes from the peer.
func (e *Engine) LinkInput() chan<- []byte {
	return e.linkIn
}

// Run drives Tick every period until ctx is cancelled, then stops any
// session and releases the motors.
func (e *Engine) Run(ctx context.Context, period time.Duration) error {
	debug.Info("Control loop running every %v", period)
	start := time.Now()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.halt()
			return nil
		case t := <-ticker.C:
			e.Tick(drill.MillisOf(t.Sub(start)))
		}
	}
}

// Tick runs one iteration of the control loop at time now.
func (e *Engine) Tick(now drill.Millis) {
	e.now = now
	e.drain()
	e.sampleLiveness()
	e.step()
	e.telemetry()
	e.publish()
}

func (e *Engine) drain() {
	for i := 0; i < maxDrain; i++ {
		select {
		case p := <-e.linkIn:
			e.link.Feed(p)
		case in := <-e.inputs:
			in.apply(e)
		default:
			return
		}
	}
}

func (e *Engine) sampleLiveness() {
	if e.gpio == nil || e.statusPin <= 0 {
		return
	}
	level, err := e.gpio.ReadPin(e.statusPin)
	if err != nil {
		debug.Error(fmt.Errorf("read status pin: %w", err))
		return
	}
	e.link.Sample((level == gpio.High) == e.statusActiveHigh, e.now)
}

func (e *Engine) step() {
	if !e.session.Running {
		if axis, ok := e.screen.PreviewAxis(); ok {
			if err := e.motion.Preview(&e.cfg, axis, e.now); err != nil {
				debug.Error(fmt.Errorf("preview %s: %w", axis, err))
			}
		}
		return
	}

	if e.session.Tick(e.now, drill.TimerDuration(e.cfg.TimerIndex)) {
		debug.Live("Timer %s elapsed", drill.TimerLabel(e.cfg.TimerIndex))
		e.stop(session.StopTimer)
		return
	}
	if err := e.motion.Step(&e.cfg, e.now, e.stick); err != nil {
		debug.Error(fmt.Errorf("aim: %w", err))
	}
	// The tick that started the session keeps the soft-start speeds.
	if e.ramping {
		e.ramping = false
		return
	}
	if err := e.rig.Update(&e.cfg, e.now); err != nil {
		debug.Error(err)
	}
}

func (e *Engine) telemetry() {
	if !e.session.Running {
		return
	}
	pan, tilt := e.motion.Live()
	e.link.ReportAim(pan, tilt, e.now)
}

func (e *Engine) start() {
	if e.motorTest {
		e.endMotorTest()
	}
	if rec, ok := e.session.Stop(session.StopRestart, e.now, e.cfg); ok {
		e.record(rec)
	}
	e.session.Start(e.now)
	e.motion.Seed(&e.cfg)
	if err := e.motion.Aim(); err != nil {
		debug.Error(fmt.Errorf("aim: %w", err))
	}
	if err := e.rig.Start(&e.cfg, e.now); err != nil {
		debug.Error(err)
	}
	e.ramping = true
	e.screen = ScreenRunning
}

func (e *Engine) stop(reason session.StopReason) {
	rec, ok := e.session.Stop(reason, e.now, e.cfg)
	if err := e.rig.Stop(); err != nil {
		debug.Error(err)
	}
	e.ramping = false
	e.motorTest = false
	e.screen = ScreenHome
	if ok {
		e.record(rec)
	}
}

func (e *Engine) halt() {
	if e.session.Running {
		e.stop(session.StopHalt)
	} else if err := e.rig.Stop(); err != nil {
		debug.Error(err)
	}
	e.publish()
	debug.Info("Control loop stopped, motors released")
}

func (e *Engine) record(rec session.Record) {
	if e.history == nil {
		return
	}
	select {
	case e.history <- rec:
	default:
		debug.Info("History queue full, session %s not saved", rec.ID)
	}
}

func (e *Engine) setScreen(s Screen) {
	if e.session.Running {
		debug.Verbose("Screen %s ignored while running", s)
		return
	}
	// Only start enters the running screen.
	if s == ScreenRunning {
		debug.Verbose("Screen %s refused while idle", s)
		return
	}
	if e.motorTest && s != ScreenSettingsMotor {
		e.endMotorTest()
	}
	e.screen = s
	if _, ok := s.PreviewAxis(); !ok {
		if err := e.motion.AimTargets(&e.cfg); err != nil {
			debug.Error(fmt.Errorf("aim: %w", err))
		}
	}
}

func (e *Engine) testMotor(which, speed int) {
	if e.session.Running {
		debug.Info("Motor test refused: session running")
		return
	}
	if err := e.rig.TestMotor(which, speed); err != nil {
		debug.Error(err)
		e.motorTest = false
		return
	}
	e.motorTest = which != 0 && speed != 0
	e.screen = ScreenSettingsMotor
}

func (e *Engine) endMotorTest() {
	if err := e.rig.Stop(); err != nil {
		debug.Error(err)
	}
	e.motorTest = false
}

func (e *Engine) calibrate(axis string, cal servo.Calibration) {
	if err := e.head.SetCalibration(axis, cal); err != nil {
		debug.Error(err)
		return
	}
	if e.calibrations != nil {
		if err := e.calibrations.SaveCalibration(axis, cal); err != nil {
			debug.Error(err)
		}
	}
	var err error
	if e.session.Running {
		err = e.motion.Aim()
	} else {
		err = e.motion.AimTargets(&e.cfg)
	}
	if err != nil {
		debug.Error(fmt.Errorf("aim: %w", err))
	}
	debug.Live("Servo %s calibrated %d/%d/%d", axis, cal.Min, cal.Mid, cal.Max)
}

// peer adapts the engine to the link protocol. Its methods run inside Tick.
type peer struct {
	e *Engine
}

func (p peer) StartSession() {
	p.e.start()
}

func (p peer) StopSession() {
	p.e.stop(session.StopPeer)
}

func (p peer) SetAim(pan, tilt float64) {
	e := p.e
	e.cfg.PanTarget = drill.ClampFloat(pan, -drill.AxisLimit, drill.AxisLimit)
	e.cfg.TiltTarget = drill.ClampFloat(tilt, -drill.AxisLimit, drill.AxisLimit)
	e.motion.SetLive(e.cfg.PanTarget, e.cfg.TiltTarget)
	if err := e.motion.Aim(); err != nil {
		debug.Error(fmt.Errorf("aim: %w", err))
	}
}

func (p peer) ApplyConfig(cfg drill.Config) {
	e := p.e
	e.cfg = cfg
	if !e.session.Running {
		if err := e.motion.AimTargets(&e.cfg); err != nil {
			debug.Error(fmt.Errorf("aim: %w", err))
		}
	}
}
