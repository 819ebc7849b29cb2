package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/PongGo/internal/config"
	"github.com/cjeanneret/PongGo/internal/debug"
	"github.com/cjeanneret/PongGo/internal/hw/gpio"
	"github.com/cjeanneret/PongGo/internal/hw/motor"
	"github.com/cjeanneret/PongGo/internal/hw/pwm"
	"github.com/cjeanneret/PongGo/internal/hw/servo"
	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
	"github.com/cjeanneret/PongGo/internal/logic/launcher"
	"github.com/cjeanneret/PongGo/internal/logic/session"
	"github.com/cjeanneret/PongGo/internal/robot"
	"github.com/cjeanneret/PongGo/internal/store"
	"github.com/cjeanneret/PongGo/internal/tui"
	"github.com/cjeanneret/PongGo/internal/web"
)

// historyQueue is how many finished sessions may wait for the database.
const historyQueue = 16

// flags holds the command line.
type flags struct {
	configPath string
	web        *webPortFlag
	console    bool
	port       string
	mock       bool
	listPorts  bool
}

func main() {
	// CLI flags
	f := flags{web: &webPortFlag{defaultPort: 8080}}
	flag.Var(f.web, "web", "start the dashboard on port; -web= for default 8080, -web 8980 for custom port")
	flag.StringVar(&f.configPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.BoolVar(&f.console, "tui", false, "run the operator console in this terminal")
	flag.StringVar(&f.port, "port", "", "override link.port (serial device of the Bluetooth module)")
	flag.BoolVar(&f.mock, "mock", false, "force mock GPIO and PWM drivers")
	flag.BoolVar(&f.listPorts, "list-ports", false, "list serial ports and exit")
	flag.Parse()

	if f.listPorts {
		ports, err := link.ListPorts()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, f); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, f flags) error {
	// Load configuration
	if err := config.ValidateConfigPath(f.configPath); err != nil {
		return fmt.Errorf("config path: %w", err)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	applyFlags(cfg, f)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	if f.console {
		// The console owns the terminal; logs go to a file instead.
		logFile, err := tea.LogToFile("ponggo.log", "ponggo")
		if err != nil {
			return fmt.Errorf("open console log: %w", err)
		}
		defer logFile.Close()
		debug.SetOutput(logFile)
	}
	debug.Section("Initialization")
	debug.Value("Config path", f.configPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock hardware", cfg.Defaults.MockHardware)

	debug.Step(1, "Initializing GPIO and PWM drivers")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockHardware)
	if err != nil {
		return fmt.Errorf("init GPIO failed: %w", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()
	pwmDriver, err := pwm.NewDriver(cfg.Defaults.MockHardware, byte(cfg.PWM.Address), cfg.PWM.Device)
	if err != nil {
		return fmt.Errorf("init PWM failed: %w", err)
	}
	defer func() {
		if err := pwmDriver.Close(); err != nil {
			log.Printf("closing PWM driver failed: %v", err)
		}
	}()

	debug.Step(2, "Opening database")
	db, err := store.Open(cfg.Defaults.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	debug.Step(3, "Initializing servos and motors")
	head, err := newHead(pwmDriver, cfg, db)
	if err != nil {
		return err
	}
	var motors [launcher.MotorCount]launcher.Motor
	for i, mc := range motorConfigs(cfg) {
		m, err := motor.NewMotor(gpioDriver, pwmDriver, mc)
		if err != nil {
			return err
		}
		debug.PrintStruct("Motor "+mc.Name, mc)
		motors[i] = m
	}

	debug.Step(4, "Opening link")
	linkPort, err := openLink(ctx, cfg)
	if err != nil {
		return err
	}
	if linkPort != nil {
		defer linkPort.Close()
	}

	debug.Step(5, "Starting control loop")
	history := make(chan session.Record, historyQueue)
	opts := robot.Options{
		Config:           drill.Default(),
		Head:             head,
		Motors:           motors,
		GPIO:             gpioDriver,
		StatusPin:        cfg.Link.StatusPin,
		StatusActiveHigh: !cfg.Link.StatusActiveLow,
		ConnectHold:      drill.MillisOf(cfg.ConnectHold()),
		DisconnectHold:   drill.MillisOf(cfg.DisconnectHold()),
		TelemetryEvery:   drill.MillisOf(cfg.TelemetryInterval()),
		FeederPullback:   drill.MillisOf(cfg.FeederPullback()),
		History:          history,
		Calibrations:     db,
	}
	if linkPort != nil {
		opts.LinkOut = linkPort
	}
	engine, err := robot.NewEngine(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Closing history after the final stop lets the writer drain and exit.
		defer close(history)
		return engine.Run(gctx, cfg.Tick())
	})
	g.Go(func() error {
		return db.RunHistoryWriter(context.Background(), history)
	})
	if linkPort != nil {
		g.Go(func() error {
			return link.Pump(gctx, linkPort, engine.LinkInput())
		})
	}

	if port := f.web.port(); port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		if !f.console {
			debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, engine, db)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			return web.RunStateFeed(gctx, broadcaster, engine, cfg.StatusRefresh())
		})
	}

	if f.console {
		g.Go(func() error {
			p := tea.NewProgram(tui.NewModel(engine, cfg.StatusRefresh()), tea.WithAltScreen(), tea.WithContext(gctx))
			_, err := p.Run()
			// Quitting the console shuts everything down.
			cancel()
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("console: %w", err)
			}
			return nil
		})
	}

	debug.Section("Running")
	err = g.Wait()
	debug.Summary("PongGo stopped")
	return err
}

// openLink opens the serial port and names the module. It returns nil when no
// port is configured, or when the port is missing on mock hardware.
func openLink(ctx context.Context, cfg *config.Config) (io.ReadWriteCloser, error) {
	if cfg.Link.Port == "" {
		debug.Info("No link port configured, the app link is disabled")
		return nil, nil
	}
	port, err := link.OpenPort(cfg.Link.Port, cfg.Link.Baud)
	if err != nil {
		if cfg.Defaults.MockHardware {
			debug.Error(err)
			debug.Info("Mock hardware: running without the app link")
			return nil, nil
		}
		return nil, err
	}
	if cfg.Link.ModuleName != "" {
		if err := link.InitModule(ctx, port, link.ModuleInitSteps(cfg.Link.ModuleName)); err != nil {
			port.Close()
			return nil, err
		}
		debug.Info("Link module named %s", cfg.Link.ModuleName)
	}
	return port, nil
}

// applyFlags lets command line flags override the configuration file.
func applyFlags(cfg *config.Config, f flags) {
	if f.port != "" {
		cfg.Link.Port = f.port
	}
	if f.mock {
		cfg.Defaults.MockHardware = true
	}
}

// motorConfigs lists the flywheels then the feeder, in launcher order.
func motorConfigs(cfg *config.Config) [launcher.MotorCount]motor.Config {
	conv := func(name string, m config.MotorConfig) motor.Config {
		return motor.Config{Name: name, Channel: m.Channel, In1Pin: m.In1Pin, In2Pin: m.In2Pin, Inverted: m.Inverted}
	}
	return [launcher.MotorCount]motor.Config{
		conv("M1", cfg.Motors.M1),
		conv("M2", cfg.Motors.M2),
		conv("M3", cfg.Motors.M3),
		conv("feeder", cfg.Motors.Feeder),
	}
}

// calibrationSource returns a saved calibration for an axis, if any.
type calibrationSource interface {
	LoadCalibration(axis string) (servo.Calibration, bool, error)
}

// newHead builds the pan/tilt pair. A calibration saved in the database wins
// over the one in the configuration file.
func newHead(p pwm.Driver, cfg *config.Config, saved calibrationSource) (*servo.Pair, error) {
	build := func(axis string, sc config.ServoConfig) (*servo.Servo, error) {
		cal := servo.Calibration{Min: sc.Min, Mid: sc.Mid, Max: sc.Max}
		if saved != nil {
			stored, ok, err := saved.LoadCalibration(axis)
			if err != nil {
				return nil, err
			}
			if ok {
				debug.Info("Servo %s: using saved calibration %d/%d/%d", axis, stored.Min, stored.Mid, stored.Max)
				cal = stored
			}
		}
		return servo.NewServo(p, axis, sc.Channel, cal, pwm.PulseRange{MinUS: sc.MinPulseUs, MaxUS: sc.MaxPulseUs})
	}

	pan, err := build(servo.AxisPan, cfg.Servos.Pan)
	if err != nil {
		return nil, err
	}
	tilt, err := build(servo.AxisTilt, cfg.Servos.Tilt)
	if err != nil {
		return nil, err
	}
	return &servo.Pair{Pan: pan, Tilt: tilt}, nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
