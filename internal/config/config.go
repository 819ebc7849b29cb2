package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 64 * 1024

// LinkConfig describes the serial link to the app's Bluetooth module.
type LinkConfig struct {
	Port             string `yaml:"port"`               // serial device, e.g. "/dev/serial0"
	Baud             int    `yaml:"baud"`               // module baud rate
	ModuleName       string `yaml:"module_name"`        // advertised name set with AT commands at startup; empty = skip
	StatusPin        int    `yaml:"status_pin"`         // BCM pin wired to the module STATE output. 0 = not used.
	StatusActiveLow  bool   `yaml:"status_active_low"`  // STATE reads LOW when a central is connected
	ConnectHoldMs    int    `yaml:"connect_hold_ms"`    // STATE must be steady this long to count as connected
	DisconnectHoldMs int    `yaml:"disconnect_hold_ms"` // STATE must be absent this long to drop the link
	TelemetryMs      int    `yaml:"telemetry_ms"`       // minimum interval between live-aim reports
}

// PWMConfig describes the PCA9685 board driving servos and motor duty.
type PWMConfig struct {
	Address int    `yaml:"address"` // I2C address, usually 0x40
	Device  string `yaml:"device"`  // I2C bus device
}

// ServoConfig holds one servo's channel and calibration, in degrees.
type ServoConfig struct {
	Channel    int     `yaml:"channel"`
	Min        int     `yaml:"min"`
	Mid        int     `yaml:"mid"`
	Max        int     `yaml:"max"`
	MinPulseUs float64 `yaml:"min_pulse_us"` // pulse at 0 degrees
	MaxPulseUs float64 `yaml:"max_pulse_us"` // pulse at 180 degrees
}

// ServosConfig holds the pan/tilt head.
type ServosConfig struct {
	Pan  ServoConfig `yaml:"pan"`
	Tilt ServoConfig `yaml:"tilt"`
}

// MotorConfig wires one DC motor: PWM channel for the duty, two H-bridge inputs.
type MotorConfig struct {
	Channel  int  `yaml:"channel"`
	In1Pin   int  `yaml:"in1_pin"`
	In2Pin   int  `yaml:"in2_pin"`
	Inverted bool `yaml:"inverted"`
}

// MotorsConfig holds the three flywheels and the feeder.
type MotorsConfig struct {
	M1     MotorConfig `yaml:"m1"`
	M2     MotorConfig `yaml:"m2"`
	M3     MotorConfig `yaml:"m3"`
	Feeder MotorConfig `yaml:"feeder"`
}

// TimingConfig holds the control loop timings.
type TimingConfig struct {
	TickMs           int `yaml:"tick_ms"`            // control loop period
	FeederPullbackMs int `yaml:"feeder_pullback_ms"` // feeder reverse window at session start
	StatusRefreshMs  int `yaml:"status_refresh_ms"`  // web/console status refresh
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel   int    `yaml:"debug_level"`   // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockHardware bool   `yaml:"mock_hardware"` // use mock GPIO/PWM (true=dev/test, false=real Raspberry Pi)
	Database     string `yaml:"database"`      // SQLite file for calibration and session history
}

// Config aggregates all application configuration.
type Config struct {
	Link     LinkConfig     `yaml:"link"`
	PWM      PWMConfig      `yaml:"pwm"`
	Servos   ServosConfig   `yaml:"servos"`
	Motors   MotorsConfig   `yaml:"motors"`
	Timing   TimingConfig   `yaml:"timing"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files inside a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Link.Baud <= 0 {
		c.Link.Baud = 9600 // HM-10 factory rate
	}
	if c.Link.ConnectHoldMs <= 0 {
		c.Link.ConnectHoldMs = 1500
	}
	if c.Link.DisconnectHoldMs <= 0 {
		c.Link.DisconnectHoldMs = 2000
	}
	if c.Link.TelemetryMs <= 0 {
		c.Link.TelemetryMs = 100
	}

	if c.PWM.Address == 0 {
		c.PWM.Address = 0x40
	}
	if c.PWM.Device == "" {
		c.PWM.Device = "/dev/i2c-1"
	}

	defaultServo(&c.Servos.Pan, ServoConfig{Channel: 0, Min: 15, Mid: 70, Max: 125})
	defaultServo(&c.Servos.Tilt, ServoConfig{Channel: 1, Min: 45, Mid: 100, Max: 120})

	// Unwired motors take the channels after the servos.
	for i, m := range []*MotorConfig{&c.Motors.M1, &c.Motors.M2, &c.Motors.M3, &c.Motors.Feeder} {
		if *m == (MotorConfig{}) {
			m.Channel = 2 + i
		}
	}

	if c.Timing.TickMs <= 0 {
		c.Timing.TickMs = 20
	}
	if c.Timing.FeederPullbackMs <= 0 {
		c.Timing.FeederPullbackMs = 500
	}
	if c.Timing.StatusRefreshMs <= 0 {
		c.Timing.StatusRefreshMs = 250
	}

	if c.Defaults.Database == "" {
		c.Defaults.Database = "ponggo.db"
	}
}

func defaultServo(s *ServoConfig, def ServoConfig) {
	if s.Min == 0 && s.Mid == 0 && s.Max == 0 {
		s.Min, s.Mid, s.Max = def.Min, def.Mid, def.Max
		if s.Channel == 0 {
			s.Channel = def.Channel
		}
	}
	if s.MinPulseUs <= 0 {
		s.MinPulseUs = 544
	}
	if s.MaxPulseUs <= 0 {
		s.MaxPulseUs = 2400
	}
}

func (c *Config) validate() error {
	if c.Link.Port == "" && !c.Defaults.MockHardware {
		return fmt.Errorf("link.port is required")
	}
	if len(c.Link.ModuleName) > 12 {
		return fmt.Errorf("link.module_name must be at most 12 characters, got %q", c.Link.ModuleName)
	}
	if c.PWM.Address < 0x03 || c.PWM.Address > 0x77 {
		return fmt.Errorf("pwm.address must be a 7-bit I2C address, got 0x%x", c.PWM.Address)
	}

	for name, s := range map[string]ServoConfig{"pan": c.Servos.Pan, "tilt": c.Servos.Tilt} {
		if s.Min < 0 || s.Max > 180 || s.Min > s.Mid || s.Mid > s.Max {
			return fmt.Errorf("servos.%s: need 0 <= min <= mid <= max <= 180, got %d/%d/%d", name, s.Min, s.Mid, s.Max)
		}
		if s.MinPulseUs >= s.MaxPulseUs {
			return fmt.Errorf("servos.%s: min_pulse_us must be below max_pulse_us", name)
		}
	}

	channels := map[int]string{}
	claim := func(name string, ch int) error {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("%s: pwm channel must be 0-15, got %d", name, ch)
		}
		if other, ok := channels[ch]; ok {
			return fmt.Errorf("%s: pwm channel %d already used by %s", name, ch, other)
		}
		channels[ch] = name
		return nil
	}
	if err := claim("servos.pan", c.Servos.Pan.Channel); err != nil {
		return err
	}
	if err := claim("servos.tilt", c.Servos.Tilt.Channel); err != nil {
		return err
	}
	for _, m := range c.motorList() {
		if err := claim("motors."+m.name, m.cfg.Channel); err != nil {
			return err
		}
		if !c.Defaults.MockHardware && (m.cfg.In1Pin <= 0 || m.cfg.In2Pin <= 0) {
			return fmt.Errorf("motors.%s: in1_pin and in2_pin are required", m.name)
		}
	}

	if c.Timing.TickMs > 1000 {
		return fmt.Errorf("timing.tick_ms must be <= 1000, got %d", c.Timing.TickMs)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be 0-4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

type namedMotor struct {
	name string
	cfg  MotorConfig
}

func (c *Config) motorList() []namedMotor {
	return []namedMotor{
		{"m1", c.Motors.M1},
		{"m2", c.Motors.M2},
		{"m3", c.Motors.M3},
		{"feeder", c.Motors.Feeder},
	}
}

// Tick returns the control loop period.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Timing.TickMs) * time.Millisecond
}

// FeederPullback returns the feeder reverse window at session start.
func (c *Config) FeederPullback() time.Duration {
	return time.Duration(c.Timing.FeederPullbackMs) * time.Millisecond
}

// StatusRefresh returns the UI status refresh interval.
func (c *Config) StatusRefresh() time.Duration {
	return time.Duration(c.Timing.StatusRefreshMs) * time.Millisecond
}

// ConnectHold returns the link connect debounce window.
func (c *Config) ConnectHold() time.Duration {
	return time.Duration(c.Link.ConnectHoldMs) * time.Millisecond
}

// DisconnectHold returns the link disconnect debounce window.
func (c *Config) DisconnectHold() time.Duration {
	return time.Duration(c.Link.DisconnectHoldMs) * time.Millisecond
}

// TelemetryInterval returns the minimum interval between live-aim reports.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(c.Link.TelemetryMs) * time.Millisecond
}
