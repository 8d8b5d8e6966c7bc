// Package config loads the relay timer's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/eeprom"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/serial"
)

// DefaultPath is where the daemon looks for its config file.
const DefaultPath = "/etc/relay-timer.yaml"

// Profiles.
const (
	ProfileRelease = "release"
	ProfileDebug   = "debug"
)

// StdoutDevice sends diagnostics to standard output instead of a UART.
const StdoutDevice = "-"

// Config is the full daemon configuration.
type Config struct {
	Profile   string          `yaml:"profile"`
	Delay     DelayConfig     `yaml:"delay"`
	Inputs    InputsConfig    `yaml:"inputs"`
	Pins      PinsConfig      `yaml:"pins"`
	Indicator IndicatorConfig `yaml:"indicator"`
	EEPROM    EEPROMConfig    `yaml:"eeprom"`
	Serial    SerialConfig    `yaml:"serial"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// DelayConfig bounds the operator-adjustable delay.
type DelayConfig struct {
	DefaultMs uint32 `yaml:"default_ms"`
	MinMs     uint32 `yaml:"min_ms"`
	MaxMs     uint32 `yaml:"max_ms"`
	StepMs    uint32 `yaml:"step_ms"`
	WiggleUs  uint32 `yaml:"wiggle_us"`
}

// InputsConfig applies to all four button roles.
type InputsConfig struct {
	// ActiveLevel is "high" or "low".
	ActiveLevel string        `yaml:"active_level"`
	Settle      time.Duration `yaml:"settle"`
	Release     time.Duration `yaml:"release"`
	Poll        time.Duration `yaml:"poll"`
}

// PinsConfig holds line offsets on Chip.
type PinsConfig struct {
	Chip      string `yaml:"chip"`
	Relay     int    `yaml:"relay"`
	Activate  int    `yaml:"activate"`
	Cancel    int    `yaml:"cancel"`
	Increment int    `yaml:"increment"`
	Decrement int    `yaml:"decrement"`
}

// IndicatorConfig configures the status light. Pin offsets of -1 leave that
// channel unwired.
type IndicatorConfig struct {
	Intensity   uint8         `yaml:"intensity"`
	BlinkCycles int           `yaml:"blink_cycles"`
	BlinkPeriod time.Duration `yaml:"blink_period"`
	RedPin      int           `yaml:"red_pin"`
	GreenPin    int           `yaml:"green_pin"`
	BluePin     int           `yaml:"blue_pin"`
}

// EEPROM kinds.
const (
	EEPROMFile   = "file"
	EEPROMDevice = "device"
)

// EEPROMConfig selects the settings medium.
type EEPROMConfig struct {
	Kind         string        `yaml:"kind"`
	Path         string        `yaml:"path"`
	Address      uint16        `yaml:"address"`
	Size         int           `yaml:"size"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// SerialConfig selects the diagnostics sink.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// MQTTConfig enables remote reporting when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	// Indicator mirrors the status light to <prefix>/indicator.
	Indicator bool `yaml:"indicator"`
}

// HTTPConfig enables the status server when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the release configuration.
func Default() Config {
	return Config{
		Profile: ProfileRelease,
		Delay: DelayConfig{
			DefaultMs: 7500,
			MinMs:     100,
			MaxMs:     50000,
			StepMs:    100,
			WiggleUs:  500,
		},
		Inputs: InputsConfig{
			ActiveLevel: "high",
			Settle:      10 * time.Millisecond,
			Release:     100 * time.Millisecond,
			Poll:        time.Millisecond,
		},
		Pins: PinsConfig{
			Chip:      "gpiochip0",
			Relay:     gpio.DefaultPinRelay,
			Activate:  gpio.DefaultPinActivate,
			Cancel:    gpio.DefaultPinCancel,
			Increment: gpio.DefaultPinIncrement,
			Decrement: gpio.DefaultPinDecrement,
		},
		Indicator: IndicatorConfig{
			Intensity:   10,
			BlinkCycles: 5,
			BlinkPeriod: 100 * time.Millisecond,
			RedPin:      5,
			GreenPin:    6,
			BluePin:     13,
		},
		EEPROM: EEPROMConfig{
			Kind:         EEPROMFile,
			Path:         "/var/lib/relay-timer/eeprom.img",
			Address:      0x7FF0,
			Size:         eeprom.DefaultSize,
			PingInterval: 100 * time.Millisecond,
		},
		Serial: SerialConfig{
			Device: "/dev/serial0",
			Baud:   19200,
		},
		MQTT: MQTTConfig{
			ClientID:    "relay-timer",
			TopicPrefix: "relay-timer",
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies the profile and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = cfg.ApplyProfile()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyProfile returns a copy with the debug profile's overrides: diagnostics
// on stdout at 115200 baud and debug logging.
func (c Config) ApplyProfile() Config {
	if c.Profile == ProfileDebug {
		c.Serial.Device = StdoutDevice
		c.Serial.Baud = 115200
		c.Log.Level = "debug"
	}
	return c
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Profile {
	case ProfileRelease, ProfileDebug:
	default:
		add("profile: unknown %q", c.Profile)
	}

	d := c.Delay
	if d.MinMs == 0 {
		add("delay.min_ms: must be positive")
	}
	if d.MinMs > d.MaxMs {
		add("delay.min_ms %d > delay.max_ms %d", d.MinMs, d.MaxMs)
	}
	if d.DefaultMs < d.MinMs || d.DefaultMs > d.MaxMs {
		add("delay.default_ms %d outside [%d, %d]", d.DefaultMs, d.MinMs, d.MaxMs)
	}
	if d.StepMs == 0 {
		add("delay.step_ms: must be positive")
	}
	if d.WiggleUs == 0 {
		add("delay.wiggle_us: must be positive")
	}
	if uint64(d.WiggleUs)*10 > uint64(d.MinMs)*1000 {
		add("delay.wiggle_us %d: must be under a tenth of delay.min_ms", d.WiggleUs)
	}
	if c.MaxDelay()+c.Wiggle() >= clock.MaxSpan {
		add("delay.max_ms %d: exceeds counter range", d.MaxMs)
	}

	switch c.Inputs.ActiveLevel {
	case "high", "low":
	default:
		add("inputs.active_level: want high or low, got %q", c.Inputs.ActiveLevel)
	}
	if c.Inputs.Poll <= 0 {
		add("inputs.poll: must be positive")
	}

	pins := map[string]int{
		"relay":     c.Pins.Relay,
		"activate":  c.Pins.Activate,
		"cancel":    c.Pins.Cancel,
		"increment": c.Pins.Increment,
		"decrement": c.Pins.Decrement,
	}
	for name, off := range map[string]int{"red_pin": c.Indicator.RedPin, "green_pin": c.Indicator.GreenPin, "blue_pin": c.Indicator.BluePin} {
		if off >= 0 {
			pins["indicator."+name] = off
		}
	}
	seen := map[int]string{}
	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		off := pins[name]
		if off < 0 {
			add("pins.%s: negative offset %d", name, off)
			continue
		}
		if other, ok := seen[off]; ok {
			add("pins.%s: offset %d already used by %s", name, off, other)
			continue
		}
		seen[off] = name
	}

	if c.Indicator.BlinkCycles <= 0 {
		add("indicator.blink_cycles: must be positive")
	}
	if c.Indicator.BlinkPeriod <= 0 {
		add("indicator.blink_period: must be positive")
	}

	switch c.EEPROM.Kind {
	case EEPROMFile, EEPROMDevice:
	default:
		add("eeprom.kind: want file or device, got %q", c.EEPROM.Kind)
	}
	if c.EEPROM.Path == "" {
		add("eeprom.path: required")
	}
	if int(c.EEPROM.Address)+eeprom.WordSize > c.EEPROM.Size {
		add("eeprom.address 0x%04x: past end of %d byte medium", c.EEPROM.Address, c.EEPROM.Size)
	}
	if c.EEPROM.PingInterval <= 0 {
		add("eeprom.ping_interval: must be positive")
	}

	if c.Serial.Device == "" {
		add("serial.device: required (use %q for stdout)", StdoutDevice)
	}
	if !serial.Supported(c.Serial.Baud) {
		add("serial.baud: unsupported rate %d", c.Serial.Baud)
	}

	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		add("mqtt.topic_prefix: required when mqtt.broker is set")
	}

	return errors.Join(errs...)
}

// Wiggle returns the deadline tolerance.
func (c Config) Wiggle() time.Duration {
	return time.Duration(c.Delay.WiggleUs) * time.Microsecond
}

// MaxDelay returns the upper delay bound.
func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.Delay.MaxMs) * time.Millisecond
}

// ActiveLow reports whether inputs are pressed when low.
func (c Config) ActiveLow() bool {
	return c.Inputs.ActiveLevel == "low"
}
