package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	serial "github.com/luhtfiimanal/go-serial-stream"
	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
	"github.com/luhtfiimanal/go-serial-stream/internal/logging"
	"github.com/luhtfiimanal/go-serial-stream/internal/pipeline"
	"github.com/luhtfiimanal/go-serial-stream/internal/sink"
)

// EnvPrefix prefixes every environment variable, e.g. SERIALSTREAM_DEVICE.
const EnvPrefix = "SERIALSTREAM"

// Config holds all serialstream configuration.
type Config struct {
	Device      string        `envconfig:"DEVICE"`
	BaudRate    int           `envconfig:"BAUD_RATE" default:"115200"`
	DataBits    int           `envconfig:"DATA_BITS" default:"8"`
	FlowControl string        `envconfig:"FLOW_CONTROL" default:"none"`
	Parity      string        `envconfig:"PARITY" default:"none"`
	StopBits    int           `envconfig:"STOP_BITS" default:"1"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"100ms"`

	Mode       string `envconfig:"MODE" default:"stdout"`
	OutputFile string `envconfig:"OUTPUT_FILE" default:"output.txt"`
	Append     bool   `envconfig:"APPEND" default:"true"`

	Capacity int          `envconfig:"CAPACITY" default:"64"`
	Convert  convert.Mode `envconfig:"CONVERT" default:"raw"`
	Carry    bool         `envconfig:"CARRY" default:"false"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogDev      bool   `envconfig:"LOG_DEV" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		BaudRate:    115200,
		DataBits:    8,
		FlowControl: "none",
		Parity:      "none",
		StopBits:    1,
		Timeout:     100 * time.Millisecond,
		Mode:        string(sink.Stdout),
		OutputFile:  "output.txt",
		Append:      true,
		Capacity:    pipeline.DefaultCapacity,
		Convert:     convert.Raw,
		LogLevel:    "info",
	}
}

// Validate checks the configuration for values the tool cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Device == "" {
		errs = append(errs, errors.New("device is required"))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		errs = append(errs, fmt.Errorf("data bits must be 5..8, got %d", c.DataBits))
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		errs = append(errs, fmt.Errorf("stop bits must be 1 or 2, got %d", c.StopBits))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if _, err := ParseParity(c.Parity); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseFlowControl(c.FlowControl); err != nil {
		errs = append(errs, err)
	}
	if _, err := sink.ParseKind(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Carry && c.Capacity < c.Convert.Width() {
		errs = append(errs, fmt.Errorf("capacity %d is smaller than the %s chunk width %d",
			c.Capacity, c.Convert, c.Convert.Width()))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Serial returns the port configuration.
func (c *Config) Serial() (serial.Config, error) {
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return serial.Config{}, err
	}
	flow, err := ParseFlowControl(c.FlowControl)
	if err != nil {
		return serial.Config{}, err
	}
	return serial.Config{
		Device:      c.Device,
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		Parity:      parity,
		StopBits:    c.StopBits,
		FlowControl: flow,
		ReadTimeout: c.Timeout,
	}, nil
}

// Sink returns the output options.
func (c *Config) Sink() (sink.Options, error) {
	kind, err := sink.ParseKind(c.Mode)
	if err != nil {
		return sink.Options{}, err
	}
	return sink.Options{Kind: kind, Path: c.OutputFile, Append: c.Append}, nil
}

// Pipeline returns the conversion settings. Report, logger and recorder
// are left for the caller.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Capacity:       c.Capacity,
		Mode:           c.Convert,
		CarryRemainder: c.Carry,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Development: c.LogDev}
}

// ParseParity parses none, odd or even.
func ParseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return serial.ParityNone, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	case "even", "e":
		return serial.ParityEven, nil
	}
	return serial.ParityNone, fmt.Errorf("invalid parity %q", s)
}

// ParseFlowControl parses none, software/sw or hardware/hw.
func ParseFlowControl(s string) (serial.FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return serial.FlowNone, nil
	case "software", "sw":
		return serial.FlowSoftware, nil
	case "hardware", "hw":
		return serial.FlowHardware, nil
	}
	return serial.FlowNone, fmt.Errorf("invalid flow control %q", s)
}
