package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-stream"
	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
	"github.com/luhtfiimanal/go-serial-stream/internal/sink"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	want := Default()
	require.Equal(t, want, cfg)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERIALSTREAM_DEVICE", "/dev/ttyACM0")
	t.Setenv("SERIALSTREAM_BAUD_RATE", "9600")
	t.Setenv("SERIALSTREAM_PARITY", "EVEN")
	t.Setenv("SERIALSTREAM_TIMEOUT", "250ms")
	t.Setenv("SERIALSTREAM_CONVERT", "USHR")
	t.Setenv("SERIALSTREAM_CAPACITY", "4096")
	t.Setenv("SERIALSTREAM_MODE", "file")
	t.Setenv("SERIALSTREAM_APPEND", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, convert.UInt16, cfg.Convert)
	require.Equal(t, 4096, cfg.Capacity)

	sc, err := cfg.Serial()
	require.NoError(t, err)
	require.Equal(t, serial.Config{
		Device:      "/dev/ttyACM0",
		BaudRate:    9600,
		DataBits:    8,
		Parity:      serial.ParityEven,
		StopBits:    1,
		ReadTimeout: 250 * time.Millisecond,
	}, sc)

	so, err := cfg.Sink()
	require.NoError(t, err)
	require.Equal(t, sink.Options{Kind: sink.File, Path: "output.txt", Append: false}, so)

	pc := cfg.Pipeline()
	require.Equal(t, convert.UInt16, pc.Mode)
	require.Equal(t, 4096, pc.Capacity)
}

func TestLoad_BadConvert(t *testing.T) {
	t.Setenv("SERIALSTREAM_CONVERT", "octal")
	_, err := Load()
	require.ErrorIs(t, err, convert.ErrUnknownMode)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Device = "/dev/ttyUSB0"
	require.NoError(t, cfg.Validate())

	tests := map[string]func(c *Config){
		"no device":     func(c *Config) { c.Device = "" },
		"zero capacity": func(c *Config) { c.Capacity = 0 },
		"data bits":     func(c *Config) { c.DataBits = 9 },
		"stop bits":     func(c *Config) { c.StopBits = 3 },
		"parity":        func(c *Config) { c.Parity = "mark" },
		"flow":          func(c *Config) { c.FlowControl = "rts" },
		"mode":          func(c *Config) { c.Mode = "socket" },
		"timeout":       func(c *Config) { c.Timeout = -time.Second },
		"log level":     func(c *Config) { c.LogLevel = "loud" },
		"carry width": func(c *Config) {
			c.Convert = convert.Float32
			c.Carry = true
			c.Capacity = 2
		},
	}
	for name, mutate := range tests {
		c := *cfg
		mutate(&c)
		require.Error(t, c.Validate(), name)
	}
}

func TestParseParityAndFlow(t *testing.T) {
	p, err := ParseParity("Odd")
	require.NoError(t, err)
	require.Equal(t, serial.ParityOdd, p)

	f, err := ParseFlowControl("HW")
	require.NoError(t, err)
	require.Equal(t, serial.FlowHardware, f)

	f, err = ParseFlowControl("software")
	require.NoError(t, err)
	require.Equal(t, serial.FlowSoftware, f)
}
