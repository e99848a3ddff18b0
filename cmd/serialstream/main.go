// Command serialstream streams a serial device to stdout or a file,
// optionally converting the bytes to text, and prints throughput once per
// second on stderr.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	serial "github.com/luhtfiimanal/go-serial-stream"
	"github.com/luhtfiimanal/go-serial-stream/internal/config"
	"github.com/luhtfiimanal/go-serial-stream/internal/logging"
	"github.com/luhtfiimanal/go-serial-stream/internal/metrics"
	"github.com/luhtfiimanal/go-serial-stream/internal/pipeline"
	"github.com/luhtfiimanal/go-serial-stream/internal/sink"
)

const long = `Stream a serial port to stdout or a file.

String values are case insensitive. Every option can also be set through the
environment with the SERIALSTREAM_ prefix, e.g. SERIALSTREAM_BAUD_RATE=9600.

Conversions (--convert), all rendered as ASCII text:
  raw    no conversion
  hex    every byte as hex
  bin    every byte as binary
  int    every 4 bytes as a little-endian 32 bit integer
  shr    every 2 bytes as a little-endian 16 bit integer
  uint   unsigned variant of int
  ushr   unsigned variant of shr
  flt    every 4 bytes as a 32 bit float

Once per second a line "w<words/s>, c<commas/s>, b<bytes/s>, l<lines/s>"
is printed on stderr.`

func main() {
	if err := newRootCmd(os.Stderr).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(status io.Writer) *cobra.Command {
	cfg, loadErr := config.Load()
	if cfg == nil {
		cfg = config.Default()
	}
	var timeoutMS int64

	cmd := &cobra.Command{
		Use:          "serialstream",
		Short:        "Stream and convert serial port data",
		Long:         long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if loadErr != nil {
				return loadErr
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = time.Duration(timeoutMS) * time.Millisecond
			}
			return run(cmd.Context(), cfg, status)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Device, "port", "p", cfg.Device, "serial port (/dev/tty*)")
	f.IntVarP(&cfg.BaudRate, "baud-rate", "b", cfg.BaudRate, "baud rate")
	f.IntVarP(&cfg.DataBits, "data-bits", "d", cfg.DataBits, "data bits (5, 6, 7, 8)")
	f.StringVarP(&cfg.FlowControl, "flow-control", "F", cfg.FlowControl, "flow control (none, sw, hw)")
	f.StringVarP(&cfg.Parity, "parity", "P", cfg.Parity, "parity (none, odd, even)")
	f.IntVarP(&cfg.StopBits, "stop-bits", "s", cfg.StopBits, "stop bits (1, 2)")
	f.Int64VarP(&timeoutMS, "timeout", "T", cfg.Timeout.Milliseconds(), "read timeout in milliseconds, 0 waits forever")
	f.StringVarP(&cfg.Mode, "mode", "m", cfg.Mode, "output mode (stdout, file)")
	f.StringVarP(&cfg.OutputFile, "output-file", "o", cfg.OutputFile, "file to write to with --mode file")
	f.BoolVarP(&cfg.Append, "append", "a", cfg.Append, "append to the output file instead of truncating it")
	f.IntVarP(&cfg.Capacity, "capacity", "C", cfg.Capacity,
		"read and write buffer size; small values show data live, large values suit files and fast devices")
	f.VarP(&cfg.Convert, "convert", "c", "conversion (raw, hex, bin, int, uint, shr, ushr, flt)")
	f.BoolVar(&cfg.Carry, "carry", cfg.Carry, "carry incomplete numeric chunks into the next read")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.BoolVar(&cfg.LogDev, "log-dev", cfg.LogDev, "human readable console logs")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, status io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	defer log.Sync()

	sc, err := cfg.Serial()
	if err != nil {
		return err
	}
	so, err := cfg.Sink()
	if err != nil {
		return err
	}

	out, err := sink.Open(so)
	if err != nil {
		return err
	}
	defer out.Close()
	log.Debug("sink opened",
		zap.String("kind", string(out.Kind)),
		zap.String("name", out.Name),
		zap.Bool("interactive", out.Interactive),
	)

	port, err := serial.Open(sc)
	if err != nil {
		log.Error("could not open the serial port", zap.String("device", sc.Device), zap.Error(err))
		return err
	}
	defer port.Close()
	log.Info("port opened",
		zap.String("device", sc.Device),
		zap.Int("baud", sc.BaudRate),
		zap.Int("data_bits", sc.DataBits),
		zap.String("parity", cfg.Parity),
		zap.Int("stop_bits", sc.StopBits),
		zap.String("flow_control", cfg.FlowControl),
		zap.Duration("timeout", sc.ReadTimeout),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Unblock a pending read on shutdown.
		<-ctx.Done()
		port.Close()
	}()

	pc := cfg.Pipeline()
	pc.Report = status
	pc.Logger = log
	pc.FlushOnReport = out.Interactive
	if cfg.MetricsAddr != "" {
		m := metrics.New()
		pc.Recorder = m
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	p, err := pipeline.New(port, out, pc)
	if err != nil {
		return err
	}
	if err := p.Run(ctx); err != nil {
		log.Error("streaming stopped", zap.Error(err))
		return err
	}
	log.Info("shutdown")
	return nil
}
