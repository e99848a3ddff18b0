// Package pipeline streams bytes from a source through a conversion into a
// buffered sink and reports throughput once per second.
//
// A Pipeline is driven by a single goroutine. Each Step reads into one
// reusable buffer, renders the bytes with convert.Transform, appends the
// result to the sink and, when the window has elapsed, writes a rate line
// such as "w10, c5, b100, l2" to the report writer.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
)

// DefaultCapacity is the read and sink buffer size used when none is set.
const DefaultCapacity = 64

// ErrCapacity is returned by New for unusable buffer capacities.
var ErrCapacity = errors.New("pipeline: invalid capacity")

// Source produces bytes. When no data arrives within its own timeout it
// returns an error whose Timeout method reports true.
type Source interface {
	Read(p []byte) (int, error)
}

// Recorder observes pipeline activity, typically to export metrics.
type Recorder interface {
	ObserveChunk(n int, c convert.Counts)
	ObserveTimeout()
	ObserveReport(r Rates)
}

// Config controls a Pipeline.
type Config struct {
	// Capacity sizes both the read buffer and the sink buffer.
	Capacity int
	Mode     convert.Mode

	// CarryRemainder keeps trailing bytes of an incomplete numeric chunk
	// and prepends them to the next read instead of dropping them.
	CarryRemainder bool

	// FlushOnReport flushes the sink every time a report is written.
	FlushOnReport bool

	// Report receives one rate line per window. Defaults to os.Stderr.
	Report io.Writer

	Logger   *zap.Logger
	Recorder Recorder
}

// Pipeline is the streaming conversion loop.
type Pipeline struct {
	src   Source
	out   *bufio.Writer
	cfg   Config
	log   *zap.Logger
	buf   []byte
	carry int
	stats *Stats
	line  []byte
	now   func() time.Time
}

// New creates a pipeline reading from src and writing to sink.
func New(src Source, sink io.Writer, cfg Config) (*Pipeline, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrCapacity, cfg.Capacity)
	}
	if cfg.CarryRemainder && cfg.Capacity < cfg.Mode.Width() {
		return nil, fmt.Errorf("%w: %d is smaller than the %s chunk width %d",
			ErrCapacity, cfg.Capacity, cfg.Mode, cfg.Mode.Width())
	}
	if cfg.Report == nil {
		cfg.Report = os.Stderr
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pipeline{
		src: src,
		out: bufio.NewWriterSize(sink, cfg.Capacity),
		cfg: cfg,
		log: log,
		buf: make([]byte, cfg.Capacity),
		now: time.Now,
	}
	p.stats = NewStats(p.now())
	return p, nil
}

// Counters returns a copy of the current window's counters.
func (p *Pipeline) Counters() Stats {
	return *p.stats
}

// Step runs one read, transform, write and report cycle.
//
// A timed out read writes nothing and changes no counter, but the report
// check still runs. Any other read error is returned as a *ReadError
// before anything is written.
func (p *Pipeline) Step() error {
	n, err := p.src.Read(p.buf[p.carry:])
	switch {
	case err == nil:
	case IsTimeout(err):
		n = 0
		if p.cfg.Recorder != nil {
			p.cfg.Recorder.ObserveTimeout()
		}
	default:
		return &ReadError{Err: err}
	}

	if n > 0 {
		if err := p.convert(n); err != nil {
			return err
		}
	}
	return p.report()
}

func (p *Pipeline) convert(n int) error {
	data := p.buf[:p.carry+n]
	out, used, counts := convert.Transform(p.cfg.Mode, data)

	p.stats.Add(n, counts)
	if p.cfg.Recorder != nil {
		p.cfg.Recorder.ObserveChunk(n, counts)
	}

	if len(out) > 0 {
		if _, err := p.out.Write(out); err != nil {
			return &WriteError{Err: err}
		}
	}

	if p.cfg.CarryRemainder {
		p.carry = copy(p.buf, data[used:])
	}
	return nil
}

func (p *Pipeline) report() error {
	now := p.now()
	if !p.stats.Due(now) {
		return nil
	}
	r := p.stats.Rollover(now)

	p.line = append(r.AppendText(p.line[:0]), '\n')
	if _, err := p.cfg.Report.Write(p.line); err != nil {
		p.log.Warn("write report", zap.Error(err))
	}
	p.log.Debug("rates",
		zap.Float64("words", r.Words),
		zap.Float64("commas", r.Commas),
		zap.Float64("bytes", r.Bytes),
		zap.Float64("lines", r.Lines),
		zap.Duration("elapsed", r.Elapsed),
	)
	if p.cfg.Recorder != nil {
		p.cfg.Recorder.ObserveReport(r)
	}

	if p.cfg.FlushOnReport {
		if err := p.out.Flush(); err != nil {
			return &WriteError{Err: err}
		}
	}
	return nil
}

// Flush writes any buffered sink data.
func (p *Pipeline) Flush() error {
	if err := p.out.Flush(); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// Run steps until ctx is cancelled or a fatal error occurs, then flushes
// the sink. It returns nil after cancellation, including when the source
// failed because it was closed during shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Info("pipeline started",
		zap.Stringer("convert", p.cfg.Mode),
		zap.Int("capacity", p.cfg.Capacity),
		zap.Bool("carry", p.cfg.CarryRemainder),
	)
	for {
		if ctx.Err() != nil {
			return p.finish(nil)
		}
		if err := p.Step(); err != nil {
			var rerr *ReadError
			if errors.As(err, &rerr) && ctx.Err() != nil {
				return p.finish(nil)
			}
			return p.finish(err)
		}
	}
}

func (p *Pipeline) finish(err error) error {
	ferr := p.Flush()
	if err != nil {
		return err
	}
	if ferr == nil {
		p.log.Info("pipeline stopped")
	}
	return ferr
}
