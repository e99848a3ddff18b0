package pipeline

import (
	"strconv"
	"time"

	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
)

// Window is the length of one reporting window.
const Window = time.Second

// Stats accumulates counters over one reporting window.
type Stats struct {
	Words  uint64
	Commas uint64
	Bytes  uint64
	Lines  uint64

	start time.Time
}

// Rates are per-second counter values for one finished window.
type Rates struct {
	Words   float64
	Commas  float64
	Bytes   float64
	Lines   float64
	Elapsed time.Duration
}

// NewStats starts a window at now.
func NewStats(now time.Time) *Stats {
	return &Stats{start: now}
}

// Add records n raw bytes and the delimiter counts found in them.
func (s *Stats) Add(n int, c convert.Counts) {
	s.Bytes += uint64(n)
	s.Words += c.Words
	s.Commas += c.Commas
	s.Lines += c.Lines
}

// Due reports whether the window that started at Start has run its course.
func (s *Stats) Due(now time.Time) bool {
	return now.Sub(s.start) >= Window
}

// Start returns the beginning of the current window.
func (s *Stats) Start() time.Time {
	return s.start
}

// Rollover converts the counters into rates over the elapsed time, zeroes
// them and starts a new window at now.
func (s *Stats) Rollover(now time.Time) Rates {
	elapsed := now.Sub(s.start)
	secs := elapsed.Seconds()
	r := Rates{Elapsed: elapsed}
	if secs > 0 {
		r.Words = float64(s.Words) / secs
		r.Commas = float64(s.Commas) / secs
		r.Bytes = float64(s.Bytes) / secs
		r.Lines = float64(s.Lines) / secs
	}
	*s = Stats{start: now}
	return r
}

// String renders the report line, e.g. "w10, c5, b100, l2".
func (r Rates) String() string {
	return string(r.AppendText(nil))
}

// AppendText appends the report line without a trailing newline.
func (r Rates) AppendText(dst []byte) []byte {
	dst = append(dst, 'w')
	dst = strconv.AppendFloat(dst, r.Words, 'f', -1, 64)
	dst = append(dst, ", c"...)
	dst = strconv.AppendFloat(dst, r.Commas, 'f', -1, 64)
	dst = append(dst, ", b"...)
	dst = strconv.AppendFloat(dst, r.Bytes, 'f', -1, 64)
	dst = append(dst, ", l"...)
	dst = strconv.AppendFloat(dst, r.Lines, 'f', -1, 64)
	return dst
}
