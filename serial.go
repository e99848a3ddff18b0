package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrClosed is returned by Read once the port has been closed.
	ErrClosed = errors.New("serial: port closed")

	// ErrUnsupportedBaud is returned by Open for baud rates termios cannot express.
	ErrUnsupportedBaud = errors.New("serial: unsupported baud rate")

	// ErrTimeout is returned by Read when no data arrived within Config.ReadTimeout.
	// It reports Timeout() == true, like net.Error.
	ErrTimeout error = timeoutError{}
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "serial: read timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// Parity selects the parity bit mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// FlowControl selects the flow control mode.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowSoftware
	FlowHardware
)

// SerialReader provides low-latency, killable access to a Linux serial port.
// Close may be called from any goroutine to unblock a pending Read.
type SerialReader struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int
	DataBits    int // 5..8, default 8
	Parity      Parity
	StopBits    int // 1 or 2, default 1
	FlowControl FlowControl

	// ReadTimeout bounds how long Read waits for data. Zero or negative
	// waits until data arrives or the port is closed.
	ReadTimeout time.Duration
}

// Open opens a serial port using the provided Config and returns a SerialReader.
// The port is configured for raw, non-canonical operation.
func Open(cfg Config) (*SerialReader, error) {
	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBaud, cfg.BaudRate)
	}
	size, err := dataBitsToUnix(cfg.DataBits)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS
	termios.Cflag |= size | unix.CREAD | unix.CLOCAL

	switch cfg.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}
	if cfg.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}
	switch cfg.FlowControl {
	case FlowSoftware:
		termios.Iflag |= unix.IXON | unix.IXOFF
	case FlowHardware:
		termios.Cflag |= unix.CRTSCTS
	}

	// Baud rate
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	// Reads return as soon as a single byte is available; timeouts are
	// enforced with poll.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	file := os.NewFile(uintptr(fd), cfg.Device)
	return &SerialReader{
		fd:     fd,
		file:   file,
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Config returns the configuration the port was opened with.
func (s *SerialReader) Config() Config {
	return s.config
}

// Read reads up to len(p) bytes from the port. It waits at most
// Config.ReadTimeout for data and returns ErrTimeout when none arrived.
// After Close it returns ErrClosed.
func (s *SerialReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	timeout := pollTimeout(s.config.ReadTimeout)
	for {
		select {
		case <-s.done:
			return 0, ErrClosed
		default:
		}

		// Use poll to wait for data or kill signal
		pfd := []unix.PollFd{
			{Fd: int32(s.fd), Events: unix.POLLIN},
			{Fd: int32(s.pipeR), Events: unix.POLLIN},
		}
		ready, err := unix.Poll(pfd, timeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return 0, fmt.Errorf("poll: %w", err)
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			// Drain pipe
			var b [1]byte
			unix.Read(s.pipeR, b[:])
			return 0, ErrClosed
		}
		if ready == 0 {
			return 0, ErrTimeout
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return s.file.Read(p)
		}
	}
}

// Write writes p to the port.
func (s *SerialReader) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Close closes the serial port and unblocks any pending Read.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *SerialReader) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		// Wake up poll using self-pipe
		if s.pipeW > 0 {
			unix.Write(s.pipeW, []byte{1})
		}
		if s.file != nil {
			err = s.file.Close()
		}
		if s.pipeR > 0 {
			unix.Close(s.pipeR)
		}
		if s.pipeW > 0 {
			unix.Close(s.pipeW)
		}
	})
	return err
}

func pollTimeout(d time.Duration) int {
	if d <= 0 {
		return -1
	}
	ms := int(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return ms
}

func dataBitsToUnix(bits int) (uint32, error) {
	switch bits {
	case 0, 8:
		return unix.CS8, nil
	case 7:
		return unix.CS7, nil
	case 6:
		return unix.CS6, nil
	case 5:
		return unix.CS5, nil
	default:
		return 0, fmt.Errorf("serial: unsupported data bits %d", bits)
	}
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 0:
		return unix.B115200, true
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	case 460800:
		return unix.B460800, true
	case 921600:
		return unix.B921600, true
	case 1000000:
		return unix.B1000000, true
	case 2000000:
		return unix.B2000000, true
	default:
		return 0, false
	}
}
