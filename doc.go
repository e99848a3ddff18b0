// Package serial provides a minimal, Linux-only serial port byte source
// for streaming raw device output into a conversion pipeline.
//
// The port is opened in raw mode through termios and read with poll(2), so
// every Read is bounded by a configurable timeout and can be interrupted
// by Close from another goroutine.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Baud rate, data bits, parity, stop bits and flow control
//   - Read timeouts reported as ErrTimeout (Timeout() == true)
//   - Self-pipe mechanism for killability
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	reader, err := serial.Open(serial.Config{
//	    Device:      "/dev/ttyUSB0",
//	    BaudRate:    115200,
//	    ReadTimeout: 100 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	buf := make([]byte, 64)
//	for {
//	    n, err := reader.Read(buf)
//	    if errors.Is(err, serial.ErrTimeout) {
//	        continue
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    os.Stdout.Write(buf[:n])
//	}
//
// To stop reading, call reader.Close() from another goroutine; the pending
// Read returns ErrClosed.
package serial
