package pipeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-stream"
	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
)

func TestRun_SerialPort(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	reader, err := serial.Open(serial.Config{
		Device:      slave.Name(),
		BaudRate:    115200,
		ReadTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	out := &bytes.Buffer{}
	report := &bytes.Buffer{}
	p, err := New(reader, out, Config{Capacity: 64, Mode: convert.Hex, Report: report})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	_, err = master.Write([]byte{0x0a, 0xff, 0x00, 0x10})
	require.NoError(t, err)

	// Let the pipeline pick the bytes up, then shut down the way the CLI does.
	time.Sleep(100 * time.Millisecond)
	cancel()
	require.NoError(t, reader.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Run to return after Close")
	}
	require.Equal(t, "aff010", out.String())
}

func TestRun_SerialDisconnect(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { slave.Close() })

	reader, err := serial.Open(serial.Config{
		Device:      slave.Name(),
		BaudRate:    115200,
		ReadTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	p, err := New(reader, &bytes.Buffer{}, Config{Report: &bytes.Buffer{}})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	require.NoError(t, master.Close())

	select {
	case err := <-done:
		var rerr *ReadError
		require.ErrorAs(t, err, &rerr)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Run to fail after disconnect")
	}
}
