// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"context"
	"errors"
	"net"
	"time"
)

const defaultTimeout = time.Second

// New returns a new pointer to a socket client given the network address
// (tcp://host:port, host:port, unix:///path or /path) and timeouts.
// It supports both IPv4 and IPv6 addresses.
func New(cfg Config) *Socket {
	return &Socket{Config: cfg}
}

// Wrap returns a Socket over an already established connection.
// Disconnect closes conn.
func Wrap(conn net.Conn, cfg Config) *Socket {
	return &Socket{
		Config: cfg,
		conn:   conn,
		lines:  NewLineReader(conn, cfg.MaxLineSize),
	}
}

var _ Client = (*Socket)(nil)

// Socket is the implementation of a socket client.
// It is not safe for concurrent use; callers serialize commands.
type Socket struct {
	Config
	conn  net.Conn
	lines *LineReader
}

// Connect connects to the Socket address on the named network.
// If the address is a domain name it will also perform the DNS resolution.
// Address like :80 will attempt to connect to the localhost.
// The config connect timeout will be used.
func (s *Socket) Connect() error {
	return s.ConnectContext(context.Background())
}

// ConnectContext is Connect bounded by ctx in addition to ConnectTimeout.
func (s *Socket) ConnectContext(ctx context.Context) error {
	network, address := parseAddress(s.Address)

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(s.ConnectTimeout))
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return err
	}

	s.conn = conn
	s.lines = NewLineReader(conn, s.MaxLineSize)

	return nil
}

// Disconnect closes the connection.
// Any in-flight commands will be cancelled and return errors.
func (s *Socket) Disconnect() (err error) {
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
		s.lines = nil
	}
	return err
}

// IsConnected reports whether Connect succeeded and Disconnect was not called.
func (s *Socket) IsConnected() bool {
	return s.conn != nil
}

// Command writes the command string to the connection and passes the
// response line by line to the process function.
func (s *Socket) Command(command string, process Processor) error {
	return s.CommandContext(context.Background(), command, process)
}

// CommandContext is Command with the deadline of ctx applied on top of the
// configured timeouts. The read timeout applies to each line separately.
// Canceling ctx interrupts a blocked write or read and returns the cause of
// the cancellation.
// If the peer closes the connection before process stops the loop, io.EOF
// is returned.
func (s *Socket) CommandContext(ctx context.Context, command string, process Processor) error {
	if s.conn == nil {
		return errors.New("cannot send command on nil connection")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn := s.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := s.write(ctx, command); err != nil {
		return canceled(ctx, err)
	}

	return canceled(ctx, s.read(ctx, process))
}

// canceled replaces err with the cancellation cause when ctx was canceled
// while the command ran, so callers do not see a deadline error.
func canceled(ctx context.Context, err error) error {
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		return context.Cause(ctx)
	}
	return err
}

func (s *Socket) write(ctx context.Context, command string) error {
	if s.conn == nil {
		return errors.New("attempt to write on nil connection")
	}

	if err := s.conn.SetWriteDeadline(deadline(ctx, s.WriteTimeout)); err != nil {
		return err
	}

	_, err := s.conn.Write([]byte(command))

	return err
}

func (s *Socket) read(ctx context.Context, process Processor) error {
	if process == nil {
		return errors.New("process func is nil")
	}

	if s.conn == nil {
		return errors.New("attempt to read on nil connection")
	}

	for {
		if err := s.conn.SetReadDeadline(deadline(ctx, s.ReadTimeout)); err != nil {
			return err
		}
		// a cancel landing before the deadline reset above would be lost
		if errors.Is(ctx.Err(), context.Canceled) {
			return context.Cause(ctx)
		}

		line, err := s.lines.NextLine()
		if err != nil {
			return err
		}

		more, err := process(line)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeoutOrDefault(timeout))
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return defaultTimeout
	}
	return timeout
}
