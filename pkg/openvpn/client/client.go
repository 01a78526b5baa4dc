// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/netdata/ovpnmgmt/logger"
	"github.com/netdata/ovpnmgmt/pkg/confopt"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/status"
	"github.com/netdata/ovpnmgmt/pkg/socket"
)

const (
	commandVersion   = "version"
	commandLoadStats = "load-stats"
	commandStatus    = "status"

	defaultStatusVersion = 3
)

type Config struct {
	Address        string           `yaml:"address" json:"address"`
	ConnectTimeout confopt.Duration `yaml:"connect_timeout,omitempty" json:"connect_timeout"`
	ReadTimeout    confopt.Duration `yaml:"read_timeout,omitempty" json:"read_timeout"`
	WriteTimeout   confopt.Duration `yaml:"write_timeout,omitempty" json:"write_timeout"`
	// StatusVersion is the argument of the status command: 1, 2 or 3.
	StatusVersion int `yaml:"status_version,omitempty" json:"status_version"`
	// MaxLineSize caps a response line in bytes. Zero means no limit.
	MaxLineSize int `yaml:"max_line_size,omitempty" json:"max_line_size"`
}

// Validate checks the fields that have no sensible default.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.New("'address' not set")
	}
	return c.validateOptions()
}

func (c Config) validateOptions() error {
	switch c.StatusVersion {
	case 0, 1, 2, 3:
	default:
		return fmt.Errorf("'status_version' must be 1, 2 or 3, got %d", c.StatusVersion)
	}
	if c.MaxLineSize < 0 {
		return fmt.Errorf("'max_line_size' must not be negative, got %d", c.MaxLineSize)
	}
	return nil
}

func (c Config) socketConfig() socket.Config {
	return socket.Config{
		Address:        c.Address,
		ConnectTimeout: c.ConnectTimeout.OrDefault(time.Second),
		ReadTimeout:    c.ReadTimeout.OrDefault(time.Second),
		WriteTimeout:   c.WriteTimeout.OrDefault(time.Second),
		MaxLineSize:    c.MaxLineSize,
	}
}

func (c Config) statusCommand() string {
	v := c.StatusVersion
	if v == 0 {
		v = defaultStatusVersion
	}
	return commandStatus + " " + strconv.Itoa(v)
}

type state int

const (
	stateIdle state = iota
	stateAwaitingResponse
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingResponse:
		return "awaiting response"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client talks to one OpenVPN management interface.
//
// It runs one command at a time and is safe for concurrent use. Any transport
// failure or truncated response closes it; Connect dials again.
type Client struct {
	*logger.Logger

	cfg Config

	mu     sync.Mutex
	conn   socket.Client
	state  state
	notify func(line string)

	// abort interrupts the running command; guarded by abortMu, not mu.
	abortMu sync.Mutex
	abort   context.CancelCauseFunc
}

// New returns a Client that is not connected yet.
func New(cfg Config) *Client {
	return &Client{
		Logger: logger.New().With(slog.String("component", "openvpn client"), slog.String("address", cfg.Address)),
		cfg:    cfg,
		state:  stateClosed,
	}
}

// Dial returns a connected Client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	c := New(cfg)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithConn returns a Client over an already connected stream.
// Only the timeouts, StatusVersion and MaxLineSize of cfg apply.
func NewWithConn(conn net.Conn, cfg Config) (*Client, error) {
	if err := cfg.validateOptions(); err != nil {
		return nil, err
	}
	c := New(cfg)
	c.conn = socket.Wrap(conn, cfg.socketConfig())
	c.state = stateIdle
	return c, nil
}

// Connect dials the management interface. It replaces a previous closed
// connection, so a Client can be reused after Close.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateClosed {
		return fmt.Errorf("cannot connect, client is %s", c.state)
	}

	sock := socket.New(c.cfg.socketConfig())
	if err := sock.ConnectContext(ctx); err != nil {
		return fmt.Errorf("connect to '%s': %w", c.cfg.Address, err)
	}

	c.conn = sock
	c.state = stateIdle
	c.Debugf("connected to '%s'", c.cfg.Address)

	return nil
}

// SetNotificationHandler registers fn for real-time messages (lines starting
// with '>') that arrive while a command is running. fn runs on the caller
// goroutine and must not call back into the Client.
func (c *Client) SetNotificationHandler(fn func(line string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// IsClosed reports whether the client needs Connect before the next command.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosed
}

// Close closes the connection. A command in progress is interrupted and
// returns an error matching ErrClosed. It is safe to call more than once.
func (c *Client) Close() error {
	c.abortMu.Lock()
	if c.abort != nil {
		c.abort(ErrClosed)
	}
	c.abortMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Client) close() error {
	c.state = stateClosed
	if c.conn == nil {
		return nil
	}
	err := c.conn.Disconnect()
	c.conn = nil
	return err
}

// SendCommand sends command and returns its response.
//
// An "ERROR:" answer is returned as both the block and a *ProtocolError; the
// client stays usable. A transport failure returns *IOError and a response
// cut short by the daemon returns ErrTruncated; both close the client.
func (c *Client) SendCommand(ctx context.Context, command string) (ResponseBlock, error) {
	command = strings.TrimSpace(command)
	if command == "" || strings.ContainsAny(command, "\r\n") {
		return ResponseBlock{}, fmt.Errorf("invalid command %q", command)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return ResponseBlock{}, ErrClosed
	}
	// nothing is written yet, the stream is still aligned
	if err := ctx.Err(); err != nil {
		return ResponseBlock{}, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	c.setAbort(cancel)
	defer c.setAbort(nil)

	c.state = stateAwaitingResponse
	c.Debugf("sending command '%s'", command)

	rc := newResponseCollector(c.notification)
	block, err := rc.result(c.conn.CommandContext(ctx, command+"\n", rc.process))

	switch {
	case errors.Is(err, ErrTruncated):
		c.Warningf("command '%s': connection closed before the end of the response (%d lines)", command, len(block.Lines))
		_ = c.close()
		return block, err
	case err != nil:
		_ = c.close()
		return ResponseBlock{}, &IOError{Command: command, Err: err}
	}

	c.state = stateIdle

	if block.Outcome == OutcomeProtocolError {
		c.Debugf("command '%s': server error: %s", command, block.Message)
		return block, &ProtocolError{Command: command, Message: block.Message}
	}

	c.Debugf("command '%s': %d lines", command, len(block.Lines))

	return block, nil
}

func (c *Client) setAbort(fn context.CancelCauseFunc) {
	c.abortMu.Lock()
	defer c.abortMu.Unlock()
	c.abort = fn
}

func (c *Client) notification(line string) {
	c.Debugf("notification: %s", line)
	if c.notify != nil {
		c.notify(line)
	}
}

// Status runs the status command and parses the report.
// Rows the parser could not read are logged and kept in Report.RowErrors.
func (c *Client) Status(ctx context.Context) (*status.Report, error) {
	command := c.cfg.statusCommand()

	block, err := c.SendCommand(ctx, command)
	if err != nil {
		return nil, err
	}

	report, err := status.Parse(block.Lines)
	if err != nil {
		return nil, fmt.Errorf("command '%s': %w", command, err)
	}

	for _, rerr := range report.RowErrors {
		c.Warningf("command '%s': skipped %v", command, rerr)
	}

	return report, nil
}
