// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"context"
	"time"
)

// Processor is passed to Socket.Command to handle the response line by line.
// Returning false stops reading. A non-nil error stops reading and is
// returned from Command.
type Processor func(line string) (bool, error)

// Client is the interface that wraps the basic socket client operations
// and hides the implementation details from the users.
//
// Connect should prepare the connection.
//
// Disconnect should stop any in-flight connections.
//
// Command should send the actual data to the wire and pass
// any results to the processor function. CommandContext does the same
// within the deadline of ctx.
//
// Implementations should return TCP or Unix ready sockets.
type Client interface {
	Connect() error
	Disconnect() error
	Command(command string, process Processor) error
	CommandContext(ctx context.Context, command string, process Processor) error
}

// Config holds the address (tcp://host:port, host:port, unix:///path or
// /path) and the timeouts for a Socket.
//
// MaxLineSize caps a single line in bytes. Zero means no limit.
type Config struct {
	Address        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxLineSize    int
}
