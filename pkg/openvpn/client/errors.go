// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrClosed is returned by every call on a client whose connection failed
	// or was closed. The client never reconnects by itself.
	ErrClosed = errors.New("openvpn client is closed")
	// ErrTruncated means the daemon closed the connection before END or ERROR.
	ErrTruncated = errors.New("response truncated")
)

// IOError is a transport failure while a command was in flight.
// The client is closed after it.
type IOError struct {
	Command string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("command '%s': %v", e.Command, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a read or write deadline.
func (e *IOError) Timeout() bool { return errors.Is(e.Err, os.ErrDeadlineExceeded) }

// ProtocolError is an "ERROR:" answer. The connection stays usable.
type ProtocolError struct {
	Command string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("command '%s': server error: %s", e.Command, e.Message)
}

// UnexpectedResponseError is returned by the typed helpers when a successful
// response does not have the expected shape.
type UnexpectedResponseError struct {
	Command  string
	Response string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("command '%s': unexpected response %q", e.Command, e.Response)
}
