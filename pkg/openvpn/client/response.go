// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"errors"
	"io"
	"strings"

	"github.com/netdata/ovpnmgmt/pkg/socket"
)

const (
	endMarker          = "END"
	errorPrefix        = "ERROR:"
	successPrefix      = "SUCCESS:"
	notificationPrefix = ">"
)

// Outcome is how a response ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeProtocolError
	OutcomeTruncated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeProtocolError:
		return "protocol error"
	case OutcomeTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// ResponseBlock holds the lines of one command response, without the
// terminating sentinel.
//
// Message is the text after "ERROR:" for protocol errors, or after
// "SUCCESS:" for single line answers such as load-stats.
type ResponseBlock struct {
	Lines   []string
	Outcome Outcome
	Message string
}

// responseCollector accumulates the lines of a single command.
// Its process method is fed line by line by the socket.
type responseCollector struct {
	block  ResponseBlock
	done   bool
	notify func(line string)
}

func newResponseCollector(notify func(string)) *responseCollector {
	return &responseCollector{notify: notify}
}

func (rc *responseCollector) process(line string) (bool, error) {
	switch {
	case strings.HasPrefix(line, notificationPrefix):
		// real-time messages (>INFO:, >CLIENT:, >BYTECOUNT: ...) may arrive at any time
		if rc.notify != nil {
			rc.notify(line)
		}
		return true, nil
	case line == endMarker:
		rc.finish(OutcomeSuccess, "")
	case strings.HasPrefix(line, errorPrefix):
		rc.block.Lines = nil
		rc.finish(OutcomeProtocolError, strings.TrimPrefix(line, errorPrefix))
	case strings.HasPrefix(line, successPrefix) && len(rc.block.Lines) == 0:
		rc.finish(OutcomeSuccess, strings.TrimPrefix(line, successPrefix))
	default:
		rc.block.Lines = append(rc.block.Lines, line)
		return true, nil
	}
	return false, nil
}

func (rc *responseCollector) finish(outcome Outcome, msg string) {
	rc.block.Outcome = outcome
	rc.block.Message = strings.TrimSpace(msg)
	rc.done = true
}

// result classifies the read loop error. A nil error with a block means the
// command completed. io.EOF or a dangling partial line before a sentinel is
// a truncated response.
func (rc *responseCollector) result(err error) (ResponseBlock, error) {
	switch {
	case err == nil && rc.done:
		return rc.block, nil
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, socket.ErrPartialLine):
		rc.block.Outcome = OutcomeTruncated
		return rc.block, ErrTruncated
	default:
		return ResponseBlock{}, err
	}
}
