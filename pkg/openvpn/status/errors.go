// SPDX-License-Identifier: GPL-3.0-or-later

package status

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedFormat means the input had no section the parser knows.
var ErrUnrecognizedFormat = errors.New("unrecognized status format")

// FormatError wraps ErrUnrecognizedFormat with the first non-empty input line.
type FormatError struct {
	FirstLine string
}

func (e *FormatError) Error() string {
	if e.FirstLine == "" {
		return ErrUnrecognizedFormat.Error() + " (empty response)"
	}
	return fmt.Sprintf("%s (first line %q)", ErrUnrecognizedFormat, e.FirstLine)
}

func (e *FormatError) Unwrap() error { return ErrUnrecognizedFormat }

// RowError describes a row the parser skipped.
type RowError struct {
	Line    int // 1-based position in the response
	Section string
	Raw     string
	Reason  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %s: %q", e.Line, e.Section, e.Reason, e.Raw)
}
