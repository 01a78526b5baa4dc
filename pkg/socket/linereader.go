// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrPartialLine is returned when the stream ends in the middle of a line.
	ErrPartialLine = errors.New("stream closed mid-line")
	// ErrLineTooLong is returned when a line exceeds the configured MaxLineSize.
	ErrLineTooLong = errors.New("line too long")
)

// LineReader splits a byte stream into '\n' terminated lines.
// The buffer survives between calls, so a line may arrive in any number of reads.
// Once NextLine has returned an error other than io.EOF the reader is not usable.
type LineReader struct {
	rd      *bufio.Reader
	maxSize int
}

// NewLineReader wraps r. maxSize <= 0 disables the line length limit.
func NewLineReader(r io.Reader, maxSize int) *LineReader {
	return &LineReader{rd: bufio.NewReader(r), maxSize: maxSize}
}

// NextLine returns the next line without its terminator ("\n" or "\r\n").
// It returns io.EOF if the stream was closed cleanly between lines
// and ErrPartialLine if it was closed after an unterminated fragment.
func (lr *LineReader) NextLine() (string, error) {
	var line []byte

	for {
		frag, err := lr.rd.ReadSlice('\n')
		line = append(line, frag...)

		if lr.maxSize > 0 && len(trimEOL(line)) > lr.maxSize {
			return "", fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, lr.maxSize)
		}

		switch {
		case err == nil:
			return string(trimEOL(line)), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return "", io.EOF
			}
			return "", fmt.Errorf("%w: %d bytes without terminator", ErrPartialLine, len(line))
		default:
			return "", err
		}
	}
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
