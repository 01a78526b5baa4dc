// SPDX-License-Identifier: GPL-3.0-or-later

package status

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/araddon/dateparse"
)

const (
	colCommonName          = "Common Name"
	colRealAddress         = "Real Address"
	colVirtualAddress      = "Virtual Address"
	colVirtualIPv6Address  = "Virtual IPv6 Address"
	colBytesReceived       = "Bytes Received"
	colBytesSent           = "Bytes Sent"
	colConnectedSince      = "Connected Since"
	colConnectedSinceEpoch = "Connected Since (time_t)"
	colUsername            = "Username"
	colClientID            = "Client ID"
	colPeerID              = "Peer ID"
	colDataChannelCipher   = "Data Channel Cipher"
	colLastRef             = "Last Ref"
	colLastRefEpoch        = "Last Ref (time_t)"
)

// Column sets of OpenVPN 2.5+, used for rows that arrive before their HEADER.
var (
	defaultClientColumns = []string{
		colCommonName, colRealAddress, colVirtualAddress, colVirtualIPv6Address,
		colBytesReceived, colBytesSent, colConnectedSince, colConnectedSinceEpoch,
		colUsername, colClientID, colPeerID, colDataChannelCipher,
	}
	defaultRouteColumns = []string{
		colVirtualAddress, colCommonName, colRealAddress, colLastRef, colLastRefEpoch,
	}
)

var (
	knownClientColumns = toSet(defaultClientColumns)
	knownRouteColumns  = toSet(defaultRouteColumns)
)

// columns maps column names to positions for one section.
// It is built from the header line of each report, since the column set
// differs between daemon versions.
type columns struct {
	names []string
	index map[string]int
}

func newColumns(names []string) *columns {
	cols := &columns{names: names, index: make(map[string]int, len(names))}
	for i, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := cols.index[name]; !ok {
			cols.index[name] = i
		}
	}
	return cols
}

type row struct {
	cols   *columns
	values []string
}

func (r row) get(name string) string {
	i, ok := r.cols.index[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

func (r row) int(name string) int64 {
	return parseInt(r.get(name))
}

func (r row) time(epochCol, humanCol string) time.Time {
	return parseTime(r.get(epochCol), r.get(humanCol))
}

// extra returns the values of columns outside known, plus values past the
// last named column keyed by their 1-based position.
func (r row) extra(known map[string]bool) map[string]string {
	var m map[string]string
	set := func(k, v string) {
		if m == nil {
			m = make(map[string]string)
		}
		m[k] = v
	}

	for i, v := range r.values {
		if i >= len(r.cols.names) {
			set("column "+strconv.Itoa(i+1), v)
			continue
		}
		if name := strings.TrimSpace(r.cols.names[i]); !known[name] {
			set(name, v)
		}
	}
	return m
}

// parseInt returns 0 for anything that is not a number.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// NaN, Inf and values beyond int64 are not counters
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= math.MinInt64 && v < math.MaxInt64 {
		return int64(v)
	}
	return 0
}

var timeLayouts = []string{
	"Mon Jan _2 15:04:05 2006",
	"2006-01-02 15:04:05",
}

// parseTime prefers the time_t column and falls back to the human readable
// one. The daemon prints the latter in its local time zone.
func parseTime(epoch, human string) time.Time {
	if v, err := strconv.ParseInt(strings.TrimSpace(epoch), 10, 64); err == nil && v > 0 {
		return time.Unix(v, 0)
	}

	human = strings.TrimSpace(human)
	if human == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, human, time.Local); err == nil {
			return t
		}
	}
	if t, err := dateparse.ParseLocal(human); err == nil {
		return t
	}
	return time.Time{}
}

func isBinary(line string) bool {
	if !utf8.ValidString(line) {
		return true
	}
	for _, r := range line {
		if r != '\t' && unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, name := range names {
		m[name] = true
	}
	return m
}
