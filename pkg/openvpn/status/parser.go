// SPDX-License-Identifier: GPL-3.0-or-later

// Package status parses the response of the OpenVPN management "status"
// command in its v1 (titled sections), v2 (comma tagged) and v3 (tab
// tagged) layouts.
//
// Individual bad values never fail a report: numbers that do not parse are
// zero, missing columns are empty, and rows that cannot be split at all are
// listed in Report.RowErrors. Only input without any known section fails,
// with ErrUnrecognizedFormat.
package status

import (
	"strings"
)

const (
	tagTitle       = "TITLE"
	tagTime        = "TIME"
	tagHeader      = "HEADER"
	tagClientList  = "CLIENT_LIST"
	tagRoutingTbl  = "ROUTING_TABLE"
	tagGlobalStats = "GLOBAL_STATS"
	tagEnd         = "END"

	// https://github.com/OpenVPN/openvpn/blob/d5315a5d7400a26f1113bbc44766d49dd0c3688f/src/openvpn/multi.c#L836
	v1ClientList  = "OpenVPN CLIENT LIST"
	v1RoutingTbl  = "ROUTING TABLE"
	v1GlobalStats = "GLOBAL STATS"
	v1Updated     = "Updated"
)

// Parse parses the lines of a successful status response, without the END
// line (a trailing END is tolerated and ends parsing).
func Parse(lines []string) (*Report, error) {
	p := &parser{report: &Report{GlobalStats: make(map[string]int64)}}

	if isV1(lines) {
		p.report.Format = FormatV1
		p.parseV1(lines)
	} else {
		p.delim = sniffDelimiter(lines)
		if p.delim == '\t' {
			p.report.Format = FormatV3
		} else {
			p.report.Format = FormatV2
		}
		p.parseTagged(lines)
	}

	if !p.recognized {
		return nil, &FormatError{FirstLine: firstNonEmpty(lines)}
	}
	return p.report, nil
}

type parser struct {
	report     *Report
	delim      byte
	recognized bool
}

func (p *parser) parseTagged(lines []string) {
	headers := map[string]*columns{
		tagClientList: newColumns(defaultClientColumns),
		tagRoutingTbl: newColumns(defaultRouteColumns),
	}
	sep := string(p.delim)

	for i, line := range lines {
		if line == "" {
			continue
		}
		if line == tagEnd {
			break
		}
		if isBinary(line) {
			p.rowError(i, "", line, "binary data")
			continue
		}

		fields := strings.Split(line, sep)
		tag := fields[0]

		switch tag {
		case tagTitle:
			if len(fields) > 1 {
				p.report.Title = strings.Join(fields[1:], sep)
			}
		case tagTime:
			if len(fields) > 1 {
				p.report.Time = parseTime(at(fields, 2), fields[1])
			}
		case tagHeader:
			if len(fields) < 2 {
				continue
			}
			if _, ok := headers[fields[1]]; !ok {
				continue
			}
			p.recognized = true
			// a bare "HEADER,CLIENT_LIST" keeps the default columns
			if len(fields) > 2 {
				headers[fields[1]] = newColumns(fields[2:])
			}
		case tagClientList:
			p.recognized = true
			if len(fields) < 2 {
				p.rowError(i, tag, line, "no fields")
				continue
			}
			p.addClient(row{cols: headers[tag], values: fields[1:]})
		case tagRoutingTbl:
			p.recognized = true
			if len(fields) < 2 {
				p.rowError(i, tag, line, "no fields")
				continue
			}
			p.addRoute(row{cols: headers[tag], values: fields[1:]})
		case tagGlobalStats:
			p.recognized = true
			if len(fields) < 3 {
				p.rowError(i, tag, line, "no value")
				continue
			}
			p.report.GlobalStats[fields[1]] = parseInt(fields[2])
		default:
			// "CLIENT_LIST bad\tinfo": a known tag glued to the wrong delimiter.
			if s := knownTagPrefix(line); s != "" {
				p.recognized = true
				p.rowError(i, s, line, "unexpected field delimiter")
			}
			// anything else belongs to a section this parser does not know
		}
	}
}

func (p *parser) parseV1(lines []string) {
	var section string
	var cols *columns

	for i, line := range lines {
		if line == "" {
			continue
		}
		if line == tagEnd {
			break
		}

		switch line {
		case v1ClientList, v1RoutingTbl, v1GlobalStats:
			section, cols = line, nil
			p.recognized = true
			continue
		}

		if section == "" {
			continue
		}
		if isBinary(line) {
			p.rowError(i, section, line, "binary data")
			continue
		}

		fields := strings.Split(line, ",")

		if section == v1GlobalStats {
			if len(fields) < 2 {
				p.rowError(i, section, line, "no value")
				continue
			}
			p.report.GlobalStats[fields[0]] = parseInt(fields[1])
			continue
		}
		if section == v1ClientList && fields[0] == v1Updated {
			p.report.Time = parseTime("", at(fields, 1))
			continue
		}
		if cols == nil {
			cols = newColumns(fields)
			continue
		}
		if len(fields) == 1 && len(cols.names) > 1 {
			p.rowError(i, section, line, "unexpected field delimiter")
			continue
		}

		switch section {
		case v1ClientList:
			p.addClient(row{cols: cols, values: fields})
		case v1RoutingTbl:
			p.addRoute(row{cols: cols, values: fields})
		}
	}
}

func (p *parser) addClient(r row) {
	p.report.Clients = append(p.report.Clients, Client{
		CommonName:         r.get(colCommonName),
		RealAddress:        r.get(colRealAddress),
		VirtualAddress:     r.get(colVirtualAddress),
		VirtualIPv6Address: r.get(colVirtualIPv6Address),
		BytesReceived:      r.int(colBytesReceived),
		BytesSent:          r.int(colBytesSent),
		ConnectedSince:     r.time(colConnectedSinceEpoch, colConnectedSince),
		Username:           r.get(colUsername),
		ClientID:           r.int(colClientID),
		PeerID:             r.int(colPeerID),
		DataChannelCipher:  r.get(colDataChannelCipher),
		Extra:              r.extra(knownClientColumns),
	})
}

func (p *parser) addRoute(r row) {
	p.report.Routes = append(p.report.Routes, Route{
		VirtualAddress: r.get(colVirtualAddress),
		CommonName:     r.get(colCommonName),
		RealAddress:    r.get(colRealAddress),
		LastRef:        r.time(colLastRefEpoch, colLastRef),
		Extra:          r.extra(knownRouteColumns),
	})
}

func (p *parser) rowError(i int, section, line, reason string) {
	p.report.RowErrors = append(p.report.RowErrors, &RowError{
		Line:    i + 1,
		Section: section,
		Raw:     line,
		Reason:  reason,
	})
}

func isV1(lines []string) bool {
	for _, line := range lines {
		switch line {
		case v1ClientList, v1RoutingTbl, v1GlobalStats:
			return true
		}
		if knownTagPrefix(line) != "" {
			return false
		}
	}
	return false
}

// sniffDelimiter picks the separator of the first tagged line; v3 uses tabs.
func sniffDelimiter(lines []string) byte {
	for _, line := range lines {
		i := strings.IndexAny(line, "\t,")
		if i <= 0 {
			continue
		}
		switch line[:i] {
		case tagTitle, tagTime, tagHeader, tagClientList, tagRoutingTbl, tagGlobalStats:
			return line[i]
		}
	}
	return ','
}

// knownTagPrefix returns the tag line starts with when the tag is followed by
// something other than a name character, so CLIENT_LIST_V2 is not CLIENT_LIST.
func knownTagPrefix(line string) string {
	for _, tag := range []string{tagHeader, tagClientList, tagRoutingTbl, tagGlobalStats} {
		if !strings.HasPrefix(line, tag) {
			continue
		}
		if len(line) == len(tag) || !isNameChar(line[len(tag)]) {
			return tag
		}
	}
	return ""
}

func isNameChar(c byte) bool {
	return c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func firstNonEmpty(lines []string) string {
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func at(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
