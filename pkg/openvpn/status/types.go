// SPDX-License-Identifier: GPL-3.0-or-later

package status

import (
	"net"
	"strings"
	"time"
)

// Format is the status report layout the daemon answered with.
type Format int

const (
	FormatUnknown Format = iota
	// FormatV1 is the "status 1" layout: titled sections, comma separated.
	FormatV1
	// FormatV2 is the "status 2" layout: tagged rows, comma separated.
	FormatV2
	// FormatV3 is the "status 3" layout: tagged rows, tab separated.
	FormatV3
)

func (f Format) String() string {
	switch f {
	case FormatV1:
		return "v1"
	case FormatV2:
		return "v2"
	case FormatV3:
		return "v3"
	default:
		return "unknown"
	}
}

// Report is a parsed status response. Rows keep the order the daemon sent them.
type Report struct {
	Format      Format
	Title       string
	Time        time.Time
	Clients     Clients
	Routes      Routes
	GlobalStats map[string]int64
	// RowErrors lists rows that could not be split into fields at all.
	// They do not make the report invalid.
	RowErrors []*RowError
}

// ClientByName returns the first client with the given common name.
// Routes reference clients this way.
func (r *Report) ClientByName(commonName string) (Client, bool) {
	for _, c := range r.Clients {
		if c.CommonName == commonName {
			return c, true
		}
	}
	return Client{}, false
}

// RoutesOf returns the routes owned by the given common name.
func (r *Report) RoutesOf(commonName string) Routes {
	var routes Routes
	for _, rt := range r.Routes {
		if rt.CommonName == commonName {
			routes = append(routes, rt)
		}
	}
	return routes
}

type Clients []Client

// Client is a CLIENT_LIST row. Columns the daemon did not send are left zero.
type Client struct {
	CommonName         string            `json:"common_name" yaml:"common_name"`
	RealAddress        string            `json:"real_address" yaml:"real_address"`
	VirtualAddress     string            `json:"virtual_address,omitempty" yaml:"virtual_address,omitempty"`
	VirtualIPv6Address string            `json:"virtual_ipv6_address,omitempty" yaml:"virtual_ipv6_address,omitempty"`
	BytesReceived      int64             `json:"bytes_received" yaml:"bytes_received"`
	BytesSent          int64             `json:"bytes_sent" yaml:"bytes_sent"`
	ConnectedSince     time.Time         `json:"connected_since" yaml:"connected_since"`
	Username           string            `json:"username,omitempty" yaml:"username,omitempty"`
	ClientID           int64             `json:"client_id" yaml:"client_id"`
	PeerID             int64             `json:"peer_id" yaml:"peer_id"`
	DataChannelCipher  string            `json:"data_channel_cipher,omitempty" yaml:"data_channel_cipher,omitempty"`
	Extra              map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Name returns the username, or the common name when the daemon has no
// username for the session (it sends "UNDEF").
func (c Client) Name() string {
	if c.Username == "" || c.Username == undefUsername {
		return c.CommonName
	}
	return c.Username
}

const undefUsername = "UNDEF"

// RealIP returns RealAddress without the port and the protocol prefix newer
// daemons add ("udp4:", "tcp4-server:").
func (c Client) RealIP() string {
	addr := c.RealAddress
	if i := strings.IndexByte(addr, ':'); i > 0 && (strings.HasPrefix(addr, "udp") || strings.HasPrefix(addr, "tcp")) {
		addr = addr[i+1:]
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

type Routes []Route

// Route is a ROUTING_TABLE row.
type Route struct {
	VirtualAddress string            `json:"virtual_address" yaml:"virtual_address"`
	CommonName     string            `json:"common_name" yaml:"common_name"`
	RealAddress    string            `json:"real_address" yaml:"real_address"`
	LastRef        time.Time         `json:"last_ref" yaml:"last_ref"`
	Extra          map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}
