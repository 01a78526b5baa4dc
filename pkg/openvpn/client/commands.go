// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/netdata/ovpnmgmt/pkg/openvpn/status"
)

var (
	reVersion           = regexp.MustCompile(`^OpenVPN Version: OpenVPN ([0-9]+\.[0-9]+(?:\.[0-9]+)?)`)
	reManagementVersion = regexp.MustCompile(`^Management Version: ([0-9]+)`)
)

const versionPrefix = "OpenVPN Version: "

/*
OpenVPN Version: OpenVPN 2.6.8 x86_64-pc-linux-gnu [SSL (OpenSSL)] [LZO] [LZ4] [EPOLL] [PKCS11] [MH/PKTINFO] [AEAD] [DCO]
Management Version: 5
END
*/

// Version runs the version command.
func (c *Client) Version(ctx context.Context) (*Version, error) {
	block, err := c.SendCommand(ctx, commandVersion)
	if err != nil {
		return nil, err
	}
	return decodeVersion(block)
}

func decodeVersion(block ResponseBlock) (*Version, error) {
	var ver Version
	var found bool

	for _, line := range block.Lines {
		if m := reVersion.FindStringSubmatch(line); len(m) > 1 {
			sv, err := semver.ParseTolerant(m[1])
			if err != nil {
				return nil, &UnexpectedResponseError{Command: commandVersion, Response: line}
			}
			ver.Major, ver.Minor, ver.Patch = sv.Major, sv.Minor, sv.Patch
			ver.Banner = strings.TrimPrefix(line, versionPrefix)
			found = true
			continue
		}
		if m := reManagementVersion.FindStringSubmatch(line); len(m) > 1 {
			ver.Management, _ = strconv.ParseInt(m[1], 10, 64)
		}
	}

	if !found {
		return nil, &UnexpectedResponseError{Command: commandVersion, Response: strings.Join(block.Lines, "\n")}
	}
	return &ver, nil
}

/*
SUCCESS: nclients=1,bytesin=7811,bytesout=7667
*/

// LoadStats runs the load-stats command.
func (c *Client) LoadStats(ctx context.Context) (*LoadStats, error) {
	block, err := c.SendCommand(ctx, commandLoadStats)
	if err != nil {
		return nil, err
	}
	return decodeLoadStats(block)
}

func decodeLoadStats(block ResponseBlock) (*LoadStats, error) {
	var stats LoadStats
	var seen int

	for _, kv := range strings.Split(block.Message, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &UnexpectedResponseError{Command: commandLoadStats, Response: block.Message}
		}
		switch k {
		case "nclients":
			stats.NumOfClients = n
		case "bytesin":
			stats.BytesIn = n
		case "bytesout":
			stats.BytesOut = n
		default:
			continue
		}
		seen++
	}

	if seen != 3 {
		return nil, &UnexpectedResponseError{Command: commandLoadStats, Response: block.Message}
	}
	return &stats, nil
}

// Users returns the connected clients of the status report.
func (c *Client) Users(ctx context.Context) (status.Clients, error) {
	report, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	return report.Clients, nil
}
