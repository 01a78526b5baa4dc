// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import "strings"

func IsUnixSocket(address string) bool {
	return strings.HasPrefix(address, "/") || strings.HasPrefix(address, "unix://")
}

func parseAddress(address string) (network, addr string) {
	switch {
	case IsUnixSocket(address):
		return "unix", strings.TrimPrefix(address, "unix://")
	default:
		return "tcp", strings.TrimPrefix(address, "tcp://")
	}
}
