// SPDX-License-Identifier: GPL-3.0-or-later

package exporter

import "github.com/prometheus/client_golang/prometheus"

const namespace = "openvpn"

var (
	descUp = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "up"),
		"Whether the last scrape of the management interface succeeded.",
		nil, nil,
	)
	descVersionInfo = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "version_info"),
		"OpenVPN daemon and management interface versions.",
		[]string{"version", "management"}, nil,
	)
	descActiveClients = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "active_clients"),
		"Total number of active clients.",
		nil, nil,
	)
	descBytesIn = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "received_bytes_total"),
		"Total bytes received by the server.",
		nil, nil,
	)
	descBytesOut = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "sent_bytes_total"),
		"Total bytes sent by the server.",
		nil, nil,
	)
	descUserBytesReceived = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "user", "received_bytes_total"),
		"Bytes received from the user.",
		[]string{"user"}, nil,
	)
	descUserBytesSent = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "user", "sent_bytes_total"),
		"Bytes sent to the user.",
		[]string{"user"}, nil,
	)
	descUserConnectionTime = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "user", "connection_time_seconds"),
		"Seconds since the user connected.",
		[]string{"user"}, nil,
	)
	descStatusRowErrors = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "status", "row_errors"),
		"Rows of the last status report that could not be parsed.",
		nil, nil,
	)
)

var allDescs = []*prometheus.Desc{
	descUp,
	descVersionInfo,
	descActiveClients,
	descBytesIn,
	descBytesOut,
	descUserBytesReceived,
	descUserBytesSent,
	descUserConnectionTime,
	descStatusRowErrors,
}
