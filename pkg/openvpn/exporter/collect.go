// SPDX-License-Identifier: GPL-3.0-or-later

package exporter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netdata/ovpnmgmt/pkg/openvpn/client"
)

type userMetrics struct {
	name           string
	bytesReceived  int64
	bytesSent      int64
	connectionTime int64
	hasConnTime    bool
}

type metrics struct {
	version   *client.Version
	loadStats *client.LoadStats
	users     []userMetrics
	rowErrors int
	hasStatus bool
}

func (c *Collector) connect(ctx context.Context) (openVPNClient, error) {
	if c.client != nil && !c.client.IsClosed() {
		return c.client, nil
	}
	c.disconnect()

	cl, err := c.newClient(ctx, c.Config.Config)
	if err != nil {
		return nil, err
	}

	ver, err := cl.Version(ctx)
	if err != nil {
		_ = cl.Close()
		return nil, err
	}

	c.client, c.version = cl, ver

	return cl, nil
}

func (c *Collector) collect(ctx context.Context) (*metrics, error) {
	cl, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	mx := &metrics{version: c.version}

	if err := c.collectLoadStats(ctx, cl, mx); err != nil {
		return nil, c.failed(cl, err)
	}

	if c.perUserMatcher != nil {
		if err := c.collectUsers(ctx, cl, mx); err != nil {
			return nil, c.failed(cl, err)
		}
	}

	return mx, nil
}

// failed drops a client that closed itself so the next scrape redials.
func (c *Collector) failed(cl openVPNClient, err error) error {
	if cl.IsClosed() {
		c.disconnect()
	}
	return err
}

func (c *Collector) collectLoadStats(ctx context.Context, cl openVPNClient, mx *metrics) error {
	stats, err := cl.LoadStats(ctx)
	if err != nil {
		return err
	}
	mx.loadStats = stats
	return nil
}

func (c *Collector) collectUsers(ctx context.Context, cl openVPNClient, mx *metrics) error {
	report, err := cl.Status(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	seen := make(map[string]bool)

	mx.hasStatus = true
	mx.rowErrors = len(report.RowErrors)

	for _, user := range report.Clients {
		name := user.Name()

		if !c.perUserMatcher.MatchString(name) {
			continue
		}
		// the same user may be connected more than once
		if seen[name] {
			c.Debugf("user '%s' has more than one session, using the first", name)
			continue
		}
		seen[name] = true

		um := userMetrics{
			name:          name,
			bytesReceived: user.BytesReceived,
			bytesSent:     user.BytesSent,
		}
		if !user.ConnectedSince.IsZero() {
			um.connectionTime = int64(now.Sub(user.ConnectedSince).Seconds())
			um.hasConnTime = true
		}
		mx.users = append(mx.users, um)
	}

	return nil
}

func (mx *metrics) emit(ch chan<- prometheus.Metric) {
	if v := mx.version; v != nil {
		ver := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
		ch <- prometheus.MustNewConstMetric(descVersionInfo, prometheus.GaugeValue, 1, ver, strconv.FormatInt(v.Management, 10))
	}

	if s := mx.loadStats; s != nil {
		ch <- prometheus.MustNewConstMetric(descActiveClients, prometheus.GaugeValue, float64(s.NumOfClients))
		ch <- prometheus.MustNewConstMetric(descBytesIn, prometheus.CounterValue, float64(s.BytesIn))
		ch <- prometheus.MustNewConstMetric(descBytesOut, prometheus.CounterValue, float64(s.BytesOut))
	}

	if !mx.hasStatus {
		return
	}

	ch <- prometheus.MustNewConstMetric(descStatusRowErrors, prometheus.GaugeValue, float64(mx.rowErrors))

	for _, u := range mx.users {
		ch <- prometheus.MustNewConstMetric(descUserBytesReceived, prometheus.CounterValue, float64(u.bytesReceived), u.name)
		ch <- prometheus.MustNewConstMetric(descUserBytesSent, prometheus.CounterValue, float64(u.bytesSent), u.name)
		if u.hasConnTime {
			ch <- prometheus.MustNewConstMetric(descUserConnectionTime, prometheus.GaugeValue, float64(u.connectionTime), u.name)
		}
	}
}
