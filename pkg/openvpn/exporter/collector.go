// SPDX-License-Identifier: GPL-3.0-or-later

// Package exporter exposes an OpenVPN management interface as Prometheus
// metrics: load-stats totals on every scrape and, for users matching the
// per-user filter, traffic and connection time from the status report.
package exporter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netdata/ovpnmgmt/logger"
	"github.com/netdata/ovpnmgmt/pkg/confopt"
	"github.com/netdata/ovpnmgmt/pkg/matcher"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/client"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/status"
)

func New() *Collector {
	return &Collector{
		Logger: logger.New().With(slog.String("component", "openvpn exporter")),
		Config: Config{
			Config: client.Config{
				Address: "127.0.0.1:7505",
			},
			Timeout: confopt.Duration(time.Second * 2),
		},
		newClient: dialClient,
		now:       time.Now,
	}
}

type Config struct {
	client.Config `yaml:",inline" json:""`
	// Timeout bounds one scrape, connect included.
	Timeout      confopt.Duration   `yaml:"timeout,omitempty" json:"timeout"`
	PerUserStats matcher.SimpleExpr `yaml:"per_user_stats,omitempty" json:"per_user_stats"`
}

type (
	Collector struct {
		*logger.Logger
		Config `yaml:",inline" json:""`

		mu             sync.Mutex
		client         openVPNClient
		version        *client.Version
		perUserMatcher matcher.Matcher

		newClient func(ctx context.Context, cfg client.Config) (openVPNClient, error)
		now       func() time.Time
	}
	openVPNClient interface {
		Version(ctx context.Context) (*client.Version, error)
		LoadStats(ctx context.Context) (*client.LoadStats, error)
		Status(ctx context.Context) (*status.Report, error)
		IsClosed() bool
		Close() error
	}
)

func dialClient(ctx context.Context, cfg client.Config) (openVPNClient, error) {
	return client.Dial(ctx, cfg)
}

func (c *Collector) Init(context.Context) error {
	if err := c.validateConfig(); err != nil {
		return err
	}

	m, err := c.initPerUserMatcher()
	if err != nil {
		return err
	}
	c.perUserMatcher = m

	c.Infof("using address: %s, timeout: %s", c.Address, c.Timeout)

	return nil
}

// Check connects and logs the daemon version.
func (c *Collector) Check(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout.OrDefault(time.Second))
	defer cancel()

	if _, err := c.connect(ctx); err != nil {
		return err
	}

	ver := c.version
	c.Infof("connected to OpenVPN v%d.%d.%d, Management v%d", ver.Major, ver.Minor, ver.Patch, ver.Management)

	return nil
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range allDescs {
		ch <- desc
	}
}

// Collect scrapes the daemon. A failed scrape reports openvpn_up 0 and
// the connection is redialed on the next one.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout.OrDefault(time.Second))
	defer cancel()

	mx, err := c.collect(ctx)
	if err != nil {
		c.Error(err)
		ch <- prometheus.MustNewConstMetric(descUp, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(descUp, prometheus.GaugeValue, 1)
	mx.emit(ch)
}

func (c *Collector) Cleanup(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnect()
}

func (c *Collector) disconnect() {
	if c.client == nil {
		return
	}
	_ = c.client.Close()
	c.client = nil
	c.version = nil
}
