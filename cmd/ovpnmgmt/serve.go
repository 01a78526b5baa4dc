// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"

	"github.com/netdata/ovpnmgmt/logger"
	"github.com/netdata/ovpnmgmt/pkg/buildinfo"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/exporter"
)

var log = logger.New().With(slog.String("component", "serve"))

func init() {
	// reported by the ovpnmgmt_build_info metric
	version.Version = buildinfo.Version
}

type serveCommand struct {
	app *app

	Listen       string   `long:"listen" description:"metrics listen address (default :9176)"`
	MetricsPath  string   `long:"metrics-path" description:"metrics URL path" default:"/metrics"`
	PerUser      []string `long:"per-user" description:"export per-user metrics for users matching the glob (repeatable)"`
	PerUserSkip  []string `long:"per-user-exclude" description:"skip per-user metrics for users matching the glob (repeatable)"`
	RuntimeStats bool     `long:"runtime-metrics" description:"also export Go runtime and process metrics"`
}

func (c *serveCommand) Execute([]string) error {
	cfg, err := c.app.config()
	if err != nil {
		return err
	}

	listen := cfg.Listen
	if c.Listen != "" {
		listen = c.Listen
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.serve(ctx, ln, cfg)
}

func (c *serveCommand) newCollector(cfg *fileConfig) (*exporter.Collector, error) {
	collr := exporter.New()
	collr.Config = cfg.Config
	if len(c.PerUser) > 0 {
		collr.PerUserStats.Includes = c.PerUser
	}
	if len(c.PerUserSkip) > 0 {
		collr.PerUserStats.Excludes = c.PerUserSkip
	}

	if err := collr.Init(context.Background()); err != nil {
		return nil, err
	}
	return collr, nil
}

func (c *serveCommand) serve(ctx context.Context, ln net.Listener, cfg *fileConfig) error {
	collr, err := c.newCollector(cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer collr.Cleanup(context.Background())

	// the daemon may come up later; scrapes report openvpn_up 0 until then
	if err := collr.Check(ctx); err != nil {
		log.Warningf("management interface not reachable yet: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collr, versioncollector.NewCollector(name))
	if c.RuntimeStats {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	path := c.MetricsPath
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	log.Infof("%s started, %s, listening on %s%s", name, buildinfo.Info(), ln.Addr(), path)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("stopped")

	return nil
}
