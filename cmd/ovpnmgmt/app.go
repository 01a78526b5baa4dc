// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/netdata/ovpnmgmt/logger"
	"github.com/netdata/ovpnmgmt/pkg/cli"
	"github.com/netdata/ovpnmgmt/pkg/confopt"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/client"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/exporter"
)

const (
	defaultAddress = "127.0.0.1:7505"
	defaultListen  = ":9176"
)

// fileConfig is the layout of the --config file.
type fileConfig struct {
	exporter.Config `yaml:",inline"`
	LogLevel        string `yaml:"log_level,omitempty"`
	Listen          string `yaml:"listen,omitempty"`
}

func defaultFileConfig() fileConfig {
	var cfg fileConfig
	cfg.Config = exporter.New().Config
	cfg.Address = defaultAddress
	cfg.Listen = defaultListen
	return cfg
}

type app struct {
	opt cli.Option
	out io.Writer
	now func() time.Time
}

func newApp(out io.Writer) *app {
	return &app{out: out, now: time.Now}
}

func (a *app) addCommands(parser *flags.Parser) {
	for _, cmd := range []struct {
		name  string
		short string
		data  any
	}{
		{"status", "Print the connected clients", &statusCommand{app: a}},
		{"version", "Print the daemon version", &versionCommand{app: a}},
		{"load-stats", "Print the daemon load statistics", &loadStatsCommand{app: a}},
		{"raw", "Send a management command and print the response", &rawCommand{app: a}},
		{"serve", "Expose Prometheus metrics", &serveCommand{app: a}},
	} {
		if _, err := parser.AddCommand(cmd.name, cmd.short, "", cmd.data); err != nil {
			panic(err)
		}
	}
}

// config reads the config file and applies the global options over it.
func (a *app) config() (*fileConfig, error) {
	cfg := defaultFileConfig()

	if a.opt.ConfigFile != "" {
		path, err := homedir.Expand(a.opt.ConfigFile)
		if err != nil {
			return nil, err
		}
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(bs, &cfg); err != nil {
			return nil, fmt.Errorf("config '%s': %v", path, err)
		}
	}

	if a.opt.Address != "" {
		cfg.Address = a.opt.Address
	}
	if a.opt.Timeout > 0 {
		cfg.ConnectTimeout = a.opt.Timeout
		cfg.ReadTimeout = a.opt.Timeout
		cfg.WriteTimeout = a.opt.Timeout
		cfg.Timeout = confopt.Duration(a.opt.Timeout.Duration() * 2)
	}
	if a.opt.StatusVersion != 0 {
		cfg.StatusVersion = a.opt.StatusVersion
	}

	switch {
	case a.opt.Debug:
		logger.Level.Set(slog.LevelDebug)
	case a.opt.LogLevel != "":
		logger.Level.SetByName(a.opt.LogLevel)
	case cfg.LogLevel != "":
		logger.Level.SetByName(cfg.LogLevel)
	}

	return &cfg, nil
}

func (a *app) dial(ctx context.Context) (*client.Client, *fileConfig, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}

	cl, err := client.Dial(ctx, cfg.Config.Config)
	if err != nil {
		return nil, nil, err
	}

	return cl, cfg, nil
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
