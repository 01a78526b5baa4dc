// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"

	"github.com/netdata/ovpnmgmt/pkg/confopt"
)

// Option defines the global command line options. Unset options leave the
// config file values in place.
type Option struct {
	ConfigFile    string           `short:"c" long:"config" description:"YAML config file to read"`
	Address       string           `short:"a" long:"address" description:"management interface address (host:port, unix:///path)"`
	Timeout       confopt.Duration `short:"t" long:"timeout" description:"read, write and connect timeout"`
	StatusVersion int              `long:"status-version" description:"status command version" choice:"1" choice:"2" choice:"3"`
	LogLevel      string           `short:"l" long:"log-level" description:"log level" choice:"error" choice:"warning" choice:"notice" choice:"info" choice:"debug" choice:"none"`
	Debug         bool             `short:"d" long:"debug" description:"debug mode"`
	Version       bool             `short:"v" long:"version" description:"display the version and exit"`
}

// NewParser returns a parser for opt. Subcommands are added by the caller.
func NewParser(name string, opt *Option) *flags.Parser {
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = name
	parser.SubcommandsOptional = true
	return parser
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
