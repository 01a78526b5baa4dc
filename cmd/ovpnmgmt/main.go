// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/netdata/ovpnmgmt/pkg/buildinfo"
	"github.com/netdata/ovpnmgmt/pkg/cli"
)

const name = "ovpnmgmt"

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout)

	parser := cli.NewParser(name, &a.opt)
	// errors and help are printed here, to the given writers
	parser.Options = flags.HelpFlag | flags.PassDoubleDash
	a.addCommands(parser)

	var ran bool
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if a.opt.Version {
			_, _ = fmt.Fprintf(stdout, "%s %s\n", name, buildinfo.Version)
			ran = true
			return nil
		}
		if cmd == nil {
			if len(args) > 0 {
				return fmt.Errorf("unknown command '%s'", args[0])
			}
			return nil
		}
		ran = true
		return cmd.Execute(args)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if cli.IsHelp(err) {
			_, _ = fmt.Fprintln(stdout, err)
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}

	if !ran {
		parser.WriteHelp(stderr)
		return 1
	}

	return 0
}
