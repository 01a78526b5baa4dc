// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/netdata/ovpnmgmt/pkg/matcher"
)

type statusCommand struct {
	app *app

	Format  string   `short:"f" long:"format" description:"output format" choice:"text" choice:"json" choice:"yaml" default:"text"`
	Filter  []string `long:"filter" description:"only show users matching the glob (repeatable)"`
	Exclude []string `long:"exclude" description:"hide users matching the glob (repeatable)"`
	From    []string `long:"from" description:"only show clients connecting from IPs matching the glob (repeatable)"`
	Routes  bool     `short:"r" long:"routes" description:"also print the routing table"`
}

func (c *statusCommand) Execute([]string) error {
	users, err := parseMatcher(matcher.SimpleExpr{Includes: c.Filter, Excludes: c.Exclude})
	if err != nil {
		return err
	}
	from, err := parseMatcher(matcher.SimpleExpr{Includes: c.From})
	if err != nil {
		return err
	}

	ctx, cancel := c.app.context()
	defer cancel()

	cl, _, err := c.app.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	report, err := cl.Status(ctx)
	if err != nil {
		return err
	}

	view := newStatusView(report, users, from)
	if !c.Routes && c.Format == formatText {
		view.Routes = nil
	}

	return render(c.app.out, c.Format, view, func() string { return view.text(c.app.now()) })
}

func parseMatcher(expr matcher.SimpleExpr) (matcher.Matcher, error) {
	if expr.Empty() {
		return matcher.TRUE(), nil
	}
	return expr.Parse()
}

type versionCommand struct {
	app *app

	Format string `short:"f" long:"format" description:"output format" choice:"text" choice:"json" choice:"yaml" default:"text"`
}

func (c *versionCommand) Execute([]string) error {
	ctx, cancel := c.app.context()
	defer cancel()

	cl, _, err := c.app.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	ver, err := cl.Version(ctx)
	if err != nil {
		return err
	}

	return render(c.app.out, c.Format, ver, func() string {
		return fmt.Sprintf("OpenVPN v%s, Management v%d\n", ver.Semver(), ver.Management)
	})
}

type loadStatsCommand struct {
	app *app

	Format string `short:"f" long:"format" description:"output format" choice:"text" choice:"json" choice:"yaml" default:"text"`
}

func (c *loadStatsCommand) Execute([]string) error {
	ctx, cancel := c.app.context()
	defer cancel()

	cl, _, err := c.app.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	stats, err := cl.LoadStats(ctx)
	if err != nil {
		return err
	}

	return render(c.app.out, c.Format, stats, func() string { return loadStatsText(stats) })
}

type rawCommand struct {
	app *app

	Args struct {
		Command []string `positional-arg-name:"command" required:"1"`
	} `positional-args:"yes"`
}

func (c *rawCommand) Execute([]string) error {
	command := strings.Join(c.Args.Command, " ")
	if command == "" {
		return errors.New("no command given")
	}

	ctx, cancel := c.app.context()
	defer cancel()

	cl, _, err := c.app.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	block, err := cl.SendCommand(ctx, command)
	if err != nil {
		return err
	}

	for _, line := range block.Lines {
		_, _ = fmt.Fprintln(c.app.out, line)
	}
	if block.Message != "" {
		_, _ = fmt.Fprintln(c.app.out, block.Message)
	}

	return nil
}
