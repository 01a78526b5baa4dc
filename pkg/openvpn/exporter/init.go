// SPDX-License-Identifier: GPL-3.0-or-later

package exporter

import (
	"github.com/netdata/ovpnmgmt/pkg/matcher"
)

func (c *Collector) validateConfig() error {
	return c.Config.Config.Validate()
}

func (c *Collector) initPerUserMatcher() (matcher.Matcher, error) {
	if c.PerUserStats.Empty() {
		return nil, nil
	}
	return c.PerUserStats.Parse()
}
