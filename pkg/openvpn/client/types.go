// SPDX-License-Identifier: GPL-3.0-or-later

package client

import "github.com/blang/semver/v4"

type LoadStats struct {
	NumOfClients int64 `json:"nclients" yaml:"nclients"`
	BytesIn      int64 `json:"bytes_in" yaml:"bytes_in"`
	BytesOut     int64 `json:"bytes_out" yaml:"bytes_out"`
}

type Version struct {
	Major      uint64 `json:"major" yaml:"major"`
	Minor      uint64 `json:"minor" yaml:"minor"`
	Patch      uint64 `json:"patch" yaml:"patch"`
	Management int64  `json:"management" yaml:"management"`
	// Banner is the full "OpenVPN Version" line without its prefix.
	Banner string `json:"banner" yaml:"banner"`
}

func (v Version) Semver() semver.Version {
	return semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
}
