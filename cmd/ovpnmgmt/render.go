// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/netdata/ovpnmgmt/pkg/matcher"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/client"
	"github.com/netdata/ovpnmgmt/pkg/openvpn/status"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func render(w io.Writer, format string, v any, text func() string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		bs, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(bs)
		return err
	case formatText, "":
		_, err := io.WriteString(w, text())
		return err
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}

type statusView struct {
	Title       string           `json:"title,omitempty" yaml:"title,omitempty"`
	Time        *time.Time       `json:"time,omitempty" yaml:"time,omitempty"`
	Format      string           `json:"format" yaml:"format"`
	Clients     status.Clients   `json:"clients" yaml:"clients"`
	Routes      status.Routes    `json:"routes,omitempty" yaml:"routes,omitempty"`
	GlobalStats map[string]int64 `json:"global_stats,omitempty" yaml:"global_stats,omitempty"`
	RowErrors   []string         `json:"row_errors,omitempty" yaml:"row_errors,omitempty"`
}

// newStatusView keeps the clients whose name matches m and the routes of
// the kept clients.
// newStatusView keeps the clients whose name matches users and whose real IP
// matches from, along with their routes.
func newStatusView(report *status.Report, users, from matcher.Matcher) *statusView {
	view := &statusView{
		Title:       report.Title,
		Format:      report.Format.String(),
		Clients:     status.Clients{},
		GlobalStats: report.GlobalStats,
	}
	if !report.Time.IsZero() {
		t := report.Time
		view.Time = &t
	}

	kept := make(map[string]bool)
	for _, c := range report.Clients {
		if users.MatchString(c.Name()) && from.MatchString(c.RealIP()) {
			view.Clients = append(view.Clients, c)
			kept[c.CommonName] = true
		}
	}
	for _, r := range report.Routes {
		if kept[r.CommonName] {
			view.Routes = append(view.Routes, r)
		}
	}
	for _, e := range report.RowErrors {
		view.RowErrors = append(view.RowErrors, e.Error())
	}

	return view
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func (v *statusView) text(now time.Time) string {
	var sb strings.Builder

	if v.Title != "" {
		sb.WriteString(v.Title + "\n")
	}
	if v.Time != nil {
		sb.WriteString("Updated " + v.Time.Format(time.DateTime) + "\n")
	}

	clients := newTable("USER", "COMMON NAME", "REAL ADDRESS", "VIRTUAL ADDRESS", "RECEIVED", "SENT", "CONNECTED")
	for _, c := range v.Clients {
		clients.Row(
			c.Name(),
			c.CommonName,
			c.RealAddress,
			joinNonEmpty(c.VirtualAddress, c.VirtualIPv6Address),
			formatBytes(c.BytesReceived),
			formatBytes(c.BytesSent),
			since(c.ConnectedSince, now),
		)
	}
	sb.WriteString(clients.String() + "\n")
	sb.WriteString(fmt.Sprintf("%d clients\n", len(v.Clients)))

	if len(v.Routes) > 0 {
		routes := newTable("VIRTUAL ADDRESS", "COMMON NAME", "REAL ADDRESS", "LAST REF")
		for _, r := range v.Routes {
			routes.Row(r.VirtualAddress, r.CommonName, r.RealAddress, since(r.LastRef, now))
		}
		sb.WriteString(routes.String() + "\n")
	}

	if len(v.GlobalStats) > 0 {
		names := make([]string, 0, len(v.GlobalStats))
		for name := range v.GlobalStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("%s: %d\n", name, v.GlobalStats[name]))
		}
	}

	if len(v.RowErrors) > 0 {
		sb.WriteString(fmt.Sprintf("%d rows skipped\n", len(v.RowErrors)))
	}

	return sb.String()
}

func loadStatsText(s *client.LoadStats) string {
	return fmt.Sprintf("clients: %d\nbytes in: %s\nbytes out: %s\n",
		s.NumOfClients, formatBytes(s.BytesIn), formatBytes(s.BytesOut))
}

func formatBytes(n int64) string {
	if n < 0 {
		return strconv.FormatInt(n, 10)
	}
	return humanize.IBytes(uint64(n))
}

func since(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func joinNonEmpty(values ...string) string {
	var parts []string
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
