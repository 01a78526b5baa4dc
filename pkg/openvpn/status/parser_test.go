// SPDX-License-Identifier: GPL-3.0-or-later

package status

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dataV1, _ = os.ReadFile("testdata/v1.txt")
	dataV2, _ = os.ReadFile("testdata/v2.txt")
	dataV3, _ = os.ReadFile("testdata/v3.txt")
)

func Test_testDataIsValid(t *testing.T) {
	for name, data := range map[string][]byte{
		"dataV1": dataV1,
		"dataV2": dataV2,
		"dataV3": dataV3,
	} {
		require.NotNil(t, data, name)
	}
}

func toLines(data []byte) []string {
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func localTime(t *testing.T, layout, value string) time.Time {
	t.Helper()
	v, err := time.ParseInLocation(layout, value, time.Local)
	require.NoError(t, err)
	return v
}

func TestParse_TaggedFormats(t *testing.T) {
	wantClients := Clients{
		{
			CommonName:        "alice",
			RealAddress:       "203.0.113.10:52311",
			VirtualAddress:    "10.8.0.2",
			BytesReceived:     123456,
			BytesSent:         654321,
			ConnectedSince:    time.Unix(1678787881, 0),
			Username:          "alice",
			ClientID:          0,
			PeerID:            0,
			DataChannelCipher: "AES-256-GCM",
		},
		{
			CommonName:         "bob",
			RealAddress:        "198.51.100.7:1194",
			VirtualAddress:     "10.8.0.3",
			VirtualIPv6Address: "fd00::3",
			BytesReceived:      2048,
			BytesSent:          4096,
			ConnectedSince:     time.Unix(1678788042, 0),
			Username:           "UNDEF",
			ClientID:           1,
			PeerID:             1,
			DataChannelCipher:  "CHACHA20-POLY1305",
		},
	}
	wantRoutes := Routes{
		{VirtualAddress: "10.8.0.2", CommonName: "alice", RealAddress: "203.0.113.10:52311", LastRef: time.Unix(1678788129, 0)},
		{VirtualAddress: "10.8.0.3", CommonName: "bob", RealAddress: "198.51.100.7:1194", LastRef: time.Unix(1678788130, 0)},
	}

	tests := map[string]struct {
		input      []byte
		wantFormat Format
	}{
		"status 2": {input: dataV2, wantFormat: FormatV2},
		"status 3": {input: dataV3, wantFormat: FormatV3},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			report, err := Parse(toLines(test.input))
			require.NoError(t, err)

			assert.Equal(t, test.wantFormat, report.Format)
			assert.True(t, strings.HasPrefix(report.Title, "OpenVPN 2.5.1 x86_64-pc-linux-gnu"))
			assert.Equal(t, time.Unix(1678788131, 0), report.Time)
			assert.Equal(t, wantClients, report.Clients)
			assert.Equal(t, wantRoutes, report.Routes)
			assert.Equal(t, map[string]int64{"Max bcast/mcast queue length": 3}, report.GlobalStats)
			assert.Empty(t, report.RowErrors)
		})
	}
}

func TestParse_V1(t *testing.T) {
	const layout = "Mon Jan _2 15:04:05 2006"

	report, err := Parse(toLines(dataV1))
	require.NoError(t, err)

	assert.Equal(t, FormatV1, report.Format)
	assert.Equal(t, localTime(t, layout, "Thu Jan 17 10:44:53 2019"), report.Time)
	assert.Equal(t, Clients{
		{
			CommonName:     "alice",
			RealAddress:    "203.0.113.10:52311",
			BytesReceived:  3532,
			BytesSent:      3389,
			ConnectedSince: localTime(t, layout, "Thu Jan 17 10:42:45 2019"),
		},
		{
			CommonName:     "bob",
			RealAddress:    "198.51.100.7:1194",
			BytesReceived:  100,
			BytesSent:      200,
			ConnectedSince: localTime(t, layout, "Thu Jan  3 08:01:02 2019"),
		},
	}, report.Clients)
	assert.Equal(t, Routes{
		{
			VirtualAddress: "10.8.0.2",
			CommonName:     "alice",
			RealAddress:    "203.0.113.10:52311",
			LastRef:        localTime(t, layout, "Thu Jan 17 10:44:46 2019"),
		},
	}, report.Routes)
	assert.Equal(t, map[string]int64{"Max bcast/mcast queue length": 0}, report.GlobalStats)
}

func TestParse_ExampleClientList(t *testing.T) {
	report, err := Parse([]string{
		"HEADER,CLIENT_LIST,Common Name,Real Address,Bytes Received,Bytes Sent",
		"CLIENT_LIST,alice,10.0.0.5:1194,1024,2048",
		"END",
	})
	require.NoError(t, err)

	assert.Equal(t, Clients{{
		CommonName:    "alice",
		RealAddress:   "10.0.0.5:1194",
		BytesReceived: 1024,
		BytesSent:     2048,
	}}, report.Clients)
	assert.Empty(t, report.Routes)
}

func TestParse_HeaderWithoutColumnsUsesDefaults(t *testing.T) {
	report, err := Parse([]string{
		"TITLE\ttest-title",
		"TIME\ttimestamp\t1547913893",
		"HEADER\tCLIENT_LIST",
		"CLIENT_LIST\ttest-client\t127.0.0.1:12345\t10.8.0.2\t\t100\t200\tdate-string\t1546277714",
	})
	require.NoError(t, err)

	assert.Equal(t, FormatV3, report.Format)
	assert.Equal(t, "test-title", report.Title)
	assert.Equal(t, time.Unix(1547913893, 0), report.Time)
	assert.Equal(t, Clients{{
		CommonName:     "test-client",
		RealAddress:    "127.0.0.1:12345",
		VirtualAddress: "10.8.0.2",
		BytesReceived:  100,
		BytesSent:      200,
		ConnectedSince: time.Unix(1546277714, 0),
	}}, report.Clients)
}

func TestParse_EmptyClientList(t *testing.T) {
	report, err := Parse([]string{
		"TITLE\ttest-title",
		"TIME\ttimestamp\t1547913893",
		"HEADER\tCLIENT_LIST",
	})
	require.NoError(t, err)

	assert.Empty(t, report.Clients)
	assert.Equal(t, "test-title", report.Title)
}

func TestParse_KeepsOrder(t *testing.T) {
	lines := []string{"HEADER,CLIENT_LIST,Common Name,Real Address,Bytes Received,Bytes Sent"}
	for i := 0; i < 50; i++ {
		lines = append(lines, fmt.Sprintf("CLIENT_LIST,client-%02d,192.0.2.%d:1194,%d,%d", 49-i, i, i, i*2))
	}

	report, err := Parse(lines)
	require.NoError(t, err)

	require.Len(t, report.Clients, 50)
	for i, c := range report.Clients {
		assert.Equal(t, fmt.Sprintf("client-%02d", 49-i), c.CommonName)
		assert.Equal(t, int64(i), c.BytesReceived)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	want := Clients{
		{CommonName: "alice", RealAddress: "10.0.0.5:1194", VirtualAddress: "10.8.0.2", BytesReceived: 1, BytesSent: 2, ConnectedSince: time.Unix(1700000000, 0), Username: "alice", ClientID: 7, PeerID: 3, DataChannelCipher: "AES-128-GCM"},
		{CommonName: "bob", RealAddress: "10.0.0.6:1194", VirtualAddress: "10.8.0.3", VirtualIPv6Address: "fd00::3", BytesReceived: 1 << 40, BytesSent: 0, ConnectedSince: time.Unix(1700000100, 0), Username: "UNDEF", ClientID: 8, PeerID: 4},
	}

	lines := []string{"HEADER\tCLIENT_LIST\t" + strings.Join(defaultClientColumns, "\t")}
	for _, c := range want {
		lines = append(lines, strings.Join([]string{
			tagClientList, c.CommonName, c.RealAddress, c.VirtualAddress, c.VirtualIPv6Address,
			fmt.Sprint(c.BytesReceived), fmt.Sprint(c.BytesSent),
			c.ConnectedSince.Format("2006-01-02 15:04:05"), fmt.Sprint(c.ConnectedSince.Unix()),
			c.Username, fmt.Sprint(c.ClientID), fmt.Sprint(c.PeerID), c.DataChannelCipher,
		}, "\t"))
	}

	report, err := Parse(lines)
	require.NoError(t, err)

	assert.Equal(t, want, report.Clients)
}

func TestParse_LenientRows(t *testing.T) {
	tests := map[string]struct {
		lines         []string
		wantClients   Clients
		wantRowErrors int
	}{
		"row shorter than header": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address,Bytes Received,Bytes Sent",
				"CLIENT_LIST,carol,192.0.2.1:1194",
				"CLIENT_LIST,dave,192.0.2.2:1194,10,20",
			},
			wantClients: Clients{
				{CommonName: "carol", RealAddress: "192.0.2.1:1194"},
				{CommonName: "dave", RealAddress: "192.0.2.2:1194", BytesReceived: 10, BytesSent: 20},
			},
		},
		"non numeric counter": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address,Bytes Received,Bytes Sent",
				"CLIENT_LIST,dave,192.0.2.2:1194,NAN_STRING,2048",
			},
			wantClients: Clients{
				{CommonName: "dave", RealAddress: "192.0.2.2:1194", BytesSent: 2048},
			},
		},
		"non finite and out of range counters": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address,Bytes Received,Bytes Sent",
				"CLIENT_LIST,alice,192.0.2.1:1194,NaN,inf",
				"CLIENT_LIST,bob,192.0.2.2:1194,1e30,0x10",
				"CLIENT_LIST,carol,192.0.2.3:1194,-Infinity,1.5e3",
			},
			wantClients: Clients{
				{CommonName: "alice", RealAddress: "192.0.2.1:1194"},
				{CommonName: "bob", RealAddress: "192.0.2.2:1194"},
				{CommonName: "carol", RealAddress: "192.0.2.3:1194", BytesSent: 1500},
			},
		},
		"unparsable timestamp": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Connected Since,Connected Since (time_t)",
				"CLIENT_LIST,erin,date-string,NAN_DATE_TIME",
			},
			wantClients: Clients{{CommonName: "erin"}},
		},
		"unknown and extra columns": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address,Custom Column",
				"CLIENT_LIST,frank,192.0.2.3:1194,custom,surplus",
			},
			wantClients: Clients{{
				CommonName:  "frank",
				RealAddress: "192.0.2.3:1194",
				Extra:       map[string]string{"Custom Column": "custom", "column 4": "surplus"},
			}},
		},
		"wrong delimiter": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address",
				"CLIENT_LIST bad\tclient\tinformation",
				"CLIENT_LIST,grace,192.0.2.4:1194",
			},
			wantClients:   Clients{{CommonName: "grace", RealAddress: "192.0.2.4:1194"}},
			wantRowErrors: 1,
		},
		"binary garbage": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name,Real Address",
				"CLIENT_LIST,\x00\x01\xff\xfe",
				"CLIENT_LIST,heidi,192.0.2.5:1194",
			},
			wantClients:   Clients{{CommonName: "heidi", RealAddress: "192.0.2.5:1194"}},
			wantRowErrors: 1,
		},
		"tag without fields": {
			lines: []string{
				"HEADER,CLIENT_LIST,Common Name",
				"CLIENT_LIST",
				"CLIENT_LIST,ivan",
			},
			wantClients:   Clients{{CommonName: "ivan"}},
			wantRowErrors: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			report, err := Parse(test.lines)
			require.NoError(t, err)

			assert.Equal(t, test.wantClients, report.Clients)
			assert.Len(t, report.RowErrors, test.wantRowErrors)
		})
	}
}

func TestParse_RowErrorDetails(t *testing.T) {
	report, err := Parse([]string{
		"HEADER,CLIENT_LIST,Common Name",
		"CLIENT_LIST bad\tclient",
	})
	require.NoError(t, err)
	require.Len(t, report.RowErrors, 1)

	rowErr := report.RowErrors[0]
	assert.Equal(t, 2, rowErr.Line)
	assert.Equal(t, tagClientList, rowErr.Section)
	assert.Equal(t, "CLIENT_LIST bad\tclient", rowErr.Raw)
	assert.Contains(t, rowErr.Error(), "line 2")
}

func TestParse_SkipsUnknownSections(t *testing.T) {
	report, err := Parse([]string{
		"HEADER,CLIENT_LIST,Common Name,Real Address",
		"CLIENT_LIST,alice,192.0.2.1:1194",
		"HEADER,BRAND_NEW_SECTION,Foo,Bar",
		"BRAND_NEW_SECTION,1,2",
		"CLIENT_LIST_V9,x,y",
		"CLIENT_LIST,bob,192.0.2.2:1194",
		"HEADER,ROUTING_TABLE,Virtual Address,Common Name",
		"ROUTING_TABLE,10.8.0.2,alice",
	})
	require.NoError(t, err)

	assert.Equal(t, Clients{
		{CommonName: "alice", RealAddress: "192.0.2.1:1194"},
		{CommonName: "bob", RealAddress: "192.0.2.2:1194"},
	}, report.Clients)
	assert.Equal(t, Routes{{VirtualAddress: "10.8.0.2", CommonName: "alice"}}, report.Routes)
	assert.Empty(t, report.RowErrors)
}

func TestParse_GlobalStats(t *testing.T) {
	report, err := Parse([]string{
		"GLOBAL_STATS,Max bcast/mcast queue length,5",
		"GLOBAL_STATS,dco_enabled,abc",
		"GLOBAL_STATS,queue,nan",
		"GLOBAL_STATS,overflow,9.3e18",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{
		"Max bcast/mcast queue length": 5,
		"dco_enabled":                  0,
		"queue":                        0,
		"overflow":                     0,
	}, report.GlobalStats)
}

func TestParse_StopsAtEND(t *testing.T) {
	report, err := Parse([]string{
		"CLIENT_LIST,alice",
		"END",
		"CLIENT_LIST,mallory",
	})
	require.NoError(t, err)

	assert.Len(t, report.Clients, 1)
}

func TestParse_TimeFallback(t *testing.T) {
	report, err := Parse([]string{
		"TIME,2023-03-14T10:02:11Z",
		"HEADER,CLIENT_LIST,Common Name",
	})
	require.NoError(t, err)

	assert.True(t, report.Time.Equal(time.Date(2023, 3, 14, 10, 2, 11, 0, time.UTC)), report.Time.String())
}

func TestParse_UnrecognizedFormat(t *testing.T) {
	tests := map[string]struct {
		lines         []string
		wantFirstLine string
	}{
		"free text":   {lines: []string{"no client string"}, wantFirstLine: "no client string"},
		"title only":  {lines: []string{"", "TITLE,OpenVPN 2.6.8"}, wantFirstLine: "TITLE,OpenVPN 2.6.8"},
		"empty input": {lines: nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			report, err := Parse(test.lines)

			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrUnrecognizedFormat)

			var fmtErr *FormatError
			require.True(t, errors.As(err, &fmtErr))
			assert.Equal(t, test.wantFirstLine, fmtErr.FirstLine)
		})
	}
}

func TestReport_Lookups(t *testing.T) {
	report, err := Parse(toLines(dataV2))
	require.NoError(t, err)

	c, ok := report.ClientByName("bob")
	require.True(t, ok)
	assert.Equal(t, "10.8.0.3", c.VirtualAddress)

	_, ok = report.ClientByName("nobody")
	assert.False(t, ok)

	routes := report.RoutesOf("alice")
	require.Len(t, routes, 1)
	assert.Equal(t, "10.8.0.2", routes[0].VirtualAddress)
}

func TestClient_Name(t *testing.T) {
	tests := map[string]struct {
		client Client
		want   string
	}{
		"username":       {client: Client{CommonName: "cn", Username: "user"}, want: "user"},
		"undef username": {client: Client{CommonName: "cn", Username: "UNDEF"}, want: "cn"},
		"no username":    {client: Client{CommonName: "cn"}, want: "cn"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, test.client.Name())
		})
	}
}

func TestClient_RealIP(t *testing.T) {
	tests := map[string]struct {
		address string
		want    string
	}{
		"ipv4 with port": {address: "10.0.0.5:1194", want: "10.0.0.5"},
		"ipv6 with port": {address: "[2001:db8::1]:1194", want: "2001:db8::1"},
		"udp4 prefix":    {address: "udp4:10.0.0.5:1194", want: "10.0.0.5"},
		"tcp6 prefix":    {address: "tcp6-server:[2001:db8::1]:1194", want: "2001:db8::1"},
		"no port":        {address: "10.0.0.5", want: "10.0.0.5"},
		"empty":          {address: "", want: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, Client{RealAddress: test.address}.RealIP())
		})
	}
}
