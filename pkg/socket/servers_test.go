// SPDX-License-Identifier: GPL-3.0-or-later

package socket

import (
	"bufio"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// reply is what the test server writes back for one request line.
// If hangup is set the connection is closed right after resp is written.
type reply struct {
	resp   string
	hangup bool
	delay  time.Duration
}

type lineServer struct {
	listener net.Listener
	handle   func(cmd string) reply
	wg       sync.WaitGroup
}

func newTCPServer(t *testing.T, handle func(cmd string) reply) *lineServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return startLineServer(t, l, handle)
}

func newUnixServer(t *testing.T, handle func(cmd string) reply) *lineServer {
	t.Helper()
	l, err := net.Listen("unix", filepath.Join(t.TempDir(), "mgmt.sock"))
	require.NoError(t, err)
	return startLineServer(t, l, handle)
}

func startLineServer(t *testing.T, l net.Listener, handle func(cmd string) reply) *lineServer {
	srv := &lineServer{listener: l, handle: handle}

	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		srv.serve()
	}()

	t.Cleanup(srv.Close)

	return srv
}

func (s *lineServer) Address() string {
	if s.listener.Addr().Network() == "unix" {
		return "unix://" + s.listener.Addr().String()
	}
	return "tcp://" + s.listener.Addr().String()
}

func (s *lineServer) Close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

func (s *lineServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *lineServer) handleConnection(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	for {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		cmd, err := rw.ReadString('\n')
		if err != nil {
			return
		}

		r := s.handle(strings.TrimRight(cmd, "\r\n"))
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
		_, _ = rw.WriteString(r.resp)
		_ = rw.Flush()

		if r.hangup {
			return
		}
	}
}
