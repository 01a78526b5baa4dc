// SPDX-License-Identifier: GPL-3.0-or-later

package client

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const greeting = ">INFO:OpenVPN Management Interface Version 5 -- type 'help' for more info\n"

type mockReply struct {
	resp   string
	hangup bool
	delay  time.Duration
}

// mockServer imitates an OpenVPN management interface. Unknown commands get
// the daemon's own error line.
type mockServer struct {
	listener net.Listener
	replies  map[string]mockReply
	wg       sync.WaitGroup

	mu       sync.Mutex
	commands []string
}

func newMockServer(t *testing.T, replies map[string]mockReply) *mockServer {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &mockServer{listener: l, replies: replies}
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		srv.serve()
	}()
	t.Cleanup(srv.close)

	return srv
}

func (s *mockServer) address() string { return "tcp://" + s.listener.Addr().String() }

func (s *mockServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *mockServer) close() {
	_ = s.listener.Close()
	s.wg.Wait()
}

func (s *mockServer) serve() {
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
			s.handle(conn)
		}()
	}
}

func (s *mockServer) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	_, _ = rw.WriteString(greeting)
	_ = rw.Flush()

	for {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		line, err := rw.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		r, ok := s.replies[cmd]
		if !ok {
			r = mockReply{resp: "ERROR: unknown command, enter 'help' for more options\n"}
		}
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
