// Package network implements the single TCP session used to talk to a Hans controller.
package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/roboterr"
)

// Fixed controller ports. Only PortIF is spoken by this package.
const (
	PortIF               uint16 = 10003
	PortDatasheetJSON1   uint16 = 10004
	PortDatasheetJSON2   uint16 = 10005
	PortDatasheetJSON3   uint16 = 10006
	PortDatasheetStruct1 uint16 = 10014
	PortDatasheetStruct2 uint16 = 10015
	PortDatasheetStruct3 uint16 = 10016
	PortModbusTCP        uint16 = 10502
)

const (
	// DefaultTimeout is applied to reads and writes.
	DefaultTimeout = 3 * time.Second
	// ReplyBufferSize bounds a single controller reply.
	ReplyBufferSize = 1024
)

// Transport moves one encoded request and its reply.
type Transport interface {
	Transact(ctx context.Context, request string) (string, error)
	IsConnected() bool
}

// Session is a TCP connection to the controller. It is not safe for concurrent use;
// the lock only guards the connected state read by IsConnected.
type Session struct {
	mu        sync.Mutex
	conn      net.Conn
	connected bool
	timeout   time.Duration
	logger    logging.Logger
}

// NewSession returns a disconnected session. A zero timeout means DefaultTimeout.
func NewSession(timeout time.Duration, logger logging.Logger) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{timeout: timeout, logger: logger}
}

// Address joins host and port.
func Address(host string, port uint16) string {
	return net.JoinHostPort(host, fmt.Sprint(port))
}

// Connect opens the TCP stream. An open connection is closed first.
func (s *Session) Connect(ctx context.Context, host string, port uint16) error {
	if s.IsConnected() {
		if err := s.Disconnect(); err != nil {
			s.logger.CWarnw(ctx, "error closing previous connection", "error", err)
		}
	}

	addr := Address(host, port)
	d := net.Dialer{Timeout: s.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return roboterr.NewNetworkError(err, "can't connect to hans controller (%s)", addr)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.logger.CInfow(ctx, "connected to controller", "address", addr)
	return nil
}

// Disconnect shuts down both directions and closes the connection.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	var err error
	if tcp, ok := conn.(*net.TCPConn); ok {
		err = multierr.Combine(tcp.CloseRead(), tcp.CloseWrite())
	}
	err = multierr.Combine(err, conn.Close())
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return roboterr.NewNetworkError(err, "disconnect")
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Disconnect has not been called since.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Transact writes request and performs exactly one read for the reply.
// The reply is decoded as UTF-8, replacing invalid sequences.
func (s *Session) Transact(ctx context.Context, request string) (string, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return "", roboterr.NewNetworkError(nil, "no active TCP connection")
	}
	if err := ctx.Err(); err != nil {
		return "", roboterr.NewNetworkError(err, "transact")
	}

	deadline := time.Now().Add(s.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", roboterr.NewNetworkError(err, "set deadline")
	}

	if _, err := conn.Write([]byte(request)); err != nil {
		return "", roboterr.NewNetworkError(err, "write request")
	}

	buf := make([]byte, ReplyBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", roboterr.NewNetworkError(err, "read reply")
	}
	reply := strings.ToValidUTF8(string(buf[:n]), "�")
	s.logger.CDebugw(ctx, "transact", "request", request, "reply", reply)
	return reply, nil
}
