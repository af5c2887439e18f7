package network_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
	"github.com/roplat/hans/roboterr"
	"github.com/roplat/hans/testutils/fakecontroller"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	fake, err := fakecontroller.New(logger)
	test.That(t, err, test.ShouldBeNil)
	defer fake.Close()

	s := network.NewSession(0, logger)
	test.That(t, s.IsConnected(), test.ShouldBeFalse)

	_, err = s.Transact(ctx, "GrpEnable,0,;")
	test.That(t, errors.Is(err, roboterr.ErrNetwork), test.ShouldBeTrue)
	test.That(t, fake.Transactions(), test.ShouldEqual, int64(0))

	test.That(t, s.Connect(ctx, fake.Host(), fake.Port()), test.ShouldBeNil)
	test.That(t, s.IsConnected(), test.ShouldBeTrue)

	reply, err := s.Transact(ctx, "GrpEnable,0,;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reply, test.ShouldEqual, "GrpEnable,OK,;")
	test.That(t, fake.Requests(), test.ShouldResemble, []string{"GrpEnable,0"})

	reply, err = s.Transact(ctx, "ReadCurFSM,0,;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reply, test.ShouldEqual, "ReadCurFSM,OK,33,;")

	test.That(t, s.Disconnect(), test.ShouldBeNil)
	test.That(t, s.IsConnected(), test.ShouldBeFalse)
	test.That(t, s.Disconnect(), test.ShouldBeNil)

	_, err = s.Transact(ctx, "GrpEnable,0,;")
	test.That(t, errors.Is(err, roboterr.ErrNetwork), test.ShouldBeTrue)
	test.That(t, fake.Transactions(), test.ShouldEqual, int64(2))

	// reconnecting replaces the old stream
	test.That(t, s.Connect(ctx, fake.Host(), fake.Port()), test.ShouldBeNil)
	test.That(t, s.Connect(ctx, fake.Host(), fake.Port()), test.ShouldBeNil)
	test.That(t, s.Disconnect(), test.ShouldBeNil)
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	test.That(t, listener.Close(), test.ShouldBeNil)

	s := network.NewSession(time.Second, logging.NewTestLogger(t))
	err = s.Connect(context.Background(), "127.0.0.1", port)
	test.That(t, errors.Is(err, roboterr.ErrNetwork), test.ShouldBeTrue)
	test.That(t, s.IsConnected(), test.ShouldBeFalse)
}

func TestReadTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	defer listener.Close()

	// accepts and never answers
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	s := network.NewSession(100*time.Millisecond, logging.NewTestLogger(t))
	addr := listener.Addr().(*net.TCPAddr)
	test.That(t, s.Connect(context.Background(), "127.0.0.1", uint16(addr.Port)), test.ShouldBeNil)
	defer s.Disconnect()

	start := time.Now()
	_, err = s.Transact(context.Background(), "ReadCurFSM,0,;")
	test.That(t, errors.Is(err, roboterr.ErrNetwork), test.ShouldBeTrue)
	test.That(t, time.Since(start), test.ShouldBeLessThan, 2*time.Second)

	conn := <-accepted
	test.That(t, conn.Close(), test.ShouldBeNil)
}

func TestLossyReply(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write([]byte("ReadCurFSM,OK,\xff33,;"))
	}()

	s := network.NewSession(time.Second, logging.NewTestLogger(t))
	addr := listener.Addr().(*net.TCPAddr)
	test.That(t, s.Connect(context.Background(), "127.0.0.1", uint16(addr.Port)), test.ShouldBeNil)
	defer s.Disconnect()

	reply, err := s.Transact(context.Background(), "ReadCurFSM,0,;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.HasPrefix(reply, "ReadCurFSM,OK,"), test.ShouldBeTrue)
	test.That(t, reply, test.ShouldContainSubstring, "�33")
}

func TestAddress(t *testing.T) {
	test.That(t, network.Address("192.168.0.10", network.PortIF), test.ShouldEqual, "192.168.0.10:10003")
	test.That(t, network.Address("::1", network.PortModbusTCP), test.ShouldEqual, "[::1]:10502")
}
