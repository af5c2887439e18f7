package testutils

import (
	"context"
	"net"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/testutils/fakecontroller"
)

func TestWaitSuccessfulDial(t *testing.T) {
	fc, err := fakecontroller.New(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, fc.Close(), test.ShouldBeNil) }()

	prevWaitDur := waitDur
	defer func() {
		waitDur = prevWaitDur
	}()
	waitDur = 50 * time.Millisecond

	ctx := context.Background()
	test.That(t, WaitSuccessfulDial(ctx, fc.Host(), fc.Port()), test.ShouldBeNil)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	port := uint16(listener.Addr().(*net.TCPAddr).Port)
	test.That(t, listener.Close(), test.ShouldBeNil)
	err = WaitSuccessfulDial(ctx, "127.0.0.1", port)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "NetworkError")
}
