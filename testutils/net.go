// Package testutils holds helpers shared by the driver's tests.
package testutils

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
)

var (
	waitDur      = 5 * time.Second
	dialInterval = 10 * time.Millisecond
)

// WaitSuccessfulDial waits until host:port accepts a controller session, as a relay or fake
// controller started in the background does once it listens.
func WaitSuccessfulDial(ctx context.Context, host string, port uint16) error {
	ctx, cancel := context.WithTimeout(ctx, waitDur)
	defer cancel()
	lastErr := errors.New("timed out dialing")
	for {
		session := network.NewSession(dialInterval, logging.NewBlankLogger("dial"))
		if lastErr = session.Connect(ctx, host, port); lastErr == nil {
			return session.Disconnect()
		}
		if !goutils.SelectContextOrWait(ctx, dialInterval) {
			return lastErr
		}
	}
}
