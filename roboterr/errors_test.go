package roboterr

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError(cause, "dial %s", "10.0.0.1:10003")
	test.That(t, errors.Is(err, ErrNetwork), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrDeserialize), test.ShouldBeFalse)
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "NetworkError: dial 10.0.0.1:10003: connection refused")
	test.That(t, KindOf(err), test.ShouldEqual, KindNetwork)

	wrapped := errors.Wrap(NewUnprocessableInstructionError("robot is moving"), "move")
	test.That(t, errors.Is(wrapped, ErrUnprocessableInstruction), test.ShouldBeTrue)
	test.That(t, KindOf(wrapped), test.ShouldEqual, KindUnprocessableInstruction)

	test.That(t, KindOf(errors.New("plain")), test.ShouldEqual, KindUnknown)
	test.That(t, ErrTimeout.Error(), test.ShouldEqual, "Timeout")
}

func TestControllerError(t *testing.T) {
	err := error(&ControllerError{Command: "GrpEnable", Code: CodeControllerNotInit})
	test.That(t, errors.Is(err, ErrController), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrNetwork), test.ShouldBeFalse)
	test.That(t, KindOf(errors.Wrap(err, "enable")), test.ShouldEqual, KindController)
	test.That(t, err.Error(), test.ShouldContainSubstring, "controller not initialized")

	err = &ControllerError{Command: "MoveJ", Code: 20018}
	test.That(t, err.Error(), test.ShouldEqual, "ControllerError: MoveJ failed with code 20018")
}

func TestWaitAborted(t *testing.T) {
	err := NewWaitAbortedError(context.Canceled)
	test.That(t, errors.Is(err, ErrTimeout), test.ShouldBeTrue)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "Timeout: wait aborted: context canceled")
}
