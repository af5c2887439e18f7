// Package roboterr contains the error kinds returned by the hans driver.
//
// Every fallible operation in the driver returns an error whose kind can be
// recovered with errors.Is against one of the sentinels below, or with KindOf.
package roboterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a driver error.
type Kind uint8

// Known error kinds.
const (
	KindUnknown Kind = iota
	KindNetwork
	KindDeserialize
	KindUnprocessableInstruction
	KindInvalidInstruction
	KindUnsupportedOperation
	KindTimeout
	KindController
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindDeserialize:
		return "DeserializeError"
	case KindUnprocessableInstruction:
		return "UnprocessableInstructionError"
	case KindInvalidInstruction:
		return "InvalidInstruction"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	case KindTimeout:
		return "Timeout"
	case KindController:
		return "ControllerError"
	case KindUnknown:
		fallthrough
	default:
		return "UnknownError"
	}
}

// Error is a driver error of a given Kind. Err, if set, is the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels for use with errors.Is.
var (
	ErrNetwork                  = &Error{Kind: KindNetwork}
	ErrDeserialize              = &Error{Kind: KindDeserialize}
	ErrUnprocessableInstruction = &Error{Kind: KindUnprocessableInstruction}
	ErrInvalidInstruction       = &Error{Kind: KindInvalidInstruction}
	ErrUnsupportedOperation     = &Error{Kind: KindUnsupportedOperation}
	ErrTimeout                  = &Error{Kind: KindTimeout}
	ErrController               = &Error{Kind: KindController}
)

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first driver error in err's chain.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	var ce *ControllerError
	if errors.As(err, &ce) {
		return KindController
	}
	return KindUnknown
}

// NewNetworkError is used when the connection is absent, refused or times out.
func NewNetworkError(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindNetwork, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NewDeserializeError is used when wire text does not match the expected shape.
func NewDeserializeError(format string, args ...interface{}) error {
	return &Error{Kind: KindDeserialize, Msg: fmt.Sprintf(format, args...)}
}

// NewUnprocessableInstructionError is used when a well formed request violates a
// runtime precondition.
func NewUnprocessableInstructionError(format string, args ...interface{}) error {
	return &Error{Kind: KindUnprocessableInstruction, Msg: fmt.Sprintf(format, args...)}
}

// NewInvalidInstructionError is used for unknown opcode names or mismatched arguments.
func NewInvalidInstructionError(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidInstruction, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NewUnsupportedOperationError is used for features the hardware does not implement.
func NewUnsupportedOperationError(op string) error {
	return &Error{Kind: KindUnsupportedOperation, Msg: op + " is not supported by this robot"}
}

// NewTimeoutError is used when a bounded wait expires.
func NewTimeoutError(format string, args ...interface{}) error {
	return &Error{Kind: KindTimeout, Msg: fmt.Sprintf(format, args...)}
}

// NewWaitAbortedError is used when a wait ends because its context was cancelled or expired.
// err stays in the chain so errors.Is still matches context.Canceled.
func NewWaitAbortedError(err error) error {
	return &Error{Kind: KindTimeout, Msg: "wait aborted", Err: err}
}
