package roboterr

import "fmt"

// Controller error codes that have a known meaning.
const (
	CodeNoError           uint16 = 0
	CodeControllerNotInit uint16 = 40000
)

var codeMessages = map[uint16]string{
	CodeNoError:           "no error",
	CodeControllerNotInit: "controller not initialized",
}

// ControllerError is returned when the controller answers a command with a failure code.
type ControllerError struct {
	Command string
	Code    uint16
}

func (e *ControllerError) Error() string {
	if msg, ok := codeMessages[e.Code]; ok {
		return fmt.Sprintf("%s: %s failed with code %d (%s)", KindController, e.Command, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s failed with code %d", KindController, e.Command, e.Code)
}

// Is lets errors.Is(err, ErrController) match.
func (e *ControllerError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t == ErrController
}
