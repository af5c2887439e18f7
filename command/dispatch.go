package command

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
	"github.com/roplat/hans/protocol"
	"github.com/roplat/hans/roboterr"
)

const (
	frameEnd     = ";"
	replyOK      = "OK"
	replyFailure = "Fail"
)

// EncodeRequest frames a payload as "<Name>,<payload>,;".
func EncodeRequest(op Opcode, payload string) string {
	if payload == "" {
		return op.String() + protocol.Delimiter + frameEnd
	}
	return op.String() + protocol.Delimiter + payload + protocol.Delimiter + frameEnd
}

// DecodeReply checks the reply frame for op and returns its payload.
// A "Fail" reply becomes a *roboterr.ControllerError.
func DecodeReply(op Opcode, reply string) (string, error) {
	body := strings.TrimSpace(reply)
	if !strings.HasSuffix(body, frameEnd) {
		return "", roboterr.NewDeserializeError("reply to %s is not terminated: %q", op, reply)
	}
	body = strings.TrimSuffix(strings.TrimSuffix(body, frameEnd), protocol.Delimiter)

	parts := strings.SplitN(body, protocol.Delimiter, 3)
	if len(parts) < 2 {
		return "", roboterr.NewDeserializeError("reply to %s is too short: %q", op, reply)
	}
	if strings.TrimSpace(parts[0]) != op.String() {
		return "", roboterr.NewDeserializeError("reply to %s names %q", op, parts[0])
	}
	var payload string
	if len(parts) == 3 {
		payload = parts[2]
	}

	switch strings.TrimSpace(parts[1]) {
	case replyOK:
		return payload, nil
	case replyFailure:
		code, err := strconv.ParseUint(strings.TrimSpace(strings.Split(payload, protocol.Delimiter)[0]), 10, 16)
		if err != nil {
			return "", roboterr.NewDeserializeError("reply to %s has invalid error code %q", op, payload)
		}
		return "", &roboterr.ControllerError{Command: op.String(), Code: uint16(code)}
	default:
		return "", roboterr.NewDeserializeError("reply to %s has no status: %q", op, reply)
	}
}

// Dispatcher sends typed commands over a Transport.
type Dispatcher struct {
	transport network.Transport
	logger    logging.Logger
}

// NewDispatcher returns a Dispatcher using transport.
func NewDispatcher(transport network.Transport, logger logging.Logger) *Dispatcher {
	return &Dispatcher{transport: transport, logger: logger}
}

// Transport returns the underlying transport.
func (d *Dispatcher) Transport() network.Transport {
	return d.transport
}

// Do sends req for op and decodes the reply into resp, which must point to op's response record.
func (d *Dispatcher) Do(ctx context.Context, op Opcode, req, resp interface{}) error {
	b, ok := Lookup(op)
	if !ok {
		return roboterr.NewInvalidInstructionError(nil, "unknown opcode %d", uint16(op))
	}
	if reflect.TypeOf(req) != b.Request {
		return roboterr.NewInvalidInstructionError(nil, "%s takes %s, got %T", op, b.Request, req)
	}
	if resp != nil && reflect.TypeOf(resp) != reflect.PointerTo(b.Response) {
		return roboterr.NewInvalidInstructionError(nil, "%s returns %s, got %T", op, b.Response, resp)
	}

	payload, err := d.exchange(ctx, op, protocol.Marshal(req))
	if err != nil {
		return err
	}
	if resp == nil {
		resp = reflect.New(b.Response).Interface()
	}
	if err := protocol.Unmarshal(payload, resp); err != nil {
		return errors.Wrapf(err, "decoding %s reply", op)
	}
	return nil
}

func (d *Dispatcher) exchange(ctx context.Context, op Opcode, payload string) (string, error) {
	reply, err := d.transport.Transact(ctx, EncodeRequest(op, payload))
	if err != nil {
		return "", err
	}
	out, err := DecodeReply(op, reply)
	if err != nil && d.logger != nil {
		d.logger.CDebugw(ctx, "command failed", "opcode", op.String(), "error", err)
	}
	return out, err
}

// Call sends req for op and returns the decoded reply.
func Call[Resp, Req any](ctx context.Context, d *Dispatcher, op Opcode, req Req) (Resp, error) {
	var resp Resp
	err := d.Do(ctx, op, req, &resp)
	return resp, err
}

// Exec sends req for op and discards the reply payload.
func Exec[Req any](ctx context.Context, d *Dispatcher, op Opcode, req Req) error {
	return d.Do(ctx, op, req, nil)
}
