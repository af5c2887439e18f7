package command

import (
	"context"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/roboterr"
)

// scriptedTransport records requests and answers from a fixed list.
type scriptedTransport struct {
	requests []string
	replies  []string
	err      error
}

func (s *scriptedTransport) Transact(ctx context.Context, request string) (string, error) {
	s.requests = append(s.requests, request)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedTransport) IsConnected() bool { return true }

func TestTableTotal(t *testing.T) {
	seen := map[Opcode]bool{}
	for op := range opcodeNames {
		b, ok := Lookup(op)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, b.Opcode, test.ShouldEqual, op)
		test.That(t, b.Request, test.ShouldNotBeNil)
		test.That(t, b.Response, test.ShouldNotBeNil)
		seen[op] = true
	}
	test.That(t, len(table), test.ShouldEqual, len(opcodeNames))
	test.That(t, len(Bindings()), test.ShouldEqual, len(seen))

	names := map[string]bool{}
	for i, b := range Bindings() {
		if i > 0 {
			test.That(t, b.Opcode > Bindings()[i-1].Opcode, test.ShouldBeTrue)
		}
		test.That(t, names[b.Opcode.String()], test.ShouldBeFalse)
		names[b.Opcode.String()] = true
	}

	op, ok := ParseOpcode("ReadCurFSM")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, op, test.ShouldEqual, ReadCurFSM)
	_, ok = ParseOpcode("Fly")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, Opcode(999).String(), test.ShouldEqual, "Opcode(999)")
}

func TestFraming(t *testing.T) {
	test.That(t, EncodeRequest(Electrify, ""), test.ShouldEqual, "Electrify,;")
	test.That(t, EncodeRequest(GrpEnable, "0"), test.ShouldEqual, "GrpEnable,0,;")

	payload, err := DecodeReply(GrpEnable, "GrpEnable,OK,;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, payload, test.ShouldEqual, "")

	payload, err = DecodeReply(ReadCurFSM, "ReadCurFSM,OK,33,;\r\n")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, payload, test.ShouldEqual, "33")

	_, err = DecodeReply(MoveJ, "MoveJ,Fail,20018,;")
	var ce *roboterr.ControllerError
	test.That(t, errors.As(err, &ce), test.ShouldBeTrue)
	test.That(t, ce.Code, test.ShouldEqual, uint16(20018))
	test.That(t, ce.Command, test.ShouldEqual, "MoveJ")

	for _, bad := range []string{"GrpEnable,OK", "GrpDisable,OK,;", "GrpEnable,;", "GrpEnable,Maybe,;", "GrpEnable,Fail,x,;"} {
		_, err := DecodeReply(GrpEnable, bad)
		test.That(t, errors.Is(err, roboterr.ErrDeserialize), test.ShouldBeTrue)
	}
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	t.Run("typed call", func(t *testing.T) {
		tr := &scriptedTransport{replies: []string{"ReadCurFSM,OK,33,;"}}
		d := NewDispatcher(tr, logger)
		state, err := Call[FSMState](ctx, d, ReadCurFSM, Group{RobotID: 0})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, state.State, test.ShouldEqual, uint16(33))
		test.That(t, tr.requests, test.ShouldResemble, []string{"ReadCurFSM,0,;"})
	})

	t.Run("relative move payload", func(t *testing.T) {
		tr := &scriptedTransport{replies: []string{"MoveRelJ,OK,;"}}
		d := NewDispatcher(tr, logger)
		err := Exec(ctx, d, MoveRelJ, RelJ{RobotID: 0, ID: 2, Dir: false, Dis: 2})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tr.requests, test.ShouldResemble, []string{"MoveRelJ,0,2,0,2,;"})
	})

	t.Run("batch layout", func(t *testing.T) {
		tr := &scriptedTransport{replies: []string{"PushMovePaths,OK,;"}}
		d := NewDispatcher(tr, logger)
		batch := PathBatch{PathName: "p", MoveMode: MoveModeLinear, Points: [][6]float64{{1, 2, 3, 4, 5, 6}, {6, 5, 4, 3, 2, 1}}}
		test.That(t, Exec(ctx, d, PushMovePaths, batch), test.ShouldBeNil)
		test.That(t, tr.requests[0], test.ShouldEqual, "PushMovePaths,0,p,1,2,1,2,3,4,5,6,6,5,4,3,2,1,;")
	})

	t.Run("wrong payload type", func(t *testing.T) {
		tr := &scriptedTransport{}
		d := NewDispatcher(tr, logger)
		err := Exec(ctx, d, GrpEnable, RelJ{})
		test.That(t, errors.Is(err, roboterr.ErrInvalidInstruction), test.ShouldBeTrue)
		_, err = Call[PathState](ctx, d, ReadCurFSM, Group{})
		test.That(t, errors.Is(err, roboterr.ErrInvalidInstruction), test.ShouldBeTrue)
		test.That(t, tr.requests, test.ShouldBeEmpty)
	})

	t.Run("controller failure", func(t *testing.T) {
		tr := &scriptedTransport{replies: []string{"GrpEnable,Fail,40000,;"}}
		d := NewDispatcher(tr, logger)
		err := Exec(ctx, d, GrpEnable, Group{})
		test.That(t, errors.Is(err, roboterr.ErrController), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "controller not initialized")
	})

	t.Run("short reply", func(t *testing.T) {
		tr := &scriptedTransport{replies: []string{"ReadActJointVel,OK,1,2,3,;"}}
		d := NewDispatcher(tr, logger)
		_, err := Call[Velocity](ctx, d, ReadActJointVel, Group{})
		test.That(t, errors.Is(err, roboterr.ErrDeserialize), test.ShouldBeTrue)
	})

	t.Run("transport error", func(t *testing.T) {
		tr := &scriptedTransport{err: roboterr.NewNetworkError(nil, "no active TCP connection")}
		d := NewDispatcher(tr, logger)
		err := Exec(ctx, d, GrpReset, Group{})
		test.That(t, errors.Is(err, roboterr.ErrNetwork), test.ShouldBeTrue)
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	names := Names()
	test.That(t, len(names), test.ShouldEqual, len(opcodeNames))
	test.That(t, names[0], test.ShouldEqual, "BlackOut")

	tr := &scriptedTransport{replies: []string{"ReadActTcpVel,OK,1,2,3,4,5,6,;", "GrpStop,OK,;"}}
	d := NewDispatcher(tr, logging.NewTestLogger(t))

	out, err := Dispatch(ctx, d, "ReadActTcpVel", "0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "1,2,3,4,5,6")

	out, err = Dispatch(ctx, d, " GrpStop ", "0")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "")

	_, err = Dispatch(ctx, d, "Teleport", "0")
	test.That(t, errors.Is(err, roboterr.ErrInvalidInstruction), test.ShouldBeTrue)

	_, err = Dispatch(ctx, d, "MoveRelJ", "0,1")
	test.That(t, errors.Is(err, roboterr.ErrInvalidInstruction), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "RobotID uint8, ID uint8, Dir bool, Dis float64")

	test.That(t, tr.requests, test.ShouldResemble, []string{"ReadActTcpVel,0,;", "GrpStop,0,;"})
	test.That(t, Describe(reflect.TypeOf(Empty{})), test.ShouldEqual, "()")
}
