package relay

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"
	goutils "go.viam.com/utils"
	"go.viam.com/utils/testutils"

	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/components/arm/fake"
	"github.com/roplat/hans/config"
	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/roboterr"
	"github.com/roplat/hans/testutils/fakecontroller"
	"github.com/roplat/hans/testutils/inject"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(` "Enable"` + "\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Name, test.ShouldEqual, CmdEnable)
	test.That(t, req.Args, test.ShouldBeEmpty)

	req, err = ParseRequest([]byte(`{"SetSpeed":{"speed":0.5}}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, req.Name, test.ShouldEqual, CmdSetSpeed)
	test.That(t, string(req.Args), test.ShouldEqual, `{"speed":0.5}`)

	for _, bad := range []string{`not json`, `{}`, `{"Enable":null,"Stop":null}`, `[1,2]`} {
		_, err := ParseRequest([]byte(bad))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestReplies(t *testing.T) {
	out, err := json.Marshal(OkReply("true"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `{"Ok":"true"}`)

	out, err = json.Marshal(ErrReply(context.Canceled))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `{"Err":"[Error:context canceled]"}`)
}

func TestConnectConfig(t *testing.T) {
	base := config.ArmConfig{Speed: 0.2}
	conf, err := connectConfig(base, json.RawMessage(`{"ip":"192.168.0.2","robot_id":1,"poll_interval_ms":5}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Host, test.ShouldEqual, "192.168.0.2")
	test.That(t, conf.RobotID, test.ShouldEqual, uint8(1))
	test.That(t, conf.PollIntervalMs, test.ShouldEqual, 5)
	test.That(t, conf.Speed, test.ShouldEqual, 0.2)

	_, err = connectConfig(base, json.RawMessage(`{"speed":0.5}`))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = connectConfig(base, json.RawMessage(`{"ip":"h","colour":"red"}`))
	test.That(t, err, test.ShouldNotBeNil)

	base.Host = "10.0.0.1"
	conf, err = connectConfig(base, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Host, test.ShouldEqual, "10.0.0.1")
}

type client struct {
	t    *testing.T
	conn net.Conn
}

func dial(t *testing.T, s *Server) *client {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { goutils.UncheckedErrorFunc(conn.Close) })
	return &client{t: t, conn: conn}
}

func (c *client) send(cmd string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(cmd))
	test.That(c.t, err, test.ShouldBeNil)
}

func (c *client) call(cmd string) Reply {
	c.t.Helper()
	c.send(cmd)
	test.That(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)), test.ShouldBeNil)
	buf := make([]byte, MessageBufferSize)
	n, err := c.conn.Read(buf)
	test.That(c.t, err, test.ShouldBeNil)
	var reply Reply
	test.That(c.t, json.Unmarshal(buf[:n], &reply), test.ShouldBeNil)
	return reply
}

func ok(t *testing.T, reply Reply) string {
	t.Helper()
	test.That(t, reply.Err, test.ShouldBeNil)
	test.That(t, reply.Ok, test.ShouldNotBeNil)
	return *reply.Ok
}

func failed(t *testing.T, reply Reply) string {
	t.Helper()
	test.That(t, reply.Ok, test.ShouldBeNil)
	test.That(t, reply.Err, test.ShouldNotBeNil)
	return *reply.Err
}

func TestServerWithFakeArm(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)

	var (
		mu   sync.Mutex
		arms []*fake.Arm
	)
	factory := func(conf config.ArmConfig, logger logging.Logger) arm.Arm {
		mu.Lock()
		defer mu.Unlock()
		a := fake.NewArm(logger)
		arms = append(arms, a)
		return a
	}

	s := NewServer(config.ArmConfig{}, factory, logger)
	test.That(t, s.Addr(), test.ShouldBeNil)
	test.That(t, s.Start("127.0.0.1:0"), test.ShouldBeNil)
	test.That(t, s.Start("127.0.0.1:0"), test.ShouldNotBeNil)
	defer func() { test.That(t, s.Close(context.Background()), test.ShouldBeNil) }()

	c := dial(t, s)
	test.That(t, failed(t, c.call(`"Enable"`)), test.ShouldContainSubstring, "not connected")
	test.That(t, ok(t, c.call(`{"Connect":{"ip":"192.168.0.2"}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`"Enable"`)), test.ShouldEqual, "")

	test.That(t, ok(t, c.call(`{"MoveJoint":{"joint":[1,2,3,0,0,0],"speed":0.1}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`{"MoveJointRel":{"joint":[1,0,0,0,0,0],"speed":0.1}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`{"MoveLinearWithEuler":{"pose":[400,0,300,180,0,0],"speed":0.1}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`{"MoveLinearWithEulerRel":{"pose":[0,0,-10,0,0,0],"speed":0.1}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`"IsMoving"`)), test.ShouldEqual, "false")

	var state arm.ArmState
	test.That(t, json.Unmarshal([]byte(ok(t, c.call(`"ArmState"`))), &state), test.ShouldBeNil)
	test.That(t, state.Joints, test.ShouldResemble, [arm.DOF]float64{2, 2, 3, 0, 0, 0})
	test.That(t, state.Pose.EulerArray(), test.ShouldResemble, [6]float64{400, 0, 290, 180, 0, 0})

	test.That(t, ok(t, c.call(`{"SetLoad":{"m":1.0,"x":[0.0,0.0,10.0]}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`{"SetSpeed":{"speed":0.5}}`)), test.ShouldEqual, "")
	for _, cmd := range []string{`"Stop"`, `"Pause"`, `"Resume"`, `"Reset"`} {
		test.That(t, ok(t, c.call(cmd)), test.ShouldEqual, "")
	}

	mu.Lock()
	test.That(t, len(arms), test.ShouldEqual, 1)
	a := arms[0]
	mu.Unlock()
	test.That(t, a.Load(), test.ShouldResemble, arm.LoadState{Mass: 1, Centroid: [3]float64{0, 0, 10}})
	test.That(t, a.Speed(), test.ShouldEqual, 0.5)

	t.Run("bad commands", func(t *testing.T) {
		test.That(t, failed(t, c.call(`"Dance"`)), test.ShouldContainSubstring, "unknown command")
		test.That(t, failed(t, c.call(`{"SetSpeed":{"speed":"fast"}}`)), test.ShouldContainSubstring, "bad arguments")
		test.That(t, failed(t, c.call(`"SetLoad"`)), test.ShouldContainSubstring, "needs arguments")
		test.That(t, failed(t, c.call(`{"MovePathFromFile":{"path":"/does/not/exist.json","speed":0.1}}`)),
			test.ShouldContainSubstring, "cannot load path")

		c.send(`this is not json`)
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			test.That(tb, logs.FilterMessage("error parsing command").Len(), test.ShouldEqual, 1)
		})
		test.That(t, ok(t, c.call(`"IsMoving"`)), test.ShouldEqual, "false")
	})

	t.Run("path from file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "traj.csv")
		test.That(t, os.WriteFile(p, []byte("0,0,0,0,0,0\n10,0,0,0,0,0\n"), 0o600), test.ShouldBeNil)
		cmd, err := json.Marshal(map[string]interface{}{
			CmdMovePathFromFile: map[string]interface{}{"path": p, "speed": 0.1},
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok(t, c.call(string(cmd))), test.ShouldEqual, "")

		var state arm.ArmState
		test.That(t, json.Unmarshal([]byte(ok(t, c.call(`"ArmState"`))), &state), test.ShouldBeNil)
		test.That(t, state.Joints[0], test.ShouldEqual, 10.0)
	})

	t.Run("reconnect replaces the arm", func(t *testing.T) {
		test.That(t, ok(t, c.call(`{"Connect":{"ip":"192.168.0.3"}}`)), test.ShouldEqual, "")
		mu.Lock()
		defer mu.Unlock()
		test.That(t, len(arms), test.ShouldEqual, 2)
		test.That(t, arms[0].IsConnected(), test.ShouldBeFalse)
		test.That(t, arms[1].IsConnected(), test.ShouldBeTrue)
	})

	t.Run("sessions are independent", func(t *testing.T) {
		other := dial(t, s)
		test.That(t, failed(t, other.call(`"Enable"`)), test.ShouldContainSubstring, "not connected")
		test.That(t, s.Sessions(), test.ShouldEqual, 2)
	})

	test.That(t, c.conn.Close(), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mu.Lock()
		defer mu.Unlock()
		test.That(tb, arms[1].IsConnected(), test.ShouldBeFalse)
	})
	test.That(t, s.Commands(), test.ShouldBeGreaterThan, int64(20))
}

func TestServerWithHansArm(t *testing.T) {
	logger := logging.NewTestLogger(t)
	fc, err := fakecontroller.New(logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, fc.Close(), test.ShouldBeNil) }()

	s := NewServer(config.ArmConfig{Port: fc.Port(), PollIntervalMs: 1}, NewHansArm, logger)
	test.That(t, s.Start("127.0.0.1:0"), test.ShouldBeNil)
	defer func() { test.That(t, s.Close(context.Background()), test.ShouldBeNil) }()

	c := dial(t, s)
	test.That(t, ok(t, c.call(`{"Connect":{"ip":"`+fc.Host()+`"}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`"Enable"`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`{"MoveJointRel":{"joint":[1,0,-2,0,0,0],"speed":0.1}}`)), test.ShouldEqual, "")
	test.That(t, ok(t, c.call(`"IsMoving"`)), test.ShouldEqual, "false")
	test.That(t, fc.RequestsNamed("MoveRelJ"), test.ShouldResemble, []string{"0,0,1,1", "0,2,0,2"})

	fc.Fail("GrpReset", 40000)
	test.That(t, failed(t, c.call(`"Reset"`)), test.ShouldContainSubstring, "GrpReset failed with code 40000")

	test.That(t, failed(t, c.call(`{"Connect":{"ip":"127.0.0.1","port":1}}`)), test.ShouldStartWith, "[Error:")
	test.That(t, failed(t, c.call(`"Enable"`)), test.ShouldContainSubstring, "not connected")
}

func TestExecuteWithInjectedArm(t *testing.T) {
	ctx := context.Background()
	a := &inject.Arm{}
	var (
		gotTarget arm.MotionType
		gotSpeed  float64
		gotPath   []arm.MotionType
	)
	a.MoveToFunc = func(ctx context.Context, target arm.MotionType, speed float64) error {
		gotTarget, gotSpeed = target, speed
		return nil
	}
	a.MoveRelFunc = func(ctx context.Context, delta arm.MotionType, speed float64) error {
		return roboterr.NewUnprocessableInstructionError("robot is moving, a new motion cannot be started")
	}
	a.MovePathFunc = func(ctx context.Context, path []arm.MotionType, speed float64) error {
		gotPath = path
		return nil
	}
	a.IsMovingFunc = func(ctx context.Context) (bool, error) { return true, nil }
	a.ReadStateFunc = func(ctx context.Context) (arm.ArmState, error) {
		return arm.ArmState{}, roboterr.NewNetworkError(nil, "no active TCP connection")
	}

	out, err := execute(ctx, a, Request{Name: CmdMoveLinearWithEuler, Args: json.RawMessage(`{"pose":[1,2,3,4,5,6],"speed":0.3}`)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "")
	test.That(t, gotTarget, test.ShouldResemble, arm.CartesianEuler([6]float64{1, 2, 3, 4, 5, 6}))
	test.That(t, gotSpeed, test.ShouldEqual, 0.3)

	_, err = execute(ctx, a, Request{Name: CmdMoveJointRel, Args: json.RawMessage(`{"joint":[1,0,0,0,0,0],"speed":0.1}`)})
	test.That(t, roboterr.KindOf(err), test.ShouldEqual, roboterr.KindUnprocessableInstruction)
	test.That(t, *ErrReply(err).Err, test.ShouldEqual,
		"[Error:UnprocessableInstructionError: robot is moving, a new motion cannot be started]")

	out, err = execute(ctx, a, Request{Name: CmdIsMoving})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "true")

	_, err = execute(ctx, a, Request{Name: CmdArmState})
	test.That(t, roboterr.KindOf(err), test.ShouldEqual, roboterr.KindNetwork)

	p := filepath.Join(t.TempDir(), "traj.json")
	test.That(t, os.WriteFile(p, []byte(`[{"cartesian":[400,0,300,180,0,0]},{"cartesian":[400,50,300,180,0,0]}]`), 0o600),
		test.ShouldBeNil)
	args, err := json.Marshal(pathArgs{Path: p, Speed: 0.2})
	test.That(t, err, test.ShouldBeNil)
	_, err = execute(ctx, a, Request{Name: CmdMovePathFromFile, Args: args})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(gotPath), test.ShouldEqual, 2)
	test.That(t, gotPath[1], test.ShouldResemble, arm.CartesianEuler([6]float64{400, 50, 300, 180, 0, 0}))
	test.That(t, a.Close(ctx), test.ShouldBeNil)
}

func TestCloseRefusesLateSessions(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s := NewServer(config.ArmConfig{}, NewFakeArm, logger)
	test.That(t, s.Close(context.Background()), test.ShouldBeNil)

	client, conn := net.Pipe()
	defer func() { goutils.UncheckedError(client.Close()) }()
	sess := &session{id: "late", conn: conn, server: s, logger: logger}
	test.That(t, s.register(sess), test.ShouldBeFalse)
	test.That(t, s.Sessions(), test.ShouldEqual, 0)

	_, err := client.Read(make([]byte, 1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, s.Close(context.Background()), test.ShouldBeNil)
}
