// Package hans drives Hans Elfin arms through the controller's TCP command interface.
//
// A Robot owns one connection and tracks whether a motion it started is still running.
// Calls that would start a motion are refused while the previous one runs. A Robot is not
// safe for concurrent use.
package hans

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/config"
	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/network"
	"github.com/roplat/hans/operation"
	"github.com/roplat/hans/roboterr"
)

// Version of the driver.
const Version = "0.1.0"

// Defaults written into motion commands.
const (
	defaultRadius    = 5.0
	defaultJerk      = 5.0
	defaultCommandID = "0"
	defaultUcsName   = "Base"
	defaultTcpName   = "Tcp"
)

// Option configures a Robot.
type Option func(*Robot)

// WithClock measures motion timeouts with clk.
func WithClock(clk clock.Clock) Option {
	return func(r *Robot) {
		r.opMgr.Clock = clk
	}
}

// WithParams replaces the S30 limits.
func WithParams(params Params) Option {
	return func(r *Robot) {
		r.params = params
	}
}

// WithTransport sends commands over transport instead of the Robot's own TCP session.
// Connect and Disconnect then only affect the unused session.
func WithTransport(transport network.Transport) Option {
	return func(r *Robot) {
		r.dispatcher = command.NewDispatcher(transport, r.logger)
	}
}

// Robot is a Hans arm.
type Robot struct {
	conf       config.ArmConfig
	params     Params
	logger     logging.Logger
	session    *network.Session
	dispatcher *command.Dispatcher
	opMgr      *operation.SingleOperationManager

	isMoving   bool
	speed      float64
	coord      OverrideOnce[uint8]
	maxVel     OverrideOnce[[arm.DOF]float64]
	maxAcc     OverrideOnce[[arm.DOF]float64]
	maxCartVel OverrideOnce[float64]
	maxCartAcc OverrideOnce[float64]

	// speedErr is set by an invalid WithSpeed and fails the next motion.
	speedErr error

	path  *preparedPath
	servo *rate.Limiter
}

var _ arm.Arm = (*Robot)(nil)

// New returns a disconnected Robot. Motion limits start at conf.Speed times the arm limits.
func New(conf config.ArmConfig, logger logging.Logger, opts ...Option) *Robot {
	conf.ApplyDefaults()
	session := network.NewSession(conf.Timeout(), logger)
	r := &Robot{
		conf:    conf,
		params:  S30,
		logger:  logger,
		session: session,
		opMgr:   &operation.SingleOperationManager{},
		coord:   NewOverrideOnce(command.CoordBase),
	}
	r.dispatcher = command.NewDispatcher(session, logger)
	for _, opt := range opts {
		opt(r)
	}
	r.applySpeed(conf.Speed)
	return r
}

// Config returns the configuration the robot was built with, defaults applied.
func (r *Robot) Config() config.ArmConfig {
	return r.conf
}

// Connect opens the connection to the controller.
func (r *Robot) Connect(ctx context.Context, host string, port uint16) error {
	if host == "" {
		host = r.conf.Host
	}
	if port == 0 {
		port = r.conf.Port
	}
	return r.session.Connect(ctx, host, port)
}

// Disconnect closes the connection. The moving flag is left untouched.
func (r *Robot) Disconnect(ctx context.Context) error {
	return r.session.Disconnect()
}

// IsConnected reports whether commands can be sent.
func (r *Robot) IsConnected() bool {
	return r.dispatcher.Transport().IsConnected()
}

func (r *Robot) requireConnected() error {
	if !r.IsConnected() {
		return roboterr.NewNetworkError(nil, "robot is not connected")
	}
	return nil
}

func (r *Robot) group() command.Group {
	return command.Group{RobotID: r.conf.RobotID}
}

func (r *Robot) groupCommand(ctx context.Context, op command.Opcode) error {
	if err := r.requireConnected(); err != nil {
		return err
	}
	return command.Exec(ctx, r.dispatcher, op, r.group())
}

// Init powers the controller and the robot on.
func (r *Robot) Init(ctx context.Context) error {
	if err := r.requireConnected(); err != nil {
		return err
	}
	if err := command.Exec(ctx, r.dispatcher, command.Electrify, command.Empty{}); err != nil {
		return err
	}
	if err := command.Exec(ctx, r.dispatcher, command.StartMaster, command.Empty{}); err != nil {
		return err
	}
	return command.Exec(ctx, r.dispatcher, command.GrpPowerOn, r.group())
}

// Shutdown disables the robot and powers it off.
func (r *Robot) Shutdown(ctx context.Context) error {
	if err := r.Disable(ctx); err != nil {
		return err
	}
	return r.groupCommand(ctx, command.GrpPowerOff)
}

// Enable enables the robot servos.
func (r *Robot) Enable(ctx context.Context) error {
	return r.groupCommand(ctx, command.GrpEnable)
}

// Disable disables the robot servos.
func (r *Robot) Disable(ctx context.Context) error {
	return r.groupCommand(ctx, command.GrpDisable)
}

// Reset clears controller errors.
func (r *Robot) Reset(ctx context.Context) error {
	return r.groupCommand(ctx, command.GrpReset)
}

// Stop stops the current motion and cancels any wait on it.
func (r *Robot) Stop(ctx context.Context) error {
	r.opMgr.CancelRunning(ctx)
	return r.groupCommand(ctx, command.GrpStop)
}

// Pause holds the current motion.
func (r *Robot) Pause(ctx context.Context) error {
	return r.groupCommand(ctx, command.GrpInterrupt)
}

// Resume continues a held motion.
func (r *Robot) Resume(ctx context.Context) error {
	return r.groupCommand(ctx, command.GrpContinue)
}

// EmergencyStop is not supported by Hans controllers.
func (r *Robot) EmergencyStop(ctx context.Context) error {
	return roboterr.NewUnsupportedOperationError("emergency stop")
}

// ClearEmergencyStop is not supported by Hans controllers.
func (r *Robot) ClearEmergencyStop(ctx context.Context) error {
	return roboterr.NewUnsupportedOperationError("clear emergency stop")
}

// Mode reads the controller state machine.
func (r *Robot) Mode(ctx context.Context) (RobotMode, error) {
	if err := r.requireConnected(); err != nil {
		return 0, err
	}
	state, err := command.Call[command.FSMState](ctx, r.dispatcher, command.ReadCurFSM, r.group())
	if err != nil {
		return 0, err
	}
	return RobotMode(state.State), nil
}

// IsMoving reports whether a motion started by this Robot is still running. When no motion
// was started it answers without asking the controller.
func (r *Robot) IsMoving(ctx context.Context) (bool, error) {
	if !r.isMoving {
		return false, nil
	}
	mode, err := r.Mode(ctx)
	if err != nil {
		return true, err
	}
	r.isMoving = mode.IsMoving()
	return r.isMoving, nil
}

// waitStandBy polls the controller until it is in StandBy.
func (r *Robot) waitStandBy(ctx context.Context) error {
	err := r.opMgr.WaitForSuccess(ctx, r.conf.PollInterval(), r.conf.MotionTimeout(),
		func(ctx context.Context) (bool, error) {
			mode, err := r.Mode(ctx)
			if err != nil {
				return false, err
			}
			return !mode.IsMoving(), nil
		})
	if err != nil {
		return err
	}
	r.isMoving = false
	return nil
}

// SetLoad sets the tool payload.
func (r *Robot) SetLoad(ctx context.Context, load arm.LoadState) error {
	if load.Mass < 0 || load.Mass > r.params.MaxLoad {
		return roboterr.NewUnprocessableInstructionError("load of %v kg is outside [0, %v]", load.Mass, r.params.MaxLoad)
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	return command.Exec(ctx, r.dispatcher, command.SetPayload, command.Payload{
		RobotID:  r.conf.RobotID,
		Mass:     load.Mass,
		Centroid: load.Centroid,
	})
}

// Speed returns the persistent speed scale.
func (r *Robot) Speed() float64 {
	return r.speed
}

// SetSpeed scales the persistent motion limits to speed times the arm limits and sets the
// controller override to the same ratio. Setting the current speed again does nothing.
func (r *Robot) SetSpeed(ctx context.Context, speed float64) error {
	if err := checkSpeed(speed); err != nil {
		return err
	}
	if speed == r.speed {
		return nil
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	err := command.Exec(ctx, r.dispatcher, command.SetOverride, command.Ratio{RobotID: r.conf.RobotID, Ratio: speed})
	if err != nil {
		return err
	}
	r.applySpeed(speed)
	return nil
}

func (r *Robot) applySpeed(speed float64) {
	r.speed = speed
	r.maxVel.Set(scaled(r.params.JointVel, speed))
	r.maxAcc.Set(scaled(r.params.JointAcc, speed))
	r.maxCartVel.Set(r.params.CartesianVel * speed)
	r.maxCartAcc.Set(r.params.CartesianAcc * speed)
}

func checkSpeed(speed float64) error {
	if !(speed > 0 && speed <= 1) {
		return roboterr.NewUnprocessableInstructionError("speed must be in (0, 1], got %v", speed)
	}
	return nil
}

// WithSpeed scales the limits of the next motion only. A speed outside (0, 1] makes the next
// motion fail instead.
func (r *Robot) WithSpeed(speed float64) *Robot {
	if err := checkSpeed(speed); err != nil {
		r.speedErr = err
		return r
	}
	r.maxVel.Once(scaled(r.params.JointVel, speed))
	r.maxAcc.Once(scaled(r.params.JointAcc, speed))
	r.maxCartVel.Once(r.params.CartesianVel * speed)
	r.maxCartAcc.Once(r.params.CartesianAcc * speed)
	return r
}

// WithVelocity sets the joint velocity limits, in degrees per second, of the next motion only.
func (r *Robot) WithVelocity(vel [arm.DOF]float64) *Robot {
	r.maxVel.Once(vel)
	return r
}

// WithAcceleration sets the joint acceleration limits, in radians per second squared, of the
// next motion only.
func (r *Robot) WithAcceleration(acc [arm.DOF]float64) *Robot {
	r.maxAcc.Once(acc)
	return r
}

// WithCoord sets the relative motion frame, command.CoordBase or command.CoordTool, of the next
// motion only.
func (r *Robot) WithCoord(coord uint8) *Robot {
	r.coord.Once(coord)
	return r
}

// SetCoord sets the persistent relative motion frame.
func (r *Robot) SetCoord(coord uint8) {
	r.coord.Set(coord)
}

// takeMotionParams consumes every one-shot override. A zero speed keeps the persistent limits.
func (r *Robot) takeMotionParams(speed float64) (motionParams, error) {
	if speed != 0 {
		r.WithSpeed(speed)
	}
	params := newMotionParams(r.maxVel.Get(), r.maxAcc.Get(), r.maxCartVel.Get(), r.maxCartAcc.Get(), r.coord.Get())
	err := r.speedErr
	r.speedErr = nil
	return params, err
}

// ReadState reads joints, pose and velocities.
func (r *Robot) ReadState(ctx context.Context) (arm.ArmState, error) {
	if err := r.requireConnected(); err != nil {
		return arm.ArmState{}, err
	}
	pos, err := command.Call[command.ActualPosition](ctx, r.dispatcher, command.ReadActPos, r.group())
	if err != nil {
		return arm.ArmState{}, err
	}
	jointVel, err := command.Call[command.Velocity](ctx, r.dispatcher, command.ReadActJointVel, r.group())
	if err != nil {
		return arm.ArmState{}, err
	}
	tcpVel, err := command.Call[command.Velocity](ctx, r.dispatcher, command.ReadActTcpVel, r.group())
	if err != nil {
		return arm.ArmState{}, err
	}
	return arm.ArmState{
		Joints:       pos.Joints,
		JointVel:     jointVel.Values,
		Pose:         arm.NewEulerPose(pos.Pose),
		CartesianVel: tcpVel.Values,
	}, nil
}

// Version returns the driver name and version.
func (r *Robot) Version() string {
	return "HansRobot v" + Version
}

// Close stops a running motion and disconnects.
func (r *Robot) Close(ctx context.Context) error {
	var err error
	if r.isMoving && r.IsConnected() {
		err = multierr.Combine(err, r.Stop(ctx))
	}
	r.opMgr.CancelRunning(ctx)
	return multierr.Combine(err, r.session.Disconnect())
}
