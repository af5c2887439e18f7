package hans

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/roboterr"
)

// StartServo enters servo mode. Targets pushed with ServoJ or ServoP are then sent no faster
// than one per servoTime, and the controller looks ahead by lookahead.
func (r *Robot) StartServo(ctx context.Context, servoTime, lookahead time.Duration) error {
	if servoTime <= 0 {
		return roboterr.NewUnprocessableInstructionError("servo time must be positive, got %s", servoTime)
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	if err := r.checkIdle(ctx); err != nil {
		return err
	}
	err := command.Exec(ctx, r.dispatcher, command.StartServo, command.ServoStart{
		RobotID:       r.conf.RobotID,
		ServoTime:     servoTime.Seconds(),
		LookaheadTime: lookahead.Seconds(),
	})
	if err != nil {
		return err
	}
	r.servo = rate.NewLimiter(rate.Every(servoTime), 1)
	return nil
}

// StopServo leaves servo mode on the driver side. The controller leaves it on its own once
// targets stop arriving.
func (r *Robot) StopServo() {
	r.servo = nil
}

func (r *Robot) servoWait(ctx context.Context) error {
	if r.servo == nil {
		return roboterr.NewUnprocessableInstructionError("servo mode is not started")
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	return r.servo.Wait(ctx)
}

// ServoJ streams one joint target.
func (r *Robot) ServoJ(ctx context.Context, joints [arm.DOF]float64) error {
	if err := r.checkJoints(joints); err != nil {
		return err
	}
	if err := r.servoWait(ctx); err != nil {
		return err
	}
	return command.Exec(ctx, r.dispatcher, command.PushServoJ, command.ServoJoint{RobotID: r.conf.RobotID, Joints: joints})
}

// ServoP streams one pose target in the base frame with the default tool.
func (r *Robot) ServoP(ctx context.Context, pose arm.Pose) error {
	p, err := eulerPose(pose)
	if err != nil {
		return err
	}
	if err := r.servoWait(ctx); err != nil {
		return err
	}
	return command.Exec(ctx, r.dispatcher, command.PushServoP, command.ServoPose{RobotID: r.conf.RobotID, Pose: p})
}
