package hans

import (
	"context"
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/roboterr"
	"github.com/roplat/hans/spatialmath"
)

// checkJoints fails if any joint is outside the arm limits.
func (r *Robot) checkJoints(joints [arm.DOF]float64) error {
	for i, j := range joints {
		if math.IsNaN(j) || j < r.params.JointMin[i] || j > r.params.JointMax[i] {
			return roboterr.NewUnprocessableInstructionError(
				"joint %d target %v is outside [%v, %v]", i, j, r.params.JointMin[i], r.params.JointMax[i])
		}
	}
	return nil
}

// eulerPose returns X, Y, Z, Rx, Ry, Rz for an Euler or quaternion pose.
func eulerPose(pose arm.Pose) ([6]float64, error) {
	switch pose.Kind {
	case arm.EulerPose:
		return pose.EulerArray(), nil
	case arm.QuaternionPose:
		rot := spatialmath.QuatToEulerAngles(pose.Quaternion).Degrees()
		return [6]float64{pose.Position[0], pose.Position[1], pose.Position[2], rot[0], rot[1], rot[2]}, nil
	default:
		return [6]float64{}, roboterr.NewUnsupportedOperationError("motion to a homogeneous transform")
	}
}

// checkTarget validates an absolute target before anything is sent.
func (r *Robot) checkTarget(target arm.MotionType) error {
	if target.Kind == arm.JointMotion {
		return r.checkJoints(target.Joints)
	}
	_, err := eulerPose(target.Pose)
	return err
}

// checkIdle fails if a motion started by this Robot is still running. Only a state read
// may be sent.
func (r *Robot) checkIdle(ctx context.Context) error {
	moving, err := r.IsMoving(ctx)
	if err != nil {
		return err
	}
	if moving {
		return roboterr.NewUnprocessableInstructionError("robot is moving, a new motion cannot be started")
	}
	return nil
}

// beginMove refuses to start while a motion is running and marks the robot as moving.
func (r *Robot) beginMove(ctx context.Context) error {
	if err := r.requireConnected(); err != nil {
		return err
	}
	if err := r.checkIdle(ctx); err != nil {
		return err
	}
	r.isMoving = true
	return nil
}

func (r *Robot) wayPoint(target arm.MotionType, params motionParams) (command.WayPointExMove, error) {
	wp := command.WayPointExMove{
		RobotID:   r.conf.RobotID,
		Radius:    defaultRadius,
		CommandID: defaultCommandID,
	}
	if target.Kind == arm.JointMotion {
		wp.Joint = target.Joints
		wp.Vel = params.jointVel
		wp.Acc = params.jointAcc
		wp.MoveMode = command.MoveModeJoint
		wp.UseJoint = true
		return wp, nil
	}
	pose, err := eulerPose(target.Pose)
	if err != nil {
		return wp, err
	}
	wp.Pose = pose
	wp.Vel = params.cartVel
	wp.Acc = params.cartAcc
	wp.MoveMode = command.MoveModeLinear
	return wp, nil
}

// MoveTo moves to target and returns once the controller is back in StandBy.
// A positive speed applies to this motion only.
func (r *Robot) MoveTo(ctx context.Context, target arm.MotionType, speed float64) error {
	if err := r.MoveToAsync(ctx, target, speed); err != nil {
		return err
	}
	return r.waitStandBy(ctx)
}

// MoveToAsync sends the motion to target and returns once the controller accepts it.
func (r *Robot) MoveToAsync(ctx context.Context, target arm.MotionType, speed float64) error {
	params, err := r.takeMotionParams(speed)
	if err != nil {
		return err
	}
	if err := r.checkTarget(target); err != nil {
		return err
	}
	return r.startWayPoint(ctx, target, params)
}

// startWayPoint sends a WayPointEx motion to target.
func (r *Robot) startWayPoint(ctx context.Context, target arm.MotionType, params motionParams) error {
	if err := r.beginMove(ctx); err != nil {
		return err
	}
	wp, err := r.wayPoint(target, params)
	if err == nil {
		err = command.Exec(ctx, r.dispatcher, command.WayPointEx, wp)
	}
	if err != nil {
		r.isMoving = false
		return err
	}
	r.logger.CDebugw(ctx, "motion started", "target", target.String(), "vel", wp.Vel, "acc", wp.Acc)
	return nil
}

// MoveRel moves by delta and returns once the controller is back in StandBy.
func (r *Robot) MoveRel(ctx context.Context, delta arm.MotionType, speed float64) error {
	if err := r.MoveRelAsync(ctx, delta, speed); err != nil {
		return err
	}
	return r.waitStandBy(ctx)
}

// MoveRelAsync moves every axis with a nonzero delta, one axis at a time in ascending order.
// The controller takes one axis per command, so it waits for StandBy between axes and returns
// once the last one is accepted.
func (r *Robot) MoveRelAsync(ctx context.Context, delta arm.MotionType, speed float64) error {
	params, err := r.takeMotionParams(speed)
	if err != nil {
		return err
	}
	var values [6]float64
	switch {
	case delta.Kind == arm.JointMotion:
		values = delta.Joints
	case delta.Pose.Kind == arm.EulerPose:
		values = delta.Pose.EulerArray()
	default:
		return roboterr.NewUnsupportedOperationError("relative motion by a non euler pose")
	}
	if err := r.beginMove(ctx); err != nil {
		return err
	}

	started := false
	for id, v := range values {
		if v == 0 {
			continue
		}
		if started {
			if err := r.waitStandBy(ctx); err != nil {
				return err
			}
			r.isMoving = true
		}
		var err error
		if delta.Kind == arm.JointMotion {
			err = command.Exec(ctx, r.dispatcher, command.MoveRelJ, command.RelJ{
				RobotID: r.conf.RobotID, ID: uint8(id), Dir: v > 0, Dis: math.Abs(v),
			})
		} else {
			err = command.Exec(ctx, r.dispatcher, command.MoveRelL, command.RelL{
				RobotID: r.conf.RobotID, ID: uint8(id), Dir: v > 0, Dis: math.Abs(v), Coord: params.coord,
			})
		}
		if err != nil {
			if !started {
				r.isMoving = false
			}
			return err
		}
		started = true
	}
	if !started {
		r.isMoving = false
	}
	return nil
}

// MoveJoint moves to joints.
func (r *Robot) MoveJoint(ctx context.Context, joints [arm.DOF]float64, speed float64) error {
	return r.MoveTo(ctx, arm.Joint(joints), speed)
}

// MoveJointRel moves the joints by delta.
func (r *Robot) MoveJointRel(ctx context.Context, delta [arm.DOF]float64, speed float64) error {
	return r.MoveRel(ctx, arm.Joint(delta), speed)
}

// MoveLinearWithEuler moves the tool to X, Y, Z (mm) and Rx, Ry, Rz (degrees).
func (r *Robot) MoveLinearWithEuler(ctx context.Context, pose [6]float64, speed float64) error {
	return r.MoveTo(ctx, arm.CartesianEuler(pose), speed)
}

// MoveLinearWithEulerRel moves the tool by a Cartesian delta in the current coordinate frame.
func (r *Robot) MoveLinearWithEulerRel(ctx context.Context, delta [6]float64, speed float64) error {
	return r.MoveRel(ctx, arm.CartesianEuler(delta), speed)
}

// MoveLinearWithQuaternion moves the tool to position (mm) with the rotation q.
func (r *Robot) MoveLinearWithQuaternion(ctx context.Context, position [3]float64, q quat.Number, speed float64) error {
	return r.MoveTo(ctx, arm.Cartesian(arm.NewQuaternionPose(position, q)), speed)
}

// MoveLinearWithHomogeneous is not supported.
func (r *Robot) MoveLinearWithHomogeneous(ctx context.Context, m [16]float64, speed float64) error {
	return r.MoveTo(ctx, arm.Cartesian(arm.NewHomogeneousPose(m)), speed)
}
