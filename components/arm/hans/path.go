package hans

import (
	"context"

	"github.com/samber/lo"

	"github.com/roplat/hans/command"
	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/roboterr"
)

// preparedPath is the path occupying the controller's path slot.
type preparedPath struct {
	name  string
	kind  arm.MotionKind
	first arm.MotionType
	ready bool
}

// checkPath validates a path before anything is sent and returns its motion kind.
func (r *Robot) checkPath(path []arm.MotionType) (arm.MotionKind, error) {
	if len(path) == 0 {
		return 0, roboterr.NewUnprocessableInstructionError("path is empty")
	}
	kind := path[0].Kind
	if !lo.EveryBy(path, func(m arm.MotionType) bool { return m.Kind == kind }) {
		return 0, roboterr.NewUnprocessableInstructionError("path mixes joint and cartesian points")
	}
	for _, target := range path {
		if err := r.checkTarget(target); err != nil {
			return 0, err
		}
	}
	return kind, nil
}

// PathPrepared reports whether a path occupies the path slot.
func (r *Robot) PathPrepared() bool {
	return r.path != nil
}

// buildPath uploads path under the configured path name and finalizes it. The controller then
// computes it in the background.
func (r *Robot) buildPath(ctx context.Context, path []arm.MotionType, kind arm.MotionKind, params motionParams) error {
	if r.path != nil {
		return roboterr.NewUnprocessableInstructionError(
			"path %q is already prepared, start or discard it first", r.path.name)
	}
	name := r.conf.PathName
	r.path = &preparedPath{name: name, kind: kind, first: path[0]}

	var err error
	if kind == arm.JointMotion {
		err = r.pushJointPath(ctx, name, path, params)
	} else {
		err = r.pushCartesianPath(ctx, name, path, params)
	}
	if err == nil {
		err = command.Exec(ctx, r.dispatcher, command.EndPushMovePath, command.PathRef{RobotID: r.conf.RobotID, PathName: name})
	}
	if err != nil {
		r.path = nil
		return err
	}
	r.logger.CDebugw(ctx, "path prepared", "name", name, "kind", kind.String(), "points", len(path))
	return nil
}

func (r *Robot) pushJointPath(ctx context.Context, name string, path []arm.MotionType, params motionParams) error {
	err := command.Exec(ctx, r.dispatcher, command.StartPushMovePath, command.PathStart{
		RobotID:  r.conf.RobotID,
		PathName: name,
		Speed:    params.jointVel,
		Radius:   defaultRadius,
	})
	if err != nil {
		return err
	}
	for _, point := range path {
		err := command.Exec(ctx, r.dispatcher, command.PushMovePathJ, command.PathJoint{
			RobotID:  r.conf.RobotID,
			PathName: name,
			Joints:   point.Joints,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Robot) pushCartesianPath(ctx context.Context, name string, path []arm.MotionType, params motionParams) error {
	err := command.Exec(ctx, r.dispatcher, command.InitMovePathL, command.LinearPathStart{
		RobotID:  r.conf.RobotID,
		PathName: name,
		Vel:      params.cartVel,
		Acc:      params.cartAcc,
		Jerk:     defaultJerk,
		UcsName:  defaultUcsName,
		TcpName:  defaultTcpName,
	})
	if err != nil {
		return err
	}
	for _, point := range path {
		pose, err := eulerPose(point.Pose)
		if err != nil {
			return err
		}
		if err := command.Exec(ctx, r.dispatcher, command.PushMovePathL, command.PathPose{
			RobotID: r.conf.RobotID,
			Pose:    pose,
		}); err != nil {
			return err
		}
	}
	return nil
}

// awaitPathReady polls the path calculation until the controller accepts or rejects the path.
// A rejected path frees the slot.
func (r *Robot) awaitPathReady(ctx context.Context) error {
	if r.path.ready {
		return nil
	}
	ref := command.PathRef{RobotID: r.conf.RobotID, PathName: r.path.name}
	var rejected bool
	err := r.opMgr.WaitForSuccess(ctx, r.conf.PollInterval(), r.conf.MotionTimeout(),
		func(ctx context.Context) (bool, error) {
			state, err := command.Call[command.PathState](ctx, r.dispatcher, command.ReadMovePathState, ref)
			if err != nil {
				return false, err
			}
			switch state.State {
			case command.PathStateReady:
				return true, nil
			case command.PathStateRejected:
				rejected = true
				return true, nil
			default:
				return false, nil
			}
		})
	if err != nil {
		return err
	}
	if rejected {
		name := r.path.name
		r.path = nil
		return roboterr.NewUnprocessableInstructionError("path %q was rejected by the controller", name)
	}
	r.path.ready = true
	return nil
}

// runPath executes the prepared path once the controller accepts it and waits for the end.
// With moveFirst it first moves to the first point of the path.
func (r *Robot) runPath(ctx context.Context, params motionParams, moveFirst bool) error {
	if err := r.awaitPathReady(ctx); err != nil {
		return err
	}
	path := r.path
	if moveFirst {
		if err := r.moveToPoint(ctx, path.first, params); err != nil {
			return err
		}
	}

	op := command.MovePath
	if path.kind == arm.CartesianMotion {
		op = command.MovePathL
	}
	if err := r.beginMove(ctx); err != nil {
		return err
	}
	r.path = nil
	if err := command.Exec(ctx, r.dispatcher, op, command.PathRef{RobotID: r.conf.RobotID, PathName: path.name}); err != nil {
		r.isMoving = false
		return err
	}
	return r.waitStandBy(ctx)
}

// moveToPoint is MoveTo with already consumed motion parameters.
func (r *Robot) moveToPoint(ctx context.Context, target arm.MotionType, params motionParams) error {
	if err := r.startWayPoint(ctx, target, params); err != nil {
		return err
	}
	return r.waitStandBy(ctx)
}

// MovePath uploads path, waits for the controller to accept it and runs it from its first
// point. Every point must be of the same kind. A positive speed applies to this path only.
func (r *Robot) MovePath(ctx context.Context, path []arm.MotionType, speed float64) error {
	params, err := r.takeMotionParams(speed)
	if err != nil {
		return err
	}
	kind, err := r.checkPath(path)
	if err != nil {
		return err
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	if err := r.checkIdle(ctx); err != nil {
		return err
	}
	if r.path != nil {
		return roboterr.NewUnprocessableInstructionError(
			"path %q is already prepared, start or discard it first", r.path.name)
	}

	if err := r.moveToPoint(ctx, path[0], params); err != nil {
		return err
	}
	if err := r.buildPath(ctx, path, kind, params); err != nil {
		return err
	}
	if err := r.runPath(ctx, params, false); err != nil {
		r.path = nil
		return err
	}
	return nil
}

// PreparePath uploads path without running it. StartPath runs it later.
func (r *Robot) PreparePath(ctx context.Context, path []arm.MotionType, speed float64) error {
	params, err := r.takeMotionParams(speed)
	if err != nil {
		return err
	}
	kind, err := r.checkPath(path)
	if err != nil {
		return err
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	return r.buildPath(ctx, path, kind, params)
}

// StartPath runs the path uploaded by PreparePath, first waiting for the controller to finish
// computing it.
func (r *Robot) StartPath(ctx context.Context) error {
	if r.path == nil {
		return roboterr.NewUnprocessableInstructionError("no path is prepared")
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	if err := r.checkIdle(ctx); err != nil {
		return err
	}
	params, err := r.takeMotionParams(0)
	if err != nil {
		return err
	}
	return r.runPath(ctx, params, true)
}

// DiscardPath deletes the prepared path from the controller and frees the path slot. The slot
// stays taken when the controller could not be told.
func (r *Robot) DiscardPath(ctx context.Context) error {
	if r.path == nil {
		return nil
	}
	if err := r.requireConnected(); err != nil {
		return err
	}
	err := command.Exec(ctx, r.dispatcher, command.DelMovePath, command.PathRef{RobotID: r.conf.RobotID, PathName: r.path.name})
	if err != nil {
		return err
	}
	r.path = nil
	return nil
}

// PathProgress reports how far the running path is, as a fraction and the current point index.
func (r *Robot) PathProgress(ctx context.Context) (float64, uint16, error) {
	if err := r.requireConnected(); err != nil {
		return 0, 0, err
	}
	p, err := command.Call[command.SoftMotionProcess](ctx, r.dispatcher, command.ReadSoftMotionProcess, r.group())
	if err != nil {
		return 0, 0, err
	}
	return p.Progress, p.Index, nil
}

// MovePathFromFile loads a path with arm.LoadPath and runs it with MovePath.
func (r *Robot) MovePathFromFile(ctx context.Context, filename string, speed float64) error {
	path, err := arm.LoadPath(filename)
	if err != nil {
		return roboterr.NewInvalidInstructionError(err, "cannot load path")
	}
	return r.MovePath(ctx, path, speed)
}
