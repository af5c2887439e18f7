// Package fake implements an in-memory arm that completes every motion instantly.
package fake

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/logging"
	"github.com/roplat/hans/roboterr"
)

// Arm is a fake arm that records what it is asked to do.
type Arm struct {
	CloseCount int
	logger     logging.Logger

	mu        sync.RWMutex
	connected bool
	enabled   bool
	speed     float64
	load      arm.LoadState
	joints    [arm.DOF]float64
	pose      [6]float64
	prepared  []arm.MotionType
}

var _ arm.Arm = (*Arm)(nil)

// NewArm returns a disconnected fake arm.
func NewArm(logger logging.Logger) *Arm {
	return &Arm{logger: logger, speed: 0.1}
}

// Connect marks the arm connected. Any host is accepted.
func (a *Arm) Connect(ctx context.Context, host string, port uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	a.logger.CDebugw(ctx, "fake arm connected", "host", host, "port", port)
	return nil
}

// Disconnect marks the arm disconnected.
func (a *Arm) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

// IsConnected returns whether Connect was called.
func (a *Arm) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

func (a *Arm) checkConnected() error {
	if !a.connected {
		return roboterr.NewNetworkError(nil, "fake arm is not connected")
	}
	return nil
}

func (a *Arm) setEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkConnected(); err != nil {
		return err
	}
	a.enabled = enabled
	return nil
}

// Enable enables the arm.
func (a *Arm) Enable(ctx context.Context) error {
	return a.setEnabled(true)
}

// Disable disables the arm.
func (a *Arm) Disable(ctx context.Context) error {
	return a.setEnabled(false)
}

// Enabled reports whether the arm is enabled.
func (a *Arm) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

func (a *Arm) noop() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.checkConnected()
}

// Reset does nothing.
func (a *Arm) Reset(ctx context.Context) error { return a.noop() }

// Stop does nothing.
func (a *Arm) Stop(ctx context.Context) error { return a.noop() }

// Pause does nothing.
func (a *Arm) Pause(ctx context.Context) error { return a.noop() }

// Resume does nothing.
func (a *Arm) Resume(ctx context.Context) error { return a.noop() }

// EmergencyStop is unsupported, like on the real arm.
func (a *Arm) EmergencyStop(ctx context.Context) error {
	return roboterr.NewUnsupportedOperationError("emergency stop")
}

// ClearEmergencyStop is unsupported, like on the real arm.
func (a *Arm) ClearEmergencyStop(ctx context.Context) error {
	return roboterr.NewUnsupportedOperationError("clear emergency stop")
}

// IsMoving is always false for a fake arm.
func (a *Arm) IsMoving(ctx context.Context) (bool, error) {
	return false, nil
}

func (a *Arm) moveLocked(target arm.MotionType, relative bool) error {
	if err := a.checkConnected(); err != nil {
		return err
	}
	if !a.enabled {
		return roboterr.NewUnprocessableInstructionError("fake arm is not enabled")
	}
	switch {
	case target.Kind == arm.JointMotion && relative:
		for i, d := range target.Joints {
			a.joints[i] += d
		}
	case target.Kind == arm.JointMotion:
		a.joints = target.Joints
	case target.Pose.Kind != arm.EulerPose:
		return roboterr.NewUnsupportedOperationError("fake arm non euler pose")
	case relative:
		for i, d := range target.Pose.EulerArray() {
			a.pose[i] += d
		}
	default:
		a.pose = target.Pose.EulerArray()
	}
	return nil
}

// MoveTo jumps to target.
func (a *Arm) MoveTo(ctx context.Context, target arm.MotionType, speed float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moveLocked(target, false)
}

// MoveToAsync jumps to target.
func (a *Arm) MoveToAsync(ctx context.Context, target arm.MotionType, speed float64) error {
	return a.MoveTo(ctx, target, speed)
}

// MoveRel jumps by delta.
func (a *Arm) MoveRel(ctx context.Context, delta arm.MotionType, speed float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.moveLocked(delta, true)
}

// MoveRelAsync jumps by delta.
func (a *Arm) MoveRelAsync(ctx context.Context, delta arm.MotionType, speed float64) error {
	return a.MoveRel(ctx, delta, speed)
}

// MovePath jumps through every point of path.
func (a *Arm) MovePath(ctx context.Context, path []arm.MotionType, speed float64) error {
	if err := a.PreparePath(ctx, path, speed); err != nil {
		return err
	}
	return a.StartPath(ctx)
}

// PreparePath stores path for StartPath.
func (a *Arm) PreparePath(ctx context.Context, path []arm.MotionType, speed float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkConnected(); err != nil {
		return err
	}
	if len(path) == 0 {
		return roboterr.NewUnprocessableInstructionError("path is empty")
	}
	if a.prepared != nil {
		return roboterr.NewUnprocessableInstructionError("a path is already prepared")
	}
	kinds := lo.Uniq(lo.Map(path, func(m arm.MotionType, _ int) arm.MotionKind { return m.Kind }))
	if len(kinds) > 1 {
		return roboterr.NewUnprocessableInstructionError("path mixes joint and cartesian points")
	}
	a.prepared = append([]arm.MotionType{}, path...)
	return nil
}

// StartPath runs the prepared path.
func (a *Arm) StartPath(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prepared == nil {
		return roboterr.NewUnprocessableInstructionError("no path prepared")
	}
	path := a.prepared
	a.prepared = nil
	for _, target := range path {
		if err := a.moveLocked(target, false); err != nil {
			return err
		}
	}
	return nil
}

// DiscardPath forgets the prepared path.
func (a *Arm) DiscardPath(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prepared = nil
	return nil
}

// SetLoad records load.
func (a *Arm) SetLoad(ctx context.Context, load arm.LoadState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkConnected(); err != nil {
		return err
	}
	a.load = load
	return nil
}

// Load returns the last load set.
func (a *Arm) Load() arm.LoadState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.load
}

// SetSpeed records speed.
func (a *Arm) SetSpeed(ctx context.Context, speed float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkConnected(); err != nil {
		return err
	}
	a.speed = speed
	return nil
}

// Speed returns the current speed scale.
func (a *Arm) Speed() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.speed
}

// ReadState returns the last commanded joints and pose with zero velocities.
func (a *Arm) ReadState(ctx context.Context) (arm.ArmState, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.checkConnected(); err != nil {
		return arm.ArmState{}, err
	}
	return arm.ArmState{Joints: a.joints, Pose: arm.NewEulerPose(a.pose)}, nil
}

// Version returns a fixed version string.
func (a *Arm) Version() string {
	return "fake"
}

// Close disconnects and counts the call.
func (a *Arm) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CloseCount++
	a.connected = false
	return nil
}
