// Package inject provides test doubles whose behaviour is set per test through Func fields.
package inject

import (
	"context"

	"github.com/roplat/hans/components/arm"
)

// Arm is an injected arm. Methods without an injected Func call the embedded Arm.
type Arm struct {
	arm.Arm
	ConnectFunc   func(ctx context.Context, host string, port uint16) error
	EnableFunc    func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
	IsMovingFunc  func(ctx context.Context) (bool, error)
	MoveToFunc    func(ctx context.Context, target arm.MotionType, speed float64) error
	MoveRelFunc   func(ctx context.Context, delta arm.MotionType, speed float64) error
	MovePathFunc  func(ctx context.Context, path []arm.MotionType, speed float64) error
	SetLoadFunc   func(ctx context.Context, load arm.LoadState) error
	SetSpeedFunc  func(ctx context.Context, speed float64) error
	ReadStateFunc func(ctx context.Context) (arm.ArmState, error)
	CloseFunc     func(ctx context.Context) error
}

// Connect calls the injected Connect or the real version.
func (a *Arm) Connect(ctx context.Context, host string, port uint16) error {
	if a.ConnectFunc == nil {
		return a.Arm.Connect(ctx, host, port)
	}
	return a.ConnectFunc(ctx, host, port)
}

// Enable calls the injected Enable or the real version.
func (a *Arm) Enable(ctx context.Context) error {
	if a.EnableFunc == nil {
		return a.Arm.Enable(ctx)
	}
	return a.EnableFunc(ctx)
}

// Stop calls the injected Stop or the real version.
func (a *Arm) Stop(ctx context.Context) error {
	if a.StopFunc == nil {
		return a.Arm.Stop(ctx)
	}
	return a.StopFunc(ctx)
}

// IsMoving calls the injected IsMoving or the real version.
func (a *Arm) IsMoving(ctx context.Context) (bool, error) {
	if a.IsMovingFunc == nil {
		return a.Arm.IsMoving(ctx)
	}
	return a.IsMovingFunc(ctx)
}

// MoveTo calls the injected MoveTo or the real version.
func (a *Arm) MoveTo(ctx context.Context, target arm.MotionType, speed float64) error {
	if a.MoveToFunc == nil {
		return a.Arm.MoveTo(ctx, target, speed)
	}
	return a.MoveToFunc(ctx, target, speed)
}

// MoveRel calls the injected MoveRel or the real version.
func (a *Arm) MoveRel(ctx context.Context, delta arm.MotionType, speed float64) error {
	if a.MoveRelFunc == nil {
		return a.Arm.MoveRel(ctx, delta, speed)
	}
	return a.MoveRelFunc(ctx, delta, speed)
}

// MovePath calls the injected MovePath or the real version.
func (a *Arm) MovePath(ctx context.Context, path []arm.MotionType, speed float64) error {
	if a.MovePathFunc == nil {
		return a.Arm.MovePath(ctx, path, speed)
	}
	return a.MovePathFunc(ctx, path, speed)
}

// SetLoad calls the injected SetLoad or the real version.
func (a *Arm) SetLoad(ctx context.Context, load arm.LoadState) error {
	if a.SetLoadFunc == nil {
		return a.Arm.SetLoad(ctx, load)
	}
	return a.SetLoadFunc(ctx, load)
}

// SetSpeed calls the injected SetSpeed or the real version.
func (a *Arm) SetSpeed(ctx context.Context, speed float64) error {
	if a.SetSpeedFunc == nil {
		return a.Arm.SetSpeed(ctx, speed)
	}
	return a.SetSpeedFunc(ctx, speed)
}

// ReadState calls the injected ReadState or the real version.
func (a *Arm) ReadState(ctx context.Context) (arm.ArmState, error) {
	if a.ReadStateFunc == nil {
		return a.Arm.ReadState(ctx)
	}
	return a.ReadStateFunc(ctx)
}

// Close calls the injected Close or the real version. A nil embedded Arm closes cleanly.
func (a *Arm) Close(ctx context.Context) error {
	if a.CloseFunc != nil {
		return a.CloseFunc(ctx)
	}
	if a.Arm == nil {
		return nil
	}
	return a.Arm.Close(ctx)
}
