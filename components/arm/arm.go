// Package arm defines the interface implemented by robot arm drivers and the motion
// targets they accept.
package arm

import (
	"context"
)

// Arm is a six axis robot arm reached over the network.
//
// Move calls reject a new motion while a previous one is still running. The synchronous
// variants return once the controller reports it is idle again; the Async variants return
// once the command is acknowledged and leave the caller to poll IsMoving.
type Arm interface {
	Connect(ctx context.Context, host string, port uint16) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Reset(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
	ClearEmergencyStop(ctx context.Context) error

	IsMoving(ctx context.Context) (bool, error)
	MoveTo(ctx context.Context, target MotionType, speed float64) error
	MoveToAsync(ctx context.Context, target MotionType, speed float64) error
	MoveRel(ctx context.Context, delta MotionType, speed float64) error
	MoveRelAsync(ctx context.Context, delta MotionType, speed float64) error

	MovePath(ctx context.Context, path []MotionType, speed float64) error
	PreparePath(ctx context.Context, path []MotionType, speed float64) error
	StartPath(ctx context.Context) error
	DiscardPath(ctx context.Context) error

	SetLoad(ctx context.Context, load LoadState) error
	SetSpeed(ctx context.Context, speed float64) error
	ReadState(ctx context.Context) (ArmState, error)

	Version() string
	Close(ctx context.Context) error
}

// LoadState is the tool payload: mass in kg, centroid in mm.
type LoadState struct {
	Mass     float64    `json:"m"`
	Centroid [3]float64 `json:"x"`
}

// ArmState is a telemetry snapshot.
type ArmState struct {
	Joints       [DOF]float64 `json:"joint"`
	JointVel     [DOF]float64 `json:"joint_vel"`
	Pose         Pose         `json:"pose"`
	CartesianVel [6]float64   `json:"cartesian_vel"`
}
