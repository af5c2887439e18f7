package command

import "github.com/roplat/hans/protocol"

// DOF is the axis count of the supported arms.
const DOF = 6

// Joints is one joint angle per axis, in degrees.
type Joints = [DOF]float64

// Pose is X, Y, Z in millimetres followed by Rx, Ry, Rz in degrees.
type Pose = [6]float64

// Empty is the payload of commands that carry nothing.
type Empty struct{}

// Group addresses one robot of the controller.
type Group struct {
	RobotID uint8
}

// Move modes used by way-point commands.
const (
	MoveModeJoint  uint8 = 0
	MoveModeLinear uint8 = 1
)

// Relative move coordinate frames.
const (
	CoordBase uint8 = 0
	CoordTool uint8 = 1
)

// Path build states reported by ReadMovePathState.
const (
	PathStateReady    uint8 = 3
	PathStateRejected uint8 = 5
)

// RelJ moves one joint by Dis degrees. Dir true is the positive direction.
type RelJ struct {
	RobotID uint8
	ID      uint8
	Dir     bool
	Dis     float64
}

// RelL moves the tool along one Cartesian axis in the given Coord frame.
type RelL struct {
	RobotID uint8
	ID      uint8
	Dir     bool
	Dis     float64
	Coord   uint8
}

// WayPointRelMove is a relative way point with per axis enable flags.
type WayPointRelMove struct {
	RobotID      uint8
	MoveMode     uint8
	UsePointList bool
	Pose         Pose
	Joint        Joints
	RelMoveMode  uint8
	IsMove       [DOF]bool
	Dis          [DOF]float64
	TcpName      string
	UcsName      string
	Vel          float64
	Acc          float64
	Radius       float64
	UseJoint     bool
	IsSeekDI     bool
	DIID         uint8
	DIValue      bool
	CommandID    string
}

// WayPointExMove is a way point with explicit tool and user frames.
type WayPointExMove struct {
	RobotID   uint8
	Pose      Pose
	Joint     Joints
	Ucs       Pose
	Tcp       Pose
	Vel       float64
	Acc       float64
	Radius    float64
	MoveMode  uint8
	UseJoint  bool
	IsSeekDI  bool
	DIID      uint8
	DIValue   bool
	CommandID string
}

// WayPointMove is a way point with named tool and user frames.
type WayPointMove struct {
	RobotID   uint8
	Pose      Pose
	Joint     Joints
	TcpName   string
	UcsName   string
	Vel       float64
	Acc       float64
	Radius    float64
	MoveMode  uint8
	UseJoint  bool
	IsSeekDI  bool
	DIID      uint8
	DIValue   bool
	CommandID string
}

// WayPoint2Move passes through Pose1 and ends at Pose2.
type WayPoint2Move struct {
	RobotID   uint8
	Pose1     Pose
	Joint     Joints
	TcpName   string
	UcsName   string
	Vel       float64
	Acc       float64
	Radius    float64
	MoveMode  uint8
	UseJoint  bool
	IsSeekDI  bool
	DIID      uint8
	DIValue   bool
	Pose2     Pose
	CommandID string
}

// DirectMove is the payload of MoveJ and MoveL.
type DirectMove struct {
	RobotID   uint8
	Pose      Pose
	Joint     Joints
	UcsName   string
	TcpName   string
	Vel       float64
	Acc       float64
	Radius    float64
	UseJoint  bool
	IsSeekDI  bool
	DIID      uint8
	DIValue   bool
	CommandID string
}

// CircularMove is an arc through PosePass.
type CircularMove struct {
	RobotID     uint8
	PoseStart   Pose
	PosePass    Pose
	PoseEnd     Pose
	IsFixedPose bool
	MoveMode    uint8
	RadLen      float64
	Vel         float64
	Acc         float64
	Radius      float64
	TcpName     string
	UcsName     string
	CommandID   string
}

// PathStart opens a joint path build.
type PathStart struct {
	RobotID  uint8
	PathName string
	Speed    float64
	Radius   float64
}

// PathJoint appends one joint point to a path under construction.
type PathJoint struct {
	RobotID  uint8
	PathName string
	Joints   Joints
}

// PathRef names a path on the controller.
type PathRef struct {
	RobotID  uint8
	PathName string
}

// PathRename renames a stored path.
type PathRename struct {
	RobotID  uint8
	PathName string
	NewName  string
}

// LinearPathStart opens a Cartesian path build.
type LinearPathStart struct {
	RobotID  uint8
	PathName string
	Vel      float64
	Acc      float64
	Jerk     float64
	UcsName  string
	TcpName  string
}

// PathPose appends one pose to the Cartesian path under construction.
type PathPose struct {
	RobotID uint8
	Pose    Pose
}

// PathBatch pushes many points at once. On the wire the points are preceded by their count.
type PathBatch struct {
	RobotID  uint8
	PathName string
	MoveMode uint8
	Points   [][6]float64
}

// MarshalWire implements protocol.Marshaler.
func (b PathBatch) MarshalWire(enc *protocol.Encoder) {
	enc.Encode(b.RobotID)
	enc.Encode(b.PathName)
	enc.Encode(b.MoveMode)
	enc.Encode(uint16(len(b.Points)))
	enc.Encode(b.Points)
}

// UnmarshalWire implements protocol.Unmarshaler.
func (b *PathBatch) UnmarshalWire(dec *protocol.Decoder) error {
	var n uint16
	for _, v := range []interface{}{&b.RobotID, &b.PathName, &b.MoveMode, &n} {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	b.Points = make([][6]float64, n)
	for i := range b.Points {
		if err := dec.Decode(&b.Points[i]); err != nil {
			return err
		}
	}
	return nil
}

// Ratio carries an override ratio.
type Ratio struct {
	RobotID uint8
	Ratio   float64
}

// ServoStart configures servo streaming, times in seconds.
type ServoStart struct {
	RobotID       uint8
	ServoTime     float64
	LookaheadTime float64
}

// ServoJoint is one streamed joint target.
type ServoJoint struct {
	RobotID uint8
	Joints  Joints
}

// ServoPose is one streamed pose target with its user and tool frames.
type ServoPose struct {
	RobotID uint8
	Pose    Pose
	Ucs     Pose
	Tcp     Pose
}

// Payload is the tool load, mass in kg and centroid in mm.
type Payload struct {
	RobotID  uint8
	Mass     float64
	Centroid [3]float64
}

// FSMState is the controller state machine value.
type FSMState struct {
	State uint16
}

// ActualPosition is the measured position in every frame.
type ActualPosition struct {
	Joints Joints
	Pose   Pose
	Tcp    Pose
	Ucs    Pose
}

// Velocity is one value per axis.
type Velocity struct {
	Values [6]float64
}

// PathState is the reply of ReadMovePathState.
type PathState struct {
	State uint8
}

// SoftMotionProcess reports progress through a running path.
type SoftMotionProcess struct {
	Progress float64
	Index    uint16
}
