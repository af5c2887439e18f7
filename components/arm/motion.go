package arm

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// DOF is the number of joints.
const DOF = 6

// MotionKind tells joint targets from Cartesian ones.
type MotionKind uint8

// Motion kinds.
const (
	JointMotion MotionKind = iota
	CartesianMotion
)

func (k MotionKind) String() string {
	if k == CartesianMotion {
		return "cartesian"
	}
	return "joint"
}

// PoseKind tells which orientation form a Pose carries.
type PoseKind uint8

// Pose kinds.
const (
	EulerPose PoseKind = iota
	QuaternionPose
	HomogeneousPose
)

// Pose is a tool position in millimetres with one orientation form, selected by Kind.
type Pose struct {
	Kind        PoseKind
	Position    [3]float64
	Euler       [3]float64 // Rx, Ry, Rz in degrees
	Quaternion  quat.Number
	Homogeneous [16]float64 // row major
}

// NewEulerPose builds a pose from X, Y, Z, Rx, Ry, Rz.
func NewEulerPose(p [6]float64) Pose {
	return Pose{Kind: EulerPose, Position: [3]float64{p[0], p[1], p[2]}, Euler: [3]float64{p[3], p[4], p[5]}}
}

// NewQuaternionPose builds a pose from a position and a rotation.
func NewQuaternionPose(position [3]float64, q quat.Number) Pose {
	return Pose{Kind: QuaternionPose, Position: position, Quaternion: q}
}

// NewHomogeneousPose builds a pose from a 4x4 row major transform.
func NewHomogeneousPose(m [16]float64) Pose {
	return Pose{Kind: HomogeneousPose, Homogeneous: m}
}

// EulerArray returns X, Y, Z, Rx, Ry, Rz. It is only meaningful for EulerPose.
func (p Pose) EulerArray() [6]float64 {
	return [6]float64{p.Position[0], p.Position[1], p.Position[2], p.Euler[0], p.Euler[1], p.Euler[2]}
}

// MarshalJSON writes Euler poses as a flat array.
func (p Pose) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case EulerPose:
		return json.Marshal(p.EulerArray())
	case QuaternionPose:
		return json.Marshal(map[string]interface{}{
			"position":   p.Position,
			"quaternion": [4]float64{p.Quaternion.Real, p.Quaternion.Imag, p.Quaternion.Jmag, p.Quaternion.Kmag},
		})
	default:
		return json.Marshal(map[string]interface{}{"homogeneous": p.Homogeneous})
	}
}

// UnmarshalJSON accepts a flat Euler array, {"euler":[[x,y,z],[rx,ry,rz]]},
// {"position","quaternion"} or {"homogeneous"}. Keys match case insensitively.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var euler [6]float64
	if err := json.Unmarshal(data, &euler); err == nil {
		*p = NewEulerPose(euler)
		return nil
	}
	var obj struct {
		Euler       *[2][3]float64 `json:"euler"`
		Position    *[3]float64    `json:"position"`
		Quaternion  *[4]float64    `json:"quaternion"`
		Homogeneous *[16]float64   `json:"homogeneous"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "pose")
	}
	switch {
	case obj.Euler != nil:
		e := obj.Euler
		*p = NewEulerPose([6]float64{e[0][0], e[0][1], e[0][2], e[1][0], e[1][1], e[1][2]})
	case obj.Homogeneous != nil:
		*p = NewHomogeneousPose(*obj.Homogeneous)
	case obj.Position != nil && obj.Quaternion != nil:
		q := obj.Quaternion
		*p = NewQuaternionPose(*obj.Position, quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]})
	default:
		return errors.New("pose needs six euler values, position and quaternion, or homogeneous")
	}
	return nil
}

// MotionType is a target: either joint angles in degrees or a Cartesian pose.
type MotionType struct {
	Kind   MotionKind
	Joints [DOF]float64
	Pose   Pose
}

// Joint returns a joint space target.
func Joint(joints [DOF]float64) MotionType {
	return MotionType{Kind: JointMotion, Joints: joints}
}

// Cartesian returns a Cartesian target.
func Cartesian(pose Pose) MotionType {
	return MotionType{Kind: CartesianMotion, Pose: pose}
}

// CartesianEuler is shorthand for Cartesian(NewEulerPose(p)).
func CartesianEuler(p [6]float64) MotionType {
	return Cartesian(NewEulerPose(p))
}

func (m MotionType) String() string {
	if m.Kind == JointMotion {
		return fmt.Sprintf("joint%v", m.Joints)
	}
	switch m.Pose.Kind {
	case EulerPose:
		return fmt.Sprintf("cartesian%v", m.Pose.EulerArray())
	case QuaternionPose:
		return fmt.Sprintf("cartesian{%v %v}", m.Pose.Position, m.Pose.Quaternion)
	default:
		return fmt.Sprintf("homogeneous%v", m.Pose.Homogeneous)
	}
}

// MarshalJSON writes {"joint":[...]} or {"cartesian":pose}.
func (m MotionType) MarshalJSON() ([]byte, error) {
	if m.Kind == JointMotion {
		return json.Marshal(map[string]interface{}{"joint": m.Joints})
	}
	return json.Marshal(map[string]interface{}{"cartesian": m.Pose})
}

// UnmarshalJSON reads {"joint":[...]} or {"cartesian":pose}.
func (m *MotionType) UnmarshalJSON(data []byte) error {
	var obj struct {
		Joint     *[DOF]float64 `json:"joint"`
		Cartesian *Pose         `json:"cartesian"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "motion target")
	}
	switch {
	case obj.Joint != nil && obj.Cartesian != nil:
		return errors.New("motion target has both joint and cartesian")
	case obj.Joint != nil:
		*m = Joint(*obj.Joint)
	case obj.Cartesian != nil:
		*m = Cartesian(*obj.Cartesian)
	default:
		return errors.New(`motion target needs "joint" or "cartesian"`)
	}
	return nil
}
