// Package spatialmath converts between the orientation forms accepted by the driver.
// Hans controllers take Euler angles (Rx, Ry, Rz) in degrees, applied about the fixed
// X, then Y, then Z axes.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// EulerAngles are roll, pitch and yaw in radians.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// NewEulerAnglesFromDegrees builds angles from Rx, Ry, Rz in degrees.
func NewEulerAnglesFromDegrees(rx, ry, rz float64) *EulerAngles {
	return &EulerAngles{Roll: DegToRad(rx), Pitch: DegToRad(ry), Yaw: DegToRad(rz)}
}

// Degrees returns Rx, Ry, Rz in degrees.
func (ea *EulerAngles) Degrees() [3]float64 {
	return [3]float64{RadToDeg(ea.Roll), RadToDeg(ea.Pitch), RadToDeg(ea.Yaw)}
}

// Quaternion returns the unit quaternion of the rotation.
func (ea *EulerAngles) Quaternion() quat.Number {
	cr, sr := math.Cos(ea.Roll/2), math.Sin(ea.Roll/2)
	cp, sp := math.Cos(ea.Pitch/2), math.Sin(ea.Pitch/2)
	cy, sy := math.Cos(ea.Yaw/2), math.Sin(ea.Yaw/2)
	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// QuatToEulerAngles converts a quaternion to Euler angles. q need not be normalized.
// At gimbal lock the roll is folded into the yaw.
func QuatToEulerAngles(q quat.Number) *EulerAngles {
	q = Normalize(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	angles := &EulerAngles{}
	sinp := 2 * (w*y - z*x)
	if math.Abs(sinp) >= 1-1e-12 {
		angles.Pitch = math.Copysign(math.Pi/2, sinp)
		angles.Yaw = -2 * math.Copysign(1, sinp) * math.Atan2(x, w)
		angles.Roll = 0
		return angles
	}
	angles.Pitch = math.Asin(sinp)
	angles.Roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	angles.Yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return angles
}

// Normalize scales q to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// QuaternionAlmostEqual reports whether a and b are the same rotation within tol.
// q and -q are the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	a, b = Normalize(a), Normalize(b)
	same := quat.Abs(quat.Sub(a, b)) < tol
	opposite := quat.Abs(quat.Add(a, b)) < tol
	return same || opposite
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
