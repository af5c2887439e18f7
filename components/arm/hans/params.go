package hans

import (
	"github.com/samber/lo"

	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/spatialmath"
)

// Params are the static limits of one arm model.
type Params struct {
	JointMin [arm.DOF]float64 // degrees
	JointMax [arm.DOF]float64 // degrees
	JointVel [arm.DOF]float64 // degrees per second
	JointAcc [arm.DOF]float64 // radians per second squared
	// Cartesian limits are in metres per second and metres per second squared.
	CartesianVel float64
	CartesianAcc float64
	MaxLoad      float64 // kg
}

// S30 are the limits of the Elfin S30.
var S30 = Params{
	JointMin:     [arm.DOF]float64{-360, -360, -360, -360, -360, -360},
	JointMax:     [arm.DOF]float64{360, 360, 360, 360, 360, 360},
	JointVel:     [arm.DOF]float64{120, 120, 120, 180, 180, 180},
	JointAcc:     [arm.DOF]float64{2.5, 2.5, 2.5, 2.5, 2.5, 2.5},
	CartesianVel: 3.7,
	CartesianAcc: 2.0,
	MaxLoad:      30,
}

// motionParams are the values written into one motion command, in controller units.
type motionParams struct {
	jointVel float64 // deg/s
	jointAcc float64 // deg/s^2
	cartVel  float64 // mm/s
	cartAcc  float64 // mm/s^2
	coord    uint8
}

func scaled(bounds [arm.DOF]float64, scale float64) [arm.DOF]float64 {
	for i := range bounds {
		bounds[i] *= scale
	}
	return bounds
}

func newMotionParams(vel, acc [arm.DOF]float64, cartVel, cartAcc float64, coord uint8) motionParams {
	return motionParams{
		jointVel: lo.Min(vel[:]),
		jointAcc: spatialmath.RadToDeg(lo.Min(acc[:])),
		cartVel:  cartVel * 1000,
		cartAcc:  cartAcc * 1000,
		coord:    coord,
	}
}
