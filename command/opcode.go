// Package command binds every controller opcode to its request and response records and
// performs framed request/reply exchanges over a network.Transport.
package command

import "fmt"

// Opcode identifies a controller command.
type Opcode uint16

// Opcodes understood by Hans controllers. Tags are stable and unique.
const (
	Electrify Opcode = iota + 1
	BlackOut
	StartMaster
	CloseMaster
	GrpPowerOn
	GrpPowerOff
	GrpEnable
	GrpDisable
	GrpReset
	GrpStop
	GrpInterrupt
	GrpContinue
	ReadCurFSM
	ReadActPos
	ReadActJointVel
	ReadActTcpVel
	SetPayload
	SetOverride
	MoveRelJ
	MoveRelL
	WayPointRel
	WayPointEx
	WayPoint
	WayPoint2
	MoveJ
	MoveL
	MoveC
	StartPushMovePath
	PushMovePathJ
	EndPushMovePath
	MovePath
	ReadMovePathState
	UpdateMovePathName
	DelMovePath
	ReadSoftMotionProcess
	InitMovePathL
	PushMovePathL
	PushMovePaths
	MovePathL
	SetMovePathOverride
	StartServo
	PushServoJ
	PushServoP
)

var opcodeNames = map[Opcode]string{
	Electrify:             "Electrify",
	BlackOut:              "BlackOut",
	StartMaster:           "StartMaster",
	CloseMaster:           "CloseMaster",
	GrpPowerOn:            "GrpPowerOn",
	GrpPowerOff:           "GrpPowerOff",
	GrpEnable:             "GrpEnable",
	GrpDisable:            "GrpDisable",
	GrpReset:              "GrpReset",
	GrpStop:               "GrpStop",
	GrpInterrupt:          "GrpInterrupt",
	GrpContinue:           "GrpContinue",
	ReadCurFSM:            "ReadCurFSM",
	ReadActPos:            "ReadActPos",
	ReadActJointVel:       "ReadActJointVel",
	ReadActTcpVel:         "ReadActTcpVel",
	SetPayload:            "SetPayload",
	SetOverride:           "SetOverride",
	MoveRelJ:              "MoveRelJ",
	MoveRelL:              "MoveRelL",
	WayPointRel:           "WayPointRel",
	WayPointEx:            "WayPointEx",
	WayPoint:              "WayPoint",
	WayPoint2:             "WayPoint2",
	MoveJ:                 "MoveJ",
	MoveL:                 "MoveL",
	MoveC:                 "MoveC",
	StartPushMovePath:     "StartPushMovePath",
	PushMovePathJ:         "PushMovePathJ",
	EndPushMovePath:       "EndPushMovePath",
	MovePath:              "MovePath",
	ReadMovePathState:     "ReadMovePathState",
	UpdateMovePathName:    "UpdateMovePathName",
	DelMovePath:           "DelMovePath",
	ReadSoftMotionProcess: "ReadSoftMotionProcess",
	InitMovePathL:         "InitMovePathL",
	PushMovePathL:         "PushMovePathL",
	PushMovePaths:         "PushMovePaths",
	MovePathL:             "MovePathL",
	SetMovePathOverride:   "SetMovePathOverride",
	StartServo:            "StartServo",
	PushServoJ:            "PushServoJ",
	PushServoP:            "PushServoP",
}

// String returns the name used on the wire.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}
