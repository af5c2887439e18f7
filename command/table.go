package command

import (
	"reflect"
	"sort"

	"github.com/samber/lo"
)

// Binding pairs an opcode with its request and response record types.
type Binding struct {
	Opcode   Opcode
	Request  reflect.Type
	Response reflect.Type
}

func bind[Req, Resp any](op Opcode) Binding {
	return Binding{
		Opcode:   op,
		Request:  reflect.TypeOf((*Req)(nil)).Elem(),
		Response: reflect.TypeOf((*Resp)(nil)).Elem(),
	}
}

// table is built once and never written afterwards.
var table = func() map[Opcode]Binding {
	bindings := []Binding{
		bind[Empty, Empty](Electrify),
		bind[Empty, Empty](BlackOut),
		bind[Empty, Empty](StartMaster),
		bind[Empty, Empty](CloseMaster),
		bind[Group, Empty](GrpPowerOn),
		bind[Group, Empty](GrpPowerOff),
		bind[Group, Empty](GrpEnable),
		bind[Group, Empty](GrpDisable),
		bind[Group, Empty](GrpReset),
		bind[Group, Empty](GrpStop),
		bind[Group, Empty](GrpInterrupt),
		bind[Group, Empty](GrpContinue),
		bind[Group, FSMState](ReadCurFSM),
		bind[Group, ActualPosition](ReadActPos),
		bind[Group, Velocity](ReadActJointVel),
		bind[Group, Velocity](ReadActTcpVel),
		bind[Payload, Empty](SetPayload),
		bind[Ratio, Empty](SetOverride),
		bind[RelJ, Empty](MoveRelJ),
		bind[RelL, Empty](MoveRelL),
		bind[WayPointRelMove, Empty](WayPointRel),
		bind[WayPointExMove, Empty](WayPointEx),
		bind[WayPointMove, Empty](WayPoint),
		bind[WayPoint2Move, Empty](WayPoint2),
		bind[DirectMove, Empty](MoveJ),
		bind[DirectMove, Empty](MoveL),
		bind[CircularMove, Empty](MoveC),
		bind[PathStart, Empty](StartPushMovePath),
		bind[PathJoint, Empty](PushMovePathJ),
		bind[PathRef, Empty](EndPushMovePath),
		bind[PathRef, Empty](MovePath),
		bind[PathRef, PathState](ReadMovePathState),
		bind[PathRename, Empty](UpdateMovePathName),
		bind[PathRef, Empty](DelMovePath),
		bind[Group, SoftMotionProcess](ReadSoftMotionProcess),
		bind[LinearPathStart, Empty](InitMovePathL),
		bind[PathPose, Empty](PushMovePathL),
		bind[PathBatch, Empty](PushMovePaths),
		bind[PathRef, Empty](MovePathL),
		bind[Ratio, Empty](SetMovePathOverride),
		bind[ServoStart, Empty](StartServo),
		bind[ServoJoint, Empty](PushServoJ),
		bind[ServoPose, Empty](PushServoP),
	}
	m := make(map[Opcode]Binding, len(bindings))
	for _, b := range bindings {
		if _, dup := m[b.Opcode]; dup {
			panic("command: opcode bound twice: " + b.Opcode.String())
		}
		m[b.Opcode] = b
	}
	return m
}()

// Lookup returns the binding of op.
func Lookup(op Opcode) (Binding, bool) {
	b, ok := table[op]
	return b, ok
}

// Bindings returns every binding ordered by tag.
func Bindings() []Binding {
	out := lo.Values(table)
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

// ParseOpcode finds an opcode by its wire name.
func ParseOpcode(name string) (Opcode, bool) {
	return lo.FindKey(opcodeNames, name)
}
