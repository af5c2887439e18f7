package hans

import "fmt"

// RobotMode is the controller state machine value reported by ReadCurFSM.
type RobotMode uint16

// Controller states. Only StandBy counts as not moving.
const (
	UnInitialize RobotMode = iota
	Initialize
	ElectricBoxDisconnect
	ElectricBoxConnecting
	EmergencyStopHandling
	EmergencyStop
	Blackouting48V
	Blackout48V
	Electrifying48V
	SafetyGuardErrorHandling
	SafetyGuardError
	SafetyGuardHandling
	SafetyGuard
	ControllerDisconnecting
	ControllerDisconnect
	ControllerConnecting
	ControllerVersionError
	EtherCATError
	ControllerChecking
	Reseting
	RobotOutOfSafeSpace
	RobotCollisionStop
	Error
	RobotEnabling
	Disable
	Moving
	LongJogMoving
	RobotStopping
	RobotDisabling
	RobotOpeningFreeDriver
	RobotClosingFreeDriver
	FreeDriver
	RobotHolding
	StandBy
)

var robotModeNames = [...]string{
	"UnInitialize", "Initialize", "ElectricBoxDisconnect", "ElectricBoxConnecting",
	"EmergencyStopHandling", "EmergencyStop", "Blackouting48V", "Blackout48V", "Electrifying48V",
	"SafetyGuardErrorHandling", "SafetyGuardError", "SafetyGuardHandling", "SafetyGuard",
	"ControllerDisconnecting", "ControllerDisconnect", "ControllerConnecting",
	"ControllerVersionError", "EtherCATError", "ControllerChecking", "Reseting",
	"RobotOutOfSafeSpace", "RobotCollisionStop", "Error", "RobotEnabling", "Disable", "Moving",
	"LongJogMoving", "RobotStopping", "RobotDisabling", "RobotOpeningFreeDriver",
	"RobotClosingFreeDriver", "FreeDriver", "RobotHolding", "StandBy",
}

func (m RobotMode) String() string {
	if int(m) < len(robotModeNames) {
		return robotModeNames[m]
	}
	return fmt.Sprintf("RobotMode(%d)", uint16(m))
}

// IsMoving reports whether the busy guard treats m as moving.
func (m RobotMode) IsMoving() bool {
	return m != StandBy
}
