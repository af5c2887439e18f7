package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/roplat/hans/components/arm"
	"github.com/roplat/hans/config"
	"github.com/roplat/hans/roboterr"
)

// Command names accepted by the relay.
const (
	CmdConnect                = "Connect"
	CmdEnable                 = "Enable"
	CmdDisable                = "Disable"
	CmdReset                  = "Reset"
	CmdIsMoving               = "IsMoving"
	CmdStop                   = "Stop"
	CmdPause                  = "Pause"
	CmdResume                 = "Resume"
	CmdArmState               = "ArmState"
	CmdSetLoad                = "SetLoad"
	CmdSetSpeed               = "SetSpeed"
	CmdMoveJoint              = "MoveJoint"
	CmdMoveJointRel           = "MoveJointRel"
	CmdMoveLinearWithEuler    = "MoveLinearWithEuler"
	CmdMoveLinearWithEulerRel = "MoveLinearWithEulerRel"
	CmdMovePathFromFile       = "MovePathFromFile"
)

// Request is one decoded relay command. Args holds the raw object of object commands and is
// empty for bare string commands.
type Request struct {
	Name string
	Args json.RawMessage
}

// Reply is the JSON answer to a Request. Exactly one field is set.
type Reply struct {
	Ok  *string `json:"Ok,omitempty"`
	Err *string `json:"Err,omitempty"`
}

// OkReply wraps a successful result.
func OkReply(s string) Reply {
	return Reply{Ok: &s}
}

// ErrReply wraps a failure the way clients of the relay expect it.
func ErrReply(err error) Reply {
	s := "[Error:" + err.Error() + "]"
	return Reply{Err: &s}
}

// ParseRequest decodes `"Name"` or `{"Name": {...}}`.
func ParseRequest(data []byte) (Request, error) {
	data = bytes.TrimSpace(data)
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return Request{Name: name}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Request{}, errors.Wrap(err, "command is neither a string nor an object")
	}
	if len(obj) != 1 {
		return Request{}, errors.Errorf("command object must have exactly one key, got %d", len(obj))
	}
	var req Request
	for name, args := range obj {
		req = Request{Name: name, Args: args}
	}
	return req, nil
}

type loadArgs struct {
	M float64    `json:"m"`
	X [3]float64 `json:"x"`
}

type speedArgs struct {
	Speed float64 `json:"speed"`
}

type jointArgs struct {
	Joint [arm.DOF]float64 `json:"joint"`
	Speed float64          `json:"speed"`
}

type poseArgs struct {
	Pose  [6]float64 `json:"pose"`
	Speed float64    `json:"speed"`
}

type pathArgs struct {
	Path  string  `json:"path"`
	Speed float64 `json:"speed"`
}

func decodeArgs(req Request, out interface{}) error {
	if len(req.Args) == 0 {
		return roboterr.NewInvalidInstructionError(nil, "%s needs arguments", req.Name)
	}
	if err := json.Unmarshal(req.Args, out); err != nil {
		return roboterr.NewInvalidInstructionError(err, "bad arguments for %s", req.Name)
	}
	return nil
}

// connectConfig reads `{"ip": ..., <arm config fields>}` on top of base.
func connectConfig(base config.ArmConfig, raw json.RawMessage) (config.ArmConfig, error) {
	var attrs map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return config.ArmConfig{}, roboterr.NewInvalidInstructionError(err, "bad arguments for %s", CmdConnect)
		}
	}
	ip, _ := attrs["ip"].(string)
	delete(attrs, "ip")
	conf, err := config.FromAttributes(base, attrs)
	if err != nil {
		return config.ArmConfig{}, roboterr.NewInvalidInstructionError(err, "bad arguments for %s", CmdConnect)
	}
	if ip != "" {
		conf.Host = ip
	}
	if conf.Host == "" {
		return config.ArmConfig{}, roboterr.NewInvalidInstructionError(nil, "%s needs an ip", CmdConnect)
	}
	return conf, nil
}

// execute runs req against a connected arm and returns the text of the Ok reply.
func execute(ctx context.Context, a arm.Arm, req Request) (string, error) {
	switch req.Name {
	case CmdEnable:
		return "", a.Enable(ctx)
	case CmdDisable:
		return "", a.Disable(ctx)
	case CmdReset:
		return "", a.Reset(ctx)
	case CmdStop:
		return "", a.Stop(ctx)
	case CmdPause:
		return "", a.Pause(ctx)
	case CmdResume:
		return "", a.Resume(ctx)
	case CmdIsMoving:
		moving, err := a.IsMoving(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(moving), nil
	case CmdArmState:
		state, err := a.ReadState(ctx)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(state)
		return string(out), err
	case CmdSetLoad:
		var args loadArgs
		if err := decodeArgs(req, &args); err != nil {
			return "", err
		}
		return "", a.SetLoad(ctx, arm.LoadState{Mass: args.M, Centroid: args.X})
	case CmdSetSpeed:
		var args speedArgs
		if err := decodeArgs(req, &args); err != nil {
			return "", err
		}
		return "", a.SetSpeed(ctx, args.Speed)
	case CmdMoveJoint, CmdMoveJointRel:
		var args jointArgs
		if err := decodeArgs(req, &args); err != nil {
			return "", err
		}
		if req.Name == CmdMoveJointRel {
			return "", a.MoveRel(ctx, arm.Joint(args.Joint), args.Speed)
		}
		return "", a.MoveTo(ctx, arm.Joint(args.Joint), args.Speed)
	case CmdMoveLinearWithEuler, CmdMoveLinearWithEulerRel:
		var args poseArgs
		if err := decodeArgs(req, &args); err != nil {
			return "", err
		}
		if req.Name == CmdMoveLinearWithEulerRel {
			return "", a.MoveRel(ctx, arm.CartesianEuler(args.Pose), args.Speed)
		}
		return "", a.MoveTo(ctx, arm.CartesianEuler(args.Pose), args.Speed)
	case CmdMovePathFromFile:
		var args pathArgs
		if err := decodeArgs(req, &args); err != nil {
			return "", err
		}
		path, err := arm.LoadPath(args.Path)
		if err != nil {
			return "", roboterr.NewInvalidInstructionError(err, "cannot load path")
		}
		return "", a.MovePath(ctx, path, args.Speed)
	default:
		return "", roboterr.NewInvalidInstructionError(nil, "unknown command %q", req.Name)
	}
}
