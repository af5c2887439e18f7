package command

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/roplat/hans/protocol"
	"github.com/roplat/hans/roboterr"
)

// DispatchFunc runs one opcode from an encoded argument string and returns the encoded reply.
type DispatchFunc func(ctx context.Context, d *Dispatcher, args string) (string, error)

// registry maps wire names to dispatch functions, built once from the table.
var registry = func() map[string]DispatchFunc {
	m := make(map[string]DispatchFunc, len(table))
	for op, b := range table {
		m[op.String()] = dispatchFor(b)
	}
	return m
}()

func dispatchFor(b Binding) DispatchFunc {
	return func(ctx context.Context, d *Dispatcher, args string) (string, error) {
		req := reflect.New(b.Request)
		if err := protocol.Unmarshal(args, req.Interface()); err != nil {
			return "", roboterr.NewInvalidInstructionError(err, "bad arguments for %s (want %s)", b.Opcode, Describe(b.Request))
		}
		resp := reflect.New(b.Response)
		if err := d.Do(ctx, b.Opcode, req.Elem().Interface(), resp.Interface()); err != nil {
			return "", err
		}
		return protocol.Marshal(resp.Interface()), nil
	}
}

// Dispatch runs the opcode called name with freeform encoded args.
func Dispatch(ctx context.Context, d *Dispatcher, name, args string) (string, error) {
	fn, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return "", roboterr.NewInvalidInstructionError(nil, "unknown command %q", name)
	}
	return fn(ctx, d, args)
}

// Names lists the registered command names alphabetically.
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// Describe lists the wire fields of t, e.g. "RobotID uint8, Joints [6]float64".
func Describe(t reflect.Type) string {
	if t.Kind() != reflect.Struct {
		return t.String()
	}
	if t.NumField() == 0 {
		return "()"
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fields = append(fields, f.Name+" "+f.Type.String())
	}
	return strings.Join(fields, ", ")
}
