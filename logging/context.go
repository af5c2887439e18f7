package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugLogKeyType int

const debugLogKeyID = debugLogKeyType(iota)

// EnableDebugMode returns a context that forces debug output from the C* logging methods.
// An empty debugLogKey generates a random one.
func EnableDebugMode(ctx context.Context, debugLogKey string) context.Context {
	if debugLogKey == "" {
		debugLogKey = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugLogKeyID, debugLogKey)
}

// IsDebugMode returns whether ctx has debug logging enabled.
func IsDebugMode(ctx context.Context) bool {
	return GetName(ctx) != ""
}

// GetName returns the key passed to EnableDebugMode.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(debugLogKeyID).(string); ok {
		return val
	}
	return ""
}
