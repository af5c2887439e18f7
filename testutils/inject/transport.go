package inject

import "context"

// Transport is an injected network.Transport. A nil IsConnectedFunc reports connected.
type Transport struct {
	TransactFunc    func(ctx context.Context, request string) (string, error)
	IsConnectedFunc func() bool
}

// Transact calls the injected Transact.
func (t *Transport) Transact(ctx context.Context, request string) (string, error) {
	return t.TransactFunc(ctx, request)
}

// IsConnected calls the injected IsConnected.
func (t *Transport) IsConnected() bool {
	if t.IsConnectedFunc == nil {
		return true
	}
	return t.IsConnectedFunc()
}
