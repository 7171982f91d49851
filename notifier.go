package cassession

import "context"

// Notifier is the error-reporting collaborator (exception tracker, pager, ...).
// Notify is fire-and-forget and must not block the request for long.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) {}

// NotifierFunc adapts a plain function.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// LogNotifier reports through a Logger at error level.
type LogNotifier struct{ L Logger }

func (n LogNotifier) Notify(_ context.Context, message string) {
	if n.L != nil {
		n.L.Error(message, nil)
	}
}
