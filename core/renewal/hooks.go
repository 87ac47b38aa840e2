package renewal

import (
	"context"
	"log/slog"
)

// Hook observes service lifecycle events. Implementations must tolerate
// concurrent calls; panics are recovered and logged so one misbehaving
// hook cannot take the scheduler down or starve its siblings.
type Hook interface {
	// OnStart fires once when the service starts.
	OnStart(ctx context.Context)

	// OnStop fires once when the service stops.
	OnStop(ctx context.Context)

	// OnRenewalSucceeded fires after a cycle that produced or loaded a
	// certificate, with the winning result.
	OnRenewalSucceeded(ctx context.Context, result *Result)

	// OnException fires for every failed cycle and probe failure.
	OnException(ctx context.Context, err error)
}

// BaseHook is a no-op Hook for embedding, so implementations only
// override the events they care about.
type BaseHook struct{}

func (BaseHook) OnStart(context.Context)                     {}
func (BaseHook) OnStop(context.Context)                      {}
func (BaseHook) OnRenewalSucceeded(context.Context, *Result) {}
func (BaseHook) OnException(context.Context, error)          {}

func (s *Service) fireHooks(ctx context.Context, event string, fn func(Hook)) {
	for _, hook := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.ErrorContext(ctx, "hook panicked",
						slog.String("event", event),
						slog.Any("panic", r))
				}
			}()
			fn(hook)
		}()
	}
}
