package worker

import (
	"context"
	"errors"
	"fmt"

	eventpkg "github.com/stormhead-org/threads/internal/event"
	"github.com/stormhead-org/threads/internal/lib"
)

type EventHandler func(ctx context.Context, data []byte) error

type Router struct {
	handlers map[string][]EventHandler
}

func NewRouter(handlers map[string][]EventHandler) *Router {
	return &Router{
		handlers: handlers,
	}
}

// Handle validates data against the event schema, when there is one, and
// runs every handler registered for event. Unknown events are ignored.
func (r *Router) Handle(ctx context.Context, event string, data []byte) error {
	handlers, ok := r.handlers[event]
	if !ok {
		return nil
	}

	if schema := eventpkg.Schema(event); schema != nil {
		if err := lib.ValidateJSON(ctx, schema, data); err != nil {
			return fmt.Errorf("invalid %s payload: %w", event, err)
		}
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
