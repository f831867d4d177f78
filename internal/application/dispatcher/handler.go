package dispatcher

import (
	"context"

	"github.com/garyjia/ai-reconciliation/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo is a named subscription
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
