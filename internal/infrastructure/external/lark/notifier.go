package lark

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/dispatcher"
	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/event"
)

// TextSender delivers a text message to one open_id
type TextSender interface {
	SendText(ctx context.Context, openID, text string) (string, error)
}

// Notifier posts run outcomes to the reviewer
type Notifier struct {
	sender   TextSender
	reviewer string
	logger   *zap.Logger
}

// NewNotifier creates a notifier that messages reviewerOpenID
func NewNotifier(sender TextSender, reviewerOpenID string, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		reviewer: reviewerOpenID,
		logger:   logger,
	}
}

// SendText implements port.Notifier
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if n.reviewer == "" {
		return fmt.Errorf("no reviewer configured")
	}
	_, err := n.sender.SendText(ctx, n.reviewer, text)
	return err
}

// Subscribe registers the notifier for finished runs
func (n *Notifier) Subscribe(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeRunCompleted, "lark-notifier", n.HandleRunEvent)
	d.Subscribe(event.TypeRunDegraded, "lark-notifier", n.HandleRunEvent)
}

// HandleRunEvent sends one message per finished run
func (n *Notifier) HandleRunEvent(ctx context.Context, evt *event.Event) error {
	if err := n.SendText(ctx, FormatRunMessage(evt)); err != nil {
		n.logger.Error("Failed to notify reviewer",
			zap.String("run_id", evt.RunID),
			zap.String("event", string(evt.Type)),
			zap.Error(err))
		return fmt.Errorf("notify run %s: %w", evt.RunID, err)
	}
	return nil
}

// FormatRunMessage renders a run event as reviewer-facing text
func FormatRunMessage(evt *event.Event) string {
	var b strings.Builder

	supplier := evt.GetPayloadString(event.KeySupplier)
	switch evt.Type {
	case event.TypeRunDegraded:
		fmt.Fprintf(&b, "Reconciliation %s for %s needs attention: classification failed.\n", evt.RunID, supplier)
		if msg := evt.GetPayloadString(event.KeyError); msg != "" {
			fmt.Fprintf(&b, "Error: %s\n", msg)
		}
		b.WriteString("Only the deterministic result is available.\n")
	default:
		fmt.Fprintf(&b, "Reconciliation %s for %s completed.\n", evt.RunID, supplier)
	}

	if summary := evt.GetPayloadString(event.KeySummary); summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", summary)
	}
	fmt.Fprintf(&b, "Rows: %d\n", evt.GetPayloadInt(event.KeyItemCount))
	fmt.Fprintf(&b, "Difference: %.2f", evt.GetPayloadFloat(event.KeyDifference))

	return b.String()
}

var _ port.Notifier = (*Notifier)(nil)
