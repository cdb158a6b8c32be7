package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/finadmin/expense-authorization/internal/core/events"
)

// Notifier delivers one rendered notification. Delivery is best-effort: a
// failed delivery is logged by the dispatcher and never retried here.
type Notifier interface {
	Notify(ctx context.Context, subject string, payload map[string]interface{}) error
}

// Dispatcher bridges the event bus to a Notifier. All handlers run on the
// bus's goroutines; nothing here may block a state transition.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewDispatcher(notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
	}
}

// Register subscribes the dispatcher to every expense event the engine emits.
func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseStatusChanged, d.handleStatusChanged)
	bus.Subscribe(events.EventTypeExpenseLevelAdvanced, d.handleLevelAdvanced)
	bus.Subscribe(events.EventTypeExpenseRejected, d.handleRejected)
}

func (d *Dispatcher) handleStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("expense %d is now %s", e.ExpenseID, e.NewStatus)
	return d.deliver(ctx, subject, event)
}

func (d *Dispatcher) handleLevelAdvanced(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseLevelAdvancedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("expense %d awaits decision at level %d", e.ExpenseID, e.NewLevel)
	return d.deliver(ctx, subject, event)
}

func (d *Dispatcher) handleRejected(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("expense %d was rejected at level %d", e.ExpenseID, e.Level)
	return d.deliver(ctx, subject, event)
}

func (d *Dispatcher) deliver(ctx context.Context, subject string, event events.Event) error {
	payload, _ := event.Payload().(map[string]interface{})

	if err := d.notifier.Notify(ctx, subject, payload); err != nil {
		d.logger.Error("notification delivery failed",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
		return err
	}

	d.logger.Debug("notification delivered",
		"event_type", event.EventType(),
		"event_id", event.EventID())
	return nil
}

// LogNotifier is the default sink when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, subject string, payload map[string]interface{}) error {
	n.logger.Info("notification", "subject", subject, "payload", payload)
	return nil
}

// WebhookNotifier posts notifications to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, subject string, payload map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"subject": subject,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
