// Package shipping hands settled orders and exchanged parts to the
// courier integration. Dispatch is fire-and-forget: a failed webhook
// never blocks or rolls back a settlement, asynq retries it.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fixparts/fixparts/internal/alerts"
)

const TaskShipment = "shipping:dispatch"

type ShipmentPayload struct {
	OrderID    string    `json:"order_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Init registers the shipment handler on the shared task mux. Must be
// called before alerts.Init.
func Init() {
	alerts.Handle(TaskShipment, asynq.HandlerFunc(handleShipment))
}

// EnqueueShipment schedules a courier dispatch for a settled order or
// an exchanged part.
func EnqueueShipment(orderID, fromUserID, toUserID string) error {
	payload := ShipmentPayload{
		OrderID: orderID, FromUserID: fromUserID, ToUserID: toUserID,
		CreatedAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskShipment, b)
	_, err := alerts.Client().Enqueue(task,
		asynq.Queue("shipping"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	return err
}

func handleShipment(ctx context.Context, t *asynq.Task) error {
	var p ShipmentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	webhook := os.Getenv("COURIER_WEBHOOK_URL")
	if webhook == "" {
		slog.Info("shipment dispatched (no courier configured)", "order", p.OrderID)
		return nil
	}

	body, _ := json.Marshal(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("courier webhook returned %d", resp.StatusCode)
	}

	slog.Info("shipment dispatched", "order", p.OrderID, "from", p.FromUserID, "to", p.ToUserID)
	return nil
}
