package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

var (
	client *asynq.Client
	server *asynq.Server

	extra = map[string]asynq.HandlerFunc{}
)

// Handle registers an additional task handler on the shared mux.
// Must be called before Init.
func Handle(taskType string, h asynq.HandlerFunc) {
	extra[taskType] = h
}

// Init starts the Asynq server and initializes a shared client.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			redisAddr = "127.0.0.1:6379"
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProposalAccepted, handleProposalAccepted)
	mux.HandleFunc(TaskOrderCompleted, handleOrderCompleted)
	mux.HandleFunc(TaskOrderCancelled, handleOrderCancelled)
	mux.HandleFunc(TaskExchangeSettled, handleExchangeSettled)
	mux.HandleFunc(TaskAdminAlert, handleAdminAlert)
	for typ, h := range extra {
		mux.Handle(typ, h)
	}

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"notifications": 10,
			"alerts":        5,
			"shipping":      5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			slog.Error("asynq server stopped", "err", err)
		}
	}()

	slog.Info("asynq initialized", "addr", redisAddr)
}

// Mux access for other packages that register their own task handlers.
func Client() *asynq.Client { return ensureClient() }

// Close releases client and stops server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// Handlers below parse payloads and deliver via logs. Push or email
// delivery plugs in here.

func handleProposalAccepted(_ context.Context, t *asynq.Task) error {
	var p ProposalAcceptedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	slog.Info("notify proposal accepted", "order", p.OrderID, "master", p.MasterID, "price", p.Price)
	return nil
}

func handleOrderCompleted(_ context.Context, t *asynq.Task) error {
	var p OrderCompletedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	slog.Info("notify order completed", "order", p.OrderID, "master", p.MasterID, "amount", p.Amount)
	return nil
}

func handleOrderCancelled(_ context.Context, t *asynq.Task) error {
	var p OrderCancelledPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	slog.Info("notify order cancelled", "order", p.OrderID, "client", p.ClientID, "master", p.MasterID)
	return nil
}

func handleExchangeSettled(_ context.Context, t *asynq.Task) error {
	var p ExchangeSettledPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	slog.Info("notify exchange settled", "exchange", p.ExchangeID, "difference", p.PriceDifference)
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	slog.Warn("admin alert", "severity", p.Severity, "actor", p.ActorID, "message", p.Message)
	return nil
}
