package alerts

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

// EnqueueProposalAccepted notifies the master that their proposal won
func EnqueueProposalAccepted(orderID, clientID, masterID string, price int64) error {
	payload := ProposalAcceptedPayload{
		OrderID: orderID, ClientID: clientID, MasterID: masterID,
		Price: price, SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskProposalAccepted, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("notifications"))
	return err
}

// EnqueueOrderCompleted notifies the master that the order completed
// and the payout was released
func EnqueueOrderCompleted(orderID, clientID, masterID string, amount int64) error {
	payload := OrderCompletedPayload{
		OrderID: orderID, ClientID: clientID, MasterID: masterID,
		Amount: amount, SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskOrderCompleted, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("notifications"))
	return err
}

// EnqueueOrderCancelled notifies both parties about a cancellation
func EnqueueOrderCancelled(orderID, clientID, masterID string) error {
	payload := OrderCancelledPayload{
		OrderID: orderID, ClientID: clientID, MasterID: masterID,
		SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskOrderCancelled, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("notifications"))
	return err
}

// EnqueueExchangeSettled notifies both parties that their part
// exchange went through
func EnqueueExchangeSettled(exchangeID, proposerID, responderID string, priceDifference int64) error {
	payload := ExchangeSettledPayload{
		ExchangeID: exchangeID, ProposerID: proposerID, ResponderID: responderID,
		PriceDifference: priceDifference, SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskExchangeSettled, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("notifications"))
	return err
}

// EnqueueAdminAlert sends an alert to the admin channel
func EnqueueAdminAlert(actorID, severity, message string) error {
	payload := AdminAlertPayload{
		ActorID: actorID, Severity: severity, Message: message, SentAt: time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskAdminAlert, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("alerts"))
	return err
}
