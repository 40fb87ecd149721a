package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/finsense/payment-service/internal/domain"
)

// ProviderStatusConsumer feeds provider status events arriving on RabbitMQ
// into the orchestrator's status-update path. It is the message-broker twin
// of the HTTP provider-callback endpoint.
type ProviderStatusConsumer struct {
	svc *Service
}

func NewProviderStatusConsumer(svc *Service) *ProviderStatusConsumer {
	return &ProviderStatusConsumer{svc: svc}
}

// HandleMessage processes one delivery. Returning true acks the message;
// false nacks it back onto the queue for redelivery.
func (c *ProviderStatusConsumer) HandleMessage(body []byte) bool {
	var event domain.ProviderStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=status_consumer msg=\"undecodable provider status payload; dropping\" err=%v", err)
		return true
	}

	if event.ProviderTransactionID == "" {
		log.Printf("level=warn component=status_consumer msg=\"provider status event without provider transaction id; dropping\" payload=%+v", event)
		return true
	}

	status, ok := domain.ParsePaymentStatus(event.Status)
	if !ok {
		log.Printf("level=warn component=status_consumer msg=\"unknown status in provider event; dropping\" provider_transaction_id=%s status=%q", event.ProviderTransactionID, event.Status)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.svc.ApplyProviderStatusUpdate(ctx, event.ProviderTransactionID, status, event.FailureReason); err != nil {
		log.Printf("level=error component=status_consumer msg=\"provider status update failed; re-queuing\" provider_transaction_id=%s err=%v", event.ProviderTransactionID, err)
		return false
	}

	return true
}
