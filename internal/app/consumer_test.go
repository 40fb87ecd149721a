package app

import (
	"errors"
	"testing"
	"time"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/provider"
)

func newConsumerFixture(tx *domain.Transaction) (*ProviderStatusConsumer, *lookupRepoStub, *notifierStub) {
	repo := &lookupRepoStub{tx: tx}
	notifier := &notifierStub{}
	svc := NewService(repo, provider.NewRegistry(), notifier, &publisherStub{}, time.Second)
	return NewProviderStatusConsumer(svc), repo, notifier
}

func TestHandleMessage_AppliesProviderStatusUpdate(t *testing.T) {
	consumer, repo, notifier := newConsumerFixture(inProgressTransaction())

	body := []byte(`{"provider_transaction_id":"MPESA_REF_1","status":"SUCCESSFUL"}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("expected a valid status event to be acked")
	}

	last := repo.lastUpdate(t)
	if last.Status != domain.StatusSuccess {
		t.Fatalf("expected SUCCESS to be persisted, got %s", last.Status)
	}
	if statuses := notifier.statuses(); len(statuses) != 1 || statuses[0] != domain.StatusSuccess {
		t.Fatalf("expected a SUCCESS notification, got %v", statuses)
	}
}

func TestHandleMessage_UndecodablePayloadIsAcked(t *testing.T) {
	consumer, repo, _ := newConsumerFixture(inProgressTransaction())

	if !consumer.HandleMessage([]byte("not json")) {
		t.Fatal("expected an undecodable payload to be acked, not re-queued")
	}
	if got := repo.writeCount(); got != 0 {
		t.Fatalf("expected no store writes for an undecodable payload, got %d", got)
	}
}

func TestHandleMessage_MissingProviderTransactionIDIsAcked(t *testing.T) {
	consumer, repo, _ := newConsumerFixture(inProgressTransaction())

	if !consumer.HandleMessage([]byte(`{"status":"SUCCESS"}`)) {
		t.Fatal("expected an event without a provider transaction id to be acked")
	}
	if got := repo.writeCount(); got != 0 {
		t.Fatalf("expected no store writes, got %d", got)
	}
}

func TestHandleMessage_UnknownStatusIsAcked(t *testing.T) {
	consumer, repo, _ := newConsumerFixture(inProgressTransaction())

	body := []byte(`{"provider_transaction_id":"MPESA_REF_1","status":"EXPLODED"}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("expected an unknown status to be acked, not re-queued")
	}
	if got := repo.writeCount(); got != 0 {
		t.Fatalf("expected no store writes for an unknown status, got %d", got)
	}
}

func TestHandleMessage_UnknownTransactionIsAcked(t *testing.T) {
	consumer, _, notifier := newConsumerFixture(nil)

	body := []byte(`{"provider_transaction_id":"STALE_REF","status":"SUCCESS"}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("expected an event for an unknown transaction to be acked")
	}
	if len(notifier.statuses()) != 0 {
		t.Fatal("expected no notification for an unknown transaction")
	}
}

func TestHandleMessage_PersistenceFailureIsRequeued(t *testing.T) {
	tx := inProgressTransaction()
	repo := &lookupRepoStub{tx: tx}
	repo.updateErr = errors.New("persist failed")
	svc := NewService(repo, provider.NewRegistry(), &notifierStub{}, &publisherStub{}, time.Second)
	consumer := NewProviderStatusConsumer(svc)

	body := []byte(`{"provider_transaction_id":"MPESA_REF_1","status":"SUCCESS"}`)
	if consumer.HandleMessage(body) {
		t.Fatal("expected a persistence failure to be nacked for redelivery")
	}
}
