package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/store"
)

type notifyRepoStub struct {
	store.Repository

	mu  sync.Mutex
	txs map[string]*domain.Transaction
}

func (s *notifyRepoStub) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

type gatewayStub struct {
	mu       sync.Mutex
	sent     []string
	sentTo   []string
	sendErr  error
}

func (g *gatewayStub) SendSMS(ctx context.Context, phoneNumber, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sentTo = append(g.sentTo, phoneNumber)
	g.sent = append(g.sent, message)
	return nil
}

func (g *gatewayStub) messages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sent...)
}

func successfulTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:                   "txn_notify",
		RecipientPhoneNumber: "+254712345678",
		Amount:               decimal.RequireFromString("500.00"),
		Currency:             "KES",
		Provider:             "MOCK",
		Status:               domain.StatusSuccess,
	}
}

func TestDispatcher_DeliversRenderedMessage(t *testing.T) {
	tx := successfulTransaction()
	repo := &notifyRepoStub{txs: map[string]*domain.Transaction{tx.ID: tx}}
	gateway := &gatewayStub{}
	d := NewDispatcher(repo, gateway, 2, 8)

	d.Enqueue(tx.ID, domain.StatusSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)

	messages := gateway.messages()
	if len(messages) != 1 {
		t.Fatalf("expected one delivered message, got %d", len(messages))
	}
	want := "Your payment of 500 KES has been successfully processed. Transaction ID: txn_notify"
	if messages[0] != want {
		t.Fatalf("expected %q, got %q", want, messages[0])
	}
	if gateway.sentTo[0] != "+254712345678" {
		t.Fatalf("expected delivery to the recipient number, got %q", gateway.sentTo[0])
	}
}

func TestDispatcher_UnknownTransactionIsSwallowed(t *testing.T) {
	repo := &notifyRepoStub{txs: map[string]*domain.Transaction{}}
	gateway := &gatewayStub{}
	d := NewDispatcher(repo, gateway, 1, 4)

	d.Enqueue("txn_missing", domain.StatusSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)

	if len(gateway.messages()) != 0 {
		t.Fatal("expected no delivery for an unknown transaction")
	}
}

func TestDispatcher_GatewayFailureIsSwallowed(t *testing.T) {
	tx := successfulTransaction()
	repo := &notifyRepoStub{txs: map[string]*domain.Transaction{tx.ID: tx}}
	gateway := &gatewayStub{sendErr: errors.New("gateway unavailable")}
	d := NewDispatcher(repo, gateway, 1, 4)

	// Must not panic or surface the error anywhere.
	d.Enqueue(tx.ID, domain.StatusSuccess)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)
}

func TestDispatcher_EnqueueAfterShutdownIsDropped(t *testing.T) {
	tx := successfulTransaction()
	repo := &notifyRepoStub{txs: map[string]*domain.Transaction{tx.ID: tx}}
	gateway := &gatewayStub{}
	d := NewDispatcher(repo, gateway, 1, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Shutdown(ctx)

	// Must not panic on a closed pool.
	d.Enqueue(tx.ID, domain.StatusSuccess)

	if len(gateway.messages()) != 0 {
		t.Fatal("expected no delivery after shutdown")
	}
}

func TestBuildStatusMessage_Templates(t *testing.T) {
	reason := "Recipient wallet is inactive"
	tx := &domain.Transaction{
		ID:            "txn_1",
		Amount:        decimal.RequireFromString("250.50"),
		Currency:      "KES",
		FailureReason: &reason,
	}

	cases := []struct {
		status domain.PaymentStatus
		want   string
	}{
		{domain.StatusSuccess, "Your payment of 250.5 KES has been successfully processed. Transaction ID: txn_1"},
		{domain.StatusFailed, "Your payment of 250.5 KES failed. Transaction ID: txn_1. Reason: Recipient wallet is inactive"},
		{domain.StatusPending, "Your payment of 250.5 KES is pending. Transaction ID: txn_1"},
		{domain.StatusInProgress, "Your payment of 250.5 KES is being processed. Transaction ID: txn_1"},
		{domain.StatusCancelled, "Your payment of 250.5 KES has been cancelled. Transaction ID: txn_1"},
	}

	for _, tc := range cases {
		if got := BuildStatusMessage(tx, tc.status); got != tc.want {
			t.Fatalf("status %s: expected %q, got %q", tc.status, tc.want, got)
		}
	}
}

func TestBuildStatusMessage_FailedWithoutReasonDefaultsToUnknown(t *testing.T) {
	tx := &domain.Transaction{
		ID:       "txn_1",
		Amount:   decimal.RequireFromString("100"),
		Currency: "KES",
	}

	got := BuildStatusMessage(tx, domain.StatusFailed)
	if !strings.HasSuffix(got, "Reason: Unknown") {
		t.Fatalf("expected the failure reason to default to Unknown, got %q", got)
	}
}
