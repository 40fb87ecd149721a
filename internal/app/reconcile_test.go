package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/store"
)

type staleRepoStub struct {
	serviceRepoStub

	stale    []domain.Transaction
	staleErr error
}

func (s *staleRepoStub) FindStaleTransactions(ctx context.Context, statuses []domain.PaymentStatus, updatedBefore time.Time, limit int) ([]domain.Transaction, error) {
	if s.staleErr != nil {
		return nil, s.staleErr
	}
	return s.stale, nil
}

func staleTransaction(status domain.PaymentStatus, providerTxID *string) domain.Transaction {
	return domain.Transaction{
		ID:                    "txn_stale",
		RecipientPhoneNumber:  "+254712345678",
		Amount:                decimal.RequireFromString("100.00"),
		Currency:              "KES",
		Provider:              "MOCK",
		Status:                status,
		ProviderTransactionID: providerTxID,
		CreatedAt:             time.Now().UTC().Add(-time.Hour),
		UpdatedAt:             time.Now().UTC().Add(-time.Hour),
	}
}

func TestReconciler_PendingWithoutProviderIDIsFailed(t *testing.T) {
	repo := &staleRepoStub{stale: []domain.Transaction{staleTransaction(domain.StatusPending, nil)}}
	notifier := &notifierStub{}
	adapter := &providerAdapterStub{tag: "MOCK"}
	svc := NewService(repo, newTestRegistry(t, adapter), notifier, &publisherStub{}, time.Second)

	NewReconciler(repo, svc.providers, svc, 15*time.Minute).Run()

	last := repo.lastUpdate(t)
	if last.Status != domain.StatusFailed {
		t.Fatalf("expected a dead initiation to be failed, got %s", last.Status)
	}
	if last.FailureReason == nil || *last.FailureReason != "Payment initiation did not complete" {
		t.Fatalf("expected the dead-initiation failure reason, got %v", last.FailureReason)
	}
	if adapter.statusCalls != 0 {
		t.Fatalf("expected no provider status query without a provider transaction id, got %d", adapter.statusCalls)
	}
	if statuses := notifier.statuses(); len(statuses) != 1 || statuses[0] != domain.StatusFailed {
		t.Fatalf("expected a FAILED notification, got %v", statuses)
	}
}

func TestReconciler_InProgressResolvedFromProviderStatus(t *testing.T) {
	providerTxID := "MOCK_ref"
	repo := &staleRepoStub{stale: []domain.Transaction{staleTransaction(domain.StatusInProgress, &providerTxID)}}
	adapter := &providerAdapterStub{tag: "MOCK", statusResult: domain.StatusSuccess}
	svc := NewService(repo, newTestRegistry(t, adapter), &notifierStub{}, &publisherStub{}, time.Second)

	NewReconciler(repo, svc.providers, svc, 15*time.Minute).Run()

	if adapter.statusCalls != 1 {
		t.Fatalf("expected one provider status query, got %d", adapter.statusCalls)
	}
	last := repo.lastUpdate(t)
	if last.Status != domain.StatusSuccess {
		t.Fatalf("expected the provider-reported status to be persisted, got %s", last.Status)
	}
	if last.FailureReason != nil {
		t.Fatalf("expected no failure reason on SUCCESS, got %q", *last.FailureReason)
	}
}

func TestReconciler_UnchangedStatusIsNotRewritten(t *testing.T) {
	providerTxID := "MOCK_ref"
	repo := &staleRepoStub{stale: []domain.Transaction{staleTransaction(domain.StatusInProgress, &providerTxID)}}
	adapter := &providerAdapterStub{tag: "MOCK", statusResult: domain.StatusInProgress}
	svc := NewService(repo, newTestRegistry(t, adapter), &notifierStub{}, &publisherStub{}, time.Second)

	NewReconciler(repo, svc.providers, svc, 15*time.Minute).Run()

	if got := repo.writeCount(); got != 0 {
		t.Fatalf("expected no write when the provider status is unchanged, got %d", got)
	}
}

func TestReconciler_ProviderQueryFailureLeavesRecordAlone(t *testing.T) {
	providerTxID := "MOCK_ref"
	repo := &staleRepoStub{stale: []domain.Transaction{staleTransaction(domain.StatusInProgress, &providerTxID)}}
	adapter := &providerAdapterStub{tag: "MOCK", statusErr: errors.New("gateway timeout")}
	svc := NewService(repo, newTestRegistry(t, adapter), &notifierStub{}, &publisherStub{}, time.Second)

	NewReconciler(repo, svc.providers, svc, 15*time.Minute).Run()

	if got := repo.writeCount(); got != 0 {
		t.Fatalf("expected no write when the provider query fails, got %d", got)
	}
}

func TestReconciler_StaleQueryFailureIsSwallowed(t *testing.T) {
	repo := &staleRepoStub{staleErr: store.ErrTransactionNotFound}
	svc := NewService(repo, newTestRegistry(t, &providerAdapterStub{tag: "MOCK"}), &notifierStub{}, &publisherStub{}, time.Second)

	// Must not panic; the sweep retries on the next schedule tick.
	NewReconciler(repo, svc.providers, svc, 15*time.Minute).Run()
}
