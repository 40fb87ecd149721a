package provider

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/finsense/payment-service/internal/domain"
)

// MockProvider is an always-succeeding adapter registered under the MOCK tag.
// It is used in development environments and tests where no real mobile-money
// network is reachable.
type MockProvider struct{}

// NewMockProvider creates a new mock adapter.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// InitiateB2CPayment pretends to start a disbursement and returns a synthetic
// provider transaction id.
func (p *MockProvider) InitiateB2CPayment(ctx context.Context, tx *domain.Transaction) (string, error) {
	providerTransactionID := "MOCK_" + uuid.New().String()
	log.Printf("level=info component=mock_provider msg=\"payment initiated\" transaction_id=%s provider_transaction_id=%s", tx.ID, providerTransactionID)
	return providerTransactionID, nil
}

// CheckPaymentStatus always reports SUCCESS.
func (p *MockProvider) CheckPaymentStatus(ctx context.Context, providerTransactionID string) (domain.PaymentStatus, error) {
	log.Printf("level=info component=mock_provider msg=\"status check\" provider_transaction_id=%s status=%s", providerTransactionID, domain.StatusSuccess)
	return domain.StatusSuccess, nil
}

// ProviderType returns the MOCK tag.
func (p *MockProvider) ProviderType() string {
	return "MOCK"
}
