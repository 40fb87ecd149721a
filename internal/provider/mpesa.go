package provider

import (
	"context"
	"errors"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/pkg/darajaclient"
)

// MpesaProvider adapts the Safaricom Daraja B2C API to the MobileMoneyProvider
// contract. The Daraja client owns transport concerns; this adapter only maps
// between the domain model and the wire shapes.
type MpesaProvider struct {
	client *darajaclient.Client
}

// NewMpesaProvider creates an M-Pesa adapter backed by the given Daraja client.
func NewMpesaProvider(client *darajaclient.Client) *MpesaProvider {
	return &MpesaProvider{client: client}
}

// InitiateB2CPayment starts a BusinessPayment disbursement. The Daraja
// conversation id becomes the provider transaction id we track.
func (p *MpesaProvider) InitiateB2CPayment(ctx context.Context, tx *domain.Transaction) (string, error) {
	remarks := tx.Description
	if remarks == "" {
		remarks = "B2C payment"
	}

	resp, err := p.client.InitiateB2CPayment(ctx, tx.ID, tx.Amount.String(), tx.RecipientPhoneNumber, remarks)
	if err != nil {
		return "", p.wrapError(err)
	}
	return resp.ConversationID, nil
}

// CheckPaymentStatus submits a status query for the disbursement. Daraja
// answers the query asynchronously via the result callback, so a successful
// acknowledgement only tells us the payment is still being processed.
func (p *MpesaProvider) CheckPaymentStatus(ctx context.Context, providerTransactionID string) (domain.PaymentStatus, error) {
	if _, err := p.client.QueryTransactionStatus(ctx, providerTransactionID); err != nil {
		return "", p.wrapError(err)
	}
	return domain.StatusInProgress, nil
}

// ProviderType returns the MPESA tag.
func (p *MpesaProvider) ProviderType() string {
	return "MPESA"
}

func (p *MpesaProvider) wrapError(err error) error {
	var apiErr *darajaclient.ErrorResponse
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "MPESA", Message: apiErr.ErrorMessage}
	}
	return &APIError{Provider: "MPESA", Message: err.Error()}
}
