/**
 * @description
 * Airtel Money adapter. Airtel's disbursement API is a straightforward
 * bearer-token JSON API, so the HTTP plumbing lives inline here rather than
 * in a separate client package.
 */

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/finsense/payment-service/internal/domain"
)

// AirtelProvider adapts the Airtel Money disbursement API to the
// MobileMoneyProvider contract.
type AirtelProvider struct {
	baseURL    string
	apiKey     string
	country    string
	httpClient *http.Client
}

// NewAirtelProvider creates an Airtel Money adapter.
func NewAirtelProvider(baseURL, apiKey, country string) *AirtelProvider {
	return &AirtelProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		country: country,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type airtelDisbursementRequest struct {
	Payee struct {
		MSISDN string `json:"msisdn"`
	} `json:"payee"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type airtelResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Success bool   `json:"success"`
	} `json:"status"`
}

// InitiateB2CPayment starts a disbursement to the recipient's Airtel wallet
// and returns the Airtel transaction id.
func (p *AirtelProvider) InitiateB2CPayment(ctx context.Context, tx *domain.Transaction) (string, error) {
	reqPayload := airtelDisbursementRequest{
		Reference:     tx.Description,
		TransactionID: tx.ID,
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency,
	}
	// Airtel expects the subscriber number without the leading plus.
	reqPayload.Payee.MSISDN = strings.TrimPrefix(tx.RecipientPhoneNumber, "+")

	resp, err := p.do(ctx, http.MethodPost, "/standards/business/v1/disbursements", reqPayload)
	if err != nil {
		return "", err
	}
	if !resp.Status.Success {
		return "", &APIError{Provider: "AIRTEL_MONEY", Message: resp.Status.Message}
	}
	return resp.Data.Transaction.ID, nil
}

// CheckPaymentStatus queries the disbursement status for a previously
// initiated payment.
func (p *AirtelProvider) CheckPaymentStatus(ctx context.Context, providerTransactionID string) (domain.PaymentStatus, error) {
	resp, err := p.do(ctx, http.MethodGet, "/standards/business/v1/disbursements/"+providerTransactionID, nil)
	if err != nil {
		return "", err
	}
	if !resp.Status.Success {
		return "", &APIError{Provider: "AIRTEL_MONEY", Message: resp.Status.Message}
	}

	switch strings.ToUpper(resp.Data.Transaction.Status) {
	case "TS", "SUCCESS":
		return domain.StatusSuccess, nil
	case "TF", "FAILED":
		return domain.StatusFailed, nil
	default:
		return domain.StatusInProgress, nil
	}
}

// ProviderType returns the AIRTEL_MONEY tag.
func (p *AirtelProvider) ProviderType() string {
	return "AIRTEL_MONEY"
}

func (p *AirtelProvider) do(ctx context.Context, method, path string, payload interface{}) (*airtelResponse, error) {
	var body *bytes.Buffer
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(jsonBody)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Country", p.country)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Provider: "AIRTEL_MONEY", Message: err.Error()}
	}
	defer resp.Body.Close()

	var parsed airtelResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Provider: "AIRTEL_MONEY", StatusCode: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: "AIRTEL_MONEY", StatusCode: resp.StatusCode, Message: parsed.Status.Message}
	}
	return &parsed, nil
}
