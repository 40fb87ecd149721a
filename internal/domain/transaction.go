/**
 * @description
 * This file defines the core domain models for the payment-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and external service
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are `decimal.Decimal` so that values like 500.00 survive the round
 *   trip to the provider and back without floating-point drift.
 */

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the closed set of states a payment transaction can be in.
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "PENDING"
	StatusInProgress PaymentStatus = "IN_PROGRESS"
	StatusSuccess    PaymentStatus = "SUCCESS"
	StatusFailed     PaymentStatus = "FAILED"
	StatusCancelled  PaymentStatus = "CANCELLED"
)

// ParsePaymentStatus maps a free-form status string (e.g. from a provider
// callback payload) onto the closed status set. The second return value is
// false when the input does not name a known status.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(StatusPending):
		return StatusPending, true
	case string(StatusInProgress), "PROCESSING":
		return StatusInProgress, true
	case string(StatusSuccess), "SUCCESSFUL", "COMPLETED":
		return StatusSuccess, true
	case string(StatusFailed), "FAILURE":
		return StatusFailed, true
	case string(StatusCancelled), "CANCELED":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// Transaction is the durable record tracking one B2C payment attempt from
// creation to terminal status. This struct maps directly to the
// `payment_transactions` table in the database.
//
// The request attributes (recipient, amount, currency, provider, description)
// are immutable once the record is created; only the status, the
// provider-assigned transaction id, the failure reason and the updated
// timestamp change after creation. ProviderTransactionID is set if and only
// if the external initiation call returned successfully; FailureReason is set
// if and only if the status is FAILED.
type Transaction struct {
	ID                    string          `json:"id"`
	RecipientPhoneNumber  string          `json:"recipient_phone_number"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Provider              string          `json:"provider"`
	Description           string          `json:"description,omitempty"`
	Status                PaymentStatus   `json:"status"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	FailureReason         *string         `json:"failure_reason,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// B2CPaymentRequest is the DTO for incoming payment initiation API requests.
type B2CPaymentRequest struct {
	RecipientPhoneNumber string          `json:"recipient_phone_number"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"` // e.g. KES, UGX
	Provider             string          `json:"provider"` // e.g. MPESA, AIRTEL_MONEY
	Description          string          `json:"description,omitempty"`
}

// ProviderStatusEvent is the out-of-band status update a mobile-money network
// reports for a previously initiated transaction. The same payload shape is
// accepted on the HTTP callback endpoint and on the RabbitMQ event stream.
type ProviderStatusEvent struct {
	ProviderTransactionID string `json:"provider_transaction_id"`
	Status                string `json:"status"`
	FailureReason         string `json:"failure_reason,omitempty"`
}
