package notify

import (
	"fmt"

	"github.com/finsense/payment-service/internal/domain"
)

// BuildStatusMessage renders the human-readable SMS body for a payment in the
// given status. Each known status has a fixed template; anything else falls
// back to a generic status update. The status is the one resolved when the
// notification was scheduled, while amount, currency, id and failure reason
// come from the freshly re-read transaction record.
func BuildStatusMessage(tx *domain.Transaction, status domain.PaymentStatus) string {
	switch status {
	case domain.StatusSuccess:
		return fmt.Sprintf("Your payment of %s %s has been successfully processed. Transaction ID: %s",
			tx.Amount.String(), tx.Currency, tx.ID)
	case domain.StatusFailed:
		reason := "Unknown"
		if tx.FailureReason != nil && *tx.FailureReason != "" {
			reason = *tx.FailureReason
		}
		return fmt.Sprintf("Your payment of %s %s failed. Transaction ID: %s. Reason: %s",
			tx.Amount.String(), tx.Currency, tx.ID, reason)
	case domain.StatusPending:
		return fmt.Sprintf("Your payment of %s %s is pending. Transaction ID: %s",
			tx.Amount.String(), tx.Currency, tx.ID)
	case domain.StatusInProgress:
		return fmt.Sprintf("Your payment of %s %s is being processed. Transaction ID: %s",
			tx.Amount.String(), tx.Currency, tx.ID)
	case domain.StatusCancelled:
		return fmt.Sprintf("Your payment of %s %s has been cancelled. Transaction ID: %s",
			tx.Amount.String(), tx.Currency, tx.ID)
	default:
		return fmt.Sprintf("Update on your payment of %s %s. Transaction ID: %s. Status: %s",
			tx.Amount.String(), tx.Currency, tx.ID, status)
	}
}
