/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the payment-service. By defining an interface,
 * we decouple the orchestration logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/finsense/payment-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
// The orchestrator owns transactions only transiently; every durable mutation
// goes through this interface.
type Repository interface {
	// CreateTransaction persists a newly allocated transaction record.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error

	// UpdateTransaction writes back the mutable orchestration attributes
	// (status, provider transaction id, failure reason, updated timestamp)
	// of an existing record.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction) error

	// FindTransactionByID looks a transaction up by its primary id.
	// Returns ErrTransactionNotFound when no record exists.
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)

	// FindTransactionByProviderTransactionID looks a transaction up by the
	// id the mobile-money provider assigned during initiation. Provider
	// callbacks only carry this id, never ours.
	FindTransactionByProviderTransactionID(ctx context.Context, providerTransactionID string) (*domain.Transaction, error)

	// FindStaleTransactions returns up to limit transactions that are still
	// in one of the given statuses and were last updated before the cutoff.
	// Used by the reconciliation job.
	FindStaleTransactions(ctx context.Context, statuses []domain.PaymentStatus, updatedBefore time.Time, limit int) ([]domain.Transaction, error)
}
