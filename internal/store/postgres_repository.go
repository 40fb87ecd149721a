/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the
 * `payment_transactions` table.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsense/payment-service/internal/domain"
)

var (
	ErrTransactionNotFound = errors.New("payment transaction not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const transactionColumns = `
	id, recipient_phone_number, amount, currency, provider, description,
	status, provider_transaction_id, failure_reason, created_at, updated_at
`

// CreateTransaction inserts the initial PENDING record for a payment attempt.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, recipient_phone_number, amount, currency, provider, description,
			status, provider_transaction_id, failure_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.RecipientPhoneNumber,
		tx.Amount,
		tx.Currency,
		tx.Provider,
		tx.Description,
		string(tx.Status),
		tx.ProviderTransactionID,
		tx.FailureReason,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return err
}

// UpdateTransaction writes back the mutable orchestration attributes of a record.
// The request attributes are immutable after creation, so they are deliberately
// not part of the UPDATE.
func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, provider_transaction_id = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		tx.ID,
		string(tx.Status),
		tx.ProviderTransactionID,
		tx.FailureReason,
		tx.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// FindTransactionByID retrieves a transaction by its primary id.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE id = $1`
	return r.scanTransaction(r.db.QueryRow(ctx, query, id))
}

// FindTransactionByProviderTransactionID retrieves a transaction by the id the
// provider assigned at initiation time.
func (r *PostgresRepository) FindTransactionByProviderTransactionID(ctx context.Context, providerTransactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE provider_transaction_id = $1`
	return r.scanTransaction(r.db.QueryRow(ctx, query, providerTransactionID))
}

// FindStaleTransactions returns transactions still sitting in one of the given
// statuses whose last update predates the cutoff, oldest first.
func (r *PostgresRepository) FindStaleTransactions(ctx context.Context, statuses []domain.PaymentStatus, updatedBefore time.Time, limit int) ([]domain.Transaction, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	statusStrings := make([]string, 0, len(statuses))
	for _, s := range statuses {
		statusStrings = append(statusStrings, string(s))
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE status = ANY($1) AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, statusStrings, updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var status string
		err := rows.Scan(
			&tx.ID,
			&tx.RecipientPhoneNumber,
			&tx.Amount,
			&tx.Currency,
			&tx.Provider,
			&tx.Description,
			&status,
			&tx.ProviderTransactionID,
			&tx.FailureReason,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tx.Status = domain.PaymentStatus(status)
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (r *PostgresRepository) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var status string
	err := row.Scan(
		&tx.ID,
		&tx.RecipientPhoneNumber,
		&tx.Amount,
		&tx.Currency,
		&tx.Provider,
		&tx.Description,
		&status,
		&tx.ProviderTransactionID,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	tx.Status = domain.PaymentStatus(status)
	return &tx, nil
}
