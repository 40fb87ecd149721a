/**
 * @description
 * Reconciliation job for payments stuck in a non-terminal state. The core
 * never retries; this job is the external policy that reads persisted
 * PENDING/IN_PROGRESS records, asks the provider what actually happened, and
 * applies the answer through the normal status-update path.
 *
 * Two stuck shapes exist:
 * - IN_PROGRESS with a provider transaction id: the provider accepted the
 *   payment but no callback arrived; query the provider's status API.
 * - PENDING without a provider transaction id: the process died between the
 *   first persist and the external call; nothing was sent, so the record is
 *   failed outright.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/provider"
	"github.com/finsense/payment-service/internal/store"
)

const reconcileBatchSize = 50

// Reconciler periodically resolves stale non-terminal transactions.
type Reconciler struct {
	repo       store.Repository
	providers  *provider.Registry
	svc        *Service
	staleAfter time.Duration
}

// NewReconciler creates a reconciliation job runner.
func NewReconciler(repo store.Repository, providers *provider.Registry, svc *Service, staleAfter time.Duration) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	return &Reconciler{
		repo:       repo,
		providers:  providers,
		svc:        svc,
		staleAfter: staleAfter,
	}
}

// Run executes one reconciliation sweep. It is wired as a cron callback, so
// it owns its own context and never returns an error; problems are logged and
// retried on the next sweep.
func (r *Reconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.staleAfter)
	stale, err := r.repo.FindStaleTransactions(ctx, []domain.PaymentStatus{domain.StatusPending, domain.StatusInProgress}, cutoff, reconcileBatchSize)
	if err != nil {
		log.Printf("level=error component=reconciler msg=\"stale transaction query failed\" err=%v", err)
		return
	}
	if len(stale) == 0 {
		return
	}
	log.Printf("level=info component=reconciler msg=\"reconciling stale transactions\" count=%d", len(stale))

	for i := range stale {
		tx := stale[i]
		if err := r.reconcileOne(ctx, &tx); err != nil {
			log.Printf("level=warn component=reconciler msg=\"reconciliation deferred\" transaction_id=%s err=%v", tx.ID, err)
		}
	}
}

func (r *Reconciler) reconcileOne(ctx context.Context, tx *domain.Transaction) error {
	if tx.ProviderTransactionID == nil {
		// Initiation never reached the provider; the attempt is dead.
		return r.svc.applyUpdate(ctx, tx, domain.StatusFailed, "Payment initiation did not complete")
	}

	adapter, err := r.providers.Resolve(tx.Provider)
	if err != nil {
		// The adapter was deregistered since this record was created; leave
		// the record alone for an operator.
		return err
	}

	status, err := adapter.CheckPaymentStatus(ctx, *tx.ProviderTransactionID)
	if err != nil {
		return err
	}
	if status == tx.Status {
		return nil
	}

	return r.svc.applyUpdate(ctx, tx, status, "")
}
