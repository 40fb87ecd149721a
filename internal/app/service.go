/**
 * @description
 * This file contains the core business logic for the payment-service. The
 * `Service` struct is the payment orchestrator: it consumes a B2C payment
 * request, drives the transaction through its state machine
 * (PENDING -> IN_PROGRESS -> {SUCCESS, FAILED}, plus CANCELLED via provider
 * status updates), talks to the selected provider adapter, persists each
 * transition, and schedules recipient notifications.
 *
 * Key properties:
 * - Validation failures surface before any persistence or external call; no
 *   record is created for an invalid request.
 * - A completed initiation performs exactly two store writes: the PENDING
 *   create before the external call and the IN_PROGRESS/FAILED update after.
 * - Adapter failures are recovered into a persisted FAILED record and then
 *   re-signalled to the caller as ErrPaymentInitiation; callers must not
 *   infer failure-to-persist from an error response.
 *
 * @dependencies
 * - context, errors, fmt, hash/fnv, log, regexp, strings, sync, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction id generation.
 * - internal/domain, internal/store, internal/provider: Domain models, persistence, adapters.
 * - pkg/rabbitmq: For payment lifecycle event publication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/provider"
	"github.com/finsense/payment-service/internal/store"
	"github.com/finsense/payment-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrMissingRecipientPhone = errors.New("recipient phone number is required")
	ErrInvalidRecipientPhone = errors.New("recipient phone number must be in E.164 format")
	ErrMissingCurrency       = errors.New("currency is required")
	ErrMissingProvider       = errors.New("mobile money provider is required")
	ErrPaymentInitiation     = errors.New("failed to initiate payment with mobile money provider")
	ErrTooManyRequests       = errors.New("too many payment initiation requests")
)

// e164Pattern matches international phone numbers like +254712345678.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Notifier schedules an asynchronous recipient notification. The call must
// never block or fail from the orchestrator's point of view.
type Notifier interface {
	Enqueue(transactionID string, status domain.PaymentStatus)
}

// RateLimiter implements distributed request counting for the initiate
// endpoint (see RedisRateLimiter).
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core payment orchestration logic.
type Service struct {
	repo            store.Repository
	providers       *provider.Registry
	notifier        Notifier
	events          rabbitmq.Publisher
	providerTimeout time.Duration

	rateLimiter         RateLimiter
	initiateLimitPerMin int

	// idLocks serializes read-modify-persist sequences per transaction id so
	// a provider callback cannot race the reconciler inside this process.
	// Cross-process writers are not serialized; see DESIGN.md.
	idLocks [32]sync.Mutex
}

// NewService creates a new payment orchestrator instance.
func NewService(repo store.Repository, providers *provider.Registry, notifier Notifier, events rabbitmq.Publisher, providerTimeout time.Duration) *Service {
	if providerTimeout <= 0 {
		providerTimeout = 30 * time.Second
	}
	return &Service{
		repo:            repo,
		providers:       providers,
		notifier:        notifier,
		events:          events,
		providerTimeout: providerTimeout,
	}
}

// SetInitiateRateLimit enables per-caller rate limiting on payment initiation.
func (s *Service) SetInitiateRateLimit(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.initiateLimitPerMin = perMinute
}

// CheckInitiateRateLimit consumes one slot of the caller's initiation budget.
// It returns ErrTooManyRequests (plus a retry-after hint in seconds) when the
// budget is exhausted. Limiter backend errors fail open.
func (s *Service) CheckInitiateRateLimit(ctx context.Context, subject string) (int, error) {
	if s.rateLimiter == nil || s.initiateLimitPerMin <= 0 {
		return 0, nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "payment_initiate", subject, s.initiateLimitPerMin, time.Minute)
	if err != nil {
		log.Printf("level=warn component=app msg=\"rate limiter unavailable; failing open\" subject=%s err=%v", subject, err)
		return 0, nil
	}
	if count > s.initiateLimitPerMin {
		return retryAfter, ErrTooManyRequests
	}
	return 0, nil
}

// NewTransactionID allocates a fresh, globally unique payment transaction id.
func NewTransactionID() string {
	return "txn_" + uuid.New().String()
}

// InitiatePayment runs the initiation state machine for one B2C payment request.
func (s *Service) InitiatePayment(ctx context.Context, req domain.B2CPaymentRequest) (*domain.Transaction, error) {
	log.Printf("level=info component=app msg=\"initiating payment\" recipient=%s provider=%s", req.RecipientPhoneNumber, req.Provider)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Resolve the adapter before touching storage; an unsupported provider is
	// a validation failure with no side effects.
	adapter, err := s.providers.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:                   NewTransactionID(),
		RecipientPhoneNumber: strings.TrimSpace(req.RecipientPhoneNumber),
		Amount:               req.Amount,
		Currency:             strings.ToUpper(strings.TrimSpace(req.Currency)),
		Provider:             adapter.ProviderType(),
		Description:          req.Description,
		Status:               domain.StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	// First durable write. Must complete before the external call so that a
	// crash mid-initiation leaves an inspectable PENDING record.
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to persist payment transaction: %w", err)
	}
	log.Printf("level=info component=app msg=\"payment transaction saved\" transaction_id=%s status=%s", tx.ID, tx.Status)

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	providerTransactionID, err := adapter.InitiateB2CPayment(callCtx, tx)
	cancel()
	if err != nil {
		log.Printf("level=error component=app msg=\"provider initiation failed\" transaction_id=%s provider=%s err=%v", tx.ID, tx.Provider, err)
		return nil, s.failInitiation(ctx, tx, err)
	}

	tx.ProviderTransactionID = &providerTransactionID
	tx.Status = domain.StatusInProgress
	tx.UpdatedAt = time.Now().UTC()

	// Second durable write.
	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		log.Printf("level=error component=app msg=\"post-initiation update failed\" transaction_id=%s err=%v", tx.ID, err)
		return nil, s.failInitiation(ctx, tx, err)
	}
	log.Printf("level=info component=app msg=\"payment initiation successful\" transaction_id=%s provider_transaction_id=%s", tx.ID, providerTransactionID)

	s.notifier.Enqueue(tx.ID, domain.StatusInProgress)
	s.publishEvent(ctx, "payment.initiated", tx)
	return tx, nil
}

// failInitiation records the FAILED terminal state for an initiation that went
// wrong after the PENDING record was created, schedules the failure
// notification, and returns the payment-kind error for the caller.
func (s *Service) failInitiation(ctx context.Context, tx *domain.Transaction, cause error) error {
	reason := failureReasonFor(cause)
	tx.Status = domain.StatusFailed
	tx.FailureReason = &reason
	tx.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		// The record stays in its previous state; the reconciler will pick it up.
		log.Printf("level=error component=app msg=\"could not persist FAILED state\" transaction_id=%s err=%v", tx.ID, err)
	}

	s.notifier.Enqueue(tx.ID, domain.StatusFailed)
	s.publishEvent(ctx, "payment.status.changed", tx)
	return fmt.Errorf("%w: %v", ErrPaymentInitiation, cause)
}

// GetPaymentStatus is a pure lookup by primary transaction id. Absence is
// reported as store.ErrTransactionNotFound, which is an outcome rather than a
// fault.
func (s *Service) GetPaymentStatus(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=app msg=\"payment transaction not found\" transaction_id=%s", transactionID)
		}
		return nil, err
	}
	return tx, nil
}

// ApplyProviderStatusUpdate processes an out-of-band status report from a
// mobile-money network. Updates for unknown provider transaction ids are
// logged and dropped: they usually indicate a stale or re-delivered callback,
// not a fault.
func (s *Service) ApplyProviderStatusUpdate(ctx context.Context, providerTransactionID string, newStatus domain.PaymentStatus, failureReason string) error {
	log.Printf("level=info component=app msg=\"processing provider status update\" provider_transaction_id=%s status=%s", providerTransactionID, newStatus)

	tx, err := s.repo.FindTransactionByProviderTransactionID(ctx, providerTransactionID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=app msg=\"no local transaction for provider transaction id\" provider_transaction_id=%s", providerTransactionID)
			return nil
		}
		return fmt.Errorf("lookup by provider transaction id: %w", err)
	}

	return s.applyUpdate(ctx, tx, newStatus, failureReason)
}

// applyUpdate overwrites the mutable attributes of an existing transaction and
// schedules the notification. Shared by the callback path and the reconciler.
func (s *Service) applyUpdate(ctx context.Context, tx *domain.Transaction, newStatus domain.PaymentStatus, failureReason string) error {
	unlock := s.lockTransaction(tx.ID)
	defer unlock()

	tx.Status = newStatus
	// A failure reason only accompanies the FAILED state; any other status
	// clears it.
	if newStatus == domain.StatusFailed && strings.TrimSpace(failureReason) != "" {
		reason := failureReason
		tx.FailureReason = &reason
	} else {
		tx.FailureReason = nil
	}
	tx.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("persist status update: %w", err)
	}
	log.Printf("level=info component=app msg=\"transaction status updated\" transaction_id=%s status=%s", tx.ID, newStatus)

	s.notifier.Enqueue(tx.ID, newStatus)
	s.publishEvent(ctx, "payment.status.changed", tx)
	return nil
}

func (s *Service) lockTransaction(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &s.idLocks[h.Sum32()%uint32(len(s.idLocks))]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, tx *domain.Transaction) {
	if s.events == nil {
		return
	}
	event := rabbitmq.PaymentEvent{
		TransactionID: tx.ID,
		Provider:      tx.Provider,
		Status:        string(tx.Status),
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency,
		Timestamp:     time.Now().UTC(),
	}
	if tx.ProviderTransactionID != nil {
		event.ProviderTransactionID = *tx.ProviderTransactionID
	}
	if tx.FailureReason != nil {
		event.FailureReason = *tx.FailureReason
	}
	if err := s.events.PublishPaymentEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=app msg=\"payment event publish failed\" transaction_id=%s routing_key=%s err=%v", tx.ID, routingKey, err)
	}
}

func validateRequest(req domain.B2CPaymentRequest) error {
	phone := strings.TrimSpace(req.RecipientPhoneNumber)
	if phone == "" {
		return ErrMissingRecipientPhone
	}
	if !e164Pattern.MatchString(phone) {
		return ErrInvalidRecipientPhone
	}
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(req.Currency) == "" {
		return ErrMissingCurrency
	}
	if strings.TrimSpace(req.Provider) == "" {
		return ErrMissingProvider
	}
	return nil
}

// failureReasonFor renders the persisted failure reason for an initiation
// error, distinguishing provider API failures from unexpected internal ones.
func failureReasonFor(err error) string {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return "External API error: " + apiErr.Message
	}
	return "An unexpected error occurred: " + err.Error()
}

// IsValidationError reports whether err belongs to the validation family of
// the error taxonomy: bad input or an unsupported provider, raised before any
// side effect.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingRecipientPhone) ||
		errors.Is(err, ErrInvalidRecipientPhone) ||
		errors.Is(err, ErrMissingCurrency) ||
		errors.Is(err, ErrMissingProvider) ||
		errors.Is(err, provider.ErrProviderNotRegistered)
}
