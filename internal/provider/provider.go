/**
 * @description
 * This file defines the contract every mobile-money provider adapter must
 * implement, the error types adapters report, and the registry the
 * orchestrator resolves adapters from.
 *
 * @dependencies
 * - context, errors, fmt, sort, strings: Standard Go libraries.
 * - internal/domain: For the transaction model and status set.
 */

package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/finsense/payment-service/internal/domain"
)

// ErrProviderNotRegistered is returned by Resolve when no adapter is
// registered under the requested provider tag. Callers treat this as a
// validation failure, not an external-service one.
var ErrProviderNotRegistered = errors.New("unsupported mobile money provider")

// APIError describes a failure reported by a provider's external API.
// The orchestrator uses it to distinguish external-service failures from
// unexpected internal ones when recording a failure reason.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error (status %d): %s", strings.ToLower(e.Provider), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", strings.ToLower(e.Provider), e.Message)
}

// MobileMoneyProvider is the capability set a provider adapter exposes.
// Implementations wrap one external mobile-money network behind an opaque
// initiate/check-status surface.
type MobileMoneyProvider interface {
	// InitiateB2CPayment asks the provider to start a business-to-consumer
	// disbursement for the given transaction and returns the provider-assigned
	// transaction id.
	InitiateB2CPayment(ctx context.Context, tx *domain.Transaction) (string, error)

	// CheckPaymentStatus queries the provider for the current status of a
	// previously initiated payment.
	CheckPaymentStatus(ctx context.Context, providerTransactionID string) (domain.PaymentStatus, error)

	// ProviderType returns the tag this adapter registers under, e.g. "MPESA".
	ProviderType() string
}

// Registry is a fixed mapping from provider tag to adapter, built once at
// startup. Tags are case-insensitively unique; duplicate registration is a
// configuration error and is rejected at Register time rather than at call time.
type Registry struct {
	providers map[string]MobileMoneyProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]MobileMoneyProvider)}
}

// Register adds an adapter under its ProviderType tag.
func (r *Registry) Register(p MobileMoneyProvider) error {
	tag := strings.ToUpper(strings.TrimSpace(p.ProviderType()))
	if tag == "" {
		return errors.New("provider adapter has an empty provider type")
	}
	if _, exists := r.providers[tag]; exists {
		return fmt.Errorf("provider %q is already registered", tag)
	}
	r.providers[tag] = p
	return nil
}

// Resolve returns the adapter registered under the given tag, matching
// case-insensitively. An unknown tag yields ErrProviderNotRegistered.
func (r *Registry) Resolve(tag string) (MobileMoneyProvider, error) {
	p, ok := r.providers[strings.ToUpper(strings.TrimSpace(tag))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, tag)
	}
	return p, nil
}

// Tags returns the registered provider tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.providers))
	for tag := range r.providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
