/**
 * @description
 * This file contains the HTTP handlers for the payment-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * orchestrator, and writing the HTTP response. They act as the bridge between
 * the web layer and the business logic layer.
 *
 * Error mapping follows the service's error taxonomy: validation errors
 * become 400s, absence becomes a 404, payment errors (a FAILED record was
 * persisted) become 502s, everything else is a 500.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finsense/payment-service/internal/app"
	"github.com/finsense/payment-service/internal/domain"
	"github.com/finsense/payment-service/internal/store"
)

// PaymentHandlers holds the orchestrator that handlers delegate to.
type PaymentHandlers struct {
	service        *app.Service
	internalAPIKey string
}

// NewPaymentHandlers creates a new instance of PaymentHandlers.
func NewPaymentHandlers(service *app.Service, internalAPIKey string) *PaymentHandlers {
	return &PaymentHandlers{service: service, internalAPIKey: internalAPIKey}
}

// InitiatePaymentHandler handles B2C payment initiation requests.
func (h *PaymentHandlers) InitiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerID(r.Context())
	if !ok || caller == "" {
		caller = r.RemoteAddr
	}

	if retryAfter, err := h.service.CheckInitiateRateLimit(r.Context(), caller); err != nil {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many payment requests. Please slow down.")
		return
	}

	var req domain.B2CPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=initiate outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.InitiatePayment(r.Context(), req)
	if err != nil {
		if app.IsValidationError(err) {
			log.Printf("level=warn component=api endpoint=initiate outcome=reject reason=validation err=%v", err)
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, app.ErrPaymentInitiation) {
			// A FAILED record exists; the caller must not retry blindly.
			log.Printf("level=error component=api endpoint=initiate outcome=failed err=%v", err)
			h.writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=initiate outcome=error err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	log.Printf("level=info component=api endpoint=initiate outcome=accepted transaction_id=%s status=%s", tx.ID, tx.Status)
	h.writeJSON(w, http.StatusCreated, tx)
}

// GetPaymentStatusHandler returns the transaction record for a given id.
func (h *PaymentHandlers) GetPaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	tx, err := h.service.GetPaymentStatus(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "Payment transaction not found.")
			return
		}
		log.Printf("level=error component=api endpoint=status outcome=error transaction_id=%s err=%v", transactionID, err)
		h.writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

// ProviderCallbackHandler is the HTTP face of the provider status update path.
// Providers (or an inbound webhook bridge) report status changes here using
// the provider-assigned transaction id. Unknown ids are acknowledged without
// effect, since callbacks may be stale or re-delivered.
func (h *PaymentHandlers) ProviderCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Internal-Api-Key") != h.internalAPIKey {
		h.writeError(w, http.StatusUnauthorized, "Invalid internal API key.")
		return
	}

	var event domain.ProviderStatusEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if event.ProviderTransactionID == "" {
		h.writeError(w, http.StatusBadRequest, "provider_transaction_id is required.")
		return
	}
	status, ok := domain.ParsePaymentStatus(event.Status)
	if !ok {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown payment status: %q", event.Status))
		return
	}

	if err := h.service.ApplyProviderStatusUpdate(r.Context(), event.ProviderTransactionID, status, event.FailureReason); err != nil {
		log.Printf("level=error component=api endpoint=provider_callback outcome=error provider_transaction_id=%s err=%v", event.ProviderTransactionID, err)
		h.writeError(w, http.StatusInternalServerError, "An internal server error occurred.")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *PaymentHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func (h *PaymentHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
