package handlers

import (
	"io"
	"net/http"

	"github.com/markdave123-py/Learnify/internal/core/billing"
	"github.com/markdave123-py/Learnify/internal/logger"
	"github.com/markdave123-py/Learnify/internal/services"
)

// Stripe events are small; anything bigger is not from Stripe.
const maxWebhookBytes = 64 << 10

type BillingHandler struct {
	catalog  *billing.Catalog
	webhooks *billing.WebhookProcessor
	users    *services.UserService
}

// NewBillingHandler builds the handler. webhooks may be nil when Stripe is not configured.
func NewBillingHandler(catalog *billing.Catalog, webhooks *billing.WebhookProcessor, users *services.UserService) *BillingHandler {
	return &BillingHandler{catalog: catalog, webhooks: webhooks, users: users}
}

func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Plans())
}

func (h *BillingHandler) Limits(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.users.UploadAllowance(r.Context(), uid))
}

func (h *BillingHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhooks == nil {
		writeMessage(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.webhooks.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		logger.Warn("stripe webhook rejected", "err", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
