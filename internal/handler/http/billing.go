package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/billing"
)

const maxWebhookBody = 64 << 10

type BillingHandler interface {
	Webhook(w http.ResponseWriter, r *http.Request)
}

type billingHandlerImpl struct {
	shopService shop.ShopService
	verifier    *billing.WebhookVerifier
}

func NewBillingHandler(shopService shop.ShopService, verifier *billing.WebhookVerifier) BillingHandler {
	return &billingHandlerImpl{
		shopService: shopService,
		verifier:    verifier,
	}
}

// Webhook consumes payment.succeeded and payment.failed callbacks.
func (h *billingHandlerImpl) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Failed to read request body", nil)
		return
	}

	if !h.verifier.Verify(r.Header.Get(billing.CallbackTokenHeader), r.Header.Get(billing.SignatureHeader), payload) {
		slog.Warn("Billing webhook rejected", "remote_addr", r.RemoteAddr)
		response.HandleError(w, shop.ErrInvalidWebhookToken)
		return
	}

	var event shop.BillingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	updated, err := h.shopService.HandleBillingEvent(r.Context(), event)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	slog.Info("Billing webhook processed",
		"event_id", event.ID,
		"event", event.Event,
		"shop_id", updated.ID,
		"plan_tier", updated.PlanTier,
	)
	response.Success(w, shop.NewShopResponse(updated))
}
