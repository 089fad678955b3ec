package http

import (
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// WebhookHandler receives Shopify webhooks. HMAC verification happens in
// middleware before this handler runs.
type WebhookHandler struct {
	workflow *service.Workflow
	logger   *slog.Logger
}

func NewWebhookHandler(workflow *service.Workflow, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{workflow: workflow, logger: log}
}

// Receive handles POST /webhooks. On app/uninstalled the shop's workflow
// session is discarded; other topics are acknowledged and logged.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get("X-Shopify-Topic")
	shop := r.Header.Get("X-Shopify-Shop-Domain")

	log := logger.WithContext(r.Context(), h.logger)
	log.Info("webhook received", "topic", topic, "shop", shop)

	if topic == "app/uninstalled" && shop != "" {
		if _, err := h.workflow.Reset(r.Context(), shop); err != nil {
			log.Error("reset workflow on uninstall", "shop", shop, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}
