package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httputil"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// ProductHandler serves the catalog page backing the product picker.
type ProductHandler struct {
	describer *service.Describer
	logger    *slog.Logger
}

func NewProductHandler(describer *service.Describer, log *slog.Logger) *ProductHandler {
	return &ProductHandler{describer: describer, logger: log}
}

// ListProducts handles GET /api/v1/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.describer.ListProducts(r.Context())
	if err != nil {
		logger.WithContext(r.Context(), h.logger).Error("list products", "error", err)
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// writeFlat writes one of the describe endpoint's flat envelopes.
func writeFlat(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
