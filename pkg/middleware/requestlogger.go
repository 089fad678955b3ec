package middleware

import (
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger enriched
// with correlation_id, shop, trace_id, and span_id, then stores it in context
// via logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// This middleware should be mounted AFTER RequestLogging (which sets
// correlation_id) and the session-token middleware (which sets the shop).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Pick up the shop domain from the auth middleware or the
			// X-Shopify-Shop-Domain header (set on webhook deliveries).
			shop := logger.ShopFromContext(ctx)
			if shop == "" {
				shop = r.Header.Get("X-Shopify-Shop-Domain")
			}
			if shop != "" {
				ctx = logger.WithShop(ctx, shop)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
