// Package middleware holds the Shopify-specific request middleware: session
// token verification for embedded admin requests and HMAC checks for
// webhooks.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httputil"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// ShopValidator reports whether a shop domain is allowed to use the app.
// A nil validator accepts every shop carried by a valid token.
type ShopValidator func(shop string) bool

// SessionTokenAuth verifies the Shopify session token sent by App Bridge in
// the Authorization header. Tokens are HS256-signed with the app secret and
// carry the shop domain in the dest claim. On success the shop is placed in
// the request context; on failure the request is rejected with 401 before
// reaching any handler.
func SessionTokenAuth(appSecret, apiKey string, validate ShopValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing session token"), log)
				return
			}

			shop, err := VerifySessionToken(tokenString, appSecret, apiKey)
			if err != nil {
				log.Warn("session token rejected", "error", err)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid session token"), log)
				return
			}
			if validate != nil && !validate(shop) {
				httputil.WriteError(w, r, apperrors.Unauthorized("shop is not installed"), log)
				return
			}

			ctx := logger.WithShop(r.Context(), shop)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VerifySessionToken validates an App Bridge session token and returns the
// shop domain from its dest claim.
func VerifySessionToken(tokenString, appSecret, apiKey string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return []byte(appSecret), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	dest, _ := claims["dest"].(string)
	shop := strings.TrimPrefix(dest, "https://")
	if shop == "" {
		return "", fmt.Errorf("session token has no dest claim")
	}
	return shop, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
