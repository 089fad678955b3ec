package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httputil"
)

const maxWebhookBody = 1 << 20

// SignCookie returns the hex HMAC-SHA256 signature Shopify appends to app
// cookies, keyed with the app secret.
func SignCookie(appSecret, value string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCookie checks a cookie value against its hex signature in constant
// time.
func VerifyCookie(appSecret, value, signature string) bool {
	return hmac.Equal([]byte(SignCookie(appSecret, value)), []byte(signature))
}

// VerifyWebhookHMAC checks a webhook body against the base64 digest Shopify
// sends in X-Shopify-Hmac-Sha256.
func VerifyWebhookHMAC(appSecret string, body []byte, headerDigest string) bool {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(headerDigest))
}

// WebhookAuth verifies the HMAC digest on incoming Shopify webhooks. The
// body is re-attached to the request so the handler can still read it.
func WebhookAuth(appSecret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				httputil.WriteError(w, r, apperrors.InvalidInput("unreadable webhook body"), log)
				return
			}
			r.Body.Close()

			digest := r.Header.Get("X-Shopify-Hmac-Sha256")
			if digest == "" || !VerifyWebhookHMAC(appSecret, body, digest) {
				log.Warn("webhook hmac rejected", "topic", r.Header.Get("X-Shopify-Topic"))
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid webhook signature"), log)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
