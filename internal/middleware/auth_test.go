package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/middleware/authtest"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

const (
	testAppSecret = "shpss_test_secret"
	testAPIKey    = "test_api_key"
	testShop      = "meetup.myshopify.com"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authHandler(validate ShopValidator, captured *string) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = logger.ShopFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return SessionTokenAuth(testAppSecret, testAPIKey, validate, testLogger())(next)
}

func TestSessionTokenAuth_ValidToken(t *testing.T) {
	var gotShop string
	handler := authHandler(nil, &gotShop)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+authtest.SignSessionToken(t, testAppSecret, testAPIKey, testShop))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testShop, gotShop, "shop from dest claim must reach the handler context")
}

func TestSessionTokenAuth_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
		{
			name:  "wrong secret",
			token: authtest.SignSessionToken(t, "wrong_secret", testAPIKey, testShop),
		},
		{
			name:  "wrong audience",
			token: authtest.SignSessionToken(t, testAppSecret, "other_app", testShop),
		},
		{
			name:  "expired",
			token: authtest.SignExpiredSessionToken(t, testAppSecret, testAPIKey, testShop),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotShop string
			handler := authHandler(nil, &gotShop)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, gotShop, "handler must not run")
		})
	}
}

func TestSessionTokenAuth_ShopValidator(t *testing.T) {
	store := authtest.NewMemorySessionStore(testShop)

	var gotShop string
	handler := authHandler(store.Has, &gotShop)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+authtest.SignSessionToken(t, testAppSecret, testAPIKey, "stranger.myshopify.com"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "uninstalled shop must be rejected")

	store.Add("stranger.myshopify.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stranger.myshopify.com", gotShop)
}

func TestCookieSigning(t *testing.T) {
	signature := SignCookie(testAppSecret, "session-value")
	assert.Equal(t, authtest.SignCookie(testAppSecret, "session-value"), signature)

	assert.True(t, VerifyCookie(testAppSecret, "session-value", signature))
	assert.False(t, VerifyCookie(testAppSecret, "tampered", signature))
	assert.False(t, VerifyCookie("other_secret", "session-value", signature))
}

func TestWebhookAuth(t *testing.T) {
	body := []byte(`{"id": 1, "title": "Trail Runner"}`)

	var gotBody []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	})
	handler := WebhookAuth(testAppSecret, testLogger())(next)

	t.Run("valid digest", func(t *testing.T) {
		digest := webhookDigest(testAppSecret, body)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/products/update", bytes.NewReader(body))
		req.Header.Set("X-Shopify-Hmac-Sha256", digest)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, gotBody, "body must be readable downstream")
	})

	t.Run("missing digest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/products/update", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered body", func(t *testing.T) {
		digest := webhookDigest(testAppSecret, body)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/products/update", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("X-Shopify-Hmac-Sha256", digest)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func webhookDigest(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
