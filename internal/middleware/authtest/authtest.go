// Package authtest holds fixtures for exercising the Shopify auth
// middleware in tests: session token signing, cookie signing and an
// in-memory install store.
package authtest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignSessionToken mints an App Bridge session token for tests, signed the
// way Shopify signs them.
func SignSessionToken(t *testing.T, appSecret, apiKey, shop string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  "https://" + shop + "/admin",
		"dest": "https://" + shop,
		"aud":  apiKey,
		"sub":  "1",
		"exp":  now.Add(time.Minute).Unix(),
		"nbf":  now.Add(-time.Minute).Unix(),
		"iat":  now.Unix(),
		"jti":  "test-token",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(appSecret))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return token
}

// SignExpiredSessionToken mints a token whose exp is already in the past.
func SignExpiredSessionToken(t *testing.T, appSecret, apiKey, shop string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"dest": "https://" + shop,
		"aud":  apiKey,
		"exp":  now.Add(-time.Hour).Unix(),
		"iat":  now.Add(-2 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(appSecret))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return token
}

// SignCookie returns the hex HMAC-SHA256 app-secret signature for a cookie
// value.
func SignCookie(appSecret, value string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// MemorySessionStore records which shops have the app installed. Its Has
// method plugs into the middleware's ShopValidator hook.
type MemorySessionStore struct {
	mu    sync.RWMutex
	shops map[string]struct{}
}

func NewMemorySessionStore(shops ...string) *MemorySessionStore {
	store := &MemorySessionStore{shops: make(map[string]struct{})}
	for _, shop := range shops {
		store.shops[shop] = struct{}{}
	}
	return store
}

func (s *MemorySessionStore) Add(shop string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops[shop] = struct{}{}
}

func (s *MemorySessionStore) Has(shop string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.shops[shop]
	return ok
}
