// Package repository stores per-shop workflow sessions and the in-flight
// guard that prevents concurrent description work on the same product.
package repository

import (
	"context"
	"time"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
)

// WorkflowRepository persists a shop's workflow session. Sessions are UI
// state, not business records: they expire and losing one just resets the
// merchant to browsing.
type WorkflowRepository interface {
	Get(ctx context.Context, shop string) (*domain.WorkflowSession, error)
	Save(ctx context.Context, session *domain.WorkflowSession) error
	Delete(ctx context.Context, shop string) error
}

// InFlightGuard serializes description work per product. Acquire returns
// false when another request already holds the product.
type InFlightGuard interface {
	Acquire(ctx context.Context, shop, productID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, shop, productID string) error
}
