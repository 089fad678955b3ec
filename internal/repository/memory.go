package repository

import (
	"context"
	"sync"
	"time"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

// MemoryWorkflowRepository is the in-process session store used for local
// development and tests, when no Redis host is configured.
type MemoryWorkflowRepository struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	session   domain.WorkflowSession
	expiresAt time.Time
}

func NewMemoryWorkflowRepository(ttl time.Duration) *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemoryWorkflowRepository) Get(_ context.Context, shop string) (*domain.WorkflowSession, error) {
	r.mu.RLock()
	entry, ok := r.sessions[shop]
	r.mu.RUnlock()

	if !ok || r.now().After(entry.expiresAt) {
		return nil, apperrors.NotFound("workflow session", shop)
	}
	session := entry.session
	return &session, nil
}

func (r *MemoryWorkflowRepository) Save(_ context.Context, session *domain.WorkflowSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Shop] = memorySession{
		session:   *session,
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryWorkflowRepository) Delete(_ context.Context, shop string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, shop)
	return nil
}

// MemoryInFlightGuard mirrors the Redis guard for single-process setups.
type MemoryInFlightGuard struct {
	mu      sync.Mutex
	holders map[string]time.Time
	now     func() time.Time
}

func NewMemoryInFlightGuard() *MemoryInFlightGuard {
	return &MemoryInFlightGuard{
		holders: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (g *MemoryInFlightGuard) Acquire(_ context.Context, shop, productID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := guardKey(shop, productID)
	if expiry, held := g.holders[key]; held && g.now().Before(expiry) {
		return false, nil
	}
	g.holders[key] = g.now().Add(ttl)
	return true, nil
}

func (g *MemoryInFlightGuard) Release(_ context.Context, shop, productID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.holders, guardKey(shop, productID))
	return nil
}
