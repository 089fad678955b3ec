package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/repository"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

// Workflow tracks each shop's position in the select → generate → review →
// publish flow. Sessions are TTL'd UI state; a missing session is just a
// fresh browsing one.
type Workflow struct {
	repo   repository.WorkflowRepository
	logger *slog.Logger
}

func NewWorkflow(repo repository.WorkflowRepository, log *slog.Logger) *Workflow {
	return &Workflow{repo: repo, logger: log}
}

// Current returns the shop's session, or a fresh browsing session when none
// is stored.
func (w *Workflow) Current(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	session, err := w.repo.Get(ctx, shop)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.NewWorkflowSession(shop), nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Select moves the shop to previewing the chosen product.
func (w *Workflow) Select(ctx context.Context, shop, productID string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, func(s *domain.WorkflowSession) error {
		return s.Select(productID)
	})
}

// ConfirmGeneration moves the shop from previewing into generating.
func (w *Workflow) ConfirmGeneration(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, (*domain.WorkflowSession).ConfirmGeneration)
}

// CompleteGeneration records the generated description and moves to
// reviewing. An empty description is allowed so error banners still land on
// the review screen.
func (w *Workflow) CompleteGeneration(ctx context.Context, shop, description string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, func(s *domain.WorkflowSession) error {
		return s.CompleteGeneration(description)
	})
}

// Regenerate moves from reviewing back into generating for the same product.
func (w *Workflow) Regenerate(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, (*domain.WorkflowSession).Regenerate)
}

// StartPublish moves from reviewing into publishing.
func (w *Workflow) StartPublish(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, (*domain.WorkflowSession).StartPublish)
}

// CompletePublish finishes the flow and returns the shop to browsing.
func (w *Workflow) CompletePublish(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, (*domain.WorkflowSession).CompletePublish)
}

// FailPublish returns a failed publish to the review screen.
func (w *Workflow) FailPublish(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, (*domain.WorkflowSession).FailPublish)
}

// Reset returns the shop to browsing from any phase.
func (w *Workflow) Reset(ctx context.Context, shop string) (*domain.WorkflowSession, error) {
	return w.apply(ctx, shop, func(s *domain.WorkflowSession) error {
		s.Reset()
		return nil
	})
}

// apply loads the session, runs one transition and saves the result. An
// invalid transition leaves the stored session untouched and maps to a
// conflict.
func (w *Workflow) apply(ctx context.Context, shop string, transition func(*domain.WorkflowSession) error) (*domain.WorkflowSession, error) {
	session, err := w.Current(ctx, shop)
	if err != nil {
		return nil, err
	}
	if err := transition(session); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, apperrors.Conflict(err.Error())
		}
		return nil, err
	}
	if err := w.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
