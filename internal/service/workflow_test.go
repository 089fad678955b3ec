package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/repository"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

const testShop = "meetup.myshopify.com"

func newWorkflow() *Workflow {
	return NewWorkflow(repository.NewMemoryWorkflowRepository(time.Hour), testLogger())
}

func TestWorkflow_CurrentDefaultsToBrowsing(t *testing.T) {
	w := newWorkflow()

	session, err := w.Current(context.Background(), testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBrowsing, session.Phase)
	assert.Equal(t, testShop, session.Shop)
}

func TestWorkflow_FullFlow(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow()

	session, err := w.Select(ctx, testShop, "gid://shopify/Product/1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePreviewingSelection, session.Phase)

	session, err = w.ConfirmGeneration(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseGenerating, session.Phase)

	session, err = w.CompleteGeneration(ctx, testShop, "A lovely mug.")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseReviewing, session.Phase)
	assert.Equal(t, "A lovely mug.", session.Description)

	session, err = w.StartPublish(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePublishing, session.Phase)

	session, err = w.CompletePublish(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBrowsing, session.Phase)
	assert.Empty(t, session.ProductID, "finished flow clears the selection")
}

func TestWorkflow_InvalidTransitionIsConflictAndKeepsState(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow()

	_, err := w.Select(ctx, testShop, "gid://shopify/Product/1")
	require.NoError(t, err)

	// Regenerate is only legal from reviewing.
	_, err = w.Regenerate(ctx, testShop)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	session, err := w.Current(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePreviewingSelection, session.Phase, "stored session unchanged")
}

func TestWorkflow_ResetFromAnyPhase(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow()

	_, err := w.Select(ctx, testShop, "gid://shopify/Product/1")
	require.NoError(t, err)
	_, err = w.ConfirmGeneration(ctx, testShop)
	require.NoError(t, err)

	session, err := w.Reset(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBrowsing, session.Phase)
	assert.Empty(t, session.ProductID)
}

func TestWorkflow_FailPublishReturnsToReviewing(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow()

	_, err := w.Select(ctx, testShop, "gid://shopify/Product/1")
	require.NoError(t, err)
	_, err = w.ConfirmGeneration(ctx, testShop)
	require.NoError(t, err)
	_, err = w.CompleteGeneration(ctx, testShop, "draft")
	require.NoError(t, err)
	_, err = w.StartPublish(ctx, testShop)
	require.NoError(t, err)

	session, err := w.FailPublish(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseReviewing, session.Phase)
	assert.Equal(t, "draft", session.Description, "draft survives a failed publish")
}

func TestWorkflow_ShopsAreIsolated(t *testing.T) {
	ctx := context.Background()
	w := newWorkflow()

	_, err := w.Select(ctx, testShop, "gid://shopify/Product/1")
	require.NoError(t, err)

	other, err := w.Current(ctx, "other.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseBrowsing, other.Phase)
}
