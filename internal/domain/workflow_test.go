package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductID = "gid://shopify/Product/42"

func TestNewWorkflowSession_StartsBrowsing(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")
	assert.Equal(t, PhaseBrowsing, s.Phase)
	assert.Equal(t, "demo.myshopify.com", s.Shop)
	assert.Empty(t, s.ProductID)
}

func TestWorkflowSession_FullHappyPath(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")

	require.NoError(t, s.Select(testProductID))
	assert.Equal(t, PhasePreviewingSelection, s.Phase)
	assert.Equal(t, testProductID, s.ProductID)

	require.NoError(t, s.ConfirmGeneration())
	assert.Equal(t, PhaseGenerating, s.Phase)

	require.NoError(t, s.CompleteGeneration("A lovely mug."))
	assert.Equal(t, PhaseReviewing, s.Phase)
	assert.Equal(t, "A lovely mug.", s.Description)

	require.NoError(t, s.StartPublish())
	assert.Equal(t, PhasePublishing, s.Phase)

	require.NoError(t, s.CompletePublish())
	assert.Equal(t, PhaseBrowsing, s.Phase)
	assert.Empty(t, s.ProductID)
	assert.Empty(t, s.Description)
}

func TestWorkflowSession_Regenerate(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")
	require.NoError(t, s.Select(testProductID))
	require.NoError(t, s.ConfirmGeneration())
	require.NoError(t, s.CompleteGeneration("First draft"))

	require.NoError(t, s.Regenerate())
	assert.Equal(t, PhaseGenerating, s.Phase)
	// The same product stays selected across regenerations.
	assert.Equal(t, testProductID, s.ProductID)
}

func TestWorkflowSession_GenerationErrorStillMovesToReviewing(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")
	require.NoError(t, s.Select(testProductID))
	require.NoError(t, s.ConfirmGeneration())

	// A hard failure reports an empty description; the UI shows the error
	// banner from the reviewing phase.
	require.NoError(t, s.CompleteGeneration(""))
	assert.Equal(t, PhaseReviewing, s.Phase)
	assert.Empty(t, s.Description)
}

func TestWorkflowSession_FailPublishReturnsToReviewing(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")
	require.NoError(t, s.Select(testProductID))
	require.NoError(t, s.ConfirmGeneration())
	require.NoError(t, s.CompleteGeneration("Draft"))
	require.NoError(t, s.StartPublish())

	require.NoError(t, s.FailPublish())
	assert.Equal(t, PhaseReviewing, s.Phase)
	assert.Equal(t, "Draft", s.Description)
}

func TestWorkflowSession_ResetFromAnyPhase(t *testing.T) {
	phases := []func(s *WorkflowSession){
		func(s *WorkflowSession) {},
		func(s *WorkflowSession) { _ = s.Select(testProductID) },
		func(s *WorkflowSession) { _ = s.Select(testProductID); _ = s.ConfirmGeneration() },
		func(s *WorkflowSession) {
			_ = s.Select(testProductID)
			_ = s.ConfirmGeneration()
			_ = s.CompleteGeneration("x")
		},
	}

	for _, setup := range phases {
		s := NewWorkflowSession("demo.myshopify.com")
		setup(s)
		s.Reset()
		assert.Equal(t, PhaseBrowsing, s.Phase)
		assert.Empty(t, s.ProductID)
		assert.Empty(t, s.Description)
	}
}

func TestWorkflowSession_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *WorkflowSession) error
	}{
		{"confirm generation while browsing", func(s *WorkflowSession) error {
			return s.ConfirmGeneration()
		}},
		{"complete generation while browsing", func(s *WorkflowSession) error {
			return s.CompleteGeneration("x")
		}},
		{"regenerate while browsing", func(s *WorkflowSession) error {
			return s.Regenerate()
		}},
		{"publish while browsing", func(s *WorkflowSession) error {
			return s.StartPublish()
		}},
		{"select while previewing", func(s *WorkflowSession) error {
			if err := s.Select(testProductID); err != nil {
				return err
			}
			return s.Select("gid://shopify/Product/43")
		}},
		{"complete publish while reviewing", func(s *WorkflowSession) error {
			_ = s.Select(testProductID)
			_ = s.ConfirmGeneration()
			_ = s.CompleteGeneration("x")
			return s.CompletePublish()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWorkflowSession("demo.myshopify.com")
			err := tt.run(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
		})
	}
}

func TestWorkflowSession_InvalidTransitionLeavesStateUnchanged(t *testing.T) {
	s := NewWorkflowSession("demo.myshopify.com")
	require.NoError(t, s.Select(testProductID))

	err := s.CompleteGeneration("x")
	require.Error(t, err)
	assert.Equal(t, PhasePreviewingSelection, s.Phase)
	assert.Equal(t, testProductID, s.ProductID)
}

func TestVariant_Summary(t *testing.T) {
	v := Variant{Title: "Default", Price: "12.00"}
	assert.Equal(t, "Default - $12.00", v.Summary())
}

func TestProduct_VariantSummary(t *testing.T) {
	p := &Product{Variants: []Variant{
		{Title: "Small", Price: "10.00"},
		{Title: "Large", Price: "14.50"},
	}}
	assert.Equal(t, "Small - $10.00, Large - $14.50", p.VariantSummary())
}

func TestProduct_PublicURL(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    *string
	}{
		{
			name:    "prefers live storefront url over preview",
			product: Product{OnlineStoreURL: "https://shop.example/products/mug", OnlineStorePreviewURL: "https://shop.example/preview"},
			want:    strPtr("https://shop.example/products/mug"),
		},
		{
			name:    "falls back to preview url",
			product: Product{OnlineStorePreviewURL: "https://shop.example/preview"},
			want:    strPtr("https://shop.example/preview"),
		},
		{
			name:    "nil when unpublished and no preview",
			product: Product{},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.product.PublicURL()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func strPtr(s string) *string {
	return &s
}
