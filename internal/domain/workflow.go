package domain

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the current step of a merchant's description workflow. The phase
// is a single tagged value rather than a pair of booleans, so states like
// "preview modal open while a generation is in flight" are unrepresentable.
type Phase string

const (
	// PhaseBrowsing is the initial and resting state: the product list.
	PhaseBrowsing Phase = "browsing"
	// PhasePreviewingSelection means a product is chosen and the detail
	// modal is open.
	PhasePreviewingSelection Phase = "previewing_selection"
	// PhaseGenerating means a description request is in flight.
	PhaseGenerating Phase = "generating"
	// PhaseReviewing means a description (or an error banner alongside the
	// last known one) is shown with the action buttons.
	PhaseReviewing Phase = "reviewing"
	// PhasePublishing means an update request is in flight.
	PhasePublishing Phase = "publishing"
)

// ErrInvalidTransition is returned when a workflow operation is not legal in
// the session's current phase. The session is left unchanged.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// WorkflowSession is the per-shop UI workflow state. It lives only in the
// session store with a TTL and is discarded on reset or expiry.
type WorkflowSession struct {
	Shop        string    `json:"shop"`
	Phase       Phase     `json:"phase"`
	ProductID   string    `json:"product_id,omitempty"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewWorkflowSession creates a session in the browsing phase.
func NewWorkflowSession(shop string) *WorkflowSession {
	return &WorkflowSession{
		Shop:      shop,
		Phase:     PhaseBrowsing,
		UpdatedAt: time.Now().UTC(),
	}
}

// Select records a product choice and opens the preview.
func (s *WorkflowSession) Select(productID string) error {
	if s.Phase != PhaseBrowsing {
		return transitionError(s.Phase, "select")
	}
	if productID == "" {
		return errors.New("product id is required")
	}
	s.Phase = PhasePreviewingSelection
	s.ProductID = productID
	s.Description = ""
	s.touch()
	return nil
}

// ConfirmGeneration closes the preview and starts a generation.
func (s *WorkflowSession) ConfirmGeneration() error {
	if s.Phase != PhasePreviewingSelection {
		return transitionError(s.Phase, "confirm generation")
	}
	s.Phase = PhaseGenerating
	s.touch()
	return nil
}

// CompleteGeneration records the terminal outcome of a generation request.
// The workflow moves to reviewing even when the description is empty (a hard
// failure), so the error banner renders alongside the last known view.
func (s *WorkflowSession) CompleteGeneration(description string) error {
	if s.Phase != PhaseGenerating {
		return transitionError(s.Phase, "complete generation")
	}
	s.Phase = PhaseReviewing
	s.Description = description
	s.touch()
	return nil
}

// Regenerate starts a new generation for the same product.
func (s *WorkflowSession) Regenerate() error {
	if s.Phase != PhaseReviewing {
		return transitionError(s.Phase, "regenerate")
	}
	s.Phase = PhaseGenerating
	s.touch()
	return nil
}

// StartPublish begins pushing the reviewed description to the store.
func (s *WorkflowSession) StartPublish() error {
	if s.Phase != PhaseReviewing {
		return transitionError(s.Phase, "start publish")
	}
	s.Phase = PhasePublishing
	s.touch()
	return nil
}

// CompletePublish records a successful publish and returns to the list view.
func (s *WorkflowSession) CompletePublish() error {
	if s.Phase != PhasePublishing {
		return transitionError(s.Phase, "complete publish")
	}
	s.reset()
	return nil
}

// FailPublish returns to reviewing after a failed publish so the merchant
// can retry or pick another product.
func (s *WorkflowSession) FailPublish() error {
	if s.Phase != PhasePublishing {
		return transitionError(s.Phase, "fail publish")
	}
	s.Phase = PhaseReviewing
	s.touch()
	return nil
}

// Reset abandons the workflow and returns to browsing. Valid in any phase;
// this is the "Select Another Product" / navigation-away path.
func (s *WorkflowSession) Reset() {
	s.reset()
}

func (s *WorkflowSession) reset() {
	s.Phase = PhaseBrowsing
	s.ProductID = ""
	s.Description = ""
	s.touch()
}

func (s *WorkflowSession) touch() {
	s.UpdatedAt = time.Now().UTC()
}

func transitionError(from Phase, op string) error {
	return fmt.Errorf("cannot %s from phase %q: %w", op, from, ErrInvalidTransition)
}
