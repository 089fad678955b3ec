package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/domain"
	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/httputil"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/validator"
)

// WorkflowHandler exposes the per-shop phase machine so the UI can restore
// and advance its state explicitly.
type WorkflowHandler struct {
	workflow *service.Workflow
	logger   *slog.Logger
}

func NewWorkflowHandler(workflow *service.Workflow, log *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, logger: log}
}

// SelectRequest is the JSON body of the select transition.
type SelectRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// ReviewedRequest is the JSON body of the reviewed transition. The
// description may be empty so an error banner still lands on the review
// screen.
type ReviewedRequest struct {
	Description string `json:"description"`
}

// Current handles GET /api/v1/workflow.
func (h *WorkflowHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.workflow.Current(r.Context(), shopFrom(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}

// Select handles POST /api/v1/workflow/select.
func (h *WorkflowHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid JSON body"), h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.Select(r.Context(), shopFrom(r), req.ProductID)
	})
}

// ConfirmGeneration handles POST /api/v1/workflow/generate-confirmed.
func (h *WorkflowHandler) ConfirmGeneration(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.ConfirmGeneration(r.Context(), shopFrom(r))
	})
}

// Reviewed handles POST /api/v1/workflow/reviewed.
func (h *WorkflowHandler) Reviewed(w http.ResponseWriter, r *http.Request) {
	var req ReviewedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid JSON body"), h.logger)
		return
	}
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.CompleteGeneration(r.Context(), shopFrom(r), req.Description)
	})
}

// Published handles POST /api/v1/workflow/published.
func (h *WorkflowHandler) Published(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.CompletePublish(r.Context(), shopFrom(r))
	})
}

// Regenerate handles POST /api/v1/workflow/regenerate.
func (h *WorkflowHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.Regenerate(r.Context(), shopFrom(r))
	})
}

// StartPublish handles POST /api/v1/workflow/publish-started.
func (h *WorkflowHandler) StartPublish(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.StartPublish(r.Context(), shopFrom(r))
	})
}

// Reset handles POST /api/v1/workflow/reset.
func (h *WorkflowHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*domain.WorkflowSession, error) {
		return h.workflow.Reset(r.Context(), shopFrom(r))
	})
}

func (h *WorkflowHandler) respond(w http.ResponseWriter, r *http.Request, fn func() (*domain.WorkflowSession, error)) {
	session, err := fn()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: session})
}
