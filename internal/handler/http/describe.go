package http

import (
	"log/slog"
	"net/http"

	"github.com/IliasHad/shopify-remix-meetup-app/internal/service"
	"github.com/IliasHad/shopify-remix-meetup-app/pkg/logger"
)

// DescribeHandler handles the form-submitted describe action from the
// embedded admin UI.
type DescribeHandler struct {
	describer *service.Describer
	workflow  *service.Workflow
	logger    *slog.Logger
}

func NewDescribeHandler(describer *service.Describer, workflow *service.Workflow, log *slog.Logger) *DescribeHandler {
	return &DescribeHandler{
		describer: describer,
		workflow:  workflow,
		logger:    log,
	}
}

// The describe endpoint keeps the original flat envelope: exactly one of
// error, description, or success+onlineStoreUrl per response.
type describeErrorResponse struct {
	Error string `json:"error"`
}

type describeGenerateResponse struct {
	Description string `json:"description"`
}

type describeUpdateResponse struct {
	Success        bool    `json:"success"`
	OnlineStoreURL *string `json:"onlineStoreUrl"`
}

// Describe handles POST /api/v1/describe. The payload is a form body with
// productId, action and, for updates, description.
func (h *DescribeHandler) Describe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFlat(w, http.StatusBadRequest, describeErrorResponse{Error: "Invalid form payload"})
		return
	}

	req := service.DescribeRequest{
		Action:      r.PostFormValue("action"),
		ProductID:   r.PostFormValue("productId"),
		Description: r.PostFormValue("description"),
	}

	result := h.describer.Handle(r.Context(), req)
	if result.Error != "" {
		h.mirrorFailure(r, req)
		writeFlat(w, result.Status, describeErrorResponse{Error: result.Error})
		return
	}

	if result.Success {
		h.mirror(r, func() error {
			_, err := h.workflow.CompletePublish(r.Context(), shopFrom(r))
			return err
		})
		writeFlat(w, result.Status, describeUpdateResponse{
			Success:        true,
			OnlineStoreURL: result.OnlineStoreURL,
		})
		return
	}

	h.mirror(r, func() error {
		_, err := h.workflow.CompleteGeneration(r.Context(), shopFrom(r), result.Description)
		return err
	})
	writeFlat(w, result.Status, describeGenerateResponse{Description: result.Description})
}

// mirror applies a best-effort workflow transition. The workflow session is
// a UI mirror; it never changes the describe outcome.
func (h *DescribeHandler) mirror(r *http.Request, fn func() error) {
	if h.workflow == nil {
		return
	}
	if err := fn(); err != nil {
		logger.WithContext(r.Context(), h.logger).Debug("workflow not advanced", "error", err)
	}
}

// mirrorFailure keeps the review screen reachable after a hard failure:
// generation failures land on reviewing with an empty draft, publish
// failures fall back from publishing to reviewing.
func (h *DescribeHandler) mirrorFailure(r *http.Request, req service.DescribeRequest) {
	if req.Action == "update" {
		h.mirror(r, func() error {
			_, err := h.workflow.FailPublish(r.Context(), shopFrom(r))
			return err
		})
		return
	}
	h.mirror(r, func() error {
		_, err := h.workflow.CompleteGeneration(r.Context(), shopFrom(r), "")
		return err
	})
}

func shopFrom(r *http.Request) string {
	return logger.ShopFromContext(r.Context())
}
