package payment

import (
	"encoding/json"
	"net/http"

	"github.com/Paystation/paystation-gravity-forms/internal/services/confirmation"
	"go.uber.org/zap"
)

// ConfirmationHandler reconciles the form's configured confirmation content
// with the submission's settled payment state. The form platform calls it
// while rendering the confirmation page.
type ConfirmationHandler struct {
	service *confirmation.Service
	logger  *zap.Logger
}

// NewConfirmationHandler creates the confirmation reconciliation handler.
func NewConfirmationHandler(service *confirmation.Service, logger *zap.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{service: service, logger: logger}
}

// confirmationRequest is the platform's configured confirmation for one
// submission.
type confirmationRequest struct {
	Message      string `json:"message"`
	SubmissionID int64  `json:"submission_id"`
	IsRedirect   bool   `json:"is_redirect"`
}

// confirmationResponse is the content the platform should actually render.
type confirmationResponse struct {
	Message    string `json:"message"`
	IsRedirect bool   `json:"is_redirect"`
}

// ServeHTTP substitutes a failed payment's confirmation message with the
// stored failure text; everything else passes through unchanged.
// Endpoint: POST /paystation/confirmation
func (h *ConfirmationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed confirmation payload", zap.Error(err))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubmissionID <= 0 {
		http.Error(w, "submission_id is required", http.StatusBadRequest)
		return
	}

	conf, err := h.service.ReconcileConfirmation(r.Context(), req.SubmissionID, confirmation.Confirmation{
		Message:    req.Message,
		IsRedirect: req.IsRedirect,
	})
	if err != nil {
		h.logger.Error("confirmation reconciliation failed",
			zap.Int64("submission_id", req.SubmissionID),
			zap.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, confirmationResponse{
		Message:    conf.Message,
		IsRedirect: conf.IsRedirect,
	})
}
