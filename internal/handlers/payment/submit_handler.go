package payment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/services/confirmation"
	"github.com/Paystation/paystation-gravity-forms/pkg/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitHandler accepts a validated form submission from the form platform and
// starts the hosted payment flow for it.
type SubmitHandler struct {
	service *confirmation.Service
	logger  *zap.Logger
}

// NewSubmitHandler creates the submission intake handler.
func NewSubmitHandler(service *confirmation.Service, logger *zap.Logger) *SubmitHandler {
	return &SubmitHandler{service: service, logger: logger}
}

// submitRequest is the form platform's payload for one submission attempt.
type submitRequest struct {
	Fields       map[string]string `json:"fields"`
	UniqueToken  string            `json:"unique_token"`
	SubmissionID int64             `json:"submission_id"`
	FormID       int64             `json:"form_id"`
}

// submitResponse tells the form platform what to do with the browser.
type submitResponse struct {
	RedirectURL     string `json:"redirect_url,omitempty"`
	FailureMessage  string `json:"failure_message,omitempty"`
	ValidationError string `json:"validation_error,omitempty"`
	PaymentRequired bool   `json:"payment_required"`
}

// ServeHTTP runs the pre-submission gate and, when it passes, initiates the
// gateway transaction. Endpoint: POST /paystation/submit
func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	logger := h.logger.With(zap.String("request_id", requestID))

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("malformed submit payload", zap.Error(err))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SubmissionID <= 0 || req.FormID <= 0 || req.UniqueToken == "" {
		http.Error(w, "submission_id, form_id and unique_token are required", http.StatusBadRequest)
		return
	}

	data := &confirmation.SubmissionData{
		Fields:       req.Fields,
		UniqueToken:  req.UniqueToken,
		SubmissionID: req.SubmissionID,
		FormID:       req.FormID,
	}

	validation, err := h.service.ValidateSubmission(r.Context(), data)
	if err != nil {
		logger.Error("submission validation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := submitResponse{PaymentRequired: validation.PaymentRequired}
	if !validation.PaymentRequired || validation.Message != "" {
		resp.ValidationError = validation.Message
		writeJSON(w, http.StatusOK, resp)
		return
	}

	start := time.Now()
	outcome, err := h.service.Initiate(r.Context(), data)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordInitiation(observability.ResultError, elapsed)
		logger.Error("payment initiation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if outcome.RedirectURL != "" {
		observability.RecordInitiation(observability.ResultApproved, elapsed)
		resp.RedirectURL = outcome.RedirectURL
	} else {
		observability.RecordInitiation(observability.ResultFailed, elapsed)
		resp.FailureMessage = outcome.FailureMessage
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
