package payment

import (
	"fmt"
	"net/http"

	"github.com/Paystation/paystation-gravity-forms/internal/services/confirmation"
	"github.com/Paystation/paystation-gravity-forms/pkg/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReturnHandler receives the browser redirect back from the hosted payment
// page. It is advisory: it routes the user, it never settles payment state.
type ReturnHandler struct {
	service *confirmation.Service
	logger  *zap.Logger

	// confirmationURL is where the browser lands to see the form's normal
	// confirmation, with the submission id appended.
	confirmationURL string
}

// NewReturnHandler creates the redirect return handler.
func NewReturnHandler(service *confirmation.Service, confirmationURL string, logger *zap.Logger) *ReturnHandler {
	return &ReturnHandler{
		service:         service,
		confirmationURL: confirmationURL,
		logger:          logger,
	}
}

// ServeHTTP parses the redirect query and routes the browser. Requests that do
// not carry the gateway's redirect shape are answered 200 with no action so
// stray traffic cannot probe for behavior. Endpoint: GET /paystation/return
func (h *ReturnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	logger := h.logger.With(zap.String("request_id", requestID))

	outcome, err := h.service.HandleReturn(r.Context(), r.URL.Query())
	if err != nil {
		observability.RecordRedirectReturn(observability.ResultError)
		logger.Error("redirect return failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if outcome.Ignored {
		observability.RecordRedirectReturn(observability.ResultIgnored)
		w.WriteHeader(http.StatusOK)
		return
	}

	if outcome.RedirectURL != "" {
		observability.RecordRedirectReturn(observability.ResultDeclined)
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		return
	}

	observability.RecordRedirectReturn(observability.ResultApproved)
	http.Redirect(w, r,
		fmt.Sprintf("%s?submission_id=%d", h.confirmationURL, outcome.SubmissionID),
		http.StatusFound)
}
