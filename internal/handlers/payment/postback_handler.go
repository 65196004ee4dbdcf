package payment

import (
	"io"
	"net/http"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/services/confirmation"
	"github.com/Paystation/paystation-gravity-forms/pkg/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxPostbackBody caps the XML payload the gateway may send. Real payment
// verifications are a few kilobytes.
const maxPostbackBody = 64 * 1024

// PostbackHandler receives the gateway's server-to-server payment
// verification. This is the authoritative confirmation channel: the response
// status tells the gateway whether to retry delivery.
type PostbackHandler struct {
	service *confirmation.Service
	logger  *zap.Logger
}

// NewPostbackHandler creates the postback handler.
func NewPostbackHandler(service *confirmation.Service, logger *zap.Logger) *PostbackHandler {
	return &PostbackHandler{service: service, logger: logger}
}

// ServeHTTP authenticates, parses and applies the postback. Status mapping:
// 200 for any settled outcome (approved or declined, duplicates included) so
// the gateway stops redelivering; 500 for auth and parse failures so it
// retries; 400 for a session that cannot resolve to a submission, where a
// retry can never succeed. Endpoint: POST /paystation/postback?pstn_key=...
func (h *PostbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.New().String()
	logger := h.logger.With(zap.String("request_id", requestID))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPostbackBody))
	if err != nil {
		logger.Error("failed to read postback body", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sharedKey := r.URL.Query().Get("pstn_key")

	outcome, err := h.service.HandlePostback(r.Context(), sharedKey, body)
	if err == nil {
		if outcome.Approved {
			observability.RecordPostback(observability.ResultApproved)
		} else {
			observability.RecordPostback(observability.ResultDeclined)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	switch domain.GetErrorCode(err) {
	case domain.ErrorCodePostbackAuthFailed:
		observability.RecordPostback(observability.ResultAuthFailed)
		logger.Warn("postback authentication failed",
			zap.String("remote_addr", r.RemoteAddr))
		w.WriteHeader(http.StatusInternalServerError)
	case domain.ErrorCodePostbackParseFailed:
		observability.RecordPostback(observability.ResultParseFailed)
		logger.Warn("postback parse failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	case domain.ErrorCodeSubmissionNotFound:
		observability.RecordPostback(observability.ResultUnknown)
		logger.Warn("postback for unknown submission", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
	default:
		observability.RecordPostback(observability.ResultError)
		logger.Error("postback processing failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
