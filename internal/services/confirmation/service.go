package confirmation

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/adapters/paystation"
	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayAccount is the merchant-level gateway configuration. A per-submission
// override field wins over the feed override, which wins over these defaults.
type GatewayAccount struct {
	AccountID string
	GatewayID string
	Currency  string
	TestMode  bool
}

// Service reconciles a form submission through pending payment into a terminal
// state. Handlers are stateless; everything durable lives behind the store
// ports, so concurrent callbacks for one session converge through conditional
// updates rather than in-process coordination.
type Service struct {
	store      ports.SubmissionStore
	feeds      ports.FeedResolver
	forms      ports.FormEngine
	gateway    ports.PaymentGateway
	dispatcher ports.DeferredDispatcher
	audits     ports.PostbackAuditStore
	postbacks  *paystation.PostbackParser
	account    GatewayAccount
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a confirmation service with explicit collaborators.
// audits may be nil to disable postback audit capture.
func NewService(
	store ports.SubmissionStore,
	feeds ports.FeedResolver,
	forms ports.FormEngine,
	gateway ports.PaymentGateway,
	dispatcher ports.DeferredDispatcher,
	audits ports.PostbackAuditStore,
	postbacks *paystation.PostbackParser,
	account GatewayAccount,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:      store,
		feeds:      feeds,
		forms:      forms,
		gateway:    gateway,
		dispatcher: dispatcher,
		audits:     audits,
		postbacks:  postbacks,
		account:    account,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmissionData carries what the form engine hands over for one submission
// attempt: raw field values keyed by field id, plus identity.
type SubmissionData struct {
	Fields       map[string]string
	UniqueToken  string
	SubmissionID int64
	FormID       int64
}

// ValidationResult is the outcome of the pre-submission gate.
type ValidationResult struct {
	// Message is a user-facing rejection; empty means the submission proceeds.
	Message string

	// PaymentRequired is false when the form has no feed and the submission
	// proceeds as a normal, non-paid submission.
	PaymentRequired bool
}

// ValidateSubmission is the pre-submission gate. A form without a feed
// bypasses payment entirely; that is intentional, not an error. With a feed,
// the submission is rejected when its unique token already reached a terminal
// state (back-button resubmission) or when nothing purchasable was selected.
func (s *Service) ValidateSubmission(ctx context.Context, data *SubmissionData) (*ValidationResult, error) {
	feed, err := s.feeds.Resolve(ctx, data.FormID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "feed lookup failed", err)
	}
	if feed == nil {
		return &ValidationResult{PaymentRequired: false}, nil
	}

	existing, err := s.store.FindByUniqueToken(ctx, data.UniqueToken)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "unique token lookup failed", err)
	}
	if existing != nil && existing.PaymentStatus.IsTerminal() {
		s.logger.Info("rejecting duplicate submission",
			zap.String("unique_token", data.UniqueToken),
			zap.Int64("existing_submission_id", existing.ID),
			zap.String("status", string(existing.PaymentStatus)),
		)
		return &ValidationResult{
			PaymentRequired: true,
			Message:         "This form has already been submitted and paid. Please start again if you wish to make another payment.",
		}, nil
	}

	total, err := s.totalCents(ctx, feed, data)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return &ValidationResult{
			PaymentRequired: true,
			Message:         "This form has no purchasable total. Please select at least one product.",
		}, nil
	}

	return &ValidationResult{PaymentRequired: true}, nil
}

// totalCents derives the payable amount in minor units. The explicit mapped
// total field takes precedence only when the computed product total is zero.
func (s *Service) totalCents(ctx context.Context, feed *domain.Feed, data *SubmissionData) (int64, error) {
	total, err := s.forms.ProductTotalCents(ctx, data.FormID, data.Fields)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeStoreError, "product total computation failed", err)
	}
	if total != 0 {
		return total, nil
	}

	if fieldID := feed.MappedField(domain.FieldTotal); fieldID != "" {
		raw := strings.TrimSpace(data.Fields[fieldID])
		if raw != "" {
			explicit, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return 0, domain.NewDomainError(domain.ErrorCodeValidationFailed,
					fmt.Sprintf("total field %q is not an integer of minor units", fieldID))
			}
			if explicit > 0 {
				return explicit, nil
			}
		}
	}

	return total, nil
}

// InitiationOutcome is what the form flow does with the browser next.
type InitiationOutcome struct {
	// RedirectURL is the gateway's hosted payment page; non-empty on success.
	RedirectURL string

	// FailureMessage is a sanitized, user-facing message set when the attempt
	// reached a terminal failure without leaving the building.
	FailureMessage string
}

// Initiate builds and sends the payment request for a validated submission.
// On synchronous failure the submission is failed immediately: the transaction
// never reached the hosted flow, so no postback will arrive for it.
func (s *Service) Initiate(ctx context.Context, data *SubmissionData) (*InitiationOutcome, error) {
	feed, err := s.feeds.Resolve(ctx, data.FormID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "feed lookup failed", err)
	}
	if feed == nil {
		// No feed means no payment; callers gate on ValidateSubmission first.
		return &InitiationOutcome{}, nil
	}

	total, err := s.totalCents(ctx, feed, data)
	if err != nil {
		return nil, err
	}

	session := paystation.EncodeMerchantSession(data.SubmissionID, s.now())

	req := &ports.InitiationRequest{
		AccountID:       s.account.AccountID,
		GatewayID:       s.gatewayID(feed, data),
		MerchantSession: session,
		MerchantRef:     s.merchantRef(feed, data),
		CustomerDetails: s.mappedValue(feed, data, domain.FieldCustomerDetails),
		OrderDetails:    s.mappedValue(feed, data, domain.FieldOrderDetails),
		Currency:        s.account.Currency,
		AmountCents:     total,
		TestMode:        s.account.TestMode,
	}

	result, err := s.gateway.Initiate(ctx, req)
	if err != nil {
		return s.failInitiation(ctx, data.SubmissionID, err.Error(),
			"The payment could not be started. Please try again later.")
	}

	if !result.Succeeded() {
		reason := result.ErrorMessage
		if reason == "" {
			reason = fmt.Sprintf("gateway error code %s", result.ErrorCode)
		}
		return s.failInitiation(ctx, data.SubmissionID, reason, reason)
	}

	if err := s.store.UpdatePaymentResult(ctx, data.SubmissionID,
		domain.PaymentStatusProcessing, result.TransactionID, decimal.New(total, -2), nil); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to record initiation", err)
	}

	s.logger.Info("payment initiated",
		zap.Int64("submission_id", data.SubmissionID),
		zap.String("transaction_id", result.TransactionID),
		zap.String("merchant_session", session),
		zap.Int64("amount_cents", total),
	)

	return &InitiationOutcome{RedirectURL: result.DigitalOrder}, nil
}

// failInitiation records a terminal failure and returns the user-facing text.
func (s *Service) failInitiation(ctx context.Context, submissionID int64, reason, userMessage string) (*InitiationOutcome, error) {
	if err := s.store.UpdatePaymentResult(ctx, submissionID,
		domain.PaymentStatusFailed, "", decimal.Zero, nil); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to record initiation failure", err)
	}
	if err := s.store.SetFailureReason(ctx, submissionID, reason); err != nil {
		s.logger.Error("failed to store failure reason",
			zap.Int64("submission_id", submissionID), zap.Error(err))
	}

	s.logger.Warn("payment initiation failed",
		zap.Int64("submission_id", submissionID),
		zap.String("reason", reason),
	)

	return &InitiationOutcome{FailureMessage: html.EscapeString(userMessage)}, nil
}

func (s *Service) gatewayID(feed *domain.Feed, data *SubmissionData) string {
	if override := s.mappedValue(feed, data, domain.FieldGatewayOverride); override != "" {
		return override
	}
	if feed.OverrideGatewayID != "" {
		return feed.OverrideGatewayID
	}
	return s.account.GatewayID
}

func (s *Service) merchantRef(feed *domain.Feed, data *SubmissionData) string {
	if ref := s.mappedValue(feed, data, domain.FieldReference); ref != "" {
		return ref
	}
	return fmt.Sprintf("form %d submission %d", data.FormID, data.SubmissionID)
}

func (s *Service) mappedValue(feed *domain.Feed, data *SubmissionData, key string) string {
	fieldID := feed.MappedField(key)
	if fieldID == "" {
		return ""
	}
	return strings.TrimSpace(data.Fields[fieldID])
}

// ReturnOutcome tells the handler what to do with the returning browser.
type ReturnOutcome struct {
	// RedirectURL is the feed's failure URL, set only for a declined return.
	RedirectURL string

	// SubmissionID is set when the return resolved to a submission; the form's
	// normal confirmation flow renders for it.
	SubmissionID int64

	// Ignored marks the request as unrelated traffic: do nothing.
	Ignored bool
}

// HandleReturn processes the browser redirect. It is advisory only: it never
// writes state. An invalid shape is unrelated traffic, a declined code may
// pick the feed's failure URL for user experience, and a success code simply
// falls through to the normal confirmation display, deferring to the postback.
func (s *Service) HandleReturn(ctx context.Context, query url.Values) (*ReturnOutcome, error) {
	result := paystation.ParseRedirectResult(query)
	if !result.Valid {
		return &ReturnOutcome{Ignored: true}, nil
	}

	submissionID := paystation.DecodeMerchantSession(result.MerchantSession)
	if submissionID == 0 {
		return &ReturnOutcome{Ignored: true}, nil
	}

	submission, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "submission lookup failed", err)
	}
	if submission == nil {
		return &ReturnOutcome{Ignored: true}, nil
	}

	s.logger.Info("browser returned from gateway",
		zap.Int64("submission_id", submission.ID),
		zap.String("error_code", result.ErrorCode),
		zap.Bool("approved", result.Approved()),
	)

	// The failure URL only applies while the payment is still pending; a
	// submission the postback already settled renders its real outcome.
	if !result.Approved() && submission.PaymentStatus == domain.PaymentStatusProcessing {
		feed, err := s.feeds.Resolve(ctx, submission.FormID)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeStoreError, "feed lookup failed", err)
		}
		if feed != nil && feed.FailureURL != "" {
			return &ReturnOutcome{RedirectURL: feed.FailureURL, SubmissionID: submission.ID}, nil
		}
	}

	return &ReturnOutcome{SubmissionID: submission.ID}, nil
}

// PostbackOutcome reports how a settled postback resolved.
type PostbackOutcome struct {
	SubmissionID int64
	Approved     bool
}

// HandlePostback processes the authoritative server-to-server confirmation.
// It is idempotent: duplicate deliveries re-confirm status but dispatch side
// effects at most once, gated by the conditional fulfillment update. The
// returned error's code drives the HTTP status: auth/parse failures get a
// server error (gateway retries), an unresolvable session gets a client error.
func (s *Service) HandlePostback(ctx context.Context, sharedKey string, body []byte) (*PostbackOutcome, error) {
	if err := s.postbacks.Authenticate(sharedKey); err != nil {
		return nil, err
	}

	result, err := s.postbacks.Parse(body)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, domain.NewDomainError(domain.ErrorCodePostbackParseFailed,
			"postback missing required fields")
	}

	submissionID := paystation.DecodeMerchantSession(result.MerchantSession)
	submission, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "submission lookup failed", err)
	}
	if submission == nil {
		s.logger.Warn("postback for unknown session",
			zap.String("merchant_session", result.MerchantSession),
			zap.String("transaction_id", result.TransactionID),
		)
		return nil, domain.ErrSubmissionNotFound
	}

	s.recordAudit(ctx, submission.ID, result)

	// Terminal states are final. A redelivery, or a conflicting late delivery
	// after settlement, re-confirms the stored outcome and changes nothing.
	if submission.PaymentStatus.IsTerminal() {
		s.logger.Info("postback for settled submission, no transition",
			zap.Int64("submission_id", submission.ID),
			zap.String("status", string(submission.PaymentStatus)),
			zap.String("error_code", result.ErrorCode),
		)
		return &PostbackOutcome{
			SubmissionID: submission.ID,
			Approved:     submission.PaymentStatus == domain.PaymentStatusApproved,
		}, nil
	}

	outcome := &PostbackOutcome{SubmissionID: submission.ID, Approved: result.Approved()}
	if result.Approved() {
		return outcome, s.approve(ctx, submission, result)
	}
	return outcome, s.decline(ctx, submission, result)
}

// recordAudit captures the delivery's full verification metadata. Audit write
// failures never block settlement.
func (s *Service) recordAudit(ctx context.Context, submissionID int64, result *paystation.PostbackResult) {
	if s.audits == nil {
		return
	}

	audit := &domain.PostbackAudit{
		SubmissionID:              submissionID,
		TransactionID:             result.TransactionID,
		ErrorCode:                 result.ErrorCode,
		ErrorMessage:              result.ErrorMessage,
		AmountCents:               result.PurchaseAmountCents,
		CardType:                  result.CardType,
		BatchNumber:               result.BatchNumber,
		AuthorizeID:               result.AuthorizeID,
		ShoppingTransactionNumber: result.ShoppingTransactionNumber,
		AcquirerName:              result.AcquirerName,
		AcquirerMerchantID:        result.AcquirerMerchantID,
		AcquirerResponseCode:      result.AcquirerResponseCode,
		QSIResponseCode:           result.QSIResponseCode,
		CSCResultCode:             result.CSCResultCode,
		AVSResultCode:             result.AVSResultCode,
		ReturnReceiptNumber:       result.ReturnReceiptNumber,
		Locale:                    result.Locale,
		RequestIP:                 result.RequestIP,
		RequestUserAgent:          result.RequestUserAgent,
		RequestHTTPReferrer:       result.RequestHTTPReferrer,
		PaymentRequestTime:        result.PaymentRequestTime,
		DigitalOrderTime:          result.DigitalOrderTime,
		DigitalReceiptTime:        result.DigitalReceiptTime,
		AuthenticationResult:      result.Authentication.AuthenticationResult,
		ECI:                       result.Authentication.ECI,
		VerifyStatus:              result.Authentication.VerifyStatus,
		VerifyType:                result.Authentication.VerifyType,
		TransactionTime:           result.TransactionTime,
		ReceivedAt:                s.now().UTC(),
	}

	if err := s.audits.Record(ctx, audit); err != nil {
		s.logger.Error("failed to record postback audit",
			zap.Int64("submission_id", submissionID),
			zap.Error(err),
		)
	}
}

func (s *Service) approve(ctx context.Context, submission *domain.Submission, result *paystation.PostbackResult) error {
	date := result.TransactionTime
	if date.IsZero() {
		date = s.now().UTC()
	}

	if err := s.store.UpdatePaymentResult(ctx, submission.ID,
		domain.PaymentStatusApproved, result.TransactionID, result.AmountMajor(), &date); err != nil {
		return domain.WrapError(domain.ErrorCodeStoreError, "failed to record approval", err)
	}

	// Exactly one delivery wins the fulfillment flag; every other delivery
	// (gateway retry, concurrent duplicate) re-confirms status and stops here.
	won, err := s.store.MarkFulfilled(ctx, submission.ID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStoreError, "failed to mark fulfilled", err)
	}
	if !won {
		s.logger.Info("duplicate postback, side effects already dispatched",
			zap.Int64("submission_id", submission.ID),
			zap.String("transaction_id", result.TransactionID),
		)
		return nil
	}

	s.logger.Info("payment approved",
		zap.Int64("submission_id", submission.ID),
		zap.String("transaction_id", result.TransactionID),
		zap.Int64("amount_cents", result.PurchaseAmountCents),
		zap.String("card_type", result.CardType),
	)

	s.dispatchDeferred(ctx, submission)
	return nil
}

// dispatchDeferred fires the feed's delayed side effects. Dispatch errors are
// logged, not returned: the postback is already confirmed and the gateway must
// still receive a success status.
func (s *Service) dispatchDeferred(ctx context.Context, submission *domain.Submission) {
	feed, err := s.feeds.Resolve(ctx, submission.FormID)
	if err != nil || feed == nil {
		if err != nil {
			s.logger.Error("feed lookup failed during dispatch",
				zap.Int64("submission_id", submission.ID), zap.Error(err))
		}
		return
	}

	if feed.DelayPost {
		if err := s.dispatcher.CreatePost(ctx, submission); err != nil {
			s.logger.Error("deferred post creation failed",
				zap.Int64("submission_id", submission.ID), zap.Error(err))
		}
	}
	if feed.DelayNotifications {
		if err := s.dispatcher.SendNotifications(ctx, feed, submission); err != nil {
			s.logger.Error("deferred notifications failed",
				zap.Int64("submission_id", submission.ID), zap.Error(err))
		}
	}
	if feed.DelayAutoresponders {
		if err := s.dispatcher.SendAutoresponders(ctx, feed, submission); err != nil {
			s.logger.Error("deferred autoresponders failed",
				zap.Int64("submission_id", submission.ID), zap.Error(err))
		}
	}
}

func (s *Service) decline(ctx context.Context, submission *domain.Submission, result *paystation.PostbackResult) error {
	date := result.TransactionTime
	if date.IsZero() {
		date = s.now().UTC()
	}

	if err := s.store.UpdatePaymentResult(ctx, submission.ID,
		domain.PaymentStatusFailed, result.TransactionID, result.AmountMajor(), &date); err != nil {
		return domain.WrapError(domain.ErrorCodeStoreError, "failed to record decline", err)
	}
	if err := s.store.SetFailureReason(ctx, submission.ID, result.ErrorMessage); err != nil {
		s.logger.Error("failed to store failure reason",
			zap.Int64("submission_id", submission.ID), zap.Error(err))
	}

	s.logger.Info("payment declined",
		zap.Int64("submission_id", submission.ID),
		zap.String("transaction_id", result.TransactionID),
		zap.String("error_code", result.ErrorCode),
	)

	feed, err := s.feeds.Resolve(ctx, submission.FormID)
	if err == nil && feed != nil {
		s.dispatcher.PaymentFailed(ctx, feed, submission)
	}

	return nil
}

// Confirmation is the form's configured confirmation content.
type Confirmation struct {
	Message    string
	IsRedirect bool
}

// ReconcileConfirmation substitutes the configured confirmation with an error
// message when the postback already failed the submission and the confirmation
// is a plain message. Redirect confirmations are left alone.
func (s *Service) ReconcileConfirmation(ctx context.Context, submissionID int64, conf Confirmation) (Confirmation, error) {
	if conf.IsRedirect {
		return conf, nil
	}

	submission, err := s.store.Get(ctx, submissionID)
	if err != nil {
		return conf, domain.WrapError(domain.ErrorCodeStoreError, "submission lookup failed", err)
	}
	if submission == nil || submission.PaymentStatus != domain.PaymentStatusFailed {
		return conf, nil
	}

	reason := submission.FailureReason
	if reason == "" {
		reason = "the payment was declined"
	}

	conf.Message = fmt.Sprintf("<p>Your payment could not be processed: %s</p>", html.EscapeString(reason))
	return conf, nil
}
