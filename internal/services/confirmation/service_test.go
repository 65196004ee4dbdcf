package confirmation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/adapters/paystation"
	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockStore is an in-memory SubmissionStore. MarkFulfilled is conditional the
// same way the SQL implementation is, so concurrency tests exercise the real
// dedup contract.
type mockStore struct {
	mu          sync.Mutex
	submissions map[int64]*domain.Submission
	getErr      error
	updateErr   error
}

func newMockStore(subs ...*domain.Submission) *mockStore {
	m := &mockStore{submissions: make(map[int64]*domain.Submission)}
	for _, s := range subs {
		m.submissions[s.ID] = s
	}
	return m
}

func (m *mockStore) Get(ctx context.Context, id int64) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.submissions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockStore) FindByUniqueToken(ctx context.Context, token string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.submissions {
		if s.UniqueToken == token {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpdatePaymentResult(ctx context.Context, id int64, status domain.PaymentStatus, txnID string, amount decimal.Decimal, date *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	s, ok := m.submissions[id]
	if !ok {
		return fmt.Errorf("submission %d not found", id)
	}
	s.PaymentStatus = status
	s.TransactionID = txnID
	s.Amount = amount
	s.PaymentDate = date
	return nil
}

func (m *mockStore) SetFailureReason(ctx context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		s.FailureReason = reason
	}
	return nil
}

func (m *mockStore) MarkFulfilled(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok || s.IsFulfilled {
		return false, nil
	}
	s.IsFulfilled = true
	return true, nil
}

func (m *mockStore) get(id int64) domain.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.submissions[id]
}

type mockFeeds struct {
	feed *domain.Feed
	err  error
}

func (m *mockFeeds) Resolve(ctx context.Context, formID int64) (*domain.Feed, error) {
	return m.feed, m.err
}

type mockForms struct {
	total int64
	err   error
}

func (m *mockForms) ProductTotalCents(ctx context.Context, formID int64, fields map[string]string) (int64, error) {
	return m.total, m.err
}

type mockGateway struct {
	result  *ports.InitiationResult
	err     error
	lastReq *ports.InitiationRequest
	calls   int
}

func (m *mockGateway) Initiate(ctx context.Context, req *ports.InitiationRequest) (*ports.InitiationResult, error) {
	m.calls++
	m.lastReq = req
	return m.result, m.err
}

type mockDispatcher struct {
	notifications  atomic.Int32
	autoresponders atomic.Int32
	posts          atomic.Int32
	failures       atomic.Int32
}

func (m *mockDispatcher) SendNotifications(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error {
	m.notifications.Add(1)
	return nil
}

func (m *mockDispatcher) SendAutoresponders(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error {
	m.autoresponders.Add(1)
	return nil
}

func (m *mockDispatcher) CreatePost(ctx context.Context, submission *domain.Submission) error {
	m.posts.Add(1)
	return nil
}

func (m *mockDispatcher) PaymentFailed(ctx context.Context, feed *domain.Feed, submission *domain.Submission) {
	m.failures.Add(1)
}

type mockAudits struct {
	mu      sync.Mutex
	records []*domain.PostbackAudit
}

func (m *mockAudits) Record(ctx context.Context, audit *domain.PostbackAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, audit)
	return nil
}

type fixture struct {
	store      *mockStore
	feeds      *mockFeeds
	forms      *mockForms
	gateway    *mockGateway
	dispatcher *mockDispatcher
	audits     *mockAudits
	service    *Service
}

const testSecret = "shared-secret"

func newFixture(t *testing.T, feed *domain.Feed, subs ...*domain.Submission) *fixture {
	t.Helper()

	parser, err := paystation.NewPostbackParser(testSecret, zap.NewNop())
	require.NoError(t, err)

	f := &fixture{
		store:      newMockStore(subs...),
		feeds:      &mockFeeds{feed: feed},
		forms:      &mockForms{},
		gateway:    &mockGateway{},
		dispatcher: &mockDispatcher{},
		audits:     &mockAudits{},
	}
	f.service = NewService(
		f.store, f.feeds, f.forms, f.gateway, f.dispatcher, f.audits, parser,
		GatewayAccount{AccountID: "500600", GatewayID: "FORMS", Currency: "NZD"},
		zap.NewNop(),
	)
	return f
}

func testFeed() *domain.Feed {
	return &domain.Feed{
		ID:                  1,
		FormID:              7,
		DelayPost:           true,
		DelayNotifications:  true,
		DelayAutoresponders: true,
	}
}

func testSubmission() *domain.Submission {
	return &domain.Submission{
		ID:            42,
		FormID:        7,
		UniqueToken:   "tok-42",
		PaymentStatus: domain.PaymentStatusProcessing,
	}
}

func submissionData() *SubmissionData {
	return &SubmissionData{
		Fields:       map[string]string{},
		UniqueToken:  "tok-new",
		SubmissionID: 42,
		FormID:       7,
	}
}

func approvedPostback(session string) []byte {
	return []byte(fmt.Sprintf(`<PaystationPaymentVerification>
  <ec>0</ec>
  <em>Transaction successful</em>
  <ti>0008813023-01</ti>
  <MerchantSession>%s</MerchantSession>
  <MerchantReference>form 7 submission 42</MerchantReference>
  <PurchaseAmount>1500</PurchaseAmount>
  <TransactionTime>2023-01-15 14:30:00</TransactionTime>
</PaystationPaymentVerification>`, session))
}

func declinedPostback(session string) []byte {
	return []byte(fmt.Sprintf(`<PaystationPaymentVerification>
  <ec>4</ec>
  <em>Insufficient Funds</em>
  <ti>0008813023-01</ti>
  <MerchantSession>%s</MerchantSession>
  <MerchantReference>form 7 submission 42</MerchantReference>
  <PurchaseAmount>1500</PurchaseAmount>
</PaystationPaymentVerification>`, session))
}

func TestValidateSubmissionNoFeedBypassesPayment(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.ValidateSubmission(context.Background(), submissionData())
	require.NoError(t, err)
	assert.False(t, result.PaymentRequired)
	assert.Empty(t, result.Message)
}

func TestValidateSubmissionRejectsTerminalToken(t *testing.T) {
	paid := testSubmission()
	paid.UniqueToken = "tok-dup"
	paid.PaymentStatus = domain.PaymentStatusApproved

	f := newFixture(t, testFeed(), paid)
	f.forms.total = 1500

	data := submissionData()
	data.UniqueToken = "tok-dup"

	result, err := f.service.ValidateSubmission(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, result.PaymentRequired)
	assert.Contains(t, result.Message, "already been submitted and paid")
}

func TestValidateSubmissionProcessingTokenNotRejected(t *testing.T) {
	pending := testSubmission()
	pending.UniqueToken = "tok-pending"

	f := newFixture(t, testFeed(), pending)
	f.forms.total = 1500

	data := submissionData()
	data.UniqueToken = "tok-pending"

	result, err := f.service.ValidateSubmission(context.Background(), data)
	require.NoError(t, err)
	assert.Empty(t, result.Message)
}

func TestValidateSubmissionRejectsZeroTotal(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())
	f.forms.total = 0

	result, err := f.service.ValidateSubmission(context.Background(), submissionData())
	require.NoError(t, err)
	assert.True(t, result.PaymentRequired)
	assert.Contains(t, result.Message, "no purchasable total")
}

func TestInitiateSuccess(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())
	f.forms.total = 1500
	f.gateway.result = &ports.InitiationResult{
		TransactionID: "0008813023-01",
		DigitalOrder:  "https://www.paystation.co.nz/hosted/?hk=abc",
	}

	outcome, err := f.service.Initiate(context.Background(), submissionData())
	require.NoError(t, err)
	assert.Equal(t, "https://www.paystation.co.nz/hosted/?hk=abc", outcome.RedirectURL)
	assert.Empty(t, outcome.FailureMessage)

	req := f.gateway.lastReq
	assert.Equal(t, "500600", req.AccountID)
	assert.Equal(t, "FORMS", req.GatewayID)
	assert.Equal(t, int64(1500), req.AmountCents)
	assert.Equal(t, "NZD", req.Currency)
	assert.Equal(t, int64(42), paystation.DecodeMerchantSession(req.MerchantSession))

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusProcessing, stored.PaymentStatus)
	assert.Equal(t, "0008813023-01", stored.TransactionID)
	assert.Equal(t, "15", stored.Amount.String())
}

func TestInitiateExplicitTotalFallback(t *testing.T) {
	feed := testFeed()
	feed.FieldMap = map[string]string{domain.FieldTotal: "9"}

	f := newFixture(t, feed, testSubmission())
	f.forms.total = 0
	f.gateway.result = &ports.InitiationResult{DigitalOrder: "https://hosted.example/do"}

	data := submissionData()
	data.Fields["9"] = "1500"

	_, err := f.service.Initiate(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), f.gateway.lastReq.AmountCents)
}

func TestInitiateExplicitTotalNotInteger(t *testing.T) {
	feed := testFeed()
	feed.FieldMap = map[string]string{domain.FieldTotal: "9"}

	f := newFixture(t, feed, testSubmission())
	f.forms.total = 0

	data := submissionData()
	data.Fields["9"] = "15.00"

	_, err := f.service.Initiate(context.Background(), data)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeValidationFailed, domain.GetErrorCode(err))
	assert.Zero(t, f.gateway.calls)
}

func TestInitiateGatewayOverridePrecedence(t *testing.T) {
	feed := testFeed()
	feed.OverrideGatewayID = "FEED-GW"
	feed.FieldMap = map[string]string{domain.FieldGatewayOverride: "3"}

	f := newFixture(t, feed, testSubmission())
	f.forms.total = 1500
	f.gateway.result = &ports.InitiationResult{DigitalOrder: "https://hosted.example/do"}

	data := submissionData()
	data.Fields["3"] = "FIELD-GW"

	_, err := f.service.Initiate(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "FIELD-GW", f.gateway.lastReq.GatewayID)

	// Without the mapped value the feed override wins over the account default.
	delete(data.Fields, "3")
	_, err = f.service.Initiate(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "FEED-GW", f.gateway.lastReq.GatewayID)
}

func TestInitiateTransportFailure(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())
	f.forms.total = 1500
	f.gateway.err = domain.WrapError(domain.ErrorCodeGatewayUnreachable, "gateway unreachable", errors.New("dial tcp: timeout"))

	outcome, err := f.service.Initiate(context.Background(), submissionData())
	require.NoError(t, err)
	assert.Empty(t, outcome.RedirectURL)
	assert.Equal(t, "The payment could not be started. Please try again later.", outcome.FailureMessage)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.NotEmpty(t, stored.FailureReason)
}

func TestInitiateGatewayDecline(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())
	f.forms.total = 1500
	f.gateway.result = &ports.InitiationResult{ErrorCode: "10", ErrorMessage: "Invalid Paystation ID"}

	outcome, err := f.service.Initiate(context.Background(), submissionData())
	require.NoError(t, err)
	assert.Empty(t, outcome.RedirectURL)
	assert.Equal(t, "Invalid Paystation ID", outcome.FailureMessage)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, "Invalid Paystation ID", stored.FailureReason)
}

func TestInitiateFailureMessageEscaped(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())
	f.forms.total = 1500
	f.gateway.result = &ports.InitiationResult{ErrorCode: "10", ErrorMessage: `<script>alert(1)</script>`}

	outcome, err := f.service.Initiate(context.Background(), submissionData())
	require.NoError(t, err)
	assert.NotContains(t, outcome.FailureMessage, "<script>")
	assert.Contains(t, outcome.FailureMessage, "&lt;script&gt;")
}

func TestHandleReturnIgnoresUnrelatedTraffic(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	tests := []struct {
		name  string
		query string
	}{
		{name: "empty query", query: ""},
		{name: "missing error code", query: "ti=t&em=ok&ms=42-1"},
		{name: "undecodable session", query: "ti=t&ec=0&em=ok&ms=bogus"},
		{name: "unknown submission", query: "ti=t&ec=0&em=ok&ms=999-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			outcome, err := f.service.HandleReturn(context.Background(), query)
			require.NoError(t, err)
			assert.True(t, outcome.Ignored)
		})
	}
}

func TestHandleReturnNeverWritesState(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	query, _ := url.ParseQuery("ti=t&ec=0&em=ok&ms=42-1700000000")
	outcome, err := f.service.HandleReturn(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, int64(42), outcome.SubmissionID)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusProcessing, stored.PaymentStatus)
	assert.False(t, stored.IsFulfilled)
}

func TestHandleReturnDeclinedUsesFailureURL(t *testing.T) {
	feed := testFeed()
	feed.FailureURL = "https://forms.example.nz/payment-failed"

	f := newFixture(t, feed, testSubmission())

	query, _ := url.ParseQuery("ti=t&ec=4&em=Declined&ms=42-1700000000")
	outcome, err := f.service.HandleReturn(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, outcome.Ignored)
	assert.Equal(t, "https://forms.example.nz/payment-failed", outcome.RedirectURL)
}

func TestHandleReturnDeclinedIgnoresFailureURLAfterSettlement(t *testing.T) {
	feed := testFeed()
	feed.FailureURL = "https://forms.example.nz/payment-failed"

	approved := testSubmission()
	approved.PaymentStatus = domain.PaymentStatusApproved

	f := newFixture(t, feed, approved)

	// A declined-looking return for a submission the postback already approved
	// renders the normal confirmation, not the failure page.
	query, _ := url.ParseQuery("ti=t&ec=4&em=Declined&ms=42-1700000000")
	outcome, err := f.service.HandleReturn(context.Background(), query)
	require.NoError(t, err)
	assert.Empty(t, outcome.RedirectURL)
	assert.Equal(t, int64(42), outcome.SubmissionID)
}

func TestHandleReturnDeclinedWithoutFailureURLFallsThrough(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	query, _ := url.ParseQuery("ti=t&ec=4&em=Declined&ms=42-1700000000")
	outcome, err := f.service.HandleReturn(context.Background(), query)
	require.NoError(t, err)
	assert.Empty(t, outcome.RedirectURL)
	assert.Equal(t, int64(42), outcome.SubmissionID)
}

func TestHandlePostbackAuthPrecedesParse(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	// Malformed body with a bad key must fail authentication, not parsing.
	_, err := f.service.HandlePostback(context.Background(), "wrong-key", []byte("not xml at all"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodePostbackAuthFailed, domain.GetErrorCode(err))
}

func TestHandlePostbackApproved(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	outcome, err := f.service.HandlePostback(context.Background(), testSecret, approvedPostback("42-1700000000"))
	require.NoError(t, err)
	assert.True(t, outcome.Approved)
	assert.Equal(t, int64(42), outcome.SubmissionID)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusApproved, stored.PaymentStatus)
	assert.Equal(t, "0008813023-01", stored.TransactionID)
	assert.Equal(t, "15", stored.Amount.String())
	assert.True(t, stored.IsFulfilled)
	require.NotNil(t, stored.PaymentDate)
	assert.Equal(t, time.Date(2023, 1, 15, 1, 30, 0, 0, time.UTC), *stored.PaymentDate)

	assert.Equal(t, int32(1), f.dispatcher.notifications.Load())
	assert.Equal(t, int32(1), f.dispatcher.autoresponders.Load())
	assert.Equal(t, int32(1), f.dispatcher.posts.Load())
	assert.Len(t, f.audits.records, 1)
}

func TestHandlePostbackDuplicateDelivery(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	body := approvedPostback("42-1700000000")
	_, err := f.service.HandlePostback(context.Background(), testSecret, body)
	require.NoError(t, err)
	_, err = f.service.HandlePostback(context.Background(), testSecret, body)
	require.NoError(t, err)

	// Duplicate re-confirms status but never re-dispatches side effects.
	assert.Equal(t, int32(1), f.dispatcher.notifications.Load())
	assert.Equal(t, int32(1), f.dispatcher.posts.Load())

	// Every delivery lands in the audit trail.
	assert.Len(t, f.audits.records, 2)
}

func TestHandlePostbackConflictingDeliveryAfterApproval(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	_, err := f.service.HandlePostback(context.Background(), testSecret, approvedPostback("42-1700000000"))
	require.NoError(t, err)

	// A late decline for an already-approved submission must not unwind the
	// terminal state; it still answers success so the gateway stops retrying.
	outcome, err := f.service.HandlePostback(context.Background(), testSecret, declinedPostback("42-1700000000"))
	require.NoError(t, err)
	assert.True(t, outcome.Approved)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusApproved, stored.PaymentStatus)
	assert.True(t, stored.IsFulfilled)
	assert.Empty(t, stored.FailureReason)
	assert.Zero(t, f.dispatcher.failures.Load())

	// The conflicting delivery is still audited.
	assert.Len(t, f.audits.records, 2)
}

func TestHandlePostbackApprovalAfterDeclineKeepsFailed(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	_, err := f.service.HandlePostback(context.Background(), testSecret, declinedPostback("42-1700000000"))
	require.NoError(t, err)

	outcome, err := f.service.HandlePostback(context.Background(), testSecret, approvedPostback("42-1700000000"))
	require.NoError(t, err)
	assert.False(t, outcome.Approved)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.False(t, stored.IsFulfilled)
	assert.Zero(t, f.dispatcher.notifications.Load())
	assert.Zero(t, f.dispatcher.posts.Load())
}

func TestHandlePostbackConcurrentDeliveries(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	body := approvedPostback("42-1700000000")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.HandlePostback(context.Background(), testSecret, body)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusApproved, stored.PaymentStatus)
	assert.Equal(t, int32(1), f.dispatcher.notifications.Load())
	assert.Equal(t, int32(1), f.dispatcher.autoresponders.Load())
	assert.Equal(t, int32(1), f.dispatcher.posts.Load())
}

func TestHandlePostbackDeclined(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	outcome, err := f.service.HandlePostback(context.Background(), testSecret, declinedPostback("42-1700000000"))
	require.NoError(t, err)
	assert.False(t, outcome.Approved)

	stored := f.store.get(42)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, "Insufficient Funds", stored.FailureReason)
	assert.False(t, stored.IsFulfilled)

	assert.Equal(t, int32(1), f.dispatcher.failures.Load())
	assert.Zero(t, f.dispatcher.notifications.Load())
}

func TestHandlePostbackUnknownSession(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	_, err := f.service.HandlePostback(context.Background(), testSecret, approvedPostback("999-1700000000"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeSubmissionNotFound, domain.GetErrorCode(err))
}

func TestHandlePostbackMissingRequiredFields(t *testing.T) {
	f := newFixture(t, testFeed(), testSubmission())

	body := []byte(`<PaystationPaymentVerification><ec>0</ec></PaystationPaymentVerification>`)
	_, err := f.service.HandlePostback(context.Background(), testSecret, body)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodePostbackParseFailed, domain.GetErrorCode(err))
}

func TestHandlePostbackDispatchSkippedWhenDelaysOff(t *testing.T) {
	feed := testFeed()
	feed.DelayPost = false
	feed.DelayNotifications = false
	feed.DelayAutoresponders = false

	f := newFixture(t, feed, testSubmission())

	_, err := f.service.HandlePostback(context.Background(), testSecret, approvedPostback("42-1700000000"))
	require.NoError(t, err)

	assert.Zero(t, f.dispatcher.notifications.Load())
	assert.Zero(t, f.dispatcher.autoresponders.Load())
	assert.Zero(t, f.dispatcher.posts.Load())
}

func TestReconcileConfirmation(t *testing.T) {
	failed := testSubmission()
	failed.PaymentStatus = domain.PaymentStatusFailed
	failed.FailureReason = "Insufficient Funds"

	f := newFixture(t, testFeed(), failed)

	t.Run("redirect confirmation untouched", func(t *testing.T) {
		conf := Confirmation{Message: "https://example.com/thanks", IsRedirect: true}
		got, err := f.service.ReconcileConfirmation(context.Background(), 42, conf)
		require.NoError(t, err)
		assert.Equal(t, conf, got)
	})

	t.Run("failed payment replaces message", func(t *testing.T) {
		conf := Confirmation{Message: "<p>Thanks for your order!</p>"}
		got, err := f.service.ReconcileConfirmation(context.Background(), 42, conf)
		require.NoError(t, err)
		assert.Contains(t, got.Message, "Your payment could not be processed")
		assert.Contains(t, got.Message, "Insufficient Funds")
	})

	t.Run("approved payment keeps message", func(t *testing.T) {
		approved := testSubmission()
		approved.ID = 50
		approved.PaymentStatus = domain.PaymentStatusApproved
		f.store.submissions[50] = approved

		conf := Confirmation{Message: "<p>Thanks for your order!</p>"}
		got, err := f.service.ReconcileConfirmation(context.Background(), 50, conf)
		require.NoError(t, err)
		assert.Equal(t, conf, got)
	})
}
