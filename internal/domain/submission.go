package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the payment lifecycle state of a form submission.
// Approved and Failed are terminal; a submission never leaves a terminal state.
type PaymentStatus string

const (
	PaymentStatusNotInitiated PaymentStatus = "not_initiated" // no payment attempted yet
	PaymentStatusProcessing   PaymentStatus = "processing"    // redirected to the hosted payment page
	PaymentStatusApproved     PaymentStatus = "approved"      // confirmed by server postback
	PaymentStatusFailed       PaymentStatus = "failed"        // declined, or initiation failed
)

// IsTerminal returns true when no further status transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusFailed
}

// Submission is a form entry as held by the entry store. The confirmation
// service mutates payment fields but never creates or deletes submissions.
type Submission struct {
	CreatedAt     time.Time       `json:"created_at"`
	PaymentDate   *time.Time      `json:"payment_date"` // UTC, set on postback
	ID            int64           `json:"id"`
	FormID        int64           `json:"form_id"`
	UniqueToken   string          `json:"unique_token"` // idempotency key against browser resubmission
	PaymentStatus PaymentStatus   `json:"payment_status"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"` // major currency units
	FailureReason string          `json:"failure_reason"`
	IsFulfilled   bool            `json:"is_fulfilled"`
}

// Feed maps one form to its payment configuration. At most one feed exists per
// form; the resolver enforces that, not this type.
type Feed struct {
	ID       int64             `json:"id"`
	FormID   int64             `json:"form_id"`
	FieldMap map[string]string `json:"field_map"` // logical name -> form field id

	// Side effects deferred until the payment is confirmed by postback.
	DelayPost           bool `json:"delay_post"`
	DelayNotifications  bool `json:"delay_notifications"`
	DelayAutoresponders bool `json:"delay_autoresponders"`

	// OverrideGatewayID replaces the global gateway account when set.
	OverrideGatewayID string `json:"override_gateway_id"`

	// FailureURL is where the browser is sent after a declined redirect return.
	FailureURL string `json:"failure_url"`
}

// Logical field-map keys understood by the confirmation service.
const (
	FieldTotal           = "total"            // explicit form-supplied total, minor units
	FieldGatewayOverride = "gateway_override" // per-submission gateway account id
	FieldCustomerDetails = "customer_details"
	FieldOrderDetails    = "order_details"
	FieldReference       = "reference"
)

// MappedField returns the form field id bound to a logical key, or "".
func (f *Feed) MappedField(key string) string {
	if f == nil || f.FieldMap == nil {
		return ""
	}
	return f.FieldMap[key]
}
