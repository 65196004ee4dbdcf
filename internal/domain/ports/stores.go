package ports

import (
	"context"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/shopspring/decimal"
)

// SubmissionStore is the entry store owned by the form engine. Payment fields
// on a submission are the only durable state the confirmation service writes.
type SubmissionStore interface {
	Get(ctx context.Context, id int64) (*domain.Submission, error)

	// FindByUniqueToken returns nil when no submission carries the token.
	FindByUniqueToken(ctx context.Context, token string) (*domain.Submission, error)

	// UpdatePaymentResult records a status transition together with the gateway
	// transaction id, the amount in major units and the UTC payment date.
	// Last-writer-wins; concurrent postbacks for one session converge on the
	// same terminal values.
	UpdatePaymentResult(ctx context.Context, id int64, status domain.PaymentStatus, txnID string, amount decimal.Decimal, date *time.Time) error

	// SetFailureReason stores the gateway's error text for later display.
	SetFailureReason(ctx context.Context, id int64, reason string) error

	// MarkFulfilled conditionally flips the fulfillment flag. It returns true
	// for exactly one caller per submission; duplicate postback deliveries get
	// false and must skip side-effect dispatch.
	MarkFulfilled(ctx context.Context, id int64) (bool, error)
}

// PostbackAuditStore captures the full verification metadata of each postback
// delivery, duplicates included. Write failures are logged by callers, never
// surfaced to the gateway.
type PostbackAuditStore interface {
	Record(ctx context.Context, audit *domain.PostbackAudit) error
}

// FeedResolver maps a form to its payment configuration.
type FeedResolver interface {
	// Resolve returns nil (and no error) when the form has no feed.
	Resolve(ctx context.Context, formID int64) (*domain.Feed, error)
}
