package ports

import (
	"context"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
)

// FormEngine exposes the pieces of the form platform the confirmation service
// depends on. Field values and totals are computed by the engine, not here.
type FormEngine interface {
	// ProductTotalCents sums price x quantity over the form's product fields,
	// in minor currency units.
	ProductTotalCents(ctx context.Context, formID int64, fields map[string]string) (int64, error)
}

// DeferredDispatcher triggers the side effects a feed can delay until payment
// confirmation. Implementations live in the host platform; calls must be safe
// to skip entirely (all delay flags false).
type DeferredDispatcher interface {
	SendNotifications(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error
	SendAutoresponders(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error
	CreatePost(ctx context.Context, submission *domain.Submission) error

	// PaymentFailed is the failure hook invoked on a declined postback.
	PaymentFailed(ctx context.Context, feed *domain.Feed, submission *domain.Submission)
}
