package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/pkg/resilience"
	"github.com/Paystation/paystation-gravity-forms/pkg/timeutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxDeliveryAttempts bounds retries of one event. Settlement never waits on
// delivery; a dead endpoint costs at most a few seconds of handler time.
const maxDeliveryAttempts = 3

// Event types the form platform subscribes to.
const (
	EventNotifications  = "submission.send_notifications"
	EventAutoresponders = "submission.send_autoresponders"
	EventCreatePost     = "submission.create_post"
	EventPaymentFailed  = "submission.payment_failed"
)

// Dispatcher implements ports.DeferredDispatcher by delivering signed webhook
// events back to the form platform. The platform owns the actual side effects
// (mail, post creation); this service only tells it when payment confirmed.
type Dispatcher struct {
	endpointURL   string
	signingSecret string
	httpClient    *http.Client
	backoff       *resilience.Backoff
	logger        *zap.Logger
}

// NewDispatcher creates a webhook dispatcher for the form platform endpoint.
func NewDispatcher(endpointURL, signingSecret string, httpClient *http.Client, logger *zap.Logger) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Dispatcher{
		endpointURL:   endpointURL,
		signingSecret: signingSecret,
		httpClient:    httpClient,
		backoff:       resilience.EventDeliveryBackoff(),
		logger:        logger,
	}
}

// event is the delivered payload.
type event struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	SubmissionID int64     `json:"submission_id"`
	FormID       int64     `json:"form_id"`
	FeedID       int64     `json:"feed_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// SendNotifications asks the platform to send the feed's delayed notifications.
func (d *Dispatcher) SendNotifications(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error {
	return d.deliver(ctx, EventNotifications, feed, submission)
}

// SendAutoresponders asks the platform to send the feed's delayed autoresponders.
func (d *Dispatcher) SendAutoresponders(ctx context.Context, feed *domain.Feed, submission *domain.Submission) error {
	return d.deliver(ctx, EventAutoresponders, feed, submission)
}

// CreatePost asks the platform to create the delayed post for the submission.
func (d *Dispatcher) CreatePost(ctx context.Context, submission *domain.Submission) error {
	return d.deliver(ctx, EventCreatePost, nil, submission)
}

// PaymentFailed notifies the platform of a declined payment. Best effort.
func (d *Dispatcher) PaymentFailed(ctx context.Context, feed *domain.Feed, submission *domain.Submission) {
	if err := d.deliver(ctx, EventPaymentFailed, feed, submission); err != nil {
		d.logger.Warn("payment failed notification not delivered",
			zap.Int64("submission_id", submission.ID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, eventType string, feed *domain.Feed, submission *domain.Submission) error {
	if d.endpointURL == "" {
		d.logger.Debug("no dispatch endpoint configured, skipping event",
			zap.String("event_type", eventType),
			zap.Int64("submission_id", submission.ID),
		)
		return nil
	}

	evt := event{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		SubmissionID: submission.ID,
		FormID:       submission.FormID,
		Timestamp:    timeutil.Now(),
	}
	if feed != nil {
		evt.FeedID = feed.ID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxDeliveryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff.NextDelay(attempt - 1)):
			}
		}

		retryable, err := d.post(ctx, evt.EventID, payload)
		if err == nil {
			d.logger.Info("event delivered",
				zap.String("event_type", eventType),
				zap.String("event_id", evt.EventID),
				zap.Int64("submission_id", submission.ID),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		d.logger.Warn("event delivery attempt failed",
			zap.String("event_id", evt.EventID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return lastErr
}

// post sends one delivery attempt. Transport failures and 5xx responses are
// retryable; a 4xx means the platform rejected the event and retrying cannot
// change that.
func (d *Dispatcher) post(ctx context.Context, eventID string, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpointURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", eventID)
	if d.signingSecret != "" {
		req.Header.Set("X-Signature", d.sign(payload))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return true, fmt.Errorf("event delivery rejected with status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("event delivery rejected with status %d", resp.StatusCode)
	}
	return false, nil
}

// sign computes the hex HMAC-SHA256 of the payload.
func (d *Dispatcher) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(d.signingSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
