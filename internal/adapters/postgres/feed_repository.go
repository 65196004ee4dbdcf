package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedRepository implements ports.FeedResolver on PostgreSQL. The one-feed-
// per-form rule is enforced here with LIMIT 1 on the lowest feed id, matching
// the admin layer's constraint.
type FeedRepository struct {
	pool *pgxpool.Pool
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(pool *pgxpool.Pool) *FeedRepository {
	return &FeedRepository{pool: pool}
}

// Resolve returns the feed configured for a form, or nil when there is none.
func (r *FeedRepository) Resolve(ctx context.Context, formID int64) (*domain.Feed, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, form_id, field_map, delay_post, delay_notifications,
		       delay_autoresponders, override_gateway_id, failure_url
		FROM feeds
		WHERE form_id = $1
		ORDER BY id
		LIMIT 1`,
		formID)

	var (
		feed     domain.Feed
		fieldMap []byte
	)
	err := row.Scan(&feed.ID, &feed.FormID, &fieldMap, &feed.DelayPost,
		&feed.DelayNotifications, &feed.DelayAutoresponders,
		&feed.OverrideGatewayID, &feed.FailureURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve feed: %w", err)
	}

	if len(fieldMap) > 0 {
		if err := json.Unmarshal(fieldMap, &feed.FieldMap); err != nil {
			return nil, fmt.Errorf("decode feed field map: %w", err)
		}
	}

	return &feed, nil
}
