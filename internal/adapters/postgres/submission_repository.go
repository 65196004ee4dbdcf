package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/converters"
	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SubmissionRepository implements ports.SubmissionStore on PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `
	id, form_id, unique_token, payment_status, transaction_id,
	amount, payment_date, failure_reason, is_fulfilled, created_at`

// Get retrieves a submission by id; returns nil when it does not exist.
func (r *SubmissionRepository) Get(ctx context.Context, id int64) (*domain.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+submissionColumns+` FROM submissions WHERE id = $1`, id)

	submission, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return submission, nil
}

// FindByUniqueToken retrieves a submission by its unique submission token;
// returns nil when no submission carries the token.
func (r *SubmissionRepository) FindByUniqueToken(ctx context.Context, token string) (*domain.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT`+submissionColumns+` FROM submissions WHERE unique_token = $1`, token)

	submission, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find submission by token: %w", err)
	}
	return submission, nil
}

// UpdatePaymentResult records a status transition with the gateway transaction
// details. Plain last-writer-wins UPDATE; duplicate postbacks write identical
// terminal values, so ordering does not matter.
func (r *SubmissionRepository) UpdatePaymentResult(ctx context.Context, id int64, status domain.PaymentStatus, txnID string, amount decimal.Decimal, date *time.Time) error {
	pgAmount, err := converters.NumericFromDecimal(amount)
	if err != nil {
		return fmt.Errorf("convert amount: %w", err)
	}
	pgDate := converters.TimestamptzFromTime(date)

	tag, err := r.pool.Exec(ctx, `
		UPDATE submissions
		SET payment_status = $2,
		    transaction_id = $3,
		    amount = $4,
		    payment_date = $5,
		    updated_at = now()
		WHERE id = $1`,
		id, string(status), txnID, pgAmount, pgDate)
	if err != nil {
		return fmt.Errorf("update payment result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment result: submission %d not found", id)
	}
	return nil
}

// SetFailureReason stores the gateway's error text for later display.
func (r *SubmissionRepository) SetFailureReason(ctx context.Context, id int64, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE submissions
		SET failure_reason = $2, updated_at = now()
		WHERE id = $1`,
		id, reason)
	if err != nil {
		return fmt.Errorf("set failure reason: %w", err)
	}
	return nil
}

// MarkFulfilled flips the fulfillment flag with a conditional update. The
// WHERE clause makes the database the arbiter between concurrent postbacks:
// exactly one caller sees an affected row and wins side-effect dispatch.
func (r *SubmissionRepository) MarkFulfilled(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE submissions
		SET is_fulfilled = true, updated_at = now()
		WHERE id = $1 AND is_fulfilled = false`,
		id)
	if err != nil {
		return false, fmt.Errorf("mark fulfilled: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		s           domain.Submission
		amount      pgtype.Numeric
		paymentDate pgtype.Timestamptz
		status      string
	)
	err := row.Scan(&s.ID, &s.FormID, &s.UniqueToken, &status, &s.TransactionID,
		&amount, &paymentDate, &s.FailureReason, &s.IsFulfilled, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.PaymentStatus = domain.PaymentStatus(status)
	s.Amount, err = converters.DecimalFromNumeric(amount)
	if err != nil {
		return nil, fmt.Errorf("read amount: %w", err)
	}
	s.PaymentDate = converters.TimeUTCFromTimestamptz(paymentDate)

	return &s, nil
}
