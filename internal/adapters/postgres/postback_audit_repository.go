package postgres

import (
	"context"
	"fmt"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostbackAuditRepository implements ports.PostbackAuditStore. Every delivery
// gets its own row, so gateway retries are visible in the audit trail.
type PostbackAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPostbackAuditRepository creates a new postback audit repository.
func NewPostbackAuditRepository(pool *pgxpool.Pool) *PostbackAuditRepository {
	return &PostbackAuditRepository{pool: pool}
}

// Record inserts one postback delivery's metadata.
func (r *PostbackAuditRepository) Record(ctx context.Context, audit *domain.PostbackAudit) error {
	var txnTime pgtype.Timestamptz
	if !audit.TransactionTime.IsZero() {
		txnTime = pgtype.Timestamptz{Time: audit.TransactionTime, Valid: true}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO postback_audits (
			submission_id, transaction_id, error_code, error_message,
			amount_cents, card_type, batch_number, authorize_id,
			shopping_transaction_number, acquirer_name, acquirer_merchant_id,
			acquirer_response_code, qsi_response_code, csc_result_code,
			avs_result_code, return_receipt_number, locale, request_ip,
			request_user_agent, request_http_referrer, payment_request_time,
			digital_order_time, digital_receipt_time, authentication_result,
			eci, verify_status, verify_type, transaction_time, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)`,
		audit.SubmissionID, audit.TransactionID, audit.ErrorCode, audit.ErrorMessage,
		audit.AmountCents, audit.CardType, audit.BatchNumber, audit.AuthorizeID,
		audit.ShoppingTransactionNumber, audit.AcquirerName, audit.AcquirerMerchantID,
		audit.AcquirerResponseCode, audit.QSIResponseCode, audit.CSCResultCode,
		audit.AVSResultCode, audit.ReturnReceiptNumber, audit.Locale, audit.RequestIP,
		audit.RequestUserAgent, audit.RequestHTTPReferrer, audit.PaymentRequestTime,
		audit.DigitalOrderTime, audit.DigitalReceiptTime, audit.AuthenticationResult,
		audit.ECI, audit.VerifyStatus, audit.VerifyType, txnTime, audit.ReceivedAt)
	if err != nil {
		return fmt.Errorf("record postback audit: %w", err)
	}
	return nil
}
