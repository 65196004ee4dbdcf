package domain

import "time"

// PostbackAudit is the full verification metadata captured from one postback
// delivery. Kept separate from the submission's payment fields: it is written
// once per delivery and never read on the hot path.
type PostbackAudit struct {
	SubmissionID  int64
	TransactionID string
	ErrorCode     string
	ErrorMessage  string
	AmountCents   int64

	CardType                  string
	BatchNumber               int64
	AuthorizeID               string
	ShoppingTransactionNumber int64
	AcquirerName              string
	AcquirerMerchantID        string
	AcquirerResponseCode      string
	QSIResponseCode           string
	CSCResultCode             string
	AVSResultCode             string
	ReturnReceiptNumber       string
	Locale                    string
	RequestIP                 string
	RequestUserAgent          string
	RequestHTTPReferrer       string
	PaymentRequestTime        string
	DigitalOrderTime          string
	DigitalReceiptTime        string

	AuthenticationResult string
	ECI                  string
	VerifyStatus         string
	VerifyType           string

	TransactionTime time.Time
	ReceivedAt      time.Time
}
