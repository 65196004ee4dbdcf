package paystation

import (
	"bytes"
	"crypto/subtle"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The gateway reports transaction times in its own regional timezone. They are
// reinterpreted there and stored as UTC so payment dates compare cleanly with
// submission creation dates.
const gatewayTimezone = "Pacific/Auckland"

const transactionTimeLayout = "2006-01-02 15:04:05"

// AuthenticationData is the nested 3-D Secure / card authentication block.
// Every field is optional metadata; a missing parent element never affects
// result validity.
type AuthenticationData struct {
	AuthenticationResult string
	ECI                  string
	XID                  string
	CAVV                 string
	VerifyStatus         string
	VerifyToken          string
	VerifyType           string
	VerifySecurityLevel  string
}

// PostbackResult is the parsed server-to-server payment verification. Only
// transaction id, merchant session and merchant reference are required for
// validity; the rest is audit/display metadata.
type PostbackResult struct {
	TransactionID   string
	MerchantSession string
	MerchantRef     string

	ErrorCode    string
	ErrorMessage string

	// PurchaseAmountCents is the purchase amount in minor units.
	PurchaseAmountCents int64

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

	// TransactionTime is the gateway transaction time converted to UTC.
	// Zero when the field was absent or unparseable.
	TransactionTime time.Time

	Authentication AuthenticationData

	// Valid is true only when the minimum required fields are present.
	Valid bool
}

// Approved reports whether the authoritative error code signals success,
// compared as a trimmed string.
func (r *PostbackResult) Approved() bool {
	return strings.TrimSpace(r.ErrorCode) == "0"
}

// AmountMajor converts the purchase amount to major currency units for storage
// and display.
func (r *PostbackResult) AmountMajor() decimal.Decimal {
	return decimal.New(r.PurchaseAmountCents, -2)
}

// postbackEnvelope mirrors the gateway's XML payment verification document.
type postbackEnvelope struct {
	XMLName                   xml.Name         `xml:"PaystationPaymentVerification"`
	ErrorCode                 string           `xml:"ec"`
	ErrorMessage              string           `xml:"em"`
	TransactionID             string           `xml:"ti"`
	MerchantSession           string           `xml:"MerchantSession"`
	MerchantRef               string           `xml:"MerchantReference"`
	PurchaseAmount            string           `xml:"PurchaseAmount"`
	CardType                  string           `xml:"CardType"`
	BatchNumber               string           `xml:"BatchNumber"`
	AuthorizeID               string           `xml:"AuthorizeID"`
	ShoppingTransactionNumber string           `xml:"ShoppingTransactionNumber"`
	AcquirerName              string           `xml:"AcquirerName"`
	AcquirerMerchantID        string           `xml:"AcquirerMerchantID"`
	AcquirerResponseCode      string           `xml:"AcquirerResponseCode"`
	QSIResponseCode           string           `xml:"QSIResponseCode"`
	CSCResultCode             string           `xml:"CSCResultCode"`
	AVSResultCode             string           `xml:"AVSResultCode"`
	ReturnReceiptNumber       string           `xml:"ReturnReceiptNumber"`
	Locale                    string           `xml:"Locale"`
	RequestIP                 string           `xml:"RequestIP"`
	RequestUserAgent          string           `xml:"RequestUserAgent"`
	RequestHTTPReferrer       string           `xml:"RequestHttpReferrer"`
	PaymentRequestTime        string           `xml:"PaymentRequestTime"`
	DigitalOrderTime          string           `xml:"DigitalOrderTime"`
	DigitalReceiptTime        string           `xml:"DigitalReceiptTime"`
	TransactionTime           string           `xml:"TransactionTime"`
	Authentication            *authentication  `xml:"AuthenticationData"`
}

type authentication struct {
	AuthenticationResult string `xml:"AuthenticationResult"`
	ECI                  string `xml:"ECI"`
	XID                  string `xml:"XID"`
	CAVV                 string `xml:"CAVV"`
	VerifyStatus         string `xml:"VerifyStatus"`
	VerifyToken          string `xml:"VerifyToken"`
	VerifyType           string `xml:"VerifyType"`
	VerifySecurityLevel  string `xml:"VerifySecurityLevel"`
}

// PostbackParser authenticates and parses server-to-server postbacks.
type PostbackParser struct {
	secret   string
	location *time.Location
	logger   *zap.Logger
}

// NewPostbackParser creates a parser bound to the configured shared secret.
func NewPostbackParser(secret string, logger *zap.Logger) (*PostbackParser, error) {
	loc, err := time.LoadLocation(gatewayTimezone)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreError, "failed to load gateway timezone", err)
	}
	return &PostbackParser{
		secret:   secret,
		location: loc,
		logger:   logger,
	}, nil
}

// Authenticate fails closed: a missing or mismatched shared-secret parameter
// rejects the postback before any XML decoding happens. Comparison is
// constant-time.
func (p *PostbackParser) Authenticate(key string) error {
	if key == "" || p.secret == "" {
		return domain.ErrPostbackAuthFailed
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(p.secret)) != 1 {
		return domain.ErrPostbackAuthFailed
	}
	return nil
}

// Parse decodes the XML payment verification body. encoding/xml performs no
// external entity resolution, so the untrusted document cannot pull in
// outside content. Malformed XML surfaces as POSTBACK_PARSE_FAILED with the
// decoder diagnostics attached.
func (p *PostbackParser) Parse(body []byte) (*PostbackResult, error) {
	var envelope postbackEnvelope
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = true
	if err := decoder.Decode(&envelope); err != nil {
		return nil, domain.WrapError(domain.ErrorCodePostbackParseFailed, "malformed postback XML", err)
	}

	result := &PostbackResult{
		TransactionID:             strings.TrimSpace(envelope.TransactionID),
		MerchantSession:           strings.TrimSpace(envelope.MerchantSession),
		MerchantRef:               strings.TrimSpace(envelope.MerchantRef),
		ErrorCode:                 envelope.ErrorCode,
		ErrorMessage:              envelope.ErrorMessage,
		PurchaseAmountCents:       parseInt(envelope.PurchaseAmount),
		CardType:                  envelope.CardType,
		BatchNumber:               parseInt(envelope.BatchNumber),
		AuthorizeID:               envelope.AuthorizeID,
		ShoppingTransactionNumber: parseInt(envelope.ShoppingTransactionNumber),
		AcquirerName:              envelope.AcquirerName,
		AcquirerMerchantID:        envelope.AcquirerMerchantID,
		AcquirerResponseCode:      envelope.AcquirerResponseCode,
		QSIResponseCode:           envelope.QSIResponseCode,
		CSCResultCode:             envelope.CSCResultCode,
		AVSResultCode:             envelope.AVSResultCode,
		ReturnReceiptNumber:       envelope.ReturnReceiptNumber,
		Locale:                    envelope.Locale,
		RequestIP:                 envelope.RequestIP,
		RequestUserAgent:          envelope.RequestUserAgent,
		RequestHTTPReferrer:       envelope.RequestHTTPReferrer,
		PaymentRequestTime:        envelope.PaymentRequestTime,
		DigitalOrderTime:          envelope.DigitalOrderTime,
		DigitalReceiptTime:        envelope.DigitalReceiptTime,
		TransactionTime:           p.parseTransactionTime(envelope.TransactionTime),
	}

	if envelope.Authentication != nil {
		result.Authentication = AuthenticationData{
			AuthenticationResult: envelope.Authentication.AuthenticationResult,
			ECI:                  envelope.Authentication.ECI,
			XID:                  envelope.Authentication.XID,
			CAVV:                 envelope.Authentication.CAVV,
			VerifyStatus:         envelope.Authentication.VerifyStatus,
			VerifyToken:          envelope.Authentication.VerifyToken,
			VerifyType:           envelope.Authentication.VerifyType,
			VerifySecurityLevel:  envelope.Authentication.VerifySecurityLevel,
		}
	}

	result.Valid = result.TransactionID != "" && result.MerchantSession != "" && result.MerchantRef != ""

	if !result.Valid {
		p.logger.Warn("postback missing required fields",
			zap.Bool("has_transaction_id", result.TransactionID != ""),
			zap.Bool("has_merchant_session", result.MerchantSession != ""),
			zap.Bool("has_merchant_ref", result.MerchantRef != ""),
		)
	}

	return result, nil
}

// parseTransactionTime reinterprets the gateway's local timestamp as UTC.
func (p *PostbackParser) parseTransactionTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := timeutil.ParseInLocationUTC(transactionTimeLayout, raw, p.location)
	if err != nil {
		p.logger.Warn("unparseable transaction time", zap.String("value", raw), zap.Error(err))
		return time.Time{}
	}
	return t
}

// parseInt coerces a numeric postback field, tolerating blanks and junk.
func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
