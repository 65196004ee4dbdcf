package ports

import "context"

// InitiationRequest is the outbound payment-initiation request. The postback
// shared secret is adapter configuration and is never part of a request.
type InitiationRequest struct {
	AccountID       string // pstn_pi
	GatewayID       string // pstn_gi
	MerchantSession string // pstn_ms, binds the transaction to a submission
	MerchantRef     string // pstn_mr
	CustomerDetails string // pstn_mc, optional
	OrderDetails    string // pstn_mo, optional
	Currency        string // pstn_cu
	AmountCents     int64  // pstn_am, minor units, must be > 0
	TestMode        bool   // pstn_tm
}

// InitiationResult is the parsed synchronous gateway response.
type InitiationResult struct {
	TransactionID string
	DigitalOrder  string // hosted payment page URL; non-empty means success
	ErrorCode     string
	ErrorMessage  string
}

// Succeeded reports whether the gateway handed back a hosted payment URL.
func (r *InitiationResult) Succeeded() bool {
	return r.DigitalOrder != ""
}

// PaymentGateway issues the blocking initiation round trip.
type PaymentGateway interface {
	Initiate(ctx context.Context, req *InitiationRequest) (*InitiationResult, error)
}
