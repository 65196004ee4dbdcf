package paystation

import (
	"net/url"
	"strings"
)

// RedirectResult is the parsed browser-redirect return. The query string is
// attacker-controllable (a browser can be pointed at the return endpoint by
// hand), so a shape mismatch is an expected outcome, not an error, and the
// error code here is advisory only. Authoritative state comes solely from the
// server postback.
type RedirectResult struct {
	TransactionID   string
	ErrorCode       string
	ErrorMessage    string
	MerchantSession string
	Amount          string // optional
	FuturePayToken  string // optional

	// Valid is true only when every required key was present.
	Valid bool
}

// Approved reports whether the advisory error code signals success. Compared
// as a trimmed string; the gateway zero-pads nothing and "00" is not success.
func (r *RedirectResult) Approved() bool {
	return strings.TrimSpace(r.ErrorCode) == "0"
}

// ParseRedirectResult parses the redirect query parameters. Required keys are
// ti (transaction id), ec (error code), em (error message) and ms (merchant
// session); am and futurepay are optional. Missing required keys yield
// Valid=false and the caller treats the request as unrelated traffic.
func ParseRedirectResult(query url.Values) *RedirectResult {
	result := &RedirectResult{
		TransactionID:   query.Get("ti"),
		ErrorCode:       query.Get("ec"),
		ErrorMessage:    query.Get("em"),
		MerchantSession: query.Get("ms"),
		Amount:          query.Get("am"),
		FuturePayToken:  query.Get("futurepay"),
	}

	result.Valid = query.Has("ti") && query.Has("ec") && query.Has("em") && query.Has("ms")

	return result
}
