package paystation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRedirectResult(t *testing.T) {
	query := url.Values{}
	query.Set("ti", "0008813023-01")
	query.Set("ec", "0")
	query.Set("em", "Transaction successful")
	query.Set("ms", "42-1700000000")
	query.Set("am", "1500")
	query.Set("futurepay", "300000123")

	result := ParseRedirectResult(query)

	assert.True(t, result.Valid)
	assert.True(t, result.Approved())
	assert.Equal(t, "0008813023-01", result.TransactionID)
	assert.Equal(t, "42-1700000000", result.MerchantSession)
	assert.Equal(t, "1500", result.Amount)
	assert.Equal(t, "300000123", result.FuturePayToken)
}

func TestParseRedirectResultMissingRequiredKey(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{name: "missing transaction id", omit: "ti"},
		{name: "missing error code", omit: "ec"},
		{name: "missing error message", omit: "em"},
		{name: "missing merchant session", omit: "ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := url.Values{}
			query.Set("ti", "0008813023-01")
			query.Set("ec", "0")
			query.Set("em", "ok")
			query.Set("ms", "42-1700000000")
			query.Del(tt.omit)

			result := ParseRedirectResult(query)
			assert.False(t, result.Valid)
		})
	}
}

func TestRedirectResultApproved(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{code: "0", want: true},
		{code: " 0 ", want: true},
		{code: "00", want: false},
		{code: "4", want: false},
		{code: "", want: false},
	}

	for _, tt := range tests {
		result := &RedirectResult{ErrorCode: tt.code}
		assert.Equal(t, tt.want, result.Approved(), "code %q", tt.code)
	}
}

func TestParseRedirectResultEmptyValuesStillValid(t *testing.T) {
	// Present-but-empty keys satisfy the shape check; a decline can carry an
	// empty message.
	query, _ := url.ParseQuery("ti=0008813023-01&ec=4&em=&ms=42-1700000000")

	result := ParseRedirectResult(query)
	assert.True(t, result.Valid)
	assert.False(t, result.Approved())
	assert.Equal(t, "", result.ErrorMessage)
}
