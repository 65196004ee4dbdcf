package paystation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const successResponse = `<?xml version="1.0" standalone="yes"?>
<InitiationRequestResponse>
  <PaystationTransactionID>0008813023-01</PaystationTransactionID>
  <DigitalOrder>https://www.paystation.co.nz/hosted/?hk=abc123</DigitalOrder>
</InitiationRequestResponse>`

const errorResponse = `<?xml version="1.0" standalone="yes"?>
<InitiationRequestResponse>
  <PaystationErrorCode>10</PaystationErrorCode>
  <PaystationErrorMessage>Invalid Paystation ID</PaystationErrorMessage>
</InitiationRequestResponse>`

func validInitiationRequest() *ports.InitiationRequest {
	return &ports.InitiationRequest{
		AccountID:       "500600",
		GatewayID:       "FORMS",
		MerchantSession: "42-1700000000",
		MerchantRef:     "form 7 submission 42",
		Currency:        "NZD",
		AmountCents:     1500,
	}
}

func TestInitiateSuccess(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())
	result, err := adapter.Initiate(context.Background(), validInitiationRequest())

	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, "0008813023-01", result.TransactionID)
	assert.Equal(t, "https://www.paystation.co.nz/hosted/?hk=abc123", result.DigitalOrder)

	assert.Equal(t, "_empty", received.Get("paystation"))
	assert.Equal(t, "500600", received.Get("pstn_pi"))
	assert.Equal(t, "FORMS", received.Get("pstn_gi"))
	assert.Equal(t, "42-1700000000", received.Get("pstn_ms"))
	assert.Equal(t, "form 7 submission 42", received.Get("pstn_mr"))
	assert.Equal(t, "1500", received.Get("pstn_am"))
	assert.Equal(t, "NZD", received.Get("pstn_cu"))
	assert.Equal(t, "t", received.Get("pstn_nr"))
	assert.False(t, received.Has("pstn_tm"))
	assert.False(t, received.Has("pstn_mc"))
	assert.False(t, received.Has("pstn_mo"))
}

func TestInitiateOptionalFields(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	req := validInitiationRequest()
	req.TestMode = true
	req.CustomerDetails = "Jane Smith <jane@example.com>"
	req.OrderDetails = strings.Repeat("x", 300)

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())
	_, err := adapter.Initiate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "t", received.Get("pstn_tm"))
	assert.Equal(t, "Jane Smith jane@example.com", received.Get("pstn_mc"))
	assert.Len(t, received.Get("pstn_mo"), maxDetailsLen)
}

func TestInitiateTruncatesMerchantRef(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	req := validInitiationRequest()
	req.MerchantRef = strings.Repeat("r", 100)

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())
	_, err := adapter.Initiate(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, received.Get("pstn_mr"), maxRefLen)
}

func TestInitiateGatewayDecline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(errorResponse))
	}))
	defer server.Close()

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())
	result, err := adapter.Initiate(context.Background(), validInitiationRequest())

	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, "10", result.ErrorCode)
	assert.Equal(t, "Invalid Paystation ID", result.ErrorMessage)
}

func TestInitiateValidation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(successResponse))
	}))
	defer server.Close()

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())

	tests := []struct {
		name   string
		mutate func(*ports.InitiationRequest)
	}{
		{name: "zero amount", mutate: func(r *ports.InitiationRequest) { r.AmountCents = 0 }},
		{name: "negative amount", mutate: func(r *ports.InitiationRequest) { r.AmountCents = -100 }},
		{name: "missing account id", mutate: func(r *ports.InitiationRequest) { r.AccountID = "" }},
		{name: "missing gateway id", mutate: func(r *ports.InitiationRequest) { r.GatewayID = "" }},
		{name: "missing merchant session", mutate: func(r *ports.InitiationRequest) { r.MerchantSession = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validInitiationRequest()
			tt.mutate(req)

			_, err := adapter.Initiate(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, domain.ErrorCodeValidationFailed, domain.GetErrorCode(err))
		})
	}

	// An invalid request never reaches the wire.
	assert.Zero(t, calls)
}

func TestInitiateGatewayUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL, Timeout: time.Second}, zap.NewNop())
	_, err := adapter.Initiate(context.Background(), validInitiationRequest())

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayUnreachable, domain.GetErrorCode(err))
	assert.True(t, domain.IsGatewayError(err))
}

func TestInitiateMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not xml", body: "<html>Bad Gateway</html"},
		{name: "empty envelope", body: "<InitiationRequestResponse></InitiationRequestResponse>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewInitiationAdapter(&InitiationConfig{EndpointURL: server.URL}, zap.NewNop())
			_, err := adapter.Initiate(context.Background(), validInitiationRequest())

			require.Error(t, err)
			assert.Equal(t, domain.ErrorCodeGatewayResponseInvalid, domain.GetErrorCode(err))
		})
	}
}
