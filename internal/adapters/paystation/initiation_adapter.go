package paystation

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Paystation/paystation-gravity-forms/internal/domain"
	"github.com/Paystation/paystation-gravity-forms/internal/domain/ports"
	pkghttp "github.com/Paystation/paystation-gravity-forms/pkg/http"
	"go.uber.org/zap"
)

// Field length limits documented for the initiation request. Oversized values
// are truncated after validation, never rejected.
const (
	maxSessionLen  = 50
	maxRefLen      = 64
	maxDetailsLen  = 255
	defaultTimeout = 30 * time.Second
)

// InitiationConfig contains configuration for the Paystation initiation adapter
type InitiationConfig struct {
	// Endpoint for the three-party initiation request
	// Production: https://www.paystation.co.nz/direct/paystation.dll
	EndpointURL string

	// HTTP client timeout; expiry maps to GATEWAY_UNREACHABLE
	Timeout time.Duration
}

// DefaultInitiationConfig returns the production endpoint with the default timeout
func DefaultInitiationConfig() *InitiationConfig {
	return &InitiationConfig{
		EndpointURL: "https://www.paystation.co.nz/direct/paystation.dll",
		Timeout:     defaultTimeout,
	}
}

// initiationAdapter implements the ports.PaymentGateway port
type initiationAdapter struct {
	config     *InitiationConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewInitiationAdapter creates a new Paystation initiation adapter
func NewInitiationAdapter(config *InitiationConfig, logger *zap.Logger) ports.PaymentGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &initiationAdapter{
		config:     config,
		httpClient: pkghttp.NewClient(pkghttp.GatewayClientConfig(), timeout),
		logger:     logger,
	}
}

// Initiate sends the payment-initiation request and parses the synchronous XML
// response. On validation failure the request is never sent. On transport
// failure no partial state is recorded here; the caller decides how to surface it.
func (a *initiationAdapter) Initiate(ctx context.Context, req *ports.InitiationRequest) (*ports.InitiationResult, error) {
	if err := a.validateRequest(req); err != nil {
		a.logger.Error("invalid initiation request", zap.Error(err))
		return nil, err
	}

	formData := a.buildFormData(req)

	a.logger.Info("initiating payment",
		zap.String("merchant_session", formData.Get("pstn_ms")),
		zap.Int64("amount_cents", req.AmountCents),
		zap.String("gateway_id", req.GatewayID),
		zap.Bool("test_mode", req.TestMode),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.EndpointURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayUnreachable, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	startTime := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.logger.Error("initiation request failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(startTime)),
		)
		return nil, domain.WrapError(domain.ErrorCodeGatewayUnreachable, "gateway unreachable", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayUnreachable, "failed to read gateway response", err)
	}

	result, err := a.parseResponse(body)
	if err != nil {
		a.logger.Error("failed to parse initiation response",
			zap.Error(err),
			zap.Int("body_length", len(body)),
		)
		return nil, err
	}

	a.logger.Info("initiation response received",
		zap.String("transaction_id", result.TransactionID),
		zap.Bool("succeeded", result.Succeeded()),
		zap.String("error_code", result.ErrorCode),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return result, nil
}

// validateRequest rejects a request that must never reach the wire.
func (a *initiationAdapter) validateRequest(req *ports.InitiationRequest) error {
	if req.AccountID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "account id is required")
	}
	if req.GatewayID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "gateway id is required")
	}
	if req.MerchantSession == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "merchant session is required")
	}
	if req.AmountCents <= 0 {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed,
			fmt.Sprintf("amount must be a positive integer of minor units, got %d", req.AmountCents))
	}
	return nil
}

// buildFormData constructs the URL-encoded body. Truncation and sanitization
// are applied here, after validation.
func (a *initiationAdapter) buildFormData(req *ports.InitiationRequest) url.Values {
	data := url.Values{}

	// Fixed action flag; the gateway dispatches on its presence.
	data.Set("paystation", "_empty")

	data.Set("pstn_pi", req.AccountID)
	data.Set("pstn_gi", req.GatewayID)
	data.Set("pstn_ms", truncate(req.MerchantSession, maxSessionLen))
	data.Set("pstn_mr", truncate(sanitizeText(req.MerchantRef), maxRefLen))
	data.Set("pstn_am", strconv.FormatInt(req.AmountCents, 10))
	data.Set("pstn_cu", req.Currency)
	data.Set("pstn_nr", "t")

	if req.TestMode {
		data.Set("pstn_tm", "t")
	}
	if req.CustomerDetails != "" {
		data.Set("pstn_mc", truncate(sanitizeText(req.CustomerDetails), maxDetailsLen))
	}
	if req.OrderDetails != "" {
		data.Set("pstn_mo", truncate(sanitizeText(req.OrderDetails), maxDetailsLen))
	}

	return data
}

// initiationResponse is the synchronous XML envelope returned by the gateway.
type initiationResponse struct {
	XMLName       xml.Name `xml:"InitiationRequestResponse"`
	TransactionID string   `xml:"PaystationTransactionID"`
	DigitalOrder  string   `xml:"DigitalOrder"`
	ErrorCode     string   `xml:"PaystationErrorCode"`
	ErrorMessage  string   `xml:"PaystationErrorMessage"`
}

// parseResponse decodes the XML body. A response with neither a hosted-payment
// URL nor an error code carries no usable outcome and is treated as malformed.
func (a *initiationAdapter) parseResponse(body []byte) (*ports.InitiationResult, error) {
	var resp initiationResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayResponseInvalid, "malformed gateway response", err)
	}

	digitalOrder := strings.TrimSpace(resp.DigitalOrder)
	errorCode := strings.TrimSpace(resp.ErrorCode)

	if digitalOrder == "" && errorCode == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayResponseInvalid,
			"gateway response carries neither a digital order URL nor an error code")
	}

	return &ports.InitiationResult{
		TransactionID: strings.TrimSpace(resp.TransactionID),
		DigitalOrder:  digitalOrder,
		ErrorCode:     errorCode,
		ErrorMessage:  strings.TrimSpace(resp.ErrorMessage),
	}, nil
}
