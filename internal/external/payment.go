package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"
)

// PaymentClient talks to the card-payment gateway. Every request is signed
// with a SHA-256 token over the alphabetically sorted request parameters.
type PaymentClient struct {
	baseURL     string
	merchantID  string
	secret      string
	pingTimeout time.Duration
	httpClient  *http.Client
}

type PaymentConfig struct {
	BaseURL    string
	MerchantID string
	Secret     string
	Timeout    time.Duration
	// PingTimeout bounds the reachability probe; it is deliberately shorter
	// than the request timeout so a dead backend is detected quickly.
	PingTimeout time.Duration
}

type OrderInitRequest struct {
	MerchantID  string `json:"merchantId"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
	Language    string `json:"language,omitempty"`
}

type OrderInitResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	ExpiresAt string `json:"expiresAt"`
	CreatedAt string `json:"createdAt"`
}

type CaptureResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	PaymentID     string `json:"paymentId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Message       string `json:"message,omitempty"`
}

type PaymentCheckResponse struct {
	Success  bool             `json:"success"`
	Payments []PaymentDetails `json:"payments"`
	OrderID  string           `json:"orderId"`
}

type PaymentDetails struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	return &PaymentClient{
		baseURL:     cfg.BaseURL,
		merchantID:  cfg.MerchantID,
		secret:      cfg.Secret,
		pingTimeout: cfg.PingTimeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs the request: concatenate the values of the sorted
// parameter set (merchant id and secret included) and hash with SHA-256.
func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["MerchantId"] = pc.merchantID
	params["Secret"] = pc.secret

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

func (pc *PaymentClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("gateway returned status %d for %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// InitOrder creates a provider-side order for the given amount
func (pc *PaymentClient) InitOrder(ctx context.Context, amount int64, orderID, currency, description, language string) (*OrderInitResponse, error) {
	token := pc.generateToken(map[string]string{
		"Amount":   strconv.FormatInt(amount, 10),
		"Currency": currency,
		"OrderId":  orderID,
	})

	req := OrderInitRequest{
		MerchantID:  pc.merchantID,
		Token:       token,
		Amount:      amount,
		OrderID:     orderID,
		Currency:    currency,
		Description: description,
		Language:    language,
	}

	var result OrderInitResponse
	if err := pc.post(ctx, "/api/v1/orders/init", req, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, fmt.Errorf("order init rejected for order %s (status %s)", orderID, result.Status)
	}

	return &result, nil
}

// Capture turns the authorization into an irreversible charge and returns
// the transaction id plus the amount that was actually captured.
func (pc *PaymentClient) Capture(ctx context.Context, paymentID string, amount int64) (*CaptureResponse, error) {
	token := pc.generateToken(map[string]string{
		"Amount":    strconv.FormatInt(amount, 10),
		"PaymentId": paymentID,
	})

	req := map[string]interface{}{
		"merchantId": pc.merchantID,
		"token":      token,
		"paymentId":  paymentID,
		"amount":     amount,
	}

	var result CaptureResponse
	if err := pc.post(ctx, "/api/v1/orders/capture", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// CheckPayment queries the provider-side view of a payment. Used by the
// reconciliation job, not by the interactive checkout.
func (pc *PaymentClient) CheckPayment(ctx context.Context, paymentID string) (*PaymentCheckResponse, error) {
	token := pc.generateToken(map[string]string{
		"PaymentId": paymentID,
	})

	req := map[string]interface{}{
		"merchantId": pc.merchantID,
		"token":      token,
		"paymentId":  paymentID,
	}

	var result PaymentCheckResponse
	if err := pc.post(ctx, "/api/v1/orders/check", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// CancelOrder aborts an uncaptured order. No retry on failure: the order
// simply expires provider-side.
func (pc *PaymentClient) CancelOrder(ctx context.Context, paymentID, reason string) error {
	token := pc.generateToken(map[string]string{
		"PaymentId": paymentID,
	})

	req := map[string]interface{}{
		"merchantId": pc.merchantID,
		"token":      token,
		"paymentId":  paymentID,
		"reason":     reason,
	}

	return pc.post(ctx, "/api/v1/orders/cancel", req, nil)
}

// Ping is a lightweight reachability probe against the gateway health
// endpoint, bounded by its own short timeout.
func (pc *PaymentClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pc.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, pc.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health returned status %d", resp.StatusCode)
	}

	return nil
}
