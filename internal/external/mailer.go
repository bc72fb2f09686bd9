package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailerClient talks to the templated-email delivery provider
type MailerClient struct {
	baseURL    string
	apiKey     string
	fromAddr   string
	adminAddr  string
	httpClient *http.Client
}

type MailerConfig struct {
	BaseURL   string
	APIKey    string
	FromAddr  string
	AdminAddr string
	Timeout   time.Duration
}

// SendRequest - one templated send. Variables are substituted provider-side.
type SendRequest struct {
	To        string            `json:"to"`
	From      string            `json:"from"`
	Subject   string            `json:"subject"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables"`
}

type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Error     string `json:"error,omitempty"`
}

func NewMailerClient(cfg MailerConfig) *MailerClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &MailerClient{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		fromAddr:  cfg.FromAddr,
		adminAddr: cfg.AdminAddr,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FromAddr returns the configured sender address
func (mc *MailerClient) FromAddr() string { return mc.fromAddr }

// AdminAddr returns the operator alert recipient
func (mc *MailerClient) AdminAddr() string { return mc.adminAddr }

// Send submits one templated email and returns the provider message id
func (mc *MailerClient) Send(ctx context.Context, req SendRequest) (string, error) {
	if req.From == "" {
		req.From = mc.fromAddr
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.baseURL+"/api/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+mc.apiKey)

	resp, err := mc.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode send response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("mail provider returned status %d: %s", resp.StatusCode, result.Error)
	}

	if !result.Success {
		return "", fmt.Errorf("mail provider rejected message: %s", result.Error)
	}

	return result.MessageID, nil
}
