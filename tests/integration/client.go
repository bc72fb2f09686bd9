package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"yoyaku/internal/models"
)

// TestClient drives a running API instance over HTTP
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ListRestaurants fetches the browse list
func (c *TestClient) ListRestaurants(t *testing.T, query string) []models.ListRestaurantsResponseItem {
	t.Helper()

	path := "/api/restaurants"
	if query != "" {
		path += "?query=" + query
	}

	resp := c.makeRequest(t, "GET", path, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var restaurants []models.ListRestaurantsResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&restaurants); err != nil {
		t.Fatalf("Failed to decode restaurants response: %v", err)
	}

	return restaurants
}

// ListPricePlans fetches the active fee tiers
func (c *TestClient) ListPricePlans(t *testing.T) []models.PricePlanResponseItem {
	t.Helper()

	resp := c.makeRequest(t, "GET", "/api/price-plans", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var plans []models.PricePlanResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&plans); err != nil {
		t.Fatalf("Failed to decode price plans response: %v", err)
	}

	return plans
}

// Checkout runs one paid reservation attempt and returns the raw response,
// because several tests care about the failure statuses.
func (c *TestClient) Checkout(t *testing.T, req *models.CheckoutRequest) *http.Response {
	t.Helper()
	return c.makeRequest(t, "POST", "/api/reservations/checkout", req)
}

// CheckoutOK runs a checkout that is expected to succeed
func (c *TestClient) CheckoutOK(t *testing.T, req *models.CheckoutRequest) *models.CheckoutResponse {
	t.Helper()

	resp := c.Checkout(t, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, body)
	}

	var checkout models.CheckoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		t.Fatalf("Failed to decode checkout response: %v", err)
	}

	return &checkout
}

// Fallback records a manual-payment reservation
func (c *TestClient) Fallback(t *testing.T, req *models.FallbackRequest) *models.FallbackResponse {
	t.Helper()

	resp := c.makeRequest(t, "POST", "/api/reservations/fallback", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, body)
	}

	var fallback models.FallbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&fallback); err != nil {
		t.Fatalf("Failed to decode fallback response: %v", err)
	}

	return &fallback
}

// GetReservation fetches the confirmation view
func (c *TestClient) GetReservation(t *testing.T, id string) map[string]json.RawMessage {
	t.Helper()

	resp := c.makeRequest(t, "GET", "/api/reservations/"+id, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode reservation response: %v", err)
	}

	return body
}

// GetQR fetches the confirmation QR PNG
func (c *TestClient) GetQR(t *testing.T, id string) []byte {
	t.Helper()

	resp := c.makeRequest(t, "GET", fmt.Sprintf("/api/reservations/%s/qr", id), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read QR body: %v", err)
	}

	return png
}

// Health checks the health endpoint
func (c *TestClient) Health(t *testing.T) int {
	t.Helper()

	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()
	return resp.StatusCode
}
