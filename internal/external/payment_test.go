package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *PaymentClient {
	return NewPaymentClient(PaymentConfig{
		BaseURL:    baseURL,
		MerchantID: "merchant-1",
		Secret:     "s3cret",
	})
}

// expectedToken mirrors the gateway's token check: sha256 over the values of
// the alphabetically sorted parameter set.
func expectedToken(params map[string]string) string {
	params["MerchantId"] = "merchant-1"
	params["Secret"] = "s3cret"

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

func TestInitOrderSignsRequest(t *testing.T) {
	var received OrderInitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/orders/init", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(OrderInitResponse{
			Success:   true,
			PaymentID: "pay-1",
			OrderID:   received.OrderID,
			Status:    "initiated",
			Amount:    received.Amount,
			Currency:  received.Currency,
		})
	}))
	defer server.Close()

	resp, err := testClient(server.URL).InitOrder(context.Background(), 1000, "order-1", "JPY", "Reservation fee", "ja")
	require.NoError(t, err)

	assert.Equal(t, "pay-1", resp.PaymentID)
	assert.Equal(t, "merchant-1", received.MerchantID)
	assert.Equal(t, expectedToken(map[string]string{
		"Amount":   "1000",
		"Currency": "JPY",
		"OrderId":  "order-1",
	}), received.Token)
}

func TestInitOrderRejectionIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OrderInitResponse{Success: false, Status: "rejected"})
	}))
	defer server.Close()

	_, err := testClient(server.URL).InitOrder(context.Background(), 1000, "order-1", "JPY", "", "")
	assert.Error(t, err)
}

func TestCaptureReturnsTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/orders/capture", r.URL.Path)
		json.NewEncoder(w).Encode(CaptureResponse{
			Success:       true,
			TransactionID: "txn-9",
			PaymentID:     "pay-1",
			Status:        "captured",
			Amount:        1000,
		})
	}))
	defer server.Close()

	resp, err := testClient(server.URL).Capture(context.Background(), "pay-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, "txn-9", resp.TransactionID)
	assert.Equal(t, int64(1000), resp.Amount)
}

func TestPostSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Capture(context.Background(), "pay-1", 1000)
	assert.ErrorContains(t, err, "status 502")
}

func TestPingChecksHealthEndpoint(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	assert.NoError(t, testClient(healthy.URL).Ping(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.Error(t, testClient(down.URL).Ping(context.Background()))
}

func TestPingHonorsConfiguredTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	client := NewPaymentClient(PaymentConfig{
		BaseURL:     slow.URL,
		MerchantID:  "merchant-1",
		Secret:      "s3cret",
		PingTimeout: 20 * time.Millisecond,
	})
	assert.Error(t, client.Ping(context.Background()))
}
