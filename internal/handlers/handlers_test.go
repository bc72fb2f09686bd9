package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/external"
	"yoyaku/internal/models"
	"yoyaku/internal/payment"
	"yoyaku/internal/pricing"
	"yoyaku/internal/service"
	"yoyaku/internal/validation"
)

// ---- in-memory backends ----

type memReservations struct {
	byID map[string]*models.Reservation
	seq  int
}

func (m *memReservations) Create(_ context.Context, res *models.Reservation) error {
	m.seq++
	res.ID = fmt.Sprintf("res-%d", m.seq)
	if m.byID == nil {
		m.byID = map[string]*models.Reservation{}
	}
	m.byID[res.ID] = res
	return nil
}

func (m *memReservations) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	return m.byID[id], nil
}

func (m *memReservations) UpdateStatus(_ context.Context, id, status string, _ *string, _ string) error {
	if res, ok := m.byID[id]; ok {
		res.Status = status
	}
	return nil
}

func (m *memReservations) List(_ context.Context, _ models.AdminReservationsQuery) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range m.byID {
		out = append(out, *r)
	}
	return out, nil
}

type memPayments struct {
	rows map[string]*models.Payment
}

func (m *memPayments) Create(_ context.Context, p *models.Payment) error {
	if m.rows == nil {
		m.rows = map[string]*models.Payment{}
	}
	m.rows[p.OrderID] = p
	return nil
}

func (m *memPayments) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	return m.rows[orderID], nil
}

func (m *memPayments) MarkCaptured(_ context.Context, orderID, paymentID string, amount int64) error {
	if row, ok := m.rows[orderID]; ok {
		row.Status = models.PaymentCaptured
		row.PaymentID = &paymentID
		row.Amount = amount
	}
	return nil
}

func (m *memPayments) UpdateStatus(_ context.Context, orderID, status string) error {
	if row, ok := m.rows[orderID]; ok {
		row.Status = status
	}
	return nil
}

func (m *memPayments) AttachReservation(_ context.Context, orderID, reservationID string) error {
	if row, ok := m.rows[orderID]; ok {
		row.ReservationID = &reservationID
	}
	return nil
}

type memRestaurants struct{}

func (memRestaurants) GetByID(_ context.Context, id int64) (*models.Restaurant, error) {
	if id == 7 {
		return &models.Restaurant{ID: 7, Name: "Sakura Garden"}, nil
	}
	return nil, nil
}

func (memRestaurants) Create(_ context.Context, restaurant *models.Restaurant) error {
	restaurant.ID = 8
	return nil
}

type memGateway struct {
	reach      payment.Reachability
	initErr    error
	captureErr error
}

func (g *memGateway) SelfTest(context.Context) payment.Reachability { return g.reach }

func (g *memGateway) InitSession(requestID string, amount int64, currency, _, _ string) (*payment.Session, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.Session{RequestID: requestID, OrderRef: "order-1", Amount: amount, Currency: currency}, nil
}

func (g *memGateway) CreateOrder(context.Context, string) (string, error) { return "pay-1", nil }

func (g *memGateway) CaptureOrder(context.Context, string) (*payment.CaptureResult, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return &payment.CaptureResult{TransactionID: "txn-42", CapturedAmount: 1000, RequestedAmount: 1000, Status: "succeeded"}, nil
}

func (g *memGateway) Cancel(context.Context, string) {}

type memAuditLogs struct{}

func (memAuditLogs) ListByTarget(_ context.Context, targetID string) ([]models.AuditLog, error) {
	detail := "status=confirmed"
	return []models.AuditLog{{
		ID:       1,
		Actor:    "staff@yoyaku.example",
		Action:   "reservation.status_update",
		TargetID: targetID,
		Detail:   &detail,
	}}, nil
}

type memMailer struct{}

func (memMailer) Send(context.Context, external.SendRequest) (string, error) { return "msg-1", nil }
func (memMailer) FromAddr() string                                           { return "reservations@yoyaku.example" }
func (memMailer) AdminAddr() string                                          { return "ops@yoyaku.example" }

type memPlans struct{}

func (memPlans) ActivePlans(context.Context) ([]models.PricePlan, error) {
	return []models.PricePlan{
		{ID: 1, Name: "small", MinPartySize: 1, MaxPartySize: 4, Amount: 1000, Currency: "JPY", IsActive: true},
	}, nil
}

// ---- router fixture ----

type testEnv struct {
	router  *gin.Engine
	gateway *memGateway
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway := &memGateway{reach: payment.Reachable}
	reservationSvc := service.NewReservationService(
		&memReservations{},
		&memPayments{},
		memRestaurants{},
		memAuditLogs{},
		gateway,
		pricing.NewResolver(memPlans{}),
		service.NewNotificationService(memMailer{}),
		nil,
		validation.NewValidator(90),
	)

	h := NewHandlers(&service.Services{
		Reservations: reservationSvc,
		Plans:        service.NewPlanService(memPlans{}),
	}, nil, "support@yoyaku.example", "+81-3-1234-5678")

	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/price-plans", h.ListPricePlans)

		reservations := api.Group("/reservations")
		{
			reservations.POST("/checkout", h.Checkout)
			reservations.POST("/checkout/abort", h.AbortCheckout)
			reservations.POST("/fallback", h.Fallback)
			reservations.GET("/:id", h.GetReservation)
			reservations.GET("/:id/qr", h.GetReservationQR)
			reservations.POST("/:id/resend", h.ResendConfirmation)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/success", h.NotifyPaymentCompleted)
			payments.GET("/fail", h.NotifyPaymentFailed)
			payments.POST("/notifications", h.OnPaymentUpdates)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/reservations/:id/audit", h.AdminReservationAudit)
		}
	}
	r.GET("/health", h.Health)

	return &testEnv{router: r, gateway: gateway}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func checkoutBody() models.CheckoutRequest {
	return models.CheckoutRequest{
		RequestID:       "req-1",
		RestaurantID:    7,
		ReservationDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		ReservationTime: "18:30",
		PartySize:       4,
		Name:            "Tanaka Yuki",
		Email:           "yuki@example.com",
		Phone:           "+81-90-1234-5678",
		Locale:          "ja",
	}
}

// ---- tests ----

func TestCheckoutEndpoint(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "res-1", resp.ReservationID)
	assert.Equal(t, models.PaymentStatusCompleted, resp.PaymentStatus)
	assert.Equal(t, "txn-42", resp.TransactionID)
	assert.True(t, resp.EmailSent)
}

func TestCheckoutEndpointValidationFields(t *testing.T) {
	env := setupRouter(t)

	body := checkoutBody()
	body.Email = "nope"

	w := postJSON(t, env.router, "/api/reservations/checkout", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "email")
}

func TestCheckoutEndpointOffersFallbackWhenBlocked(t *testing.T) {
	env := setupRouter(t)
	env.gateway.reach = payment.Blocked

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var offer models.FallbackOffer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &offer))
	assert.True(t, offer.Blocked)
	assert.Equal(t, "support@yoyaku.example", offer.ContactEmail)
}

func TestCheckoutEndpointDecline(t *testing.T) {
	env := setupRouter(t)
	env.gateway.captureErr = &apperrors.CaptureError{OrderID: "order-1", Reason: "insufficient funds"}

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp struct {
		Reason    string `json:"reason"`
		Retryable bool   `json:"retryable"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient funds", resp.Reason)
	assert.True(t, resp.Retryable)
}

func TestCheckoutEndpointThrottled(t *testing.T) {
	env := setupRouter(t)
	env.gateway.initErr = payment.ErrAttemptThrottled

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCheckoutEndpointCompletedAttempt(t *testing.T) {
	env := setupRouter(t)
	env.gateway.initErr = apperrors.ErrAttemptCompleted

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFallbackEndpoint(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/fallback", models.FallbackRequest{
		RestaurantID:    7,
		ReservationDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		ReservationTime: "19:00",
		PartySize:       6,
		Name:            "Kim Minji",
		Email:           "minji@example.com",
		Phone:           "+82-10-1234-5678",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.FallbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.PaymentStatusPendingManual, resp.PaymentStatus)
}

func TestGetReservationEndpoint(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest("GET", "/api/reservations/res-1", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/api/reservations/res-missing", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAuditEndpoint(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest("GET", "/api/admin/reservations/res-1/audit", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []models.AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "reservation.status_update", entries[0].Action)

	req, _ = http.NewRequest("GET", "/api/admin/reservations/res-missing/audit", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQREndpointReturnsPNG(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest("GET", "/api/reservations/res-1/qr", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))
}

func TestResendEndpoint(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/reservations/checkout", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)

	req, _ := http.NewRequest("POST", "/api/reservations/res-1/resend", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ResendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Sent)
}

func TestPaymentWebhookAcksUnknownOrder(t *testing.T) {
	env := setupRouter(t)

	w := postJSON(t, env.router, "/api/payments/notifications", models.PaymentNotificationPayload{
		OrderID: "order-missing",
		Status:  "succeeded",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentRedirectsRequireOrderID(t *testing.T) {
	env := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/payments/success", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ = http.NewRequest("GET", "/api/payments/success?orderId=order-1", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPricePlansEndpoint(t *testing.T) {
	env := setupRouter(t)

	req, _ := http.NewRequest("GET", "/api/price-plans", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var plans []models.PricePlanResponseItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	require.Len(t, plans, 1)
	assert.Equal(t, int64(1000), plans[0].Amount)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupRouter(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
