package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/models"
	"yoyaku/internal/payment"
	"yoyaku/internal/pricing"
	"yoyaku/internal/validation"
)

// ---- fakes ----

type fakeReservations struct {
	created   []*models.Reservation
	createErr error
	byID      map[string]*models.Reservation
}

func (f *fakeReservations) Create(_ context.Context, res *models.Reservation) error {
	if f.createErr != nil {
		return f.createErr
	}
	res.ID = fmt.Sprintf("res-%d", len(f.created)+1)
	res.CreatedAt = time.Now()
	f.created = append(f.created, res)
	if f.byID == nil {
		f.byID = map[string]*models.Reservation{}
	}
	f.byID[res.ID] = res
	return nil
}

func (f *fakeReservations) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	return f.byID[id], nil
}

func (f *fakeReservations) UpdateStatus(_ context.Context, id, status string, _ *string, _ string) error {
	res, ok := f.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	res.Status = status
	return nil
}

func (f *fakeReservations) List(_ context.Context, _ models.AdminReservationsQuery) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range f.created {
		out = append(out, *r)
	}
	return out, nil
}

type fakePayments struct {
	rows        map[string]*models.Payment
	createErr   error
	markCapErr  error
	markFailed  []string
	attached    map[string]string
	capturedAmt map[string]int64
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		rows:        map[string]*models.Payment{},
		attached:    map[string]string{},
		capturedAmt: map[string]int64{},
	}
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = int64(len(f.rows) + 1)
	f.rows[p.OrderID] = p
	return nil
}

func (f *fakePayments) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	return f.rows[orderID], nil
}

func (f *fakePayments) MarkCaptured(_ context.Context, orderID, paymentID string, capturedAmount int64) error {
	if f.markCapErr != nil {
		return f.markCapErr
	}
	if row, ok := f.rows[orderID]; ok {
		row.Status = models.PaymentCaptured
		row.PaymentID = &paymentID
		row.Amount = capturedAmount
	}
	f.capturedAmt[orderID] = capturedAmount
	return nil
}

func (f *fakePayments) UpdateStatus(_ context.Context, orderID, status string) error {
	if row, ok := f.rows[orderID]; ok {
		row.Status = status
	}
	if status == models.PaymentFailed {
		f.markFailed = append(f.markFailed, orderID)
	}
	return nil
}

func (f *fakePayments) AttachReservation(_ context.Context, orderID, reservationID string) error {
	f.attached[orderID] = reservationID
	return nil
}

type fakeRestaurants struct {
	restaurant *models.Restaurant
	created    []*models.Restaurant
}

func (f *fakeRestaurants) GetByID(_ context.Context, id int64) (*models.Restaurant, error) {
	if f.restaurant != nil && f.restaurant.ID == id {
		return f.restaurant, nil
	}
	return nil, nil
}

func (f *fakeRestaurants) Create(_ context.Context, restaurant *models.Restaurant) error {
	restaurant.ID = int64(100 + len(f.created))
	f.created = append(f.created, restaurant)
	return nil
}

type fakeAuditLogs struct {
	entries map[string][]models.AuditLog
}

func (f *fakeAuditLogs) ListByTarget(_ context.Context, targetID string) ([]models.AuditLog, error) {
	return f.entries[targetID], nil
}

type stubGateway struct {
	reach       payment.Reachability
	initErr     error
	createErr   error
	captureErr  error
	result      *payment.CaptureResult
	initCalls   int
	cancelCalls int
}

func (g *stubGateway) SelfTest(context.Context) payment.Reachability { return g.reach }

func (g *stubGateway) InitSession(requestID string, amount int64, currency, description, language string) (*payment.Session, error) {
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.Session{
		RequestID: requestID,
		OrderRef:  "order-1",
		Amount:    amount,
		Currency:  currency,
	}, nil
}

func (g *stubGateway) CreateOrder(context.Context, string) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	return "pay-1", nil
}

func (g *stubGateway) CaptureOrder(context.Context, string) (*payment.CaptureResult, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return g.result, nil
}

func (g *stubGateway) Cancel(context.Context, string) { g.cancelCalls++ }

type stubNotifier struct {
	confirmErr     error
	fallbackErr    error
	confirmations  int
	fallbackSends  int
	adminAlerts    []map[string]string
	lastRestaurant string
}

func (n *stubNotifier) SendConfirmation(_ context.Context, r *models.Reservation, name string) (string, error) {
	n.lastRestaurant = name
	if n.confirmErr != nil {
		return "", &apperrors.NotificationError{Recipient: r.Email, Err: n.confirmErr}
	}
	n.confirmations++
	return "msg-1", nil
}

func (n *stubNotifier) SendFallbackNotice(_ context.Context, r *models.Reservation, name string) (string, error) {
	n.lastRestaurant = name
	if n.fallbackErr != nil {
		return "", &apperrors.NotificationError{Recipient: r.Email, Err: n.fallbackErr}
	}
	n.fallbackSends++
	return "msg-2", nil
}

func (n *stubNotifier) SendAdminAlert(_ context.Context, _ string, detail map[string]string) error {
	n.adminAlerts = append(n.adminAlerts, detail)
	return nil
}

type stubPublisher struct {
	subjects []string
}

func (p *stubPublisher) Publish(subject string, _ interface{}) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

type failingPlanSource struct{}

func (failingPlanSource) ActivePlans(context.Context) ([]models.PricePlan, error) {
	return nil, errors.New("plans unavailable")
}

// ---- fixtures ----

type fixture struct {
	svc          *ReservationService
	reservations *fakeReservations
	payments     *fakePayments
	restaurants  *fakeRestaurants
	auditLogs    *fakeAuditLogs
	gateway      *stubGateway
	notifier     *stubNotifier
	publisher    *stubPublisher
}

func newFixture() *fixture {
	nameJa := "さくら庭園"
	f := &fixture{
		reservations: &fakeReservations{},
		payments:     newFakePayments(),
		gateway: &stubGateway{
			reach: payment.Reachable,
			result: &payment.CaptureResult{
				TransactionID:   "txn-42",
				CapturedAmount:  1000,
				RequestedAmount: 1000,
				Status:          "succeeded",
			},
		},
		auditLogs: &fakeAuditLogs{entries: map[string][]models.AuditLog{}},
		notifier:  &stubNotifier{},
		publisher: &stubPublisher{},
	}

	f.restaurants = &fakeRestaurants{restaurant: &models.Restaurant{
		ID:     7,
		Name:   "Sakura Garden",
		NameJa: &nameJa,
	}}

	f.svc = NewReservationService(
		f.reservations,
		f.payments,
		f.restaurants,
		f.auditLogs,
		f.gateway,
		pricing.NewResolver(failingPlanSource{}),
		f.notifier,
		f.publisher,
		validation.NewValidator(90),
	)
	return f
}

func checkoutRequest() *models.CheckoutRequest {
	return &models.CheckoutRequest{
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

func TestCheckoutSuccess(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "res-1", resp.ReservationID)
	assert.Equal(t, models.ReservationPending, resp.Status)
	assert.Equal(t, models.PaymentStatusCompleted, resp.PaymentStatus)
	assert.Equal(t, int64(1000), resp.Amount)
	assert.Equal(t, "txn-42", resp.TransactionID)
	assert.True(t, resp.EmailSent)

	// QR is rendered from the persisted reservation with the localized name
	assert.Equal(t, "res-1", resp.QR.ID)
	assert.Equal(t, "さくら庭園", resp.QR.Restaurant)
	assert.Equal(t, 4, resp.QR.PartySize)

	require.Len(t, f.reservations.created, 1)
	created := f.reservations.created[0]
	assert.Equal(t, models.PaymentStatusCompleted, created.PaymentStatus)
	require.NotNil(t, created.TransactionID)
	assert.Equal(t, "txn-42", *created.TransactionID)

	row := f.payments.rows["order-1"]
	require.NotNil(t, row)
	assert.Equal(t, models.PaymentCaptured, row.Status)
	assert.Equal(t, "res-1", f.payments.attached["order-1"])

	assert.Contains(t, f.publisher.subjects, models.EventPaymentCaptured)
	assert.Contains(t, f.publisher.subjects, models.EventReservationCreated)
}

func TestCheckoutCapturedAmountIsAuthoritative(t *testing.T) {
	f := newFixture()
	f.gateway.result.CapturedAmount = 1200

	resp, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(1200), resp.Amount)
	assert.Equal(t, int64(1200), f.reservations.created[0].PaymentAmount)
	assert.Equal(t, int64(1200), f.payments.capturedAmt["order-1"])
}

func TestCheckoutNoReservationWithoutCapture(t *testing.T) {
	f := newFixture()
	f.gateway.captureErr = &apperrors.CaptureError{OrderID: "order-1", Reason: "declined"}

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.Error(t, err)

	var capErr *apperrors.CaptureError
	assert.True(t, errors.As(err, &capErr))

	assert.Empty(t, f.reservations.created)
	assert.Contains(t, f.payments.markFailed, "order-1")
	assert.Contains(t, f.publisher.subjects, models.EventPaymentFailed)
	assert.NotContains(t, f.publisher.subjects, models.EventReservationCreated)
}

func TestCheckoutBlockedGatewayShortCircuits(t *testing.T) {
	f := newFixture()
	f.gateway.reach = payment.Blocked

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	assert.ErrorIs(t, err, apperrors.ErrGatewayBlocked)
	assert.Zero(t, f.gateway.initCalls)
	assert.Empty(t, f.reservations.created)
}

func TestCheckoutUnavailableGatewayPassesThrough(t *testing.T) {
	f := newFixture()
	f.gateway.createErr = fmt.Errorf("order create timed out: %w", apperrors.ErrGatewayUnavailable)

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
	assert.Empty(t, f.reservations.created)
	assert.Empty(t, f.payments.rows)
}

func TestCheckoutEmailFailureDoesNotUnwind(t *testing.T) {
	f := newFixture()
	f.notifier.confirmErr = errors.New("smtp down")

	resp, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.False(t, resp.EmailSent)
	assert.NotEmpty(t, resp.EmailError)
	assert.Len(t, f.reservations.created, 1)
	assert.Contains(t, f.publisher.subjects, models.EventNotificationFailed)
}

func TestCheckoutStoreFailureAfterCaptureSurfacesTransaction(t *testing.T) {
	f := newFixture()
	f.reservations.createErr = errors.New("connection reset")

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.Error(t, err)

	var storeErr *apperrors.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "txn-42", storeErr.TransactionID)

	// ops got the reference needed for manual reconciliation
	require.Len(t, f.notifier.adminAlerts, 1)
	assert.Equal(t, "txn-42", f.notifier.adminAlerts[0]["transaction_id"])
}

func TestCheckoutValidationStopsBeforeGateway(t *testing.T) {
	f := newFixture()

	req := checkoutRequest()
	req.Email = "nope"
	req.PartySize = 0

	_, err := f.svc.Checkout(context.Background(), req)

	var vErr *apperrors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Zero(t, f.gateway.initCalls)
}

func TestCheckoutUnknownRestaurant(t *testing.T) {
	f := newFixture()

	req := checkoutRequest()
	req.RestaurantID = 999

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCheckoutDirectRequestCreatesRestaurant(t *testing.T) {
	f := newFixture()

	req := checkoutRequest()
	req.RestaurantID = 0
	req.RestaurantName = "Okonomiyaki Hana"

	resp, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.restaurants.created, 1)
	created := f.restaurants.created[0]
	assert.Equal(t, "Okonomiyaki Hana", created.Name)

	// reservation row points at the freshly created restaurant
	require.Len(t, f.reservations.created, 1)
	assert.Equal(t, created.ID, f.reservations.created[0].RestaurantID)
	assert.Equal(t, "Okonomiyaki Hana", resp.QR.Restaurant)
}

func TestFallbackCreatesPendingManual(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Fallback(context.Background(), &models.FallbackRequest{
		RestaurantID:    7,
		ReservationDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		ReservationTime: "19:00",
		PartySize:       6,
		Name:            "Kim Minji",
		Email:           "minji@example.com",
		Phone:           "+82-10-1234-5678",
		Locale:          "ko",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPendingManual, resp.PaymentStatus)
	assert.True(t, resp.EmailSent)
	assert.Equal(t, 1, f.notifier.fallbackSends)
	assert.Zero(t, f.notifier.confirmations)

	created := f.reservations.created[0]
	// offline tier for a party of 6
	assert.Equal(t, int64(2000), created.PaymentAmount)
	assert.Nil(t, created.TransactionID)
	assert.Zero(t, f.gateway.initCalls)
}

func TestResendUsesFallbackWording(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Fallback(context.Background(), &models.FallbackRequest{
		RestaurantID:    7,
		ReservationDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		ReservationTime: "19:00",
		PartySize:       2,
		Name:            "Kim Minji",
		Email:           "minji@example.com",
		Phone:           "+82-10-1234-5678",
	})
	require.NoError(t, err)

	resp, err := f.svc.Resend(context.Background(), "res-1")
	require.NoError(t, err)
	assert.True(t, resp.Sent)
	assert.Equal(t, 2, f.notifier.fallbackSends)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), "res-1",
		&models.UpdateReservationStatusRequest{Status: "eaten"}, "staff@yoyaku.example")

	var vErr *apperrors.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Fields, "status")
}

func TestUpdateStatusPublishesCancellation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), "res-1",
		&models.UpdateReservationStatusRequest{Status: models.ReservationCancelled, Reason: "guest called"},
		"staff@yoyaku.example")
	require.NoError(t, err)

	assert.Equal(t, models.ReservationCancelled, updated.Status)
	// payment status is never touched by a staff transition
	assert.Equal(t, models.PaymentStatusCompleted, updated.PaymentStatus)
	assert.Contains(t, f.publisher.subjects, models.EventReservationUpdated)
	assert.Contains(t, f.publisher.subjects, models.EventReservationCancelled)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)

	detail := "status=confirmed"
	f.auditLogs.entries["res-1"] = []models.AuditLog{{
		ID:       1,
		Actor:    "staff@yoyaku.example",
		Action:   "reservation.status_update",
		TargetID: "res-1",
		Detail:   &detail,
	}}

	entries, err := f.svc.AuditTrail(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "staff@yoyaku.example", entries[0].Actor)

	_, err = f.svc.AuditTrail(context.Background(), "res-999")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHandlePaymentNotification(t *testing.T) {
	f := newFixture()

	paymentID := "pay-9"
	require.NoError(t, f.payments.Create(context.Background(), &models.Payment{
		OrderID:   "order-9",
		PaymentID: &paymentID,
		Amount:    3000,
		Currency:  "JPY",
		Status:    models.PaymentInitiated,
	}))

	// unknown order acks without error
	err := f.svc.HandlePaymentNotification(context.Background(), &models.PaymentNotificationPayload{
		OrderID: "order-missing", Status: "succeeded",
	})
	assert.NoError(t, err)

	// captured webhook promotes the initiated row
	err = f.svc.HandlePaymentNotification(context.Background(), &models.PaymentNotificationPayload{
		OrderID: "order-9", PaymentID: "pay-9", Status: "succeeded",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, f.payments.rows["order-9"].Status)

	// a repeat of the same status is a no-op
	before := len(f.publisher.subjects)
	err = f.svc.HandlePaymentNotification(context.Background(), &models.PaymentNotificationPayload{
		OrderID: "order-9", PaymentID: "pay-9", Status: "succeeded",
	})
	require.NoError(t, err)
	assert.Len(t, f.publisher.subjects, before)
}
