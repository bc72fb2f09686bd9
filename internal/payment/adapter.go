package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"yoyaku/internal/apperrors"
	"yoyaku/internal/external"
)

// State of one checkout attempt
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateCapturing
	StateSucceeded
	StateFailed
	// StateBlocked is entered when the readiness timeout or the self-test
	// classifies the gateway as unreachable. It routes to the fallback
	// offer instead of retrying forever.
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateCapturing:
		return "capturing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Reachability is the typed result of the gateway self-test
type Reachability int

const (
	Unknown Reachability = iota
	Reachable
	Blocked
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// ErrAttemptThrottled - a distinct attempt arrived inside the minimum
// inter-request spacing window.
var ErrAttemptThrottled = errors.New("checkout attempts too close together")

// capturedStatuses is the provider's success vocabulary for a capture. The
// gateway is not consistent about which one it reports.
var capturedStatuses = map[string]bool{
	"succeeded": true,
	"completed": true,
	"captured":  true,
}

// IsCapturedStatus reports whether a provider payment status means the
// charge was actually taken.
func IsCapturedStatus(status string) bool {
	return capturedStatuses[strings.ToLower(status)]
}

// GatewayClient is the provider-side surface the adapter drives. Satisfied
// by external.PaymentClient.
type GatewayClient interface {
	InitOrder(ctx context.Context, amount int64, orderID, currency, description, language string) (*external.OrderInitResponse, error)
	Capture(ctx context.Context, paymentID string, amount int64) (*external.CaptureResponse, error)
	CancelOrder(ctx context.Context, paymentID, reason string) error
	Ping(ctx context.Context) error
}

// CaptureResult is what a succeeded capture yields. CapturedAmount is
// authoritative even when it diverges from the requested amount.
type CaptureResult struct {
	TransactionID   string
	CapturedAmount  int64
	RequestedAmount int64
	Status          string
}

// Session is one checkout attempt. Identifiers are owned by the attempt and
// never survive a reset.
type Session struct {
	RequestID   string
	OrderRef    string
	PaymentID   string
	Amount      int64
	Currency    string
	Description string
	Language    string
	State       State
	CreatedAt   time.Time

	result *CaptureResult
}

// Options tune the adapter. Zero values fall back to production defaults.
type Options struct {
	// ReadyTimeout bounds order creation; past it the gateway is treated as
	// blocked or failed to load rather than merely slow.
	ReadyTimeout time.Duration
	// CaptureTimeout bounds the capture call.
	CaptureTimeout time.Duration
	// MinSpacing is the minimum gap between distinct attempts.
	MinSpacing time.Duration
	// SessionTTL prunes abandoned sessions.
	SessionTTL time.Duration
}

func (o *Options) withDefaults() {
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = 6 * time.Second
	}
	if o.CaptureTimeout == 0 {
		o.CaptureTimeout = 10 * time.Second
	}
	if o.MinSpacing == 0 {
		o.MinSpacing = time.Second
	}
	if o.SessionTTL == 0 {
		o.SessionTTL = 30 * time.Minute
	}
}

// Adapter is the single choke point for collecting one irreversible payment
// per reservation attempt. Sessions are keyed by the client-generated
// request id so rapid re-submissions coalesce onto one provider order.
type Adapter struct {
	client GatewayClient
	opts   Options

	mu          sync.Mutex
	sessions    map[string]*Session
	lastAttempt time.Time
	now         func() time.Time
}

func NewAdapter(client GatewayClient, opts Options) *Adapter {
	opts.withDefaults()
	return &Adapter{
		client:   client,
		opts:     opts,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// InitSession begins a checkout attempt. Calls repeated with the same
// request id before resolution return the existing session instead of
// issuing another provider order-create. Distinct attempts inside the
// minimum spacing window are throttled.
func (a *Adapter) InitSession(requestID string, amount int64, currency, description, language string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pruneLocked()

	if s, ok := a.sessions[requestID]; ok {
		switch s.State {
		case StateSucceeded:
			return nil, apperrors.ErrAttemptCompleted
		case StateInitializing, StateReady, StateCapturing:
			if s.Amount != amount {
				// An intent context must not be reused across amount
				// changes: drop the stale session and start over.
				slog.Warn("Checkout amount changed mid-attempt, resetting session",
					"request_id", requestID, "old_amount", s.Amount, "new_amount", amount)
				delete(a.sessions, requestID)
			} else {
				return s, nil
			}
		default:
			// failed/blocked: explicit retry, fully reset identifiers
			delete(a.sessions, requestID)
		}
	}

	if !a.lastAttempt.IsZero() && a.now().Sub(a.lastAttempt) < a.opts.MinSpacing {
		return nil, ErrAttemptThrottled
	}

	s := &Session{
		RequestID:   requestID,
		OrderRef:    uuid.New().String(),
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Language:    language,
		State:       StateInitializing,
		CreatedAt:   a.now(),
	}
	a.sessions[requestID] = s
	a.lastAttempt = s.CreatedAt

	return s, nil
}

// CreateOrder registers the provider-side order for the session. A session
// already in ready state returns its existing order without a second
// provider call. Timeout past ReadyTimeout classifies the gateway as
// blocked, not merely slow.
func (a *Adapter) CreateOrder(ctx context.Context, requestID string) (string, error) {
	a.mu.Lock()
	s, ok := a.sessions[requestID]
	if !ok {
		a.mu.Unlock()
		return "", fmt.Errorf("no session for request %s", requestID)
	}
	if s.State == StateReady {
		id := s.PaymentID
		a.mu.Unlock()
		return id, nil
	}
	if s.State != StateInitializing {
		state := s.State
		a.mu.Unlock()
		return "", fmt.Errorf("cannot create order in state %s", state)
	}
	amount, orderRef, currency := s.Amount, s.OrderRef, s.Currency
	description, language := s.Description, s.Language
	a.mu.Unlock()

	initCtx, cancel := context.WithTimeout(ctx, a.opts.ReadyTimeout)
	defer cancel()

	resp, err := a.client.InitOrder(initCtx, amount, orderRef, currency, description, language)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		if isTimeout(err) {
			s.State = StateBlocked
			return "", fmt.Errorf("order create timed out after %s: %w", a.opts.ReadyTimeout, apperrors.ErrGatewayUnavailable)
		}
		s.State = StateFailed
		return "", fmt.Errorf("order create rejected: %w", err)
	}

	s.PaymentID = resp.PaymentID
	s.State = StateReady
	return s.PaymentID, nil
}

// CaptureOrder turns the session's order into an irreversible charge. A
// session that already succeeded returns its stored result, so a double
// submit cannot charge twice.
func (a *Adapter) CaptureOrder(ctx context.Context, requestID string) (*CaptureResult, error) {
	a.mu.Lock()
	s, ok := a.sessions[requestID]
	if !ok {
		a.mu.Unlock()
		return nil, fmt.Errorf("no session for request %s", requestID)
	}
	if s.State == StateSucceeded && s.result != nil {
		res := *s.result
		a.mu.Unlock()
		return &res, nil
	}
	if s.State != StateReady {
		state := s.State
		a.mu.Unlock()
		return nil, fmt.Errorf("cannot capture in state %s", state)
	}
	s.State = StateCapturing
	paymentID, amount := s.PaymentID, s.Amount
	a.mu.Unlock()

	capCtx, cancel := context.WithTimeout(ctx, a.opts.CaptureTimeout)
	defer cancel()

	resp, err := a.client.Capture(capCtx, paymentID, amount)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		s.State = StateFailed
		return nil, &apperrors.CaptureError{OrderID: s.OrderRef, Reason: "transport failure", Err: err}
	}

	if !resp.Success || !IsCapturedStatus(resp.Status) {
		s.State = StateFailed
		reason := resp.Status
		if resp.Message != "" {
			reason = resp.Message
		}
		return nil, &apperrors.CaptureError{OrderID: s.OrderRef, Reason: reason}
	}

	captured := resp.Amount
	if captured == 0 {
		captured = amount
	}
	if captured != amount {
		slog.Warn("Captured amount diverges from requested amount",
			"request_id", requestID, "requested", amount, "captured", captured)
	}

	s.result = &CaptureResult{
		TransactionID:   resp.TransactionID,
		CapturedAmount:  captured,
		RequestedAmount: amount,
		Status:          resp.Status,
	}
	s.State = StateSucceeded

	res := *s.result
	return &res, nil
}

// Cancel is a user-initiated abort: the provider order (if any) is voided
// best-effort and the session identifiers are discarded so they can never
// be reused. Always silent.
func (a *Adapter) Cancel(ctx context.Context, requestID string) {
	a.mu.Lock()
	s, ok := a.sessions[requestID]
	if ok {
		delete(a.sessions, requestID)
	}
	a.mu.Unlock()

	if !ok || s.PaymentID == "" || s.State == StateSucceeded {
		return
	}

	if err := a.client.CancelOrder(ctx, s.PaymentID, "cancelled by user"); err != nil {
		slog.Warn("Failed to void abandoned order", "payment_id", s.PaymentID, "error", err)
	}
}

// SelfTest probes gateway reachability before an attempt, so a known-dead
// backend short-circuits to the fallback path instead of a doomed attempt.
func (a *Adapter) SelfTest(ctx context.Context) Reachability {
	err := a.client.Ping(ctx)
	if err == nil {
		return Reachable
	}
	if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return Blocked
	}
	slog.Warn("Gateway self-test inconclusive", "error", err)
	return Unknown
}

// SessionState reports the state of an attempt, idle when none exists
func (a *Adapter) SessionState(requestID string) State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[requestID]; ok {
		return s.State
	}
	return StateIdle
}

func (a *Adapter) pruneLocked() {
	cutoff := a.now().Add(-a.opts.SessionTTL)
	for id, s := range a.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(a.sessions, id)
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
