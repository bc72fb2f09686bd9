package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the checkout workflow. Callers branch on these with
// errors.Is to pick the user-visible recovery path.
var (
	// ErrGatewayUnavailable - the payment SDK/backend never became ready
	// within the detection threshold. Retryable via the fallback offer.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayBlocked - the reachability probe classified the backend as
	// blocked by the client environment. Routes to the fallback path.
	ErrGatewayBlocked = errors.New("payment gateway blocked")

	// ErrUserCancelled - user-initiated abort. Terminal and silent.
	ErrUserCancelled = errors.New("payment cancelled by user")

	// ErrAttemptCompleted - the idempotency token was already driven to a
	// terminal state; re-submission is a no-op.
	ErrAttemptCompleted = errors.New("checkout attempt already completed")

	// ErrNotFound - requested row does not exist
	ErrNotFound = errors.New("not found")

	ErrUnauthorized = errors.New("user is not authorized")
	ErrForbidden    = errors.New("operation is forbidden for user")
)

// ValidationError carries field-level messages. The submission stays in
// place; nothing was sent to the gateway or the store.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// CaptureError - the gateway declined or the capture transport failed.
// Retryable a capped number of times.
type CaptureError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed for order %s: %s", e.OrderID, e.Reason)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// StoreError - persistence failed. When TransactionID is set the payment was
// already captured, which is the most serious failure mode: it must be
// surfaced loudly with the reference id, never quietly retried.
type StoreError struct {
	Op            string
	TransactionID string
	Err           error
}

func (e *StoreError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("store error in %s (captured transaction %s unrecorded): %v", e.Op, e.TransactionID, e.Err)
	}
	return fmt.Sprintf("store error in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotificationError - email send failed. Never blocks or rolls back the
// reservation; independently retryable via manual resend.
type NotificationError struct {
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Retryable reports whether an automatic retry is allowed for the error.
// Only timeouts and provider declines are; blocked routes to fallback and
// user cancellation is terminal.
func Retryable(err error) bool {
	var capErr *CaptureError
	if errors.As(err, &capErr) {
		return true
	}
	if errors.Is(err, ErrGatewayUnavailable) {
		return true
	}
	return false
}
