package jobs

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"yoyaku/internal/external"
	"yoyaku/internal/models"
	"yoyaku/internal/payment"
	"yoyaku/internal/repository"
)

// StaleAfter is how long an initiated payment may sit before the job asks
// the provider what actually happened to it.
const StaleAfter = 15 * time.Minute

// PaymentReconciliationJob sweeps payment rows stuck in initiated state.
// Most are abandoned checkouts that simply expired provider-side; the one
// that matters is a capture whose API process died before persisting, which
// is escalated for manual handling.
type PaymentReconciliationJob struct {
	paymentRepo   *repository.PaymentRepository
	paymentClient *external.PaymentClient
	ticker        *time.Ticker
	done          chan bool
}

func NewPaymentReconciliationJob(paymentRepo *repository.PaymentRepository, paymentClient *external.PaymentClient) *PaymentReconciliationJob {
	return &PaymentReconciliationJob{
		paymentRepo:   paymentRepo,
		paymentClient: paymentClient,
		done:          make(chan bool),
	}
}

// Start begins the background sweep, checking every minute
func (j *PaymentReconciliationJob) Start(ctx context.Context) {
	slog.Info("Starting payment reconciliation job", "check_interval", "60s", "stale_after", StaleAfter)

	j.ticker = time.NewTicker(60 * time.Second)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Payment reconciliation job stopped")
				return
			}
		}
	}()
}

func (j *PaymentReconciliationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PaymentReconciliationJob) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-StaleAfter)

	stale, err := j.paymentRepo.GetStale(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to get stale payments", "error", err)
		return
	}

	if len(stale) == 0 {
		slog.Debug("No stale payments found")
		return
	}

	slog.Info("Found stale payments to reconcile", "count", len(stale))

	for i := range stale {
		if err := j.reconcile(ctx, &stale[i]); err != nil {
			slog.Error("Failed to reconcile payment",
				"error", err,
				"order_id", stale[i].OrderID,
				"created_at", stale[i].CreatedAt)
		}
	}
}

// reconcile asks the provider for the true state of one stale payment and
// makes the local row agree with it.
func (j *PaymentReconciliationJob) reconcile(ctx context.Context, row *models.Payment) error {
	if row.PaymentID == nil || *row.PaymentID == "" {
		// Never reached the provider; nothing to ask about
		return j.paymentRepo.UpdateStatus(ctx, row.OrderID, models.PaymentCancelled)
	}

	check, err := j.paymentClient.CheckPayment(ctx, *row.PaymentID)
	if err != nil {
		return err
	}

	status := ""
	transactionID := ""
	for _, detail := range check.Payments {
		if detail.PaymentID == *row.PaymentID {
			status = detail.Status
			transactionID = detail.TransactionID
			break
		}
	}

	switch status = strings.ToLower(status); {
	case payment.IsCapturedStatus(status):
		if err := j.paymentRepo.MarkCaptured(ctx, row.OrderID, *row.PaymentID, row.Amount); err != nil {
			return err
		}
		if row.ReservationID == nil {
			// Money was taken and no reservation exists. This cannot be
			// repaired automatically.
			slog.Error("RECONCILIATION: captured payment has no reservation, manual action required",
				"order_id", row.OrderID,
				"payment_id", *row.PaymentID,
				"transaction_id", transactionID,
				"amount", row.Amount)
		}
	case status == "cancelled" || status == "expired":
		return j.paymentRepo.UpdateStatus(ctx, row.OrderID, models.PaymentCancelled)
	case status == "failed" || status == "declined":
		return j.paymentRepo.UpdateStatus(ctx, row.OrderID, models.PaymentFailed)
	default:
		slog.Warn("Provider reports unknown payment status",
			"order_id", row.OrderID, "status", status)
	}

	return nil
}
