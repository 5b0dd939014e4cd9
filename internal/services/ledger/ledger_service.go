package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// Service keeps the earnings ledger. Money never moves through the
// platform; entries only mirror what the student attested.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// RecordAttestedPayment writes one upi_attested entry per work.
// This must be called within the transaction that completes the work.
func (s *Service) RecordAttestedPayment(ctx context.Context, tx store.Tx, w *models.WorkRecord) error {
	amount := w.PaymentVerification.PaymentAmount
	if amount <= 0 {
		return errors.New("attested amount must be greater than zero")
	}

	entry := models.EarningLedgerEntry{
		ID:               uuid.New(),
		StudentID:        w.StudentID,
		ClientID:         w.ClientID,
		WorkID:           w.ID,
		Type:             models.LedgerUpiAttested,
		Amount:           amount,
		UpiTransactionID: w.PaymentVerification.UpiTransactionID,
		Description:      fmt.Sprintf("UPI payment %s confirmed by student", w.PaymentVerification.UpiTransactionID),
	}
	return tx.AppendLedger(ctx, &entry)
}

type Summary struct {
	TotalEarnings int64                       `json:"total_earnings"`
	Entries       []models.EarningLedgerEntry `json:"history"`
}

// Summarize totals attested payments.
func (s *Service) Summarize(ctx context.Context, r store.Reader, studentID uuid.UUID) (Summary, error) {
	entries, err := r.ListLedger(ctx, studentID)
	if err != nil {
		return Summary{}, err
	}
	var total int64
	for _, e := range entries {
		if e.Type == models.LedgerUpiAttested {
			total += e.Amount
		}
	}
	return Summary{TotalEarnings: total, Entries: entries}, nil
}
