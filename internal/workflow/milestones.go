package workflow

import (
	"fmt"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

// Percentages at or below this mirror the project as "pending"; above it,
// "in_progress".
const pendingCeiling = 25

// ProjectStatusFor is the single mapping from a work record's state to the
// status its project must show. ok is false for on_hold, which leaves the
// project status as it is (dispute or pause).
//
//	work status                                    percentage   project status
//	approved                                       0            accepted
//	in_progress, review_pending,
//	awaiting_completion_proof, completion_submitted  0-25       pending
//	                                                 26-95      in_progress
//	payment_pending, payment_submitted,
//	payment_verified                               100          in_progress
//	completed, delivered                           100          completed
//	cancelled                                      any          cancelled
//
// Percentages 96-99 cannot occur: only milestone values are accepted and
// 100 is written only together with payment_pending.
func ProjectStatusFor(ws models.WorkStatus, percentage int) (models.ProjectStatus, bool) {
	switch ws {
	case models.WorkApproved:
		return models.ProjectAccepted, true
	case models.WorkInProgress, models.WorkReviewPending, models.WorkAwaitingCompletionProof, models.WorkCompletionSubmitted:
		if percentage <= pendingCeiling {
			return models.ProjectPending, true
		}
		return models.ProjectInProgress, true
	case models.WorkPaymentPending, models.WorkPaymentSubmitted, models.WorkPaymentVerified:
		return models.ProjectInProgress, true
	case models.WorkCompleted, models.WorkDelivered:
		return models.ProjectCompleted, true
	case models.WorkCancelled:
		return models.ProjectCancelled, true
	}
	return "", false
}

func (c *core) isMilestone(pct int) bool {
	for _, m := range c.policy.Milestones {
		if m == pct {
			return true
		}
	}
	return false
}

func (c *core) finalMilestone() int {
	return c.policy.Milestones[len(c.policy.Milestones)-1]
}

// manualWorkTransitions are the explicit, non-milestone moves SetWorkStatus
// accepts. Everything else is driven by milestones or the handshake.
var manualWorkTransitions = map[models.WorkStatus][]models.WorkStatus{
	models.WorkApproved:                {models.WorkOnHold, models.WorkCancelled},
	models.WorkInProgress:              {models.WorkReviewPending, models.WorkOnHold, models.WorkCancelled},
	models.WorkReviewPending:           {models.WorkInProgress, models.WorkOnHold},
	models.WorkAwaitingCompletionProof: {models.WorkInProgress, models.WorkOnHold},
	models.WorkOnHold:                  {models.WorkInProgress, models.WorkCancelled},
	models.WorkCompleted:               {models.WorkDelivered},
}

func canMoveWork(from, to models.WorkStatus) bool {
	for _, s := range manualWorkTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// hundredStatuses are the only work statuses allowed at 100%.
var hundredStatuses = map[models.WorkStatus]bool{
	models.WorkPaymentPending:   true,
	models.WorkPaymentSubmitted: true,
	models.WorkPaymentVerified:  true,
	models.WorkCompleted:        true,
	models.WorkDelivered:        true,
}

// checkWorkInvariants is run on every candidate state before it is saved.
func checkWorkInvariants(prev, next *models.WorkRecord) error {
	pct := next.Progress.Percentage
	if pct < 0 || pct > 100 {
		return fmt.Errorf("percentage %d out of range", pct)
	}
	if prev != nil && pct < prev.Progress.Percentage {
		return fmt.Errorf("percentage cannot decrease from %d to %d", prev.Progress.Percentage, pct)
	}
	if (pct == 100) != hundredStatuses[next.WorkStatus] {
		// on_hold and cancelled keep whatever percentage they had, but can
		// never be entered from a 100% state through the manual table.
		if !(pct < 100 && (next.WorkStatus == models.WorkOnHold || next.WorkStatus == models.WorkCancelled)) {
			return fmt.Errorf("status %s is inconsistent with %d%%", next.WorkStatus, pct)
		}
	}
	if hundredStatuses[next.WorkStatus] && !next.CompletionSubmission.Present() {
		return fmt.Errorf("status %s requires a completion submission", next.WorkStatus)
	}
	switch next.WorkStatus {
	case models.WorkPaymentSubmitted, models.WorkPaymentVerified:
		if !next.PaymentVerification.Present() {
			return fmt.Errorf("status %s requires a payment proof", next.WorkStatus)
		}
	case models.WorkCompleted, models.WorkDelivered:
		if next.PaymentVerification.VerifiedAt == nil {
			return fmt.Errorf("status %s requires a verified payment", next.WorkStatus)
		}
	}
	return nil
}
