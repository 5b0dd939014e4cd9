package workflow

import (
	"context"
	"time"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// StatusHistoryLog is append-only: there is no update or delete path.
type StatusHistoryLog struct {
	now func() time.Time
}

// Append records the project's current status. Callers invoke it after
// mutating p and inside the same transaction.
func (l *StatusHistoryLog) Append(ctx context.Context, tx store.Tx, p *models.Project, actor Actor, reason, notes string) error {
	return tx.AppendHistory(ctx, &models.ProjectStatusHistory{
		ProjectID: p.ID,
		Status:    p.Status,
		Reason:    reason,
		Notes:     notes,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		ChangedAt: l.now(),
	})
}
