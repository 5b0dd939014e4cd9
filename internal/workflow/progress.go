package workflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/lock"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/metrics"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// ProgressTracker owns milestone progress and the non-milestone status
// moves of a WorkRecord.
type ProgressTracker struct {
	*core
	lifecycle *ProjectLifecycle
}

// WorkDelta is the full desired change of one work transition. Status and
// percentage are always written together with the audit row and the
// mirrored project status.
type WorkDelta struct {
	Status      models.WorkStatus
	Percentage  *int
	Description string
	UpdateType  string
	Note        string
	Metadata    map[string]any

	// apply sets handshake-owned fields on the candidate record.
	apply func(w *models.WorkRecord)
}

// commitWork validates and writes d against w inside tx. On success w
// holds the committed state and the project has been mirrored.
func (t *ProgressTracker) commitWork(ctx context.Context, tx store.Tx, op string, p *models.Project, w *models.WorkRecord, d WorkDelta, actor Actor) (bool, error) {
	next := *w
	if d.Status != "" {
		next.WorkStatus = d.Status
	}
	if d.Percentage != nil {
		next.Progress.Percentage = *d.Percentage
	}
	if d.Description != "" {
		next.Progress.Description = d.Description
	}
	if d.apply != nil {
		d.apply(&next)
	}
	if err := checkWorkInvariants(w, &next); err != nil {
		return false, conflict(op, "%s", err.Error())
	}

	now := t.now()
	next.UpdatedAt = now
	if err := tx.SaveWork(ctx, &next); err != nil {
		return false, wrapStore(op, "work", err)
	}

	var meta datatypes.JSON
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata["work_status"] = next.WorkStatus
	d.Metadata["percentage"] = next.Progress.Percentage
	if b, err := json.Marshal(d.Metadata); err == nil {
		meta = datatypes.JSON(b)
	}
	note := d.Note
	if note == "" {
		note = next.Progress.Description
	}
	if err := tx.AppendWorkUpdate(ctx, &models.WorkUpdate{
		ID:          uuid.New(),
		WorkID:      next.ID,
		UpdateType:  d.UpdateType,
		Description: note,
		Metadata:    meta,
		ActorID:     actor.ID,
		CreatedAt:   now,
	}); err != nil {
		return false, wrapStore(op, "work update", err)
	}

	changed, err := t.lifecycle.syncFromWork(ctx, tx, op, p, &next, actor, d.UpdateType)
	if err != nil {
		return false, err
	}
	*w = next
	return changed, nil
}

// recordCommitted counts the committed transitions of one operation.
func recordCommitted(w *models.WorkRecord, p *models.Project, projectChanged bool) {
	metrics.RecordTransition("work", string(w.WorkStatus))
	if projectChanged {
		metrics.RecordTransition("project", string(p.Status))
	}
}

type MilestoneResult struct {
	Work    *models.WorkRecord `json:"work"`
	Project *models.Project    `json:"project"`

	// RequiresCompletion is set when the student reported 100%: progress
	// is not written and the completion handshake must follow.
	RequiresCompletion bool `json:"requires_completion"`
}

var milestoneFrom = map[models.WorkStatus]bool{
	models.WorkApproved:      true,
	models.WorkInProgress:    true,
	models.WorkReviewPending: true,
}

// UpdateMilestone reports progress at one of the configured milestones.
func (t *ProgressTracker) UpdateMilestone(ctx context.Context, actor Actor, workID uuid.UUID, percentage int, description string) (*MilestoneResult, error) {
	const op = "UpdateMilestone"
	if err := actor.check(op); err != nil {
		return nil, t.fail(op, err)
	}
	if !t.isMilestone(percentage) {
		return nil, t.fail(op, validation(op, "percentage", "percentage must be one of the milestones"))
	}
	description = strings.TrimSpace(description)

	res := &MilestoneResult{}
	var changed bool
	err := t.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		return t.store.InTx(ctx, func(tx store.Tx) error {
			w, p, err := loadWorkAndProject(ctx, tx, op, workID)
			if err != nil {
				return err
			}
			if err := requireStudent(op, actor, p); err != nil {
				return err
			}
			if !milestoneFrom[w.WorkStatus] {
				return conflict(op, "work is %s, milestones can only be reported while work is active", w.WorkStatus)
			}
			if percentage <= w.Progress.Percentage {
				return conflict(op, "progress is already at %d%%, new milestone must be higher", w.Progress.Percentage)
			}

			d := WorkDelta{
				Status:      models.WorkInProgress,
				Percentage:  &percentage,
				Description: description,
				UpdateType:  "milestone",
				Metadata:    map[string]any{"milestone": percentage},
			}
			if percentage == t.finalMilestone() {
				// Completion evidence decides when 100% is written.
				res.RequiresCompletion = true
				d = WorkDelta{
					Status:     models.WorkAwaitingCompletionProof,
					UpdateType: "completion_requested",
					Note:       "Final milestone reported, waiting for completion evidence",
					Metadata:   map[string]any{"milestone": percentage},
				}
			}
			if changed, err = t.commitWork(ctx, tx, op, p, w, d, actor); err != nil {
				return err
			}
			res.Work, res.Project = w, p
			return nil
		})
	})
	if err != nil {
		return nil, t.fail(op, err)
	}

	recordCommitted(res.Work, res.Project, changed)
	msg := "Progress updated"
	if res.RequiresCompletion {
		msg = "Work finished, completion evidence pending"
	}
	t.emit(ctx, notify.Event{
		Type: "work.progress", ProjectID: res.Project.ID, WorkID: workRef(res.Work), Status: string(res.Work.WorkStatus),
		ActorID: actor.ID, Message: msg, Recipients: participants(res.Project),
		Data: map[string]any{"percentage": res.Work.Progress.Percentage, "project_status": res.Project.Status},
	})
	return res, nil
}

type WorkStatusChange struct {
	Status models.WorkStatus `json:"status"`
	Note   string            `json:"note"`

	// ProjectStatus, when set, must match the status the mapping derives;
	// it is a consistency check, not an override.
	ProjectStatus models.ProjectStatus `json:"project_status,omitempty"`
}

// SetWorkStatus performs an explicit, non-milestone move from the manual
// transition table. Delivery confirmation is the client's; every other
// move is the student's.
func (t *ProgressTracker) SetWorkStatus(ctx context.Context, actor Actor, workID uuid.UUID, c WorkStatusChange) (*models.WorkRecord, error) {
	const op = "SetWorkStatus"
	if err := actor.check(op); err != nil {
		return nil, t.fail(op, err)
	}
	if c.Status == "" {
		return nil, t.fail(op, validation(op, "status", "status is required"))
	}

	var (
		w       *models.WorkRecord
		p       *models.Project
		changed bool
	)
	err := t.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		return t.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			if w, p, err = loadWorkAndProject(ctx, tx, op, workID); err != nil {
				return err
			}
			if c.Status == models.WorkDelivered {
				err = requireClient(op, actor, p)
			} else {
				err = requireStudent(op, actor, p)
			}
			if err != nil {
				return err
			}
			if !canMoveWork(w.WorkStatus, c.Status) {
				return conflict(op, "work cannot move from %s to %s", w.WorkStatus, c.Status)
			}
			if c.ProjectStatus != "" {
				if want, ok := ProjectStatusFor(c.Status, w.Progress.Percentage); ok && want != c.ProjectStatus {
					return conflict(op, "project status %s does not match work status %s, expected %s", c.ProjectStatus, c.Status, want)
				} else if !ok && c.ProjectStatus != p.Status {
					return conflict(op, "work status %s keeps the project %s", c.Status, p.Status)
				}
			}
			changed, err = t.commitWork(ctx, tx, op, p, w, WorkDelta{
				Status:     c.Status,
				UpdateType: "status_change",
				Note:       c.Note,
				Metadata:   map[string]any{"note": c.Note},
			}, actor)
			return err
		})
	})
	if err != nil {
		return nil, t.fail(op, err)
	}

	recordCommitted(w, p, changed)
	t.emit(ctx, notify.Event{
		Type: "work." + string(w.WorkStatus), ProjectID: p.ID, WorkID: workRef(w), Status: string(w.WorkStatus),
		ActorID: actor.ID, Message: "Work status changed to " + string(w.WorkStatus), Recipients: participants(p),
	})
	return w, nil
}

// ConfirmDelivery is the client's final acknowledgement of a completed work.
func (t *ProgressTracker) ConfirmDelivery(ctx context.Context, actor Actor, workID uuid.UUID, note string) (*models.WorkRecord, error) {
	return t.SetWorkStatus(ctx, actor, workID, WorkStatusChange{Status: models.WorkDelivered, Note: note})
}
