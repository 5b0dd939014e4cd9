package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/config"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/metrics"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// ProjectLifecycle owns every write of Project.Status together with the
// objection, rejection and communication fields.
type ProjectLifecycle struct {
	*core
	progress *ProgressTracker
}

var projectTransitions = map[models.ProjectStatus][]models.ProjectStatus{
	models.ProjectSubmitted:  {models.ProjectAccepted, models.ProjectCancelled},
	models.ProjectPending:    {models.ProjectAccepted, models.ProjectCancelled, models.ProjectPending, models.ProjectInProgress, models.ProjectDisputed},
	models.ProjectAccepted:   {models.ProjectPending, models.ProjectInProgress, models.ProjectDisputed, models.ProjectCancelled},
	models.ProjectInProgress: {models.ProjectInProgress, models.ProjectCompleted, models.ProjectDisputed, models.ProjectCancelled},
	models.ProjectDisputed:   {models.ProjectAccepted, models.ProjectPending, models.ProjectInProgress, models.ProjectCancelled},
}

func canMoveProject(from, to models.ProjectStatus) bool {
	for _, s := range projectTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// decidable reports whether accept, reject and objections are still open.
func decidable(s models.ProjectStatus) bool {
	return s == models.ProjectSubmitted || s == models.ProjectPending
}

// setStatus moves p to status and appends the history row. It is the only
// place Project.Status is assigned.
func (l *ProjectLifecycle) setStatus(ctx context.Context, tx store.Tx, op string, p *models.Project, to models.ProjectStatus, actor Actor, reason, notes string) error {
	if !canMoveProject(p.Status, to) {
		return conflict(op, "project cannot move from %s to %s", p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = l.now()
	if err := tx.SaveProject(ctx, p); err != nil {
		return wrapStore(op, "project", err)
	}
	return wrapStore(op, "history", l.history.Append(ctx, tx, p, actor, reason, notes))
}

// touch saves a non-status change and still appends history, so every
// mutation leaves a trail.
func (l *ProjectLifecycle) touch(ctx context.Context, tx store.Tx, op string, p *models.Project, actor Actor, reason, notes string) error {
	p.UpdatedAt = l.now()
	if err := tx.SaveProject(ctx, p); err != nil {
		return wrapStore(op, "project", err)
	}
	return wrapStore(op, "history", l.history.Append(ctx, tx, p, actor, reason, notes))
}

// syncFromWork is the hand-off ProgressTracker and the handshake use to
// mirror a work record's state onto its project. It runs inside the
// caller's transaction and reports whether the status changed.
func (l *ProjectLifecycle) syncFromWork(ctx context.Context, tx store.Tx, op string, p *models.Project, w *models.WorkRecord, actor Actor, reason string) (bool, error) {
	target, ok := ProjectStatusFor(w.WorkStatus, w.Progress.Percentage)
	if !ok || target == p.Status {
		return false, nil
	}
	notes := fmt.Sprintf("work %s at %d%%", w.WorkStatus, w.Progress.Percentage)
	if err := l.setStatus(ctx, tx, op, p, target, actor, reason, notes); err != nil {
		return false, err
	}
	return true, nil
}

type ProjectDraft struct {
	ProjectName        string                 `json:"project_name"`
	ProjectDescription string                 `json:"project_description"`
	Requirements       string                 `json:"requirements"`
	ServiceCategory    models.ServiceCategory `json:"service_category"`
	QuotedPrice        int64                  `json:"quoted_price"`
	CompletionDays     int                    `json:"completion_time"`
	Urgency            string                 `json:"urgency"`
	PaymentTerms       string                 `json:"payment_terms"`
	StudentID          uuid.UUID              `json:"assigned_to"`
}

var serviceCategories = map[models.ServiceCategory]bool{
	models.CategoryWebDevelopment:    true,
	models.CategoryMobileDevelopment: true,
	models.CategoryGraphicDesign:     true,
	models.CategoryDataAnalysis:      true,
	models.CategoryResumeServices:    true,
	models.CategoryContentWriting:    true,
	models.CategoryVideoEditing:      true,
	models.CategoryOther:             true,
}

// SubmitProject creates a project in status submitted on behalf of the
// client, addressed to one student.
func (l *ProjectLifecycle) SubmitProject(ctx context.Context, actor Actor, d ProjectDraft) (*models.Project, error) {
	const op = "SubmitProject"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}
	if actor.Role != models.RoleClient {
		return nil, l.fail(op, forbidden(op, "only clients can submit projects"))
	}
	switch {
	case strings.TrimSpace(d.ProjectName) == "":
		return nil, l.fail(op, validation(op, "project_name", "project name is required"))
	case !serviceCategories[d.ServiceCategory]:
		return nil, l.fail(op, validation(op, "service_category", "unknown service category"))
	case d.QuotedPrice <= 0:
		return nil, l.fail(op, validation(op, "quoted_price", "quoted price must be greater than zero"))
	case d.CompletionDays <= 0:
		return nil, l.fail(op, validation(op, "completion_time", "completion time must be at least one day"))
	case d.StudentID == uuid.Nil || d.StudentID == actor.ID:
		return nil, l.fail(op, validation(op, "assigned_to", "a student must be assigned"))
	}

	now := l.now()
	p := &models.Project{
		ID:                 uuid.New(),
		ProjectName:        strings.TrimSpace(d.ProjectName),
		ProjectDescription: d.ProjectDescription,
		Requirements:       d.Requirements,
		ServiceCategory:    d.ServiceCategory,
		QuotedPrice:        d.QuotedPrice,
		CompletionDays:     d.CompletionDays,
		Urgency:            d.Urgency,
		PaymentTerms:       d.PaymentTerms,
		Status:             models.ProjectSubmitted,
		AssignedBy:         actor.ID,
		AssignedTo:         d.StudentID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateProject(ctx, p); err != nil {
			return wrapStore(op, "project", err)
		}
		return wrapStore(op, "history", l.history.Append(ctx, tx, p, actor, "submitted", ""))
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	metrics.RecordTransition("project", string(p.Status))
	l.emit(ctx, notify.Event{
		Type: "project.submitted", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "New project request: " + p.ProjectName, Recipients: []uuid.UUID{p.AssignedTo},
	})
	return p, nil
}

// AcceptResult carries the accepted project and, separately, the outcome of
// the work record creation that follows it.
type AcceptResult struct {
	Project *models.Project    `json:"project"`
	Work    *models.WorkRecord `json:"work,omitempty"`
	WorkErr error              `json:"-"`
}

// Accept moves a submitted or pending project to accepted and then creates
// its WorkRecord. Work creation fails soft: the acceptance stands and the
// error is returned in WorkErr so the caller can retry CreateWorkFromProject.
func (l *ProjectLifecycle) Accept(ctx context.Context, actor Actor, projectID uuid.UUID) (*AcceptResult, error) {
	const op = "Accept"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}

	var p *models.Project
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireStudent(op, actor, p); err != nil {
			return err
		}
		if !decidable(p.Status) {
			return conflict(op, "project is %s, only submitted or pending projects can be accepted", p.Status)
		}
		if p.Objection.Unresolved() {
			return conflict(op, "resolve the open objection before accepting")
		}
		if _, err := tx.GetWorkByProject(ctx, p.ID); err == nil {
			return conflict(op, "project already has a work record")
		} else if !errors.Is(err, store.ErrNotFound) {
			return wrapStore(op, "work", err)
		}
		return l.setStatus(ctx, tx, op, p, models.ProjectAccepted, actor, "accepted", "")
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	metrics.RecordTransition("project", string(p.Status))
	l.emit(ctx, notify.Event{
		Type: "project.accepted", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "Project accepted", Recipients: participants(p),
	})

	res := &AcceptResult{Project: p}
	res.Work, res.WorkErr = l.CreateWorkFromProject(ctx, actor, projectID)
	if res.WorkErr != nil {
		l.log.Warn("project accepted but work record creation failed",
			zap.String("project_id", projectID.String()), zap.Error(res.WorkErr))
	}
	return res, nil
}

// CreateWorkFromProject creates the WorkRecord of an accepted project. It
// is safe to repeat: an existing record is returned unchanged.
func (l *ProjectLifecycle) CreateWorkFromProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.WorkRecord, error) {
	const op = "CreateWorkFromProject"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}

	var (
		w       *models.WorkRecord
		created bool
	)
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireParticipant(op, actor, p); err != nil {
			return err
		}
		existing, err := tx.GetWorkByProject(ctx, p.ID)
		switch {
		case err == nil:
			w = existing
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return wrapStore(op, "work", err)
		}
		if p.Status != models.ProjectAccepted {
			return conflict(op, "project is %s, a work record needs an accepted project", p.Status)
		}

		now := l.now()
		w = &models.WorkRecord{
			ID:                     uuid.New(),
			ProjectID:              p.ID,
			ClientID:               p.AssignedBy,
			StudentID:              p.AssignedTo,
			QuotedPrice:            p.QuotedPrice,
			StartedDate:            now,
			ExpectedCompletionDate: now.AddDate(0, 0, p.CompletionDays),
			WorkStatus:             models.WorkApproved,
			Progress:               models.Progress{Percentage: 0, Description: "Work approved"},
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := tx.CreateWork(ctx, w); err != nil {
			return wrapStore(op, "work", err)
		}
		created = true
		return wrapStore(op, "work update", tx.AppendWorkUpdate(ctx, &models.WorkUpdate{
			ID:          uuid.New(),
			WorkID:      w.ID,
			UpdateType:  "work_created",
			Description: "Work record created from accepted project",
			ActorID:     actor.ID,
			CreatedAt:   now,
		}))
	})
	if err != nil {
		return nil, l.fail(op, err)
	}
	if created {
		metrics.RecordTransition("work", string(w.WorkStatus))
	}
	return w, nil
}

type Rejection struct {
	Reason       models.RejectionReason `json:"rejection_reason"`
	CustomReason string                 `json:"custom_rejection_reason"`
	Message      string                 `json:"rejection_message"`
}

var rejectionReasons = map[models.RejectionReason]bool{
	models.RejectBudgetTooLow:        true,
	models.RejectTimelineTooTight:    true,
	models.RejectScopeUnclear:        true,
	models.RejectTechnicalComplexity: true,
	models.RejectResourceUnavailable: true,
	models.RejectSkillMismatch:       true,
	models.RejectCommunication:       true,
	models.RejectOther:               true,
}

func (r Rejection) validate(op string) error {
	if r.Reason == "" {
		return validation(op, "rejection_reason", "rejection reason is required")
	}
	if !rejectionReasons[r.Reason] {
		return validation(op, "rejection_reason", "unknown rejection reason "+string(r.Reason))
	}
	if r.Reason == models.RejectOther && strings.TrimSpace(r.CustomReason) == "" {
		return validation(op, "custom_rejection_reason", "a custom reason is required when the reason is other")
	}
	return nil
}

// Reject cancels a submitted or pending project with a structured reason.
func (l *ProjectLifecycle) Reject(ctx context.Context, actor Actor, projectID uuid.UUID, r Rejection) (*models.Project, error) {
	const op = "Reject"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}
	if err := r.validate(op); err != nil {
		return nil, l.fail(op, err)
	}

	var p *models.Project
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireStudent(op, actor, p); err != nil {
			return err
		}
		if !decidable(p.Status) {
			return conflict(op, "project is %s, only submitted or pending projects can be rejected", p.Status)
		}
		if p.Objection.Unresolved() {
			return conflict(op, "resolve the open objection before rejecting")
		}
		if _, err := tx.GetWorkByProject(ctx, p.ID); err == nil {
			return conflict(op, "work has started, cancel the work instead")
		} else if !errors.Is(err, store.ErrNotFound) {
			return wrapStore(op, "work", err)
		}

		now := l.now()
		p.Rejection = models.RejectionDetails{
			IsRejected:            true,
			RejectionReason:       r.Reason,
			CustomRejectionReason: strings.TrimSpace(r.CustomReason),
			RejectionMessage:      r.Message,
			RejectedAt:            &now,
		}
		return l.setStatus(ctx, tx, op, p, models.ProjectCancelled, actor, "rejected: "+string(r.Reason), r.Message)
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	metrics.RecordTransition("project", string(p.Status))
	l.emit(ctx, notify.Event{
		Type: "project.rejected", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "Project rejected", Recipients: participants(p),
	})
	return p, nil
}

type Objection struct {
	Reason  string `json:"objection_reason"`
	Message string `json:"objection_message"`
}

// RaiseObjection puts a hold on a submitted or pending project. The status
// does not change. How an already open objection is treated depends on the
// configured re-raise policy.
func (l *ProjectLifecycle) RaiseObjection(ctx context.Context, actor Actor, projectID uuid.UUID, o Objection) (*models.Project, error) {
	const op = "RaiseObjection"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}
	if strings.TrimSpace(o.Reason) == "" {
		return nil, l.fail(op, validation(op, "objection_reason", "objection reason is required"))
	}
	if strings.TrimSpace(o.Message) == "" {
		return nil, l.fail(op, validation(op, "objection_message", "objection message is required"))
	}

	var p *models.Project
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireStudent(op, actor, p); err != nil {
			return err
		}
		if !decidable(p.Status) {
			return conflict(op, "project is %s, objections are only possible on submitted or pending projects", p.Status)
		}
		if p.Objection.Unresolved() && l.policy.ObjectionReraise == config.ReraiseBlock {
			return conflict(op, "an objection is already open on this project")
		}

		now := l.now()
		p.Objection = models.ObjectionDetails{
			HasObjection:     true,
			ObjectionReason:  strings.TrimSpace(o.Reason),
			ObjectionMessage: strings.TrimSpace(o.Message),
			RaisedAt:         &now,
		}
		return l.touch(ctx, tx, op, p, actor, "objection raised: "+p.Objection.ObjectionReason, p.Objection.ObjectionMessage)
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	l.emit(ctx, notify.Event{
		Type: "project.objection_raised", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "The student raised an objection", Recipients: participants(p),
	})
	return p, nil
}

// ResolveObjection marks the open objection resolved, unblocking accept and
// reject. Either participant may resolve it.
func (l *ProjectLifecycle) ResolveObjection(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Project, error) {
	const op = "ResolveObjection"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}

	var p *models.Project
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireParticipant(op, actor, p); err != nil {
			return err
		}
		if !p.Objection.Unresolved() {
			return conflict(op, "there is no open objection")
		}
		now := l.now()
		p.Objection.IsObjectionResolved = true
		p.Objection.ResolvedAt = &now
		return l.touch(ctx, tx, op, p, actor, "objection resolved", "")
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	l.emit(ctx, notify.Event{
		Type: "project.objection_resolved", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "Objection resolved", Recipients: participants(p),
	})
	return p, nil
}

var messageTypes = map[models.MessageType]bool{
	models.MessageGeneral:           true,
	models.MessageClarification:     true,
	models.MessageObjectionResponse: true,
	models.MessageProgressUpdate:    true,
}

// AddCommunication appends a message between the participants. Messaging
// is closed for good once the project is cancelled.
func (l *ProjectLifecycle) AddCommunication(ctx context.Context, actor Actor, projectID uuid.UUID, message string, mt models.MessageType) (*models.Project, error) {
	const op = "AddCommunication"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, l.fail(op, validation(op, "message", "message is required"))
	}
	if mt == "" {
		mt = models.MessageGeneral
	}
	if !messageTypes[mt] {
		return nil, l.fail(op, validation(op, "message_type", "unknown message type "+string(mt)))
	}

	var (
		p   *models.Project
		msg *models.Communication
	)
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if !p.IsParticipant(actor.ID) {
			return forbidden(op, "not a participant of this project")
		}
		if p.Status == models.ProjectCancelled {
			return conflict(op, "communication is disabled on cancelled projects")
		}
		msg = &models.Communication{
			ID:          uuid.New(),
			ProjectID:   p.ID,
			SenderID:    actor.ID,
			ReceiverID:  p.Counterpart(actor.ID),
			Message:     message,
			MessageType: mt,
			Timestamp:   l.now(),
		}
		if err := tx.AppendCommunication(ctx, msg); err != nil {
			return wrapStore(op, "communication", err)
		}
		if err := l.touch(ctx, tx, op, p, actor, "message: "+string(mt), ""); err != nil {
			return err
		}
		p.Communications, err = tx.ListCommunications(ctx, p.ID)
		return wrapStore(op, "communications", err)
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	l.emit(ctx, notify.Event{
		Type: "project.message", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "New message", Recipients: []uuid.UUID{msg.ReceiverID}, Data: msg,
	})
	return p, nil
}

// Dispute flags an engagement in flight. The project becomes disputed and
// its work goes on hold in the same transaction; resuming the work clears
// the dispute.
func (l *ProjectLifecycle) Dispute(ctx context.Context, actor Actor, projectID uuid.UUID, reason string) (*models.Project, error) {
	const op = "Dispute"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, l.fail(op, validation(op, "reason", "a dispute reason is required"))
	}

	var p *models.Project
	var w *models.WorkRecord
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		found, err := tx.GetWorkByProject(ctx, projectID)
		if errors.Is(err, store.ErrNotFound) {
			return conflict(op, "only projects with started work can be disputed")
		} else if err != nil {
			return wrapStore(op, "work", err)
		}
		if w, p, err = loadWorkAndProject(ctx, tx, op, found.ID); err != nil {
			return err
		}
		if !p.IsParticipant(actor.ID) {
			return forbidden(op, "not a participant of this project")
		}
		if !canMoveWork(w.WorkStatus, models.WorkOnHold) {
			return conflict(op, "work is %s and cannot be put on hold", w.WorkStatus)
		}
		if _, err := l.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
			Status:     models.WorkOnHold,
			UpdateType: "disputed",
			Note:       reason,
		}, actor); err != nil {
			return err
		}
		return l.setStatus(ctx, tx, op, p, models.ProjectDisputed, actor, "disputed", reason)
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	metrics.RecordTransition("project", string(p.Status))
	metrics.RecordTransition("work", string(w.WorkStatus))
	l.emit(ctx, notify.Event{
		Type: "project.disputed", ProjectID: p.ID, WorkID: workRef(w), Status: string(p.Status), ActorID: actor.ID,
		Message: "The project is under dispute", Recipients: participants(p),
	})
	return p, nil
}

// Withdraw lets the client cancel a request that was never accepted.
func (l *ProjectLifecycle) Withdraw(ctx context.Context, actor Actor, projectID uuid.UUID, notes string) (*models.Project, error) {
	const op = "Withdraw"
	if err := actor.check(op); err != nil {
		return nil, l.fail(op, err)
	}

	var p *models.Project
	err := l.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if p, err = tx.LockProject(ctx, projectID); err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireClient(op, actor, p); err != nil {
			return err
		}
		if !decidable(p.Status) {
			return conflict(op, "project is %s and can no longer be withdrawn", p.Status)
		}
		if _, err := tx.GetWorkByProject(ctx, p.ID); err == nil {
			return conflict(op, "work has started, cancel the work instead")
		} else if !errors.Is(err, store.ErrNotFound) {
			return wrapStore(op, "work", err)
		}
		return l.setStatus(ctx, tx, op, p, models.ProjectCancelled, actor, "withdrawn by client", notes)
	})
	if err != nil {
		return nil, l.fail(op, err)
	}

	metrics.RecordTransition("project", string(p.Status))
	l.emit(ctx, notify.Event{
		Type: "project.withdrawn", ProjectID: p.ID, Status: string(p.Status), ActorID: actor.ID,
		Message: "The client withdrew the project", Recipients: participants(p),
	})
	return p, nil
}

type StatusChange struct {
	Status models.ProjectStatus `json:"status"`
	Reason string               `json:"reason"`
	Notes  string               `json:"notes"`
}

// UpdateStatus is the generic status endpoint. Only statuses that are an
// explicit decision are accepted here; pending, in_progress and completed
// follow the work record and cannot be set directly.
func (l *ProjectLifecycle) UpdateStatus(ctx context.Context, actor Actor, projectID uuid.UUID, c StatusChange) (*AcceptResult, error) {
	const op = "UpdateStatus"
	switch c.Status {
	case models.ProjectAccepted:
		return l.Accept(ctx, actor, projectID)
	case models.ProjectCancelled:
		p, err := l.Withdraw(ctx, actor, projectID, c.Notes)
		if err != nil {
			return nil, err
		}
		return &AcceptResult{Project: p}, nil
	case models.ProjectDisputed:
		reason := c.Reason
		if reason == "" {
			reason = c.Notes
		}
		p, err := l.Dispute(ctx, actor, projectID, reason)
		if err != nil {
			return nil, err
		}
		return &AcceptResult{Project: p}, nil
	case models.ProjectPending, models.ProjectInProgress, models.ProjectCompleted:
		return nil, l.fail(op, conflict(op, "status %s follows work progress and cannot be set directly", c.Status))
	case "":
		return nil, l.fail(op, validation(op, "status", "status is required"))
	}
	return nil, l.fail(op, validation(op, "status", "unknown status "+string(c.Status)))
}
