package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/services/ledger"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// Reads go straight to the store; the committed state is the only truth.

func (s *Service) visibleProject(ctx context.Context, op string, actor Actor, id uuid.UUID) (*models.Project, error) {
	if err := actor.check(op); err != nil {
		return nil, err
	}
	p, err := s.core.store.GetProject(ctx, id)
	if err != nil {
		return nil, wrapStore(op, "project", err)
	}
	if err := requireParticipant(op, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns the project with its status history and messages.
func (s *Service) GetProject(ctx context.Context, actor Actor, id uuid.UUID) (*models.Project, error) {
	const op = "GetProject"
	p, err := s.visibleProject(ctx, op, actor, id)
	if err != nil {
		return nil, s.core.fail(op, err)
	}
	if p.StatusHistory, err = s.core.store.ListProjectHistory(ctx, id); err != nil {
		return nil, s.core.fail(op, wrapStore(op, "history", err))
	}
	if p.Communications, err = s.core.store.ListCommunications(ctx, id); err != nil {
		return nil, s.core.fail(op, wrapStore(op, "communications", err))
	}
	return p, nil
}

func (s *Service) ListHistory(ctx context.Context, actor Actor, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	const op = "ListHistory"
	if _, err := s.visibleProject(ctx, op, actor, projectID); err != nil {
		return nil, s.core.fail(op, err)
	}
	h, err := s.core.store.ListProjectHistory(ctx, projectID)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "history", err))
	}
	return h, nil
}

// GetWorkByProject returns nil without error when the project has no work
// record yet.
func (s *Service) GetWorkByProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.WorkRecord, error) {
	const op = "GetWorkByProject"
	if _, err := s.visibleProject(ctx, op, actor, projectID); err != nil {
		return nil, s.core.fail(op, err)
	}
	w, err := s.core.store.GetWorkByProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "work", err))
	}
	return w, nil
}

func (s *Service) GetWork(ctx context.Context, actor Actor, workID uuid.UUID) (*models.WorkRecord, error) {
	const op = "GetWork"
	if err := actor.check(op); err != nil {
		return nil, s.core.fail(op, err)
	}
	w, err := s.core.store.GetWork(ctx, workID)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "work", err))
	}
	if !actor.isAdmin() && w.ClientID != actor.ID && w.StudentID != actor.ID {
		return nil, s.core.fail(op, forbidden(op, "not a participant of this work"))
	}
	return w, nil
}

func (s *Service) ListWorkUpdates(ctx context.Context, actor Actor, workID uuid.UUID) ([]models.WorkUpdate, error) {
	const op = "ListWorkUpdates"
	if _, err := s.GetWork(ctx, actor, workID); err != nil {
		return nil, err
	}
	u, err := s.core.store.ListWorkUpdates(ctx, workID)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "work updates", err))
	}
	return u, nil
}

type Dashboard struct {
	Works       []models.WorkRecord        `json:"works"`
	Total       int64                      `json:"total"`
	Page        int                        `json:"page"`
	Limit       int                        `json:"limit"`
	Performance *models.StudentPerformance `json:"performance"`
	Earnings    ledger.Summary             `json:"earnings"`
}

// StudentDashboard lists the student's works, optionally by status, with
// the review rollup and attested earnings.
func (s *Service) StudentDashboard(ctx context.Context, actor Actor, status models.WorkStatus, page, limit int) (*Dashboard, error) {
	const op = "StudentDashboard"
	if err := actor.check(op); err != nil {
		return nil, s.core.fail(op, err)
	}
	if actor.Role != models.RoleStudent {
		return nil, s.core.fail(op, forbidden(op, "only students have a dashboard"))
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	works, total, err := s.core.store.ListWorksByStudent(ctx, actor.ID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "works", err))
	}
	perf, err := s.core.store.GetPerformance(ctx, actor.ID)
	if errors.Is(err, store.ErrNotFound) {
		perf, err = &models.StudentPerformance{StudentID: actor.ID}, nil
	}
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "performance", err))
	}
	earnings, err := s.core.ledger.Summarize(ctx, s.core.store, actor.ID)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "ledger", err))
	}
	return &Dashboard{Works: works, Total: total, Page: page, Limit: limit, Performance: perf, Earnings: earnings}, nil
}

// PendingReview builds the optimistic projection for a review the client
// is about to submit.
func (s *Service) PendingReview(ctx context.Context, actor Actor, workID uuid.UUID, in ReviewInput) (*PendingReview, error) {
	const op = "PendingReview"
	w, err := s.GetWork(ctx, actor, workID)
	if err != nil {
		return nil, err
	}
	committed, err := s.core.store.ListStudentReviews(ctx, w.StudentID)
	if err != nil {
		return nil, s.core.fail(op, wrapStore(op, "reviews", err))
	}
	pr := ProjectPendingReview(w, actor.ID, in, committed)
	return &pr, nil
}
