// Package store defines the transactional persistence contract the workflow
// core runs against. Implementations: repository.GormStore (Postgres) and
// memstore.Store (tests, local runs).
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("record already exists")
)

// Reader is the read side, usable both inside and outside a transaction.
type Reader interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjectHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error)
	ListCommunications(ctx context.Context, projectID uuid.UUID) ([]models.Communication, error)

	GetWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error)
	// GetWorkByProject returns ErrNotFound when the project was never accepted.
	GetWorkByProject(ctx context.Context, projectID uuid.UUID) (*models.WorkRecord, error)
	ListWorkUpdates(ctx context.Context, workID uuid.UUID) ([]models.WorkUpdate, error)
	ListWorksByStudent(ctx context.Context, studentID uuid.UUID, status models.WorkStatus, limit, offset int) ([]models.WorkRecord, int64, error)

	FindReview(ctx context.Context, workID, reviewerID uuid.UUID) (*models.StudentReview, error)
	ListStudentReviews(ctx context.Context, studentID uuid.UUID) ([]models.StudentReview, error)
	GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.StudentPerformance, error)
	ListLedger(ctx context.Context, studentID uuid.UUID) ([]models.EarningLedgerEntry, error)
}

// Tx is one unit of work. Lock* methods hold the row until the transaction
// ends, which is what serializes concurrent writers on the same entity.
type Tx interface {
	Reader

	CreateProject(ctx context.Context, p *models.Project) error
	LockProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	SaveProject(ctx context.Context, p *models.Project) error
	AppendHistory(ctx context.Context, h *models.ProjectStatusHistory) error
	AppendCommunication(ctx context.Context, m *models.Communication) error

	CreateWork(ctx context.Context, w *models.WorkRecord) error
	LockWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error)
	SaveWork(ctx context.Context, w *models.WorkRecord) error
	AppendWorkUpdate(ctx context.Context, u *models.WorkUpdate) error

	SaveReview(ctx context.Context, r *models.StudentReview) error
	SavePerformance(ctx context.Context, p *models.StudentPerformance) error
	AppendLedger(ctx context.Context, e *models.EarningLedgerEntry) error
}

type Store interface {
	Reader
	// InTx commits when fn returns nil and rolls back everything otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
