// Package repository is the Postgres implementation of store.Store.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *GormStore) r(ctx context.Context) *gormTx {
	return &gormTx{db: s.db.WithContext(ctx)}
}

func (s *GormStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.r(ctx).GetProject(ctx, id)
}

func (s *GormStore) ListProjectHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	return s.r(ctx).ListProjectHistory(ctx, projectID)
}

func (s *GormStore) ListCommunications(ctx context.Context, projectID uuid.UUID) ([]models.Communication, error) {
	return s.r(ctx).ListCommunications(ctx, projectID)
}

func (s *GormStore) GetWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	return s.r(ctx).GetWork(ctx, id)
}

func (s *GormStore) GetWorkByProject(ctx context.Context, projectID uuid.UUID) (*models.WorkRecord, error) {
	return s.r(ctx).GetWorkByProject(ctx, projectID)
}

func (s *GormStore) ListWorkUpdates(ctx context.Context, workID uuid.UUID) ([]models.WorkUpdate, error) {
	return s.r(ctx).ListWorkUpdates(ctx, workID)
}

func (s *GormStore) ListWorksByStudent(ctx context.Context, studentID uuid.UUID, status models.WorkStatus, limit, offset int) ([]models.WorkRecord, int64, error) {
	return s.r(ctx).ListWorksByStudent(ctx, studentID, status, limit, offset)
}

func (s *GormStore) FindReview(ctx context.Context, workID, reviewerID uuid.UUID) (*models.StudentReview, error) {
	return s.r(ctx).FindReview(ctx, workID, reviewerID)
}

func (s *GormStore) ListStudentReviews(ctx context.Context, studentID uuid.UUID) ([]models.StudentReview, error) {
	return s.r(ctx).ListStudentReviews(ctx, studentID)
}

func (s *GormStore) GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.StudentPerformance, error) {
	return s.r(ctx).GetPerformance(ctx, studentID)
}

func (s *GormStore) ListLedger(ctx context.Context, studentID uuid.UUID) ([]models.EarningLedgerEntry, error) {
	return s.r(ctx).ListLedger(ctx, studentID)
}

// gormTx serves both plain reads and transactional writes; which one
// depends on the *gorm.DB it wraps.
type gormTx struct {
	db *gorm.DB
}

// translate maps gorm sentinels onto the store's. Duplicates surface as
// gorm.ErrDuplicatedKey because the pool is opened with TranslateError.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func (t *gormTx) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := t.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) ListProjectHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	out := []models.ProjectStatusHistory{}
	err := t.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("changed_at ASC").
		Find(&out).Error
	return out, err
}

func (t *gormTx) ListCommunications(ctx context.Context, projectID uuid.UUID) ([]models.Communication, error) {
	out := []models.Communication{}
	err := t.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("timestamp ASC").
		Find(&out).Error
	return out, err
}

func (t *gormTx) GetWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	var w models.WorkRecord
	if err := t.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (t *gormTx) GetWorkByProject(ctx context.Context, projectID uuid.UUID) (*models.WorkRecord, error) {
	var w models.WorkRecord
	if err := t.db.WithContext(ctx).First(&w, "project_id = ?", projectID).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (t *gormTx) ListWorkUpdates(ctx context.Context, workID uuid.UUID) ([]models.WorkUpdate, error) {
	out := []models.WorkUpdate{}
	err := t.db.WithContext(ctx).
		Where("work_id = ?", workID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (t *gormTx) ListWorksByStudent(ctx context.Context, studentID uuid.UUID, status models.WorkStatus, limit, offset int) ([]models.WorkRecord, int64, error) {
	q := t.db.WithContext(ctx).Model(&models.WorkRecord{}).Where("student_id = ?", studentID)
	if status != "" {
		q = q.Where("work_status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	works := []models.WorkRecord{}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&works).Error; err != nil {
		return nil, 0, err
	}
	return works, total, nil
}

func (t *gormTx) FindReview(ctx context.Context, workID, reviewerID uuid.UUID) (*models.StudentReview, error) {
	var r models.StudentReview
	err := t.db.WithContext(ctx).
		Where("work_id = ? AND reviewer_id = ?", workID, reviewerID).
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) ListStudentReviews(ctx context.Context, studentID uuid.UUID) ([]models.StudentReview, error) {
	out := []models.StudentReview{}
	err := t.db.WithContext(ctx).Where("student_id = ?", studentID).Find(&out).Error
	return out, err
}

func (t *gormTx) GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.StudentPerformance, error) {
	var p models.StudentPerformance
	if err := t.db.WithContext(ctx).First(&p, "student_id = ?", studentID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) ListLedger(ctx context.Context, studentID uuid.UUID) ([]models.EarningLedgerEntry, error) {
	out := []models.EarningLedgerEntry{}
	err := t.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (t *gormTx) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

// LockProject is SELECT ... FOR UPDATE; the row stays locked until the
// surrounding transaction ends.
func (t *gormTx) LockProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *gormTx) SaveProject(ctx context.Context, p *models.Project) error {
	res := t.db.WithContext(ctx).
		Model(p).
		Omit(clause.Associations).
		Select("*").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) AppendHistory(ctx context.Context, h *models.ProjectStatusHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Create(h).Error)
}

func (t *gormTx) AppendCommunication(ctx context.Context, m *models.Communication) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Create(m).Error)
}

func (t *gormTx) CreateWork(ctx context.Context, w *models.WorkRecord) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Omit(clause.Associations).Create(w).Error)
}

func (t *gormTx) LockWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	var w models.WorkRecord
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&w, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

func (t *gormTx) SaveWork(ctx context.Context, w *models.WorkRecord) error {
	res := t.db.WithContext(ctx).
		Model(w).
		Omit(clause.Associations).
		Select("*").
		Updates(w)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) AppendWorkUpdate(ctx context.Context, u *models.WorkUpdate) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Create(u).Error)
}

// SaveReview upserts on (work_id, reviewer_id) and reloads the row so the
// caller sees the surviving id and created_at.
func (t *gormTx) SaveReview(ctx context.Context, r *models.StudentReview) error {
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "work_id"}, {Name: "reviewer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"student_id", "project_id", "rating", "review_text", "skills", "communication",
			"timeliness", "quality", "problem_solving", "teamwork", "updated_at",
		}),
	}).Create(r).Error
	if err != nil {
		return err
	}
	saved, err := t.FindReview(ctx, r.WorkID, r.ReviewerID)
	if err != nil {
		return err
	}
	*r = *saved
	return nil
}

func (t *gormTx) SavePerformance(ctx context.Context, p *models.StudentPerformance) error {
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}},
		UpdateAll: true,
	}).Create(p).Error
}

func (t *gormTx) AppendLedger(ctx context.Context, e *models.EarningLedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return translate(t.db.WithContext(ctx).Create(e).Error)
}

var _ store.Store = (*GormStore)(nil)
