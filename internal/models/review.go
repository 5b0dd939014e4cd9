package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentReview is unique per (work, reviewer); a second submission updates
// the same row.
type StudentReview struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_work_reviewer" json:"work_id"`
	ReviewerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_work_reviewer" json:"reviewer_id"`
	StudentID  uuid.UUID `gorm:"type:uuid;index;not null" json:"student_id"`
	ProjectID  uuid.UUID `gorm:"type:uuid;index" json:"project_id"`

	Rating         int    `gorm:"not null" json:"rating"` // 1-5
	ReviewText     string `gorm:"type:text" json:"review_text"`
	Skills         int    `json:"skills"`
	Communication  int    `json:"communication"`
	Timeliness     int    `json:"timeliness"`
	Quality        int    `json:"quality"`
	ProblemSolving int    `json:"problem_solving"`
	Teamwork       int    `json:"teamwork"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *StudentReview) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// StudentPerformance is the rollup over every StudentReview of one student.
type StudentPerformance struct {
	StudentID uuid.UUID `gorm:"type:uuid;primaryKey" json:"student_id"`

	TechnicalSkills     float64 `json:"technical_skills"`
	CommunicationSkills float64 `json:"communication_skills"`
	Punctuality         float64 `json:"punctuality"`
	QualityOfWork       float64 `json:"quality_of_work"`
	ProblemSolving      float64 `json:"problem_solving"`
	Teamwork            float64 `json:"teamwork"`
	OverallRating       float64 `json:"overall_rating"`
	TotalReviews        int     `json:"total_reviews"`

	UpdatedAt time.Time `json:"updated_at"`
}
