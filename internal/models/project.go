// internal/models/project.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectSubmitted  ProjectStatus = "submitted"
	ProjectAccepted   ProjectStatus = "accepted"
	ProjectPending    ProjectStatus = "pending"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
	ProjectDisputed   ProjectStatus = "disputed"
)

type ServiceCategory string

const (
	CategoryWebDevelopment    ServiceCategory = "web-development"
	CategoryMobileDevelopment ServiceCategory = "mobile-development"
	CategoryGraphicDesign     ServiceCategory = "graphic-design"
	CategoryDataAnalysis      ServiceCategory = "data-analysis"
	CategoryResumeServices    ServiceCategory = "resume-services"
	CategoryContentWriting    ServiceCategory = "content-writing"
	CategoryVideoEditing      ServiceCategory = "video-editing"
	CategoryOther             ServiceCategory = "other"
)

type RejectionReason string

const (
	RejectBudgetTooLow        RejectionReason = "budget_too_low"
	RejectTimelineTooTight    RejectionReason = "timeline_too_tight"
	RejectScopeUnclear        RejectionReason = "scope_unclear"
	RejectTechnicalComplexity RejectionReason = "technical_complexity"
	RejectResourceUnavailable RejectionReason = "resource_unavailable"
	RejectSkillMismatch       RejectionReason = "skill_mismatch"
	RejectCommunication       RejectionReason = "communication_issues"
	RejectOther               RejectionReason = "other"
)

// ObjectionDetails is embedded into the projects table with an objection_ prefix.
type ObjectionDetails struct {
	HasObjection        bool       `gorm:"default:false" json:"has_objection"`
	ObjectionReason     string     `gorm:"type:varchar(120)" json:"objection_reason"`
	ObjectionMessage    string     `gorm:"type:text" json:"objection_message"`
	IsObjectionResolved bool       `gorm:"default:false" json:"is_objection_resolved"`
	RaisedAt            *time.Time `json:"raised_at,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
}

// Unresolved reports whether the objection still blocks accept/reject.
func (o ObjectionDetails) Unresolved() bool {
	return o.HasObjection && !o.IsObjectionResolved
}

type RejectionDetails struct {
	IsRejected            bool            `gorm:"default:false" json:"is_rejected"`
	RejectionReason       RejectionReason `gorm:"type:varchar(40)" json:"rejection_reason"`
	CustomRejectionReason string          `gorm:"type:text" json:"custom_rejection_reason"`
	RejectionMessage      string          `gorm:"type:text" json:"rejection_message"`
	RejectedAt            *time.Time      `json:"rejected_at,omitempty"`
}

type Project struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	ProjectName        string          `gorm:"type:varchar(200);not null" json:"project_name"`
	ProjectDescription string          `gorm:"type:text" json:"project_description"`
	Requirements       string          `gorm:"type:text" json:"requirements"`
	ServiceCategory    ServiceCategory `gorm:"type:varchar(40);index" json:"service_category"`
	QuotedPrice        int64           `json:"quoted_price"`
	CompletionDays     int             `json:"completion_time"`
	Urgency            string          `gorm:"type:varchar(20)" json:"urgency"`
	PaymentTerms       string          `gorm:"type:text" json:"payment_terms"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;default:'submitted';index" json:"status"`

	Objection ObjectionDetails `gorm:"embedded;embeddedPrefix:objection_" json:"objection_details"`
	Rejection RejectionDetails `gorm:"embedded;embeddedPrefix:rejection_" json:"rejection_details"`

	AssignedBy uuid.UUID `gorm:"type:uuid;index;not null" json:"assigned_by"` // client
	AssignedTo uuid.UUID `gorm:"type:uuid;index;not null" json:"assigned_to"` // student

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Read-side projections, filled by GetProject.
	StatusHistory  []ProjectStatusHistory `gorm:"foreignKey:ProjectID" json:"status_history,omitempty"`
	Communications []Communication        `gorm:"foreignKey:ProjectID" json:"communications,omitempty"`
}

// IsParticipant reports whether userID is the client or the student of p.
func (p *Project) IsParticipant(userID uuid.UUID) bool {
	return p.AssignedBy == userID || p.AssignedTo == userID
}

// Counterpart returns the other party of the engagement.
func (p *Project) Counterpart(userID uuid.UUID) uuid.UUID {
	if p.AssignedBy == userID {
		return p.AssignedTo
	}
	return p.AssignedBy
}

// ProjectStatusHistory is the append-only status log. Rows are never updated.
type ProjectStatusHistory struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID     `gorm:"type:uuid;index;not null" json:"project_id"`
	Status    ProjectStatus `gorm:"type:varchar(20);not null" json:"status"`
	Reason    string        `gorm:"type:varchar(80)" json:"reason"`
	Notes     string        `gorm:"type:text" json:"notes"`
	ActorID   uuid.UUID     `gorm:"type:uuid;index" json:"actor_id"`
	ActorRole Role          `gorm:"type:varchar(20)" json:"actor_role"`
	ChangedAt time.Time     `gorm:"index" json:"changed_at"`
}

type MessageType string

const (
	MessageGeneral           MessageType = "general"
	MessageClarification     MessageType = "clarification"
	MessageObjectionResponse MessageType = "objection_response"
	MessageProgressUpdate    MessageType = "progress_update"
)

type Communication struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"project_id"`
	SenderID    uuid.UUID   `gorm:"type:uuid;index" json:"sender"`
	ReceiverID  uuid.UUID   `gorm:"type:uuid;index" json:"receiver"`
	Message     string      `gorm:"type:text;not null" json:"message"`
	MessageType MessageType `gorm:"type:varchar(30);default:'general'" json:"message_type"`
	IsRead      bool        `gorm:"default:false" json:"is_read"`
	Timestamp   time.Time   `gorm:"index" json:"timestamp"`
}
