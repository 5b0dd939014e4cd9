// internal/models/work.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkStatus string

const (
	WorkApproved                WorkStatus = "approved"
	WorkInProgress              WorkStatus = "in_progress"
	WorkReviewPending           WorkStatus = "review_pending"
	WorkAwaitingCompletionProof WorkStatus = "awaiting_completion_proof"
	WorkCompletionSubmitted     WorkStatus = "completion_submitted"
	WorkPaymentPending          WorkStatus = "payment_pending"
	WorkPaymentSubmitted        WorkStatus = "payment_submitted"
	WorkPaymentVerified         WorkStatus = "payment_verified"
	WorkCompleted               WorkStatus = "completed"
	WorkDelivered               WorkStatus = "delivered"
	WorkOnHold                  WorkStatus = "on_hold"
	WorkCancelled               WorkStatus = "cancelled"
)

// FileRef points at an object in file storage. Only committed uploads are
// ever referenced from a WorkRecord.
type FileRef struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

type Progress struct {
	Percentage  int    `gorm:"not null;default:0" json:"percentage"`
	Description string `gorm:"type:text" json:"description"`
}

type StudentPaymentDetails struct {
	UpiID               string  `gorm:"type:varchar(80)" json:"upi_id"`
	UpiPhoneNumber      string  `gorm:"type:varchar(10)" json:"upi_phone_number"`
	UpiQrCodeURL        string  `gorm:"type:text" json:"upi_qr_code_url"`
	UpiQrCode           FileRef `gorm:"serializer:json;type:jsonb" json:"upi_qr_code"`
	PaymentInstructions string  `gorm:"type:text" json:"payment_instructions"`
}

type CompletionSubmission struct {
	CompletionFiles datatypes.JSONSlice[FileRef] `gorm:"type:jsonb" json:"completion_files"`
	ProjectLinks    datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"project_links"`
	SubmissionNotes string                       `gorm:"type:text" json:"submission_notes"`
	SubmittedAt     *time.Time                   `json:"submitted_at,omitempty"`

	StudentPaymentDetails StudentPaymentDetails `gorm:"embedded;embeddedPrefix:payment_details_" json:"student_payment_details"`
}

// Present reports whether completion evidence has been committed.
func (c CompletionSubmission) Present() bool {
	return c.SubmittedAt != nil
}

type PaymentVerification struct {
	UpiTransactionID  string     `gorm:"type:varchar(80)" json:"upi_transaction_id"`
	PaymentToName     string     `gorm:"type:varchar(120)" json:"payment_to_name"`
	PaymentAmount     int64      `json:"payment_amount"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	PaymentProofURL   string     `gorm:"type:text" json:"payment_proof_url"`
	PaymentProof      FileRef    `gorm:"serializer:json;type:jsonb" json:"payment_proof"`
	ProofSubmittedAt  *time.Time `json:"proof_submitted_at,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	VerificationNotes string     `gorm:"type:text" json:"verification_notes"`
}

// Present reports whether the client has attached a payment proof.
func (p PaymentVerification) Present() bool {
	return p.ProofSubmittedAt != nil
}

type WorkRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"project_id"`

	ClientID  uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	StudentID uuid.UUID `gorm:"type:uuid;index" json:"student_id"`

	QuotedPrice            int64     `json:"quoted_price"`
	StartedDate            time.Time `json:"started_date"`
	ExpectedCompletionDate time.Time `json:"expected_completion_date"`

	WorkStatus WorkStatus `gorm:"type:varchar(30);not null;default:'approved';index" json:"work_status"`
	Progress   Progress   `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`

	CompletionSubmission CompletionSubmission `gorm:"embedded;embeddedPrefix:completion_" json:"completion_submission"`
	PaymentVerification  PaymentVerification  `gorm:"embedded;embeddedPrefix:payment_" json:"payment_verification"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkUpdates []WorkUpdate `gorm:"foreignKey:WorkID" json:"work_updates,omitempty"`
}

// WorkUpdate is the append-only audit trail of a WorkRecord.
type WorkUpdate struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"work_id"`
	UpdateType  string         `gorm:"type:varchar(40);not null" json:"update_type"`
	Description string         `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSON `json:"metadata"`
	ActorID     uuid.UUID      `gorm:"type:uuid" json:"actor_id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}
