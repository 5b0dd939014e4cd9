package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/lock"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/metrics"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// CompletionAndPaymentHandshake gates a work's move to completed: the
// student submits evidence and UPI details, the client attaches a payment
// proof and the student attests that the money arrived.
type CompletionAndPaymentHandshake struct {
	*core
	lifecycle *ProjectLifecycle
	progress  *ProgressTracker
}

const (
	fileCompletion   = "completion"
	fileQRCode       = "qr_code"
	filePaymentProof = "payment_proof"
)

var (
	upiIDPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

type Evidence struct {
	Files           []storage.Upload
	ProjectLinks    []string
	SubmissionNotes string
}

type PaymentDetails struct {
	UpiQrCode           *storage.Upload
	UpiID               string
	UpiPhoneNumber      string
	PaymentInstructions string
}

type PaymentProof struct {
	Proof            *storage.Upload
	UpiTransactionID string
	PaymentToName    string
	PaymentAmount    int64
	PaymentDate      *time.Time
}

// completionFrom are the statuses evidence can be submitted from.
var completionFrom = map[models.WorkStatus]bool{
	models.WorkInProgress:              true,
	models.WorkReviewPending:           true,
	models.WorkAwaitingCompletionProof: true,
}

// cleanup removes uploads that never got referenced. It must run even when
// the request context is already cancelled.
func (h *CompletionAndPaymentHandshake) cleanup(ctx context.Context, refs ...models.FileRef) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if ref.Key == "" {
			continue
		}
		if err := h.files.Delete(ctx, ref.Key); err != nil {
			h.log.Warn("orphaned upload", zap.String("key", ref.Key), zap.Error(err))
		}
	}
}

func (h *CompletionAndPaymentHandshake) put(ctx context.Context, op string, workID uuid.UUID, kind string, u storage.Upload, contentType string) (models.FileRef, error) {
	ref, err := h.files.Put(ctx, storage.ObjectKey(workID, kind, u.Filename), u, contentType)
	if err != nil {
		return models.FileRef{}, storageFailure(op, err)
	}
	metrics.RecordUpload(kind, ref.Size)
	ref.URL = fileRoute(workID, kind, ref.Key)
	return ref, nil
}

// fileRoute is the authenticated API path for a stored object. Signed or
// token URLs are only minted per request by DownloadFile.
func fileRoute(workID uuid.UUID, kind, key string) string {
	return "/api/works/" + workID.String() + "/files/" + kind + "/" + path.Base(key)
}

// inspect maps pre-write file check failures to validation errors, except
// oversized payloads which keep their storage cause.
func inspect(op, field string, u storage.Upload, rule storage.Rule) (string, error) {
	ct, err := storage.Inspect(u, rule)
	if err == nil {
		return ct, nil
	}
	if errors.Is(err, storage.ErrTooLarge) {
		e := storageFailure(op, err)
		e.Field = field
		return "", e
	}
	if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrEmptyFile) {
		return "", validation(op, field, err.Error())
	}
	return "", storageFailure(op, err)
}

func (h *CompletionAndPaymentHandshake) checkPaymentDetails(op string, pd PaymentDetails) (string, error) {
	if !upiIDPattern.MatchString(strings.TrimSpace(pd.UpiID)) {
		return "", validation(op, "upi_id", "enter a valid UPI id, e.g. name@bank")
	}
	if !phonePattern.MatchString(strings.TrimSpace(pd.UpiPhoneNumber)) {
		return "", validation(op, "upi_phone_number", "UPI phone number must be exactly 10 digits")
	}
	if pd.UpiQrCode == nil {
		return "", validation(op, "upi_qr_code", "a UPI QR code image is required")
	}
	return inspect(op, "upi_qr_code", *pd.UpiQrCode, storage.Rule{MaxBytes: h.policy.QRMaxBytes, ImageOnly: true})
}

// checkEvidence validates evidence per service category and sniffs every
// file. It returns the content types in file order.
func (h *CompletionAndPaymentHandshake) checkEvidence(op string, category models.ServiceCategory, ev Evidence) ([]string, []string, error) {
	var links []string
	for _, l := range ev.ProjectLinks {
		if l = strings.TrimSpace(l); l != "" {
			links = append(links, l)
		}
	}
	if h.policy.IsDocumentCategory(string(category)) {
		if len(ev.Files) == 0 {
			return nil, nil, validation(op, "files", "upload at least one completion file for "+string(category))
		}
	} else if len(links) == 0 {
		return nil, nil, validation(op, "project_links", "add at least one project link")
	}
	if h.policy.MaxCompletionFiles > 0 && len(ev.Files) > h.policy.MaxCompletionFiles {
		return nil, nil, validation(op, "files", fmt.Sprintf("at most %d completion files are allowed", h.policy.MaxCompletionFiles))
	}

	types := make([]string, len(ev.Files))
	for i, f := range ev.Files {
		ct, err := inspect(op, "files", f, storage.Rule{MaxBytes: h.policy.CompletionFileMaxBytes})
		if err != nil {
			return nil, nil, err
		}
		types[i] = ct
	}
	return links, types, nil
}

// SubmitCompletion registers completion evidence and the student's UPI
// details. Evidence commits first (completion_submitted); the payment
// details then move the work to payment_pending at 100%. If the second
// half fails, the returned *Error has Kind KindPartial and Committed holds
// the work as stored; SubmitPaymentDetails retries just that half.
func (h *CompletionAndPaymentHandshake) SubmitCompletion(ctx context.Context, actor Actor, workID uuid.UUID, ev Evidence, pd PaymentDetails) (*models.WorkRecord, error) {
	const op = "SubmitCompletion"
	if err := actor.check(op); err != nil {
		return nil, h.fail(op, err)
	}
	qrType, err := h.checkPaymentDetails(op, pd)
	if err != nil {
		return nil, h.fail(op, err)
	}

	var (
		w       *models.WorkRecord
		p       *models.Project
		changed bool
	)
	err = h.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		cur, err := h.store.GetWork(ctx, workID)
		if err != nil {
			return wrapStore(op, "work", err)
		}
		proj, err := h.store.GetProject(ctx, cur.ProjectID)
		if err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireStudent(op, actor, proj); err != nil {
			return err
		}
		if !completionFrom[cur.WorkStatus] {
			if cur.WorkStatus == models.WorkCompletionSubmitted {
				return conflict(op, "completion already submitted, submit the payment details")
			}
			return conflict(op, "work is %s, completion cannot be submitted", cur.WorkStatus)
		}
		links, types, err := h.checkEvidence(op, proj.ServiceCategory, ev)
		if err != nil {
			return err
		}

		uploaded := make([]models.FileRef, 0, len(ev.Files))
		for i, f := range ev.Files {
			ref, err := h.put(ctx, op, workID, fileCompletion, f, types[i])
			if err != nil {
				h.cleanup(ctx, uploaded...)
				return err
			}
			uploaded = append(uploaded, ref)
		}

		err = h.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			if w, p, err = loadWorkAndProject(ctx, tx, op, workID); err != nil {
				return err
			}
			if !completionFrom[w.WorkStatus] {
				return conflict(op, "work is %s, completion cannot be submitted", w.WorkStatus)
			}
			now := h.now()
			changed, err = h.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
				Status:     models.WorkCompletionSubmitted,
				UpdateType: "completion_submitted",
				Note:       "Completion evidence submitted",
				Metadata:   map[string]any{"files": len(uploaded), "links": len(links)},
				apply: func(next *models.WorkRecord) {
					next.CompletionSubmission.CompletionFiles = uploaded
					next.CompletionSubmission.ProjectLinks = links
					next.CompletionSubmission.SubmissionNotes = strings.TrimSpace(ev.SubmissionNotes)
					next.CompletionSubmission.SubmittedAt = &now
				},
			}, actor)
			return err
		})
		if err != nil {
			h.cleanup(ctx, uploaded...)
			return err
		}
		recordCommitted(w, p, changed)

		done, err := h.submitPaymentDetails(ctx, actor, workID, pd, qrType)
		if err != nil {
			return &Error{
				Kind:      KindPartial,
				Op:        op,
				Message:   "work submitted but payment details pending, resubmit the payment details",
				Field:     fieldOf(err),
				Cause:     causeOf(err),
				Err:       err,
				Committed: w,
			}
		}
		w, p = done.work, done.project
		return nil
	})
	if err != nil {
		return nil, h.fail(op, err)
	}

	h.emit(ctx, notify.Event{
		Type: "work.payment_pending", ProjectID: p.ID, WorkID: workRef(w), Status: string(w.WorkStatus),
		ActorID: actor.ID, Message: "Work completed, please pay the student via UPI", Recipients: participants(p),
	})
	return w, nil
}

func fieldOf(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Field
	}
	return ""
}

func causeOf(err error) StorageCause {
	var we *Error
	if errors.As(err, &we) {
		return we.Cause
	}
	return ""
}

// SubmitPaymentDetails commits the second half of the completion step. It
// is idempotent: a work already at payment_pending is returned unchanged.
func (h *CompletionAndPaymentHandshake) SubmitPaymentDetails(ctx context.Context, actor Actor, workID uuid.UUID, pd PaymentDetails) (*models.WorkRecord, error) {
	const op = "SubmitPaymentDetails"
	if err := actor.check(op); err != nil {
		return nil, h.fail(op, err)
	}
	qrType, err := h.checkPaymentDetails(op, pd)
	if err != nil {
		return nil, h.fail(op, err)
	}

	var res *detailsResult
	err = h.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		var err error
		res, err = h.submitPaymentDetails(ctx, actor, workID, pd, qrType)
		return err
	})
	if err != nil {
		return nil, h.fail(op, err)
	}
	if res.applied {
		h.emit(ctx, notify.Event{
			Type: "work.payment_pending", ProjectID: res.project.ID, WorkID: workRef(res.work), Status: string(res.work.WorkStatus),
			ActorID: actor.ID, Message: "Payment details added, please pay the student via UPI", Recipients: participants(res.project),
		})
	}
	return res.work, nil
}

type detailsResult struct {
	work    *models.WorkRecord
	project *models.Project
	applied bool
}

// submitPaymentDetails expects the work lock to be held.
func (h *CompletionAndPaymentHandshake) submitPaymentDetails(ctx context.Context, actor Actor, workID uuid.UUID, pd PaymentDetails, qrType string) (*detailsResult, error) {
	const op = "SubmitPaymentDetails"

	cur, err := h.store.GetWork(ctx, workID)
	if err != nil {
		return nil, wrapStore(op, "work", err)
	}
	proj, err := h.store.GetProject(ctx, cur.ProjectID)
	if err != nil {
		return nil, wrapStore(op, "project", err)
	}
	if err := requireStudent(op, actor, proj); err != nil {
		return nil, err
	}
	switch cur.WorkStatus {
	case models.WorkPaymentPending:
		return &detailsResult{work: cur, project: proj}, nil
	case models.WorkCompletionSubmitted:
	default:
		return nil, conflict(op, "work is %s, payment details follow a completion submission", cur.WorkStatus)
	}

	qr, err := h.put(ctx, op, workID, fileQRCode, *pd.UpiQrCode, qrType)
	if err != nil {
		return nil, err
	}

	res := &detailsResult{applied: true}
	var changed bool
	err = h.store.InTx(ctx, func(tx store.Tx) error {
		w, p, err := loadWorkAndProject(ctx, tx, op, workID)
		if err != nil {
			return err
		}
		if w.WorkStatus != models.WorkCompletionSubmitted {
			return conflict(op, "work is %s, payment details follow a completion submission", w.WorkStatus)
		}
		full := 100
		changed, err = h.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
			Status:      models.WorkPaymentPending,
			Percentage:  &full,
			Description: "Work completed",
			UpdateType:  "payment_details_submitted",
			Note:        "UPI payment details submitted",
			Metadata:    map[string]any{"upi_id": strings.TrimSpace(pd.UpiID)},
			apply: func(next *models.WorkRecord) {
				next.CompletionSubmission.StudentPaymentDetails = models.StudentPaymentDetails{
					UpiID:               strings.TrimSpace(pd.UpiID),
					UpiPhoneNumber:      strings.TrimSpace(pd.UpiPhoneNumber),
					UpiQrCodeURL:        qr.URL,
					UpiQrCode:           qr,
					PaymentInstructions: strings.TrimSpace(pd.PaymentInstructions),
				}
			},
		}, actor)
		res.work, res.project = w, p
		return err
	})
	if err != nil {
		h.cleanup(ctx, qr)
		return nil, err
	}
	recordCommitted(res.work, res.project, changed)
	return res, nil
}

// SubmitPaymentProof is the client's attestation that the UPI payment was
// sent.
func (h *CompletionAndPaymentHandshake) SubmitPaymentProof(ctx context.Context, actor Actor, workID uuid.UUID, pp PaymentProof) (*models.WorkRecord, error) {
	const op = "SubmitPaymentProof"
	if err := actor.check(op); err != nil {
		return nil, h.fail(op, err)
	}
	switch {
	case strings.TrimSpace(pp.UpiTransactionID) == "":
		return nil, h.fail(op, validation(op, "upi_transaction_id", "UPI transaction id is required"))
	case strings.TrimSpace(pp.PaymentToName) == "":
		return nil, h.fail(op, validation(op, "payment_to_name", "payee name is required"))
	case pp.PaymentAmount <= 0:
		return nil, h.fail(op, validation(op, "payment_amount", "payment amount must be greater than zero"))
	case pp.Proof == nil:
		return nil, h.fail(op, validation(op, "payment_proof", "a payment screenshot is required"))
	}
	proofType, err := inspect(op, "payment_proof", *pp.Proof, storage.Rule{MaxBytes: h.policy.ProofMaxBytes, ImageOnly: true})
	if err != nil {
		return nil, h.fail(op, err)
	}

	var (
		w       *models.WorkRecord
		p       *models.Project
		changed bool
	)
	err = h.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		cur, err := h.store.GetWork(ctx, workID)
		if err != nil {
			return wrapStore(op, "work", err)
		}
		proj, err := h.store.GetProject(ctx, cur.ProjectID)
		if err != nil {
			return wrapStore(op, "project", err)
		}
		if err := requireClient(op, actor, proj); err != nil {
			return err
		}
		if cur.WorkStatus != models.WorkPaymentPending {
			return conflict(op, "work is %s, payment proof is expected at payment_pending", cur.WorkStatus)
		}

		proof, err := h.put(ctx, op, workID, filePaymentProof, *pp.Proof, proofType)
		if err != nil {
			return err
		}
		err = h.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			if w, p, err = loadWorkAndProject(ctx, tx, op, workID); err != nil {
				return err
			}
			if w.WorkStatus != models.WorkPaymentPending {
				return conflict(op, "work is %s, payment proof is expected at payment_pending", w.WorkStatus)
			}
			now := h.now()
			changed, err = h.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
				Status:     models.WorkPaymentSubmitted,
				UpdateType: "payment_submitted",
				Note:       "Client submitted UPI payment proof",
				Metadata: map[string]any{
					"upi_transaction_id": strings.TrimSpace(pp.UpiTransactionID),
					"payment_amount":     pp.PaymentAmount,
				},
				apply: func(next *models.WorkRecord) {
					next.PaymentVerification = models.PaymentVerification{
						UpiTransactionID: strings.TrimSpace(pp.UpiTransactionID),
						PaymentToName:    strings.TrimSpace(pp.PaymentToName),
						PaymentAmount:    pp.PaymentAmount,
						PaymentDate:      pp.PaymentDate,
						PaymentProofURL:  proof.URL,
						PaymentProof:     proof,
						ProofSubmittedAt: &now,
					}
				},
			}, actor)
			return err
		})
		if err != nil {
			h.cleanup(ctx, proof)
		}
		return err
	})
	if err != nil {
		return nil, h.fail(op, err)
	}

	recordCommitted(w, p, changed)
	h.emit(ctx, notify.Event{
		Type: "work.payment_submitted", ProjectID: p.ID, WorkID: workRef(w), Status: string(w.WorkStatus),
		ActorID: actor.ID, Message: "The client sent a payment proof, please verify it", Recipients: participants(p),
	})
	return w, nil
}

// VerifyPaymentAndComplete records the student's confirmation that the UPI
// payment arrived. No payment rail is consulted: the attestation is the
// source of truth. The work passes payment_verified and lands on completed,
// the project completes and an earnings entry is written, all in one
// transaction.
func (h *CompletionAndPaymentHandshake) VerifyPaymentAndComplete(ctx context.Context, actor Actor, workID uuid.UUID, notes string) (*models.WorkRecord, error) {
	const op = "VerifyPaymentAndComplete"
	if err := actor.check(op); err != nil {
		return nil, h.fail(op, err)
	}

	var (
		w       *models.WorkRecord
		p       *models.Project
		changed bool
	)
	err := h.withLock(ctx, op, lock.WorkKey(workID.String()), func() error {
		return h.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			if w, p, err = loadWorkAndProject(ctx, tx, op, workID); err != nil {
				return err
			}
			if err := requireStudent(op, actor, p); err != nil {
				return err
			}
			if w.WorkStatus != models.WorkPaymentSubmitted {
				return conflict(op, "work is %s, payment can only be verified once the client submitted a proof", w.WorkStatus)
			}

			now := h.now()
			notes = strings.TrimSpace(notes)
			if _, err := h.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
				Status:     models.WorkPaymentVerified,
				UpdateType: "payment_verified",
				Note:       "Student confirmed the UPI payment",
				Metadata:   map[string]any{"upi_transaction_id": w.PaymentVerification.UpiTransactionID},
				apply: func(next *models.WorkRecord) {
					next.PaymentVerification.VerifiedAt = &now
					next.PaymentVerification.VerificationNotes = notes
				},
			}, actor); err != nil {
				return err
			}
			if changed, err = h.progress.commitWork(ctx, tx, op, p, w, WorkDelta{
				Status:     models.WorkCompleted,
				UpdateType: "completed",
				Note:       "Work completed",
			}, actor); err != nil {
				return err
			}
			return wrapStore(op, "ledger", h.ledger.RecordAttestedPayment(ctx, tx, w))
		})
	})
	if err != nil {
		return nil, h.fail(op, err)
	}

	metrics.RecordTransition("work", string(models.WorkPaymentVerified))
	recordCommitted(w, p, changed)
	h.emit(ctx, notify.Event{
		Type: "work.completed", ProjectID: p.ID, WorkID: workRef(w), Status: string(w.WorkStatus),
		ActorID: actor.ID, Message: "Payment verified, the project is complete", Recipients: participants(p),
	})
	return w, nil
}

type Download struct {
	DownloadURL string `json:"download_url"`
	FileName    string `json:"file_name"`
}

// DownloadFile returns a short-lived URL for one stored artifact of the
// work. fileName matches either the uploaded name or the stored object name.
func (h *CompletionAndPaymentHandshake) DownloadFile(ctx context.Context, actor Actor, workID uuid.UUID, fileType, fileName string) (*Download, error) {
	const op = "DownloadFile"
	if err := actor.check(op); err != nil {
		return nil, h.fail(op, err)
	}
	if fileName == "" {
		return nil, h.fail(op, validation(op, "file_name", "file name is required"))
	}

	w, err := h.store.GetWork(ctx, workID)
	if err != nil {
		return nil, h.fail(op, wrapStore(op, "work", err))
	}
	p, err := h.store.GetProject(ctx, w.ProjectID)
	if err != nil {
		return nil, h.fail(op, wrapStore(op, "project", err))
	}
	if err := requireParticipant(op, actor, p); err != nil {
		return nil, h.fail(op, err)
	}

	var candidates []models.FileRef
	switch fileType {
	case fileCompletion:
		candidates = w.CompletionSubmission.CompletionFiles
	case fileQRCode:
		candidates = []models.FileRef{w.CompletionSubmission.StudentPaymentDetails.UpiQrCode}
	case filePaymentProof:
		candidates = []models.FileRef{w.PaymentVerification.PaymentProof}
	default:
		return nil, h.fail(op, validation(op, "file_type", "file type must be completion, qr_code or payment_proof"))
	}

	for _, ref := range candidates {
		if ref.Key == "" || (ref.Name != fileName && path.Base(ref.Key) != fileName) {
			continue
		}
		url, err := h.files.DownloadURL(ctx, ref, h.policy.DownloadURLTTL)
		if err != nil {
			return nil, h.fail(op, storageFailure(op, err))
		}
		return &Download{DownloadURL: url, FileName: ref.Name}, nil
	}
	return nil, h.fail(op, notFound(op, "file"))
}
