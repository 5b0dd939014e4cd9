package workflow_test

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/config"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/lock"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store/memstore"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

const testTokenKey = "0123456789abcdef"

var (
	pngImage = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	pdfDoc   = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
)

type fixture struct {
	svc     *workflow.Service
	store   *memstore.Store
	events  *notify.Recorder
	dir     string
	client  workflow.Actor
	student workflow.Actor
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, config.DefaultPolicy(), nil)
}

// newFixtureWith lets a test swap the policy or wrap the file storage.
func newFixtureWith(t *testing.T, policy config.Policy, wrap func(storage.Storage) storage.Storage) *fixture {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocal(dir, "http://localhost:8080", testTokenKey)
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	var files storage.Storage = local
	if wrap != nil {
		files = wrap(local)
	}

	st := memstore.New()
	rec := &notify.Recorder{}
	svc := workflow.NewService(workflow.Deps{
		Store:    st,
		Files:    files,
		Locks:    lock.NewLocal(0),
		Notifier: rec,
		Policy:   policy,
	})
	return &fixture{
		svc:     svc,
		store:   st,
		events:  rec,
		dir:     dir,
		client:  workflow.Actor{ID: uuid.New(), Role: models.RoleClient},
		student: workflow.Actor{ID: uuid.New(), Role: models.RoleStudent},
	}
}

func (f *fixture) submit(t *testing.T, category models.ServiceCategory) *models.Project {
	t.Helper()
	p, err := f.svc.Lifecycle.SubmitProject(context.Background(), f.client, workflow.ProjectDraft{
		ProjectName:     "Portfolio site",
		ServiceCategory: category,
		QuotedPrice:     5000,
		CompletionDays:  7,
		Urgency:         "normal",
		StudentID:       f.student.ID,
	})
	if err != nil {
		t.Fatalf("submit project: %v", err)
	}
	return p
}

func (f *fixture) accepted(t *testing.T, category models.ServiceCategory) (*models.Project, *models.WorkRecord) {
	t.Helper()
	p := f.submit(t, category)
	res, err := f.svc.Lifecycle.Accept(context.Background(), f.student, p.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.WorkErr != nil {
		t.Fatalf("create work: %v", res.WorkErr)
	}
	return res.Project, res.Work
}

func (f *fixture) milestones(t *testing.T, workID uuid.UUID, pcts ...int) {
	t.Helper()
	for _, pct := range pcts {
		if _, err := f.svc.Progress.UpdateMilestone(context.Background(), f.student, workID, pct, "progress"); err != nil {
			t.Fatalf("milestone %d: %v", pct, err)
		}
	}
}

func upiDetails() workflow.PaymentDetails {
	qr := storage.FromBytes("qr.png", pngImage)
	return workflow.PaymentDetails{
		UpiQrCode:           &qr,
		UpiID:               "student@okaxis",
		UpiPhoneNumber:      "9876543210",
		PaymentInstructions: "Add the project name in the note",
	}
}

func links() workflow.Evidence {
	return workflow.Evidence{
		ProjectLinks:    []string{"https://github.com/student/portfolio", "https://portfolio.example.com"},
		SubmissionNotes: "Deployed and documented",
	}
}

func proof() workflow.PaymentProof {
	img := storage.FromBytes("paid.png", pngImage)
	paid := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	return workflow.PaymentProof{
		Proof:            &img,
		UpiTransactionID: "UPI4242",
		PaymentToName:    "Student Name",
		PaymentAmount:    5000,
		PaymentDate:      &paid,
	}
}

// paymentPending drives a fresh web project to payment_pending.
func (f *fixture) paymentPending(t *testing.T) (*models.Project, *models.WorkRecord) {
	t.Helper()
	p, w := f.accepted(t, models.CategoryWebDevelopment)
	f.milestones(t, w.ID, 10, 40, 95)
	w, err := f.svc.Handshake.SubmitCompletion(context.Background(), f.student, w.ID, links(), upiDetails())
	if err != nil {
		t.Fatalf("submit completion: %v", err)
	}
	return p, w
}

func (f *fixture) completed(t *testing.T) (*models.Project, *models.WorkRecord) {
	t.Helper()
	p, w := f.paymentPending(t)
	ctx := context.Background()
	if _, err := f.svc.Handshake.SubmitPaymentProof(ctx, f.client, w.ID, proof()); err != nil {
		t.Fatalf("submit payment proof: %v", err)
	}
	w, err := f.svc.Handshake.VerifyPaymentAndComplete(ctx, f.student, w.ID, "received")
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	return p, w
}

func (f *fixture) project(t *testing.T, id uuid.UUID) *models.Project {
	t.Helper()
	p, err := f.store.GetProject(context.Background(), id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return p
}

func (f *fixture) work(t *testing.T, id uuid.UUID) *models.WorkRecord {
	t.Helper()
	w, err := f.store.GetWork(context.Background(), id)
	if err != nil {
		t.Fatalf("get work: %v", err)
	}
	return w
}

func (f *fixture) history(t *testing.T, projectID uuid.UUID) []models.ProjectStatusHistory {
	t.Helper()
	h, err := f.store.ListProjectHistory(context.Background(), projectID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return h
}

func (f *fixture) updates(t *testing.T, workID uuid.UUID) []models.WorkUpdate {
	t.Helper()
	u, err := f.store.ListWorkUpdates(context.Background(), workID)
	if err != nil {
		t.Fatalf("list work updates: %v", err)
	}
	return u
}

// storedFiles lists every object under the upload dir.
func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(f.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk upload dir: %v", err)
	}
	return out
}

func wantKind(t *testing.T, err error, want workflow.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := workflow.ErrorKind(err); got != want {
		t.Fatalf("error kind = %q, want %q (%v)", got, want, err)
	}
}

func percentageOf(t *testing.T, u models.WorkUpdate) int {
	t.Helper()
	var meta struct {
		Percentage int `json:"percentage"`
	}
	if len(u.Metadata) == 0 {
		return 0
	}
	if err := json.Unmarshal(u.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata of %s: %v", u.UpdateType, err)
	}
	return meta.Percentage
}

// cancellingUpload cancels ctx when it is opened for the n-th time.
func cancellingUpload(name string, body []byte, cancel context.CancelFunc, n int) storage.Upload {
	opened := 0
	u := storage.FromBytes(name, body)
	open := u.Open
	u.Open = func() (io.ReadCloser, error) {
		opened++
		if opened == n {
			cancel()
		}
		return open()
	}
	return u
}
