package workflow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

func TestProjectLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t, models.CategoryWebDevelopment)
	res, err := f.svc.Lifecycle.Accept(ctx, f.student, p.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.WorkErr != nil || res.Work == nil {
		t.Fatalf("work not created: %v", res.WorkErr)
	}
	w := res.Work
	if w.WorkStatus != models.WorkApproved || w.Progress.Percentage != 0 {
		t.Fatalf("new work = %s/%d%%, want approved/0%%", w.WorkStatus, w.Progress.Percentage)
	}

	steps := []struct {
		pct     int
		project models.ProjectStatus
	}{
		{10, models.ProjectPending},
		{25, models.ProjectPending},
		{40, models.ProjectInProgress},
		{60, models.ProjectInProgress},
		{80, models.ProjectInProgress},
		{95, models.ProjectInProgress},
	}
	for _, s := range steps {
		mr, err := f.svc.Progress.UpdateMilestone(ctx, f.student, w.ID, s.pct, "done")
		if err != nil {
			t.Fatalf("milestone %d: %v", s.pct, err)
		}
		if mr.Work.Progress.Percentage != s.pct || mr.Work.WorkStatus != models.WorkInProgress {
			t.Fatalf("after %d: work = %s/%d%%", s.pct, mr.Work.WorkStatus, mr.Work.Progress.Percentage)
		}
		if got := f.project(t, p.ID).Status; got != s.project {
			t.Fatalf("after %d: project = %s, want %s", s.pct, got, s.project)
		}
	}

	w, err = f.svc.Handshake.SubmitCompletion(ctx, f.student, w.ID, links(), upiDetails())
	if err != nil {
		t.Fatalf("submit completion: %v", err)
	}
	if w.WorkStatus != models.WorkPaymentPending || w.Progress.Percentage != 100 {
		t.Fatalf("after completion: %s/%d%%, want payment_pending/100%%", w.WorkStatus, w.Progress.Percentage)
	}
	if len(w.CompletionSubmission.ProjectLinks) != 2 || len(w.CompletionSubmission.CompletionFiles) != 0 {
		t.Fatalf("evidence = %+v", w.CompletionSubmission)
	}
	if w.CompletionSubmission.StudentPaymentDetails.UpiQrCodeURL == "" {
		t.Fatalf("qr code url not recorded")
	}

	w, err = f.svc.Handshake.SubmitPaymentProof(ctx, f.client, w.ID, proof())
	if err != nil {
		t.Fatalf("submit payment proof: %v", err)
	}
	if w.WorkStatus != models.WorkPaymentSubmitted {
		t.Fatalf("after proof: %s", w.WorkStatus)
	}

	w, err = f.svc.Handshake.VerifyPaymentAndComplete(ctx, f.student, w.ID, "received in full")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if w.WorkStatus != models.WorkCompleted || w.PaymentVerification.VerifiedAt == nil {
		t.Fatalf("after verify: %s verified=%v", w.WorkStatus, w.PaymentVerification.VerifiedAt)
	}
	if got := f.project(t, p.ID).Status; got != models.ProjectCompleted {
		t.Fatalf("project = %s, want completed", got)
	}

	rr, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, workflow.ReviewInput{
		Rating: 5, ReviewText: "Great work!!",
		Skills: 5, Communication: 5, Timeliness: 5, Quality: 5, ProblemSolving: 5, Teamwork: 5,
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if rr.StudentPerformance.TotalReviews != 1 || rr.StudentPerformance.OverallRating != 5 {
		t.Fatalf("performance = %+v", rr.StudentPerformance)
	}

	entries, err := f.store.ListLedger(ctx, f.student.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Amount != 5000 || entries[0].Type != models.LedgerUpiAttested {
		t.Fatalf("ledger = %+v", entries)
	}

	wantStatuses := []models.ProjectStatus{
		models.ProjectSubmitted, models.ProjectAccepted, models.ProjectPending,
		models.ProjectInProgress, models.ProjectCompleted,
	}
	hist := f.history(t, p.ID)
	if len(hist) != len(wantStatuses) {
		t.Fatalf("history has %d entries, want %d: %+v", len(hist), len(wantStatuses), hist)
	}
	for i, h := range hist {
		if h.Status != wantStatuses[i] {
			t.Fatalf("history[%d] = %s, want %s", i, h.Status, wantStatuses[i])
		}
		if h.ActorID == uuid.Nil || h.ChangedAt.IsZero() {
			t.Fatalf("history[%d] missing actor or time", i)
		}
	}

	types := f.events.Types()
	for _, want := range []string{"project.accepted", "work.payment_pending", "work.payment_submitted", "work.completed", "review.submitted"} {
		found := false
		for _, got := range types {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("event %s not emitted, got %v", want, types)
		}
	}
}

func TestDocumentProjectWithoutFilesIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, w := f.accepted(t, models.CategoryResumeServices)
	f.milestones(t, w.ID, 10)

	before := f.work(t, w.ID)
	beforeUpdates := len(f.updates(t, w.ID))

	_, err := f.svc.Handshake.SubmitCompletion(ctx, f.student, w.ID, workflow.Evidence{
		ProjectLinks: []string{"https://docs.example.com/resume"},
	}, upiDetails())
	wantKind(t, err, workflow.KindValidation)

	after := f.work(t, w.ID)
	if after.WorkStatus != before.WorkStatus || after.Progress != before.Progress || after.CompletionSubmission.Present() {
		t.Fatalf("work mutated: %+v", after)
	}
	if got := len(f.updates(t, w.ID)); got != beforeUpdates {
		t.Fatalf("work updates = %d, want %d", got, beforeUpdates)
	}
	if files := f.storedFiles(t); len(files) != 0 {
		t.Fatalf("files left behind: %v", files)
	}

	// With a file the same submission goes through.
	doc := storage.FromBytes("resume.pdf", pdfDoc)
	w, err = f.svc.Handshake.SubmitCompletion(ctx, f.student, w.ID, workflow.Evidence{
		Files: []storage.Upload{doc},
	}, upiDetails())
	if err != nil {
		t.Fatalf("submit with file: %v", err)
	}
	if len(w.CompletionSubmission.CompletionFiles) != 1 || w.CompletionSubmission.CompletionFiles[0].ContentType != "application/pdf" {
		t.Fatalf("completion files = %+v", w.CompletionSubmission.CompletionFiles)
	}
}

func TestObjectionBlocksAcceptUntilResolved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t, models.CategoryWebDevelopment)

	p, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, workflow.Objection{Reason: "scope", Message: "Which pages are needed?"})
	if err != nil {
		t.Fatalf("raise objection: %v", err)
	}
	if p.Status != models.ProjectSubmitted || !p.Objection.Unresolved() {
		t.Fatalf("after objection: %s %+v", p.Status, p.Objection)
	}

	_, err = f.svc.Lifecycle.Accept(ctx, f.student, p.ID)
	wantKind(t, err, workflow.KindConflict)
	_, err = f.svc.Lifecycle.Reject(ctx, f.student, p.ID, workflow.Rejection{Reason: models.RejectScopeUnclear})
	wantKind(t, err, workflow.KindConflict)

	if _, err := f.store.GetWorkByProject(ctx, p.ID); err == nil {
		t.Fatalf("work created while objection open")
	}

	if _, err := f.svc.Lifecycle.ResolveObjection(ctx, f.client, p.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res, err := f.svc.Lifecycle.Accept(ctx, f.student, p.ID)
	if err != nil {
		t.Fatalf("accept after resolve: %v", err)
	}
	if res.Project.Status != models.ProjectAccepted || res.Work == nil {
		t.Fatalf("accept result = %+v", res)
	}
}

func TestPercentageOnlyReaches100WithPaymentPending(t *testing.T) {
	f := newFixture(t)
	_, w := f.completed(t)

	last := 0
	for _, u := range f.updates(t, w.ID) {
		pct := percentageOf(t, u)
		if pct < last {
			t.Fatalf("%s: percentage dropped from %d to %d", u.UpdateType, last, pct)
		}
		if pct == 100 && last < 100 && u.UpdateType != "payment_details_submitted" {
			t.Fatalf("100%% first written by %s", u.UpdateType)
		}
		last = pct
	}
	if last != 100 {
		t.Fatalf("final percentage = %d", last)
	}
}
