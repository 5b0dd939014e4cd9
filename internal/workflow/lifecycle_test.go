package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/config"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

func TestRejectValidation(t *testing.T) {
	cases := []struct {
		name string
		in   workflow.Rejection
	}{
		{"missing reason", workflow.Rejection{Message: "sorry"}},
		{"unknown reason", workflow.Rejection{Reason: "too_boring"}},
		{"other without custom reason", workflow.Rejection{Reason: models.RejectOther, Message: "sorry"}},
		{"other with blank custom reason", workflow.Rejection{Reason: models.RejectOther, CustomReason: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.submit(t, models.CategoryWebDevelopment)

			_, err := f.svc.Lifecycle.Reject(context.Background(), f.student, p.ID, tc.in)
			wantKind(t, err, workflow.KindValidation)

			if got := f.project(t, p.ID); got.Status != models.ProjectSubmitted || got.Rejection.IsRejected {
				t.Fatalf("project changed: %s rejected=%v", got.Status, got.Rejection.IsRejected)
			}
			if h := f.history(t, p.ID); len(h) != 1 {
				t.Fatalf("history has %d entries, want only the submission", len(h))
			}
		})
	}
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t, models.CategoryDataAnalysis)

	p, err := f.svc.Lifecycle.Reject(ctx, f.student, p.ID, workflow.Rejection{
		Reason:       models.RejectOther,
		CustomReason: "exam week",
		Message:      "Cannot take this on right now",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.Status != models.ProjectCancelled || !p.Rejection.IsRejected || p.Rejection.CustomRejectionReason != "exam week" {
		t.Fatalf("rejected project = %s %+v", p.Status, p.Rejection)
	}

	// Nothing leads back from cancelled.
	_, err = f.svc.Lifecycle.Accept(ctx, f.student, p.ID)
	wantKind(t, err, workflow.KindConflict)
	_, err = f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, workflow.Objection{Reason: "x", Message: "y"})
	wantKind(t, err, workflow.KindConflict)
	_, err = f.svc.Lifecycle.UpdateStatus(ctx, f.student, p.ID, workflow.StatusChange{Status: models.ProjectAccepted})
	wantKind(t, err, workflow.KindConflict)
	_, err = f.svc.Lifecycle.CreateWorkFromProject(ctx, f.student, p.ID)
	wantKind(t, err, workflow.KindConflict)

	if got := f.project(t, p.ID).Status; got != models.ProjectCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
}

func TestAcceptTwiceIsAConflict(t *testing.T) {
	f := newFixture(t)
	p, w := f.accepted(t, models.CategoryWebDevelopment)

	_, err := f.svc.Lifecycle.Accept(context.Background(), f.student, p.ID)
	wantKind(t, err, workflow.KindConflict)

	again, err := f.svc.Lifecycle.CreateWorkFromProject(context.Background(), f.student, p.ID)
	if err != nil {
		t.Fatalf("create work again: %v", err)
	}
	if again.ID != w.ID {
		t.Fatalf("second work record %s created, want %s", again.ID, w.ID)
	}
}

func TestAcceptOnlyByAssignedStudent(t *testing.T) {
	f := newFixture(t)
	p := f.submit(t, models.CategoryWebDevelopment)
	other := workflow.Actor{ID: uuid.New(), Role: models.RoleStudent}

	for _, a := range []workflow.Actor{f.client, other} {
		_, err := f.svc.Lifecycle.Accept(context.Background(), a, p.ID)
		wantKind(t, err, workflow.KindForbidden)
	}
	_, err := f.svc.Lifecycle.Accept(context.Background(), workflow.Actor{}, p.ID)
	wantKind(t, err, workflow.KindForbidden)
}

func TestAcceptSurvivesWorkCreationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t, models.CategoryWebDevelopment)

	f.store.FailNext("CreateWork", errors.New("connection reset"))
	res, err := f.svc.Lifecycle.Accept(ctx, f.student, p.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Project.Status != models.ProjectAccepted {
		t.Fatalf("project = %s, want accepted", res.Project.Status)
	}
	if res.WorkErr == nil || res.Work != nil {
		t.Fatalf("expected surfaced work error, got work=%v err=%v", res.Work, res.WorkErr)
	}
	wantKind(t, res.WorkErr, workflow.KindStorage)

	w, err := f.svc.Lifecycle.CreateWorkFromProject(ctx, f.student, p.ID)
	if err != nil {
		t.Fatalf("retry create work: %v", err)
	}
	if w.WorkStatus != models.WorkApproved || w.ProjectID != p.ID || w.QuotedPrice != p.QuotedPrice {
		t.Fatalf("work = %+v", w)
	}
	if got := f.project(t, p.ID).Status; got != models.ProjectAccepted {
		t.Fatalf("project = %s after retry", got)
	}
}

func TestObjectionReraisePolicy(t *testing.T) {
	ctx := context.Background()
	first := workflow.Objection{Reason: "budget", Message: "Price is too low for the scope"}
	second := workflow.Objection{Reason: "timeline", Message: "Needs two more days"}

	t.Run("block", func(t *testing.T) {
		f := newFixture(t)
		p := f.submit(t, models.CategoryWebDevelopment)
		if _, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, first); err != nil {
			t.Fatalf("raise: %v", err)
		}
		_, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, second)
		wantKind(t, err, workflow.KindConflict)
		if got := f.project(t, p.ID).Objection.ObjectionReason; got != "budget" {
			t.Fatalf("objection reason = %q", got)
		}
	})

	t.Run("replace", func(t *testing.T) {
		policy := config.DefaultPolicy()
		policy.ObjectionReraise = config.ReraiseReplace
		f := newFixtureWith(t, policy, nil)
		p := f.submit(t, models.CategoryWebDevelopment)
		if _, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, first); err != nil {
			t.Fatalf("raise: %v", err)
		}
		p, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, second)
		if err != nil {
			t.Fatalf("re-raise: %v", err)
		}
		if p.Objection.ObjectionReason != "timeline" || !p.Objection.Unresolved() {
			t.Fatalf("objection = %+v", p.Objection)
		}
	})

	t.Run("after resolution", func(t *testing.T) {
		f := newFixture(t)
		p := f.submit(t, models.CategoryWebDevelopment)
		if _, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, first); err != nil {
			t.Fatalf("raise: %v", err)
		}
		if _, err := f.svc.Lifecycle.ResolveObjection(ctx, f.student, p.ID); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		_, err := f.svc.Lifecycle.ResolveObjection(ctx, f.student, p.ID)
		wantKind(t, err, workflow.KindConflict)
		if _, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, second); err != nil {
			t.Fatalf("raise after resolution: %v", err)
		}
	})
}

func TestObjectionDoesNotChangeStatusButIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t, models.CategoryWebDevelopment)

	if _, err := f.svc.Lifecycle.RaiseObjection(ctx, f.student, p.ID, workflow.Objection{Reason: "scope", Message: "Unclear"}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if _, err := f.svc.Lifecycle.ResolveObjection(ctx, f.client, p.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	h := f.history(t, p.ID)
	if len(h) != 3 {
		t.Fatalf("history has %d entries, want 3", len(h))
	}
	for _, e := range h {
		if e.Status != models.ProjectSubmitted {
			t.Fatalf("history status = %s, want submitted", e.Status)
		}
	}
	if h[2].ActorID != f.client.ID || h[2].ActorRole != models.RoleClient {
		t.Fatalf("resolution actor = %s/%s", h[2].ActorID, h[2].ActorRole)
	}
}

func TestCommunicationClosedAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t, models.CategoryWebDevelopment)

	p, err := f.svc.Lifecycle.AddCommunication(ctx, f.client, p.ID, "Can you start Monday?", models.MessageClarification)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if len(p.Communications) != 1 || p.Communications[0].ReceiverID != f.student.ID {
		t.Fatalf("communications = %+v", p.Communications)
	}

	_, err = f.svc.Lifecycle.AddCommunication(ctx, f.client, p.ID, "   ", "")
	wantKind(t, err, workflow.KindValidation)
	_, err = f.svc.Lifecycle.AddCommunication(ctx, workflow.Actor{ID: uuid.New(), Role: models.RoleClient}, p.ID, "hi", "")
	wantKind(t, err, workflow.KindForbidden)

	if _, err := f.svc.Lifecycle.Reject(ctx, f.student, p.ID, workflow.Rejection{Reason: models.RejectBudgetTooLow}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err = f.svc.Lifecycle.AddCommunication(ctx, f.client, p.ID, "Please reconsider", models.MessageGeneral)
	wantKind(t, err, workflow.KindConflict)

	msgs, err := f.store.ListCommunications(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
}

func TestUpdateStatusDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("derived statuses are refused", func(t *testing.T) {
		f := newFixture(t)
		p := f.submit(t, models.CategoryWebDevelopment)
		for _, s := range []models.ProjectStatus{models.ProjectPending, models.ProjectInProgress, models.ProjectCompleted} {
			_, err := f.svc.Lifecycle.UpdateStatus(ctx, f.student, p.ID, workflow.StatusChange{Status: s})
			wantKind(t, err, workflow.KindConflict)
		}
		_, err := f.svc.Lifecycle.UpdateStatus(ctx, f.student, p.ID, workflow.StatusChange{Status: "archived"})
		wantKind(t, err, workflow.KindValidation)
	})

	t.Run("client withdraws", func(t *testing.T) {
		f := newFixture(t)
		p := f.submit(t, models.CategoryWebDevelopment)
		_, err := f.svc.Lifecycle.UpdateStatus(ctx, f.student, p.ID, workflow.StatusChange{Status: models.ProjectCancelled})
		wantKind(t, err, workflow.KindForbidden)
		res, err := f.svc.Lifecycle.UpdateStatus(ctx, f.client, p.ID, workflow.StatusChange{Status: models.ProjectCancelled, Notes: "found someone"})
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if res.Project.Status != models.ProjectCancelled {
			t.Fatalf("status = %s", res.Project.Status)
		}
	})

	t.Run("accept", func(t *testing.T) {
		f := newFixture(t)
		p := f.submit(t, models.CategoryWebDevelopment)
		res, err := f.svc.Lifecycle.UpdateStatus(ctx, f.student, p.ID, workflow.StatusChange{Status: models.ProjectAccepted})
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if res.Work == nil || res.Work.WorkStatus != models.WorkApproved {
			t.Fatalf("work = %+v", res.Work)
		}
		_, err = f.svc.Lifecycle.UpdateStatus(ctx, f.client, p.ID, workflow.StatusChange{Status: models.ProjectCancelled})
		wantKind(t, err, workflow.KindConflict)
	})
}

func TestSubmitProjectValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := workflow.ProjectDraft{
		ProjectName: "Logo", ServiceCategory: models.CategoryGraphicDesign,
		QuotedPrice: 1500, CompletionDays: 3, StudentID: f.student.ID,
	}

	cases := []struct {
		name  string
		edit  func(d *workflow.ProjectDraft)
		field string
	}{
		{"name", func(d *workflow.ProjectDraft) { d.ProjectName = " " }, "project_name"},
		{"category", func(d *workflow.ProjectDraft) { d.ServiceCategory = "plumbing" }, "service_category"},
		{"price", func(d *workflow.ProjectDraft) { d.QuotedPrice = 0 }, "quoted_price"},
		{"days", func(d *workflow.ProjectDraft) { d.CompletionDays = 0 }, "completion_time"},
		{"student", func(d *workflow.ProjectDraft) { d.StudentID = uuid.Nil }, "assigned_to"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := good
			tc.edit(&d)
			_, err := f.svc.Lifecycle.SubmitProject(ctx, f.client, d)
			wantKind(t, err, workflow.KindValidation)
			var we *workflow.Error
			if !errors.As(err, &we) || we.Field != tc.field {
				t.Fatalf("field = %v, want %s", err, tc.field)
			}
		})
	}

	_, err := f.svc.Lifecycle.SubmitProject(ctx, f.student, good)
	wantKind(t, err, workflow.KindForbidden)
}
