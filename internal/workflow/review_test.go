package workflow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

func review(rating int, text string) workflow.ReviewInput {
	return workflow.ReviewInput{
		Rating: rating, ReviewText: text,
		Skills: rating, Communication: rating, Timeliness: rating,
		Quality: rating, ProblemSolving: rating, Teamwork: rating,
	}
}

func TestReviewUpsertCountsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, w := f.completed(t)

	first, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, review(3, "Okay result, late by a day"))
	if err != nil {
		t.Fatalf("first review: %v", err)
	}
	if first.StudentPerformance.TotalReviews != 1 || first.StudentPerformance.OverallRating != 3 {
		t.Fatalf("after first: %+v", first.StudentPerformance)
	}

	second, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, review(5, "Fixed everything quickly"))
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if second.StudentReview.ID != first.StudentReview.ID {
		t.Fatalf("review duplicated: %s vs %s", second.StudentReview.ID, first.StudentReview.ID)
	}
	perf := second.StudentPerformance
	if perf.TotalReviews != 1 {
		t.Fatalf("total reviews = %d, want 1", perf.TotalReviews)
	}
	if perf.OverallRating != 5 || perf.Punctuality != 5 || perf.TechnicalSkills != 5 {
		t.Fatalf("rollup not recomputed: %+v", perf)
	}

	stored, err := f.store.GetPerformance(ctx, f.student.ID)
	if err != nil {
		t.Fatalf("get performance: %v", err)
	}
	if stored.TotalReviews != 1 || stored.OverallRating != 5 {
		t.Fatalf("stored performance = %+v", stored)
	}
}

func TestReviewRules(t *testing.T) {
	ctx := context.Background()

	t.Run("work must be completed", func(t *testing.T) {
		f := newFixture(t)
		_, w := f.paymentPending(t)
		_, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, review(5, "Great work!!"))
		wantKind(t, err, workflow.KindConflict)
	})

	t.Run("only the client reviews", func(t *testing.T) {
		f := newFixture(t)
		_, w := f.completed(t)
		_, err := f.svc.Reviews.SubmitReview(ctx, f.student, w.ID, review(5, "I did great work"))
		wantKind(t, err, workflow.KindForbidden)
	})

	t.Run("input", func(t *testing.T) {
		f := newFixture(t)
		_, w := f.completed(t)
		bad := []workflow.ReviewInput{
			review(5, "too short"),
			review(5, "          padded    "),
			review(0, "Rating is missing here"),
			review(6, "Rating is out of range"),
		}
		tooHighTeamwork := review(4, "One dimension is wrong")
		tooHighTeamwork.Teamwork = 9
		bad = append(bad, tooHighTeamwork)

		for _, in := range bad {
			_, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, in)
			wantKind(t, err, workflow.KindValidation)
		}
		if _, err := f.store.GetPerformance(ctx, f.student.ID); err == nil {
			t.Fatalf("performance written by rejected reviews")
		}
	})

	t.Run("delivered work can be reviewed", func(t *testing.T) {
		f := newFixture(t)
		_, w := f.completed(t)
		if _, err := f.svc.Progress.ConfirmDelivery(ctx, f.client, w.ID, ""); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if _, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, review(4, "Solid delivery")); err != nil {
			t.Fatalf("review: %v", err)
		}
	})
}

func TestRollupAveragesAcrossWorks(t *testing.T) {
	student := uuid.New()
	reviews := []models.StudentReview{
		{WorkID: uuid.New(), ReviewerID: uuid.New(), Rating: 5, Skills: 4, Communication: 5, Timeliness: 3, Quality: 5, ProblemSolving: 4, Teamwork: 5},
		{WorkID: uuid.New(), ReviewerID: uuid.New(), Rating: 4, Skills: 5, Communication: 4, Timeliness: 4, Quality: 4, ProblemSolving: 5, Teamwork: 4},
		{WorkID: uuid.New(), ReviewerID: uuid.New(), Rating: 4, Skills: 4, Communication: 4, Timeliness: 4, Quality: 4, ProblemSolving: 4, Teamwork: 4},
	}
	perf := workflow.Rollup(student, reviews)
	if perf.TotalReviews != 3 {
		t.Fatalf("total = %d", perf.TotalReviews)
	}
	if perf.OverallRating != 4.33 || perf.TechnicalSkills != 4.33 || perf.Punctuality != 3.67 {
		t.Fatalf("rollup = %+v", perf)
	}

	empty := workflow.Rollup(student, nil)
	if empty.TotalReviews != 0 || empty.OverallRating != 0 {
		t.Fatalf("empty rollup = %+v", empty)
	}
}

func TestPendingReviewIsNeverPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, w := f.completed(t)
	if _, err := f.svc.Reviews.SubmitReview(ctx, f.client, w.ID, review(2, "Needed many revisions")); err != nil {
		t.Fatalf("review: %v", err)
	}

	pending, err := f.svc.PendingReview(ctx, f.client, w.ID, review(4, "Revisions were handled"))
	if err != nil {
		t.Fatalf("pending review: %v", err)
	}
	if !pending.Pending || pending.StudentPerformance.TotalReviews != 1 || pending.StudentPerformance.OverallRating != 4 {
		t.Fatalf("pending = %+v", pending)
	}

	stored, err := f.store.FindReview(ctx, w.ID, f.client.ID)
	if err != nil {
		t.Fatalf("find review: %v", err)
	}
	if stored.Rating != 2 {
		t.Fatalf("stored rating = %d, pending projection leaked", stored.Rating)
	}
}
