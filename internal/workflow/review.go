package workflow

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

// ReviewAggregator owns StudentReview and StudentPerformance.
type ReviewAggregator struct {
	*core
}

type ReviewInput struct {
	Rating         int    `json:"rating"`
	ReviewText     string `json:"review_text"`
	Skills         int    `json:"skills"`
	Communication  int    `json:"communication"`
	Timeliness     int    `json:"timeliness"`
	Quality        int    `json:"quality"`
	ProblemSolving int    `json:"problem_solving"`
	Teamwork       int    `json:"teamwork"`
}

type ReviewResult struct {
	StudentReview      *models.StudentReview      `json:"student_review"`
	StudentPerformance *models.StudentPerformance `json:"student_performance"`
}

func (in ReviewInput) validate(op string, minLen int) error {
	if utf8.RuneCountInString(strings.TrimSpace(in.ReviewText)) < minLen {
		return validation(op, "review_text", "review text is too short")
	}
	ratings := []struct {
		field string
		v     int
	}{
		{"rating", in.Rating},
		{"skills", in.Skills},
		{"communication", in.Communication},
		{"timeliness", in.Timeliness},
		{"quality", in.Quality},
		{"problem_solving", in.ProblemSolving},
		{"teamwork", in.Teamwork},
	}
	for _, r := range ratings {
		if r.v < 1 || r.v > 5 {
			return validation(op, r.field, r.field+" must be between 1 and 5")
		}
	}
	return nil
}

// SubmitReview upserts the client's review of a completed work and
// recomputes the student's rollup from all of their reviews.
func (r *ReviewAggregator) SubmitReview(ctx context.Context, actor Actor, workID uuid.UUID, in ReviewInput) (*ReviewResult, error) {
	const op = "SubmitReview"
	if err := actor.check(op); err != nil {
		return nil, r.fail(op, err)
	}
	if err := in.validate(op, r.policy.MinReviewLength); err != nil {
		return nil, r.fail(op, err)
	}

	var (
		res = &ReviewResult{}
		p   *models.Project
		w   *models.WorkRecord
	)
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if w, p, err = loadWorkAndProject(ctx, tx, op, workID); err != nil {
			return err
		}
		if err := requireClient(op, actor, p); err != nil {
			return err
		}
		if w.WorkStatus != models.WorkCompleted && w.WorkStatus != models.WorkDelivered {
			return conflict(op, "work is %s, reviews open once the work is completed", w.WorkStatus)
		}

		now := r.now()
		review, err := tx.FindReview(ctx, w.ID, actor.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			review = &models.StudentReview{ID: uuid.New(), WorkID: w.ID, ReviewerID: actor.ID, CreatedAt: now}
		case err != nil:
			return wrapStore(op, "review", err)
		}
		review.StudentID = w.StudentID
		review.ProjectID = w.ProjectID
		review.Rating = in.Rating
		review.ReviewText = strings.TrimSpace(in.ReviewText)
		review.Skills = in.Skills
		review.Communication = in.Communication
		review.Timeliness = in.Timeliness
		review.Quality = in.Quality
		review.ProblemSolving = in.ProblemSolving
		review.Teamwork = in.Teamwork
		review.UpdatedAt = now
		if err := tx.SaveReview(ctx, review); err != nil {
			return wrapStore(op, "review", err)
		}

		all, err := tx.ListStudentReviews(ctx, w.StudentID)
		if err != nil {
			return wrapStore(op, "reviews", err)
		}
		perf := Rollup(w.StudentID, all)
		perf.UpdatedAt = now
		if err := tx.SavePerformance(ctx, perf); err != nil {
			return wrapStore(op, "performance", err)
		}
		res.StudentReview, res.StudentPerformance = review, perf
		return nil
	})
	if err != nil {
		return nil, r.fail(op, err)
	}

	r.emit(ctx, notify.Event{
		Type: "review.submitted", ProjectID: p.ID, WorkID: workRef(w), ActorID: actor.ID,
		Message: "You received a review", Recipients: []uuid.UUID{w.StudentID}, Data: res.StudentReview,
	})
	return res, nil
}

// Rollup averages every rating dimension over reviews. TotalReviews is the
// number of distinct (work, reviewer) rows, so an updated review is not
// counted twice.
func Rollup(studentID uuid.UUID, reviews []models.StudentReview) *models.StudentPerformance {
	perf := &models.StudentPerformance{StudentID: studentID, TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return perf
	}
	var skills, comm, punct, quality, problem, team, overall float64
	for _, rv := range reviews {
		skills += float64(rv.Skills)
		comm += float64(rv.Communication)
		punct += float64(rv.Timeliness)
		quality += float64(rv.Quality)
		problem += float64(rv.ProblemSolving)
		team += float64(rv.Teamwork)
		overall += float64(rv.Rating)
	}
	n := float64(len(reviews))
	perf.TechnicalSkills = round2(skills / n)
	perf.CommunicationSkills = round2(comm / n)
	perf.Punctuality = round2(punct / n)
	perf.QualityOfWork = round2(quality / n)
	perf.ProblemSolving = round2(problem / n)
	perf.Teamwork = round2(team / n)
	perf.OverallRating = round2(overall / n)
	return perf
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PendingReview is an optimistic, unconfirmed view of a review a front end
// may show while SubmitReview is in flight. It is never persisted and must
// be replaced by the committed result.
type PendingReview struct {
	Pending            bool                       `json:"pending"`
	StudentReview      models.StudentReview       `json:"student_review"`
	StudentPerformance *models.StudentPerformance `json:"student_performance"`
}

// ProjectPendingReview folds in into the last committed reviews the way
// SubmitReview would, without touching the store.
func ProjectPendingReview(w *models.WorkRecord, reviewerID uuid.UUID, in ReviewInput, committed []models.StudentReview) PendingReview {
	draft := models.StudentReview{
		WorkID:         w.ID,
		ReviewerID:     reviewerID,
		StudentID:      w.StudentID,
		ProjectID:      w.ProjectID,
		Rating:         in.Rating,
		ReviewText:     strings.TrimSpace(in.ReviewText),
		Skills:         in.Skills,
		Communication:  in.Communication,
		Timeliness:     in.Timeliness,
		Quality:        in.Quality,
		ProblemSolving: in.ProblemSolving,
		Teamwork:       in.Teamwork,
	}
	merged := make([]models.StudentReview, 0, len(committed)+1)
	replaced := false
	for _, rv := range committed {
		if rv.WorkID == w.ID && rv.ReviewerID == reviewerID {
			draft.ID = rv.ID
			merged = append(merged, draft)
			replaced = true
			continue
		}
		merged = append(merged, rv)
	}
	if !replaced {
		merged = append(merged, draft)
	}
	return PendingReview{Pending: true, StudentReview: draft, StudentPerformance: Rollup(w.StudentID, merged)}
}
