// Package memstore is an in-process implementation of store.Store. A single
// mutex serializes transactions and every transaction works on a snapshot
// that is discarded on error.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

type reviewKey struct {
	work     uuid.UUID
	reviewer uuid.UUID
}

type state struct {
	projects     map[uuid.UUID]models.Project
	history      []models.ProjectStatusHistory
	comms        []models.Communication
	works        map[uuid.UUID]models.WorkRecord
	updates      []models.WorkUpdate
	reviews      map[reviewKey]models.StudentReview
	performances map[uuid.UUID]models.StudentPerformance
	ledger       []models.EarningLedgerEntry
}

func (s *state) clone() *state {
	c := &state{
		projects:     make(map[uuid.UUID]models.Project, len(s.projects)),
		history:      append([]models.ProjectStatusHistory(nil), s.history...),
		comms:        append([]models.Communication(nil), s.comms...),
		works:        make(map[uuid.UUID]models.WorkRecord, len(s.works)),
		updates:      append([]models.WorkUpdate(nil), s.updates...),
		reviews:      make(map[reviewKey]models.StudentReview, len(s.reviews)),
		performances: make(map[uuid.UUID]models.StudentPerformance, len(s.performances)),
		ledger:       append([]models.EarningLedgerEntry(nil), s.ledger...),
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.works {
		c.works[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.performances {
		c.performances[k] = v
	}
	return c
}

type Store struct {
	mu    sync.Mutex
	state *state

	failMu sync.Mutex
	fail   map[string]error
}

func New() *Store {
	return &Store{
		state: &state{
			projects:     map[uuid.UUID]models.Project{},
			works:        map[uuid.UUID]models.WorkRecord{},
			reviews:      map[reviewKey]models.StudentReview{},
			performances: map[uuid.UUID]models.StudentPerformance{},
		},
		fail: map[string]error{},
	}
}

// FailNext makes the next call of the named Tx method (e.g. "SaveWork")
// return err. Used to exercise rollback paths.
func (s *Store) FailNext(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.fail[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err, ok := s.fail[op]; ok {
		delete(s.fail, op)
		return err
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&tx{st: work, owner: s}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) read() *tx {
	return &tx{st: s.state, owner: s}
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetProject(ctx, id)
}

func (s *Store) ListProjectHistory(ctx context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListProjectHistory(ctx, projectID)
}

func (s *Store) ListCommunications(ctx context.Context, projectID uuid.UUID) ([]models.Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListCommunications(ctx, projectID)
}

func (s *Store) GetWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetWork(ctx, id)
}

func (s *Store) GetWorkByProject(ctx context.Context, projectID uuid.UUID) (*models.WorkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetWorkByProject(ctx, projectID)
}

func (s *Store) ListWorkUpdates(ctx context.Context, workID uuid.UUID) ([]models.WorkUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListWorkUpdates(ctx, workID)
}

func (s *Store) ListWorksByStudent(ctx context.Context, studentID uuid.UUID, status models.WorkStatus, limit, offset int) ([]models.WorkRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListWorksByStudent(ctx, studentID, status, limit, offset)
}

func (s *Store) FindReview(ctx context.Context, workID, reviewerID uuid.UUID) (*models.StudentReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindReview(ctx, workID, reviewerID)
}

func (s *Store) ListStudentReviews(ctx context.Context, studentID uuid.UUID) ([]models.StudentReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListStudentReviews(ctx, studentID)
}

func (s *Store) GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.StudentPerformance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().GetPerformance(ctx, studentID)
}

func (s *Store) ListLedger(ctx context.Context, studentID uuid.UUID) ([]models.EarningLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListLedger(ctx, studentID)
}

// deepCopy detaches nested slices so callers never alias stored state.
func deepCopy[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memstore: marshal %T: %v", v, err))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("memstore: unmarshal %T: %v", v, err))
	}
	return out
}

type tx struct {
	st    *state
	owner *Store
}

func (t *tx) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := t.st.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := deepCopy(p)
	return &out, nil
}

func (t *tx) ListProjectHistory(_ context.Context, projectID uuid.UUID) ([]models.ProjectStatusHistory, error) {
	out := []models.ProjectStatusHistory{}
	for _, h := range t.st.history {
		if h.ProjectID == projectID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (t *tx) ListCommunications(_ context.Context, projectID uuid.UUID) ([]models.Communication, error) {
	out := []models.Communication{}
	for _, m := range t.st.comms {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *tx) GetWork(_ context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	w, ok := t.st.works[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := deepCopy(w)
	return &out, nil
}

func (t *tx) GetWorkByProject(_ context.Context, projectID uuid.UUID) (*models.WorkRecord, error) {
	for _, w := range t.st.works {
		if w.ProjectID == projectID {
			out := deepCopy(w)
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) ListWorkUpdates(_ context.Context, workID uuid.UUID) ([]models.WorkUpdate, error) {
	out := []models.WorkUpdate{}
	for _, u := range t.st.updates {
		if u.WorkID == workID {
			out = append(out, deepCopy(u))
		}
	}
	return out, nil
}

func (t *tx) ListWorksByStudent(_ context.Context, studentID uuid.UUID, status models.WorkStatus, limit, offset int) ([]models.WorkRecord, int64, error) {
	all := []models.WorkRecord{}
	for _, w := range t.st.works {
		if w.StudentID != studentID {
			continue
		}
		if status != "" && w.WorkStatus != status {
			continue
		}
		all = append(all, deepCopy(w))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return []models.WorkRecord{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (t *tx) FindReview(_ context.Context, workID, reviewerID uuid.UUID) (*models.StudentReview, error) {
	r, ok := t.st.reviews[reviewKey{work: workID, reviewer: reviewerID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (t *tx) ListStudentReviews(_ context.Context, studentID uuid.UUID) ([]models.StudentReview, error) {
	out := []models.StudentReview{}
	for _, r := range t.st.reviews {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *tx) GetPerformance(_ context.Context, studentID uuid.UUID) (*models.StudentPerformance, error) {
	p, ok := t.st.performances[studentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *tx) ListLedger(_ context.Context, studentID uuid.UUID) ([]models.EarningLedgerEntry, error) {
	out := []models.EarningLedgerEntry{}
	for _, e := range t.st.ledger {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) CreateProject(_ context.Context, p *models.Project) error {
	if err := t.owner.injected("CreateProject"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := t.st.projects[p.ID]; exists {
		return fmt.Errorf("project %s already exists", p.ID)
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.projects[p.ID] = deepCopy(*p)
	return nil
}

func (t *tx) LockProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if err := t.owner.injected("LockProject"); err != nil {
		return nil, err
	}
	return t.GetProject(ctx, id)
}

func (t *tx) SaveProject(_ context.Context, p *models.Project) error {
	if err := t.owner.injected("SaveProject"); err != nil {
		return err
	}
	if _, ok := t.st.projects[p.ID]; !ok {
		return store.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := deepCopy(*p)
	cp.StatusHistory, cp.Communications = nil, nil
	t.st.projects[p.ID] = cp
	return nil
}

func (t *tx) AppendHistory(_ context.Context, h *models.ProjectStatusHistory) error {
	if err := t.owner.injected("AppendHistory"); err != nil {
		return err
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	t.st.history = append(t.st.history, *h)
	return nil
}

func (t *tx) AppendCommunication(_ context.Context, m *models.Communication) error {
	if err := t.owner.injected("AppendCommunication"); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	t.st.comms = append(t.st.comms, *m)
	return nil
}

func (t *tx) CreateWork(_ context.Context, w *models.WorkRecord) error {
	if err := t.owner.injected("CreateWork"); err != nil {
		return err
	}
	for _, existing := range t.st.works {
		if existing.ProjectID == w.ProjectID {
			return fmt.Errorf("work for project %s already exists", w.ProjectID)
		}
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	t.st.works[w.ID] = deepCopy(*w)
	return nil
}

func (t *tx) LockWork(ctx context.Context, id uuid.UUID) (*models.WorkRecord, error) {
	if err := t.owner.injected("LockWork"); err != nil {
		return nil, err
	}
	return t.GetWork(ctx, id)
}

func (t *tx) SaveWork(_ context.Context, w *models.WorkRecord) error {
	if err := t.owner.injected("SaveWork"); err != nil {
		return err
	}
	if _, ok := t.st.works[w.ID]; !ok {
		return store.ErrNotFound
	}
	w.UpdatedAt = time.Now()
	cp := deepCopy(*w)
	cp.WorkUpdates = nil
	t.st.works[w.ID] = cp
	return nil
}

func (t *tx) AppendWorkUpdate(_ context.Context, u *models.WorkUpdate) error {
	if err := t.owner.injected("AppendWorkUpdate"); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	t.st.updates = append(t.st.updates, deepCopy(*u))
	return nil
}

func (t *tx) SaveReview(_ context.Context, r *models.StudentReview) error {
	if err := t.owner.injected("SaveReview"); err != nil {
		return err
	}
	key := reviewKey{work: r.WorkID, reviewer: r.ReviewerID}
	now := time.Now()
	if existing, ok := t.st.reviews[key]; ok {
		r.ID, r.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	t.st.reviews[key] = *r
	return nil
}

func (t *tx) SavePerformance(_ context.Context, p *models.StudentPerformance) error {
	if err := t.owner.injected("SavePerformance"); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	t.st.performances[p.StudentID] = *p
	return nil
}

func (t *tx) AppendLedger(_ context.Context, e *models.EarningLedgerEntry) error {
	if err := t.owner.injected("AppendLedger"); err != nil {
		return err
	}
	for _, existing := range t.st.ledger {
		if existing.WorkID == e.WorkID && existing.Type == e.Type {
			return fmt.Errorf("%w: ledger entry %s for work %s", store.ErrDuplicate, e.Type, e.WorkID)
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	t.st.ledger = append(t.st.ledger, *e)
	return nil
}

var _ store.Store = (*Store)(nil)
