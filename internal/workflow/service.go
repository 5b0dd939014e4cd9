// Package workflow is the project/work lifecycle state machine and the UPI
// payment handshake. It is UI-agnostic: every operation takes the acting
// user explicitly, validates against the committed state, writes through
// store.Store in one transaction and returns the committed entity or a
// typed *Error.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/config"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/lock"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/metrics"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/models"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/notify"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/services/ledger"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/store"
)

type Deps struct {
	Store    store.Store
	Files    storage.Storage
	Locks    lock.Locker
	Notifier notify.Notifier
	Ledger   *ledger.Service
	Policy   config.Policy
	Log      *zap.Logger
	Now      func() time.Time
}

// Service is the WorkflowService consumed by front ends. It wires the
// owning components together; each component only writes its own fields.
type Service struct {
	Lifecycle *ProjectLifecycle
	Progress  *ProgressTracker
	Handshake *CompletionAndPaymentHandshake
	Reviews   *ReviewAggregator

	core *core
}

// core is what every component shares.
type core struct {
	store    store.Store
	files    storage.Storage
	locks    lock.Locker
	notifier notify.Notifier
	ledger   *ledger.Service
	policy   config.Policy
	log      *zap.Logger
	now      func() time.Time
	history  *StatusHistoryLog
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Locks == nil {
		d.Locks = lock.NewLocal(d.Policy.LockWait)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Ledger == nil {
		d.Ledger = ledger.NewService()
	}

	c := &core{
		store:    d.Store,
		files:    d.Files,
		locks:    d.Locks,
		notifier: d.Notifier,
		ledger:   d.Ledger,
		policy:   d.Policy,
		log:      d.Log,
		now:      d.Now,
		history:  &StatusHistoryLog{now: d.Now},
	}

	lc := &ProjectLifecycle{core: c}
	pt := &ProgressTracker{core: c, lifecycle: lc}
	hs := &CompletionAndPaymentHandshake{core: c, lifecycle: lc, progress: pt}
	ra := &ReviewAggregator{core: c}
	lc.progress = pt

	return &Service{Lifecycle: lc, Progress: pt, Handshake: hs, Reviews: ra, core: c}
}

// withLock serializes multi-step operations on one entity across instances.
func (c *core) withLock(ctx context.Context, op, key string, fn func() error) error {
	release, err := c.locks.Acquire(ctx, key)
	if err != nil {
		if err == lock.ErrBusy {
			return conflict(op, "%s", err.Error())
		}
		return storageFailure(op, err)
	}
	defer release()
	return fn()
}

// fail logs and counts a rejected operation and hands the error back.
func (c *core) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := string(ErrorKind(err))
	if kind == "" {
		kind = "internal"
	}
	metrics.RecordFailure(op, kind)
	if kind == string(KindStorage) || kind == string(KindPartial) || kind == "internal" {
		c.log.Warn("workflow operation failed", zap.String("op", op), zap.Error(err))
	} else {
		c.log.Debug("workflow operation rejected", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (c *core) emit(ctx context.Context, ev notify.Event) {
	if ev.At.IsZero() {
		ev.At = c.now()
	}
	c.notifier.Notify(ctx, ev)
}

func participants(p *models.Project) []uuid.UUID {
	return []uuid.UUID{p.AssignedBy, p.AssignedTo}
}

func workRef(w *models.WorkRecord) *uuid.UUID {
	if w == nil {
		return nil
	}
	id := w.ID
	return &id
}

// loadWorkAndProject locks the work row and then its project row. The
// order (work, project) is the same everywhere to avoid deadlocks.
func loadWorkAndProject(ctx context.Context, tx store.Tx, op string, workID uuid.UUID) (*models.WorkRecord, *models.Project, error) {
	w, err := tx.LockWork(ctx, workID)
	if err != nil {
		return nil, nil, wrapStore(op, "work", err)
	}
	p, err := tx.LockProject(ctx, w.ProjectID)
	if err != nil {
		return nil, nil, wrapStore(op, "project", err)
	}
	return w, p, nil
}
