// Package reconcile pushes the live usage computation into the persisted
// is_used flags of ideas and axes.
//
// Ideas are reconciled per event (an action attached to or detached from a
// program). Axes are few, so they are rebuilt from scratch on every resync.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"plurianual/internal/domain"
	"plurianual/internal/repo"
	"plurianual/internal/usage"
)

// Store is the persistence side of reconciliation. Idea and action lookups
// use the usage.Key rule on (nome, produto).
type Store interface {
	// SetIdeaUsed updates every idea matching (nome, produto) and returns how many changed.
	SetIdeaUsed(ctx context.Context, nome, produto string, used bool) (int, error)
	// ActionExists reports whether any program still holds a matching action.
	ActionExists(ctx context.Context, nome, produto string) (bool, error)
	SetIdeaUsedByID(ctx context.Context, ideaID string, used bool) error
	SetAxisUsed(ctx context.Context, axisID string, used bool) error
}

// RemoteOperationError is returned when the store fails. Op names the failed
// step in domain terms; the underlying cause is available through Unwrap.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return "could not " + e.Op
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

type Reconciler struct {
	store Store
	log   *slog.Logger
	locks *keyLocks
}

func New(store Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store: store,
		log:   logger.With("component", "reconcile"),
		locks: newKeyLocks(),
	}
}

// MarkIdeaUsed flags the ideas matching (nome, produto) as used after an action
// with that pair was attached to a program.
func (r *Reconciler) MarkIdeaUsed(ctx context.Context, nome, produto string) error {
	key := usage.Key(nome, produto)
	unlock := r.locks.lock(key)
	defer unlock()
	n, err := r.store.SetIdeaUsed(ctx, nome, produto, true)
	if err != nil {
		return r.fail("mark idea "+quote(nome)+" as used", err, "nome", nome, "produto", produto)
	}
	r.log.Debug("idea marked used", "nome", nome, "produto", produto, "updated", n)
	return nil
}

// MarkIdeaAvailable clears the used flag of ideas matching (nome, produto)
// unless another action with that pair still exists somewhere.
func (r *Reconciler) MarkIdeaAvailable(ctx context.Context, nome, produto string) error {
	key := usage.Key(nome, produto)
	unlock := r.locks.lock(key)
	defer unlock()
	exists, err := r.store.ActionExists(ctx, nome, produto)
	if err != nil {
		return r.fail("check usage of idea "+quote(nome), err, "nome", nome, "produto", produto)
	}
	if exists {
		r.log.Debug("idea still referenced", "nome", nome, "produto", produto)
		return nil
	}
	n, err := r.store.SetIdeaUsed(ctx, nome, produto, false)
	if err != nil {
		return r.fail("mark idea "+quote(nome)+" as available", err, "nome", nome, "produto", produto)
	}
	r.log.Debug("idea marked available", "nome", nome, "produto", produto, "updated", n)
	return nil
}

// SyncProgramActions reconciles ideas after a program's action list changed
// from before to after. Keys present in after are attached; keys only present
// in before are detached. Every key is attempted; failures are joined.
func (r *Reconciler) SyncProgramActions(ctx context.Context, before, after []domain.Action) error {
	var errs []error
	attached := map[string]bool{}
	for _, a := range after {
		k := usage.Key(a.Nome, a.Produto)
		if attached[k] {
			continue
		}
		attached[k] = true
		if err := r.MarkIdeaUsed(ctx, a.Nome, a.Produto); err != nil {
			errs = append(errs, err)
		}
	}
	detached := map[string]bool{}
	for _, a := range before {
		k := usage.Key(a.Nome, a.Produto)
		if attached[k] || detached[k] {
			continue
		}
		detached[k] = true
		if err := r.MarkIdeaAvailable(ctx, a.Nome, a.Produto); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AxesLoader returns the current programs and axes.
type AxesLoader func(ctx context.Context) ([]domain.Program, []domain.Axis, error)

// ResyncAxes rebuilds every axis flag. The state is loaded only after the axes
// lock is held, so concurrent resyncs never apply an older view over a newer
// one. Phase one clears all flags, phase two sets the axes named by a program.
// The phases are not atomic: an interrupted run leaves axes marked unused until
// the next resync. Axes deleted in the meantime are skipped.
func (r *Reconciler) ResyncAxes(ctx context.Context, load AxesLoader) error {
	unlock := r.locks.lock("axes")
	defer unlock()
	programs, axes, err := load(ctx)
	if err != nil {
		return r.fail("load axes", err)
	}
	gone := 0
	for _, ax := range axes {
		if err := r.store.SetAxisUsed(ctx, ax.ID, false); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				gone++
				continue
			}
			return r.fail("reset usage of axis "+quote(ax.Nome), err, "axis_id", ax.ID)
		}
	}
	byName := map[string][]domain.Axis{}
	for _, ax := range axes {
		byName[ax.Nome] = append(byName[ax.Nome], ax)
	}
	marked := 0
	for _, name := range usage.AxesInUse(programs) {
		for _, ax := range byName[name] {
			if err := r.store.SetAxisUsed(ctx, ax.ID, true); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					continue
				}
				return r.fail("mark axis "+quote(ax.Nome)+" as used", err, "axis_id", ax.ID)
			}
			marked++
		}
	}
	r.log.Info("axes resynced", "axes", len(axes), "used", marked, "gone", gone)
	return nil
}

// ResyncIdeas rewrites every idea flag from the live predicate. It repairs
// flags left stale by a failed attach or detach.
func (r *Reconciler) ResyncIdeas(ctx context.Context, programs []domain.Program, ideas []domain.Idea) error {
	var errs []error
	changed := 0
	for _, idea := range ideas {
		used := usage.IdeaUsedInPrograms(idea, programs)
		if used == idea.IsUsed {
			continue
		}
		unlock := r.locks.lock(usage.Key(idea.Nome, idea.Produto))
		err := r.store.SetIdeaUsedByID(ctx, idea.ID, used)
		unlock()
		if err != nil {
			errs = append(errs, r.fail("update usage of idea "+quote(idea.Nome), err, "idea_id", idea.ID))
			continue
		}
		changed++
	}
	r.log.Info("ideas resynced", "ideas", len(ideas), "changed", changed)
	return errors.Join(errs...)
}

func (r *Reconciler) fail(op string, err error, attrs ...any) error {
	r.log.Error("reconciliation failed", append([]any{"op", op, "err", err}, attrs...)...)
	return &RemoteOperationError{Op: op, Err: err}
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
