package engine

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"plurianual/internal/domain"
	"plurianual/internal/events"
)

type AxisInput struct {
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
}

func (e Engine) CreateAxis(ctx context.Context, in AxisInput, actorID string) (domain.Axis, error) {
	in.Nome = strings.TrimSpace(in.Nome)
	if in.Nome == "" {
		return domain.Axis{}, invalid("nome", "is required")
	}
	ax := domain.Axis{ID: uuid.NewString(), Nome: in.Nome, Descricao: in.Descricao, CreatedAt: e.timestamp()}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.CountProgramsByEixoTx(ctx, tx, ax.Nome)
		if err != nil {
			return err
		}
		ax.IsUsed = n > 0
		if err := e.Repo.InsertAxisTx(ctx, tx, ax); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AxisCreated, "axis", ax.ID, actorID, events.EventPayload{"nome": ax.Nome})
	})
	if err != nil {
		return domain.Axis{}, err
	}
	e.Log.Info("axis created", "axis_id", ax.ID)
	return ax, nil
}

func (e Engine) ListAxes(ctx context.Context) ([]domain.Axis, error) {
	return e.Repo.ListAxes(ctx)
}

// DeleteAxis removes an axis no program names. The check counts programs
// inside the deleting transaction.
func (e Engine) DeleteAxis(ctx context.Context, id, actorID string) error {
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		ax, err := e.Repo.GetAxisTx(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := e.Repo.CountProgramsByEixoTx(ctx, tx, ax.Nome)
		if err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Kind: "axis", Name: ax.Nome}
		}
		if err := e.Repo.DeleteAxisTx(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AxisDeleted, "axis", id, actorID, events.EventPayload{"nome": ax.Nome})
	})
	if err != nil {
		return err
	}
	e.Log.Info("axis deleted", "axis_id", id)
	return nil
}

// ResyncAxes rebuilds every axis flag and records the run.
func (e Engine) ResyncAxes(ctx context.Context, actorID string) (ResyncResult, error) {
	axes, err := e.Repo.ListAxes(ctx)
	if err != nil {
		return ResyncResult{}, err
	}
	res := ResyncResult{Total: len(axes)}
	if err := e.resyncAxes(ctx); err != nil {
		res.warn(err)
	}
	if err := e.recordResync(ctx, events.AxesResynced, "axis", actorID, len(axes), len(res.Warnings)); err != nil {
		return res, err
	}
	return res, nil
}

func (e Engine) resyncAxes(ctx context.Context) error {
	return e.Reconciler.ResyncAxes(ctx, func(ctx context.Context) ([]domain.Program, []domain.Axis, error) {
		s, err := e.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		return s.Programs, s.Axes, nil
	})
}
