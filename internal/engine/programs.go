package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
	"plurianual/internal/events"
	"plurianual/internal/export"
	"plurianual/internal/repo"
)

// ProgramInput is the full content of a program form. Updates replace the
// whole program, action list included.
type ProgramInput struct {
	Secretaria    string          `json:"secretaria,omitempty" yaml:"secretaria,omitempty"`
	Departamento  string          `json:"departamento,omitempty" yaml:"departamento,omitempty"`
	Eixo          string          `json:"eixo,omitempty" yaml:"eixo,omitempty"`
	Programa      string          `json:"programa" yaml:"programa,omitempty"`
	Descricao     string          `json:"descricao,omitempty" yaml:"descricao,omitempty"`
	Justificativa string          `json:"justificativa,omitempty" yaml:"justificativa,omitempty"`
	Objetivos     string          `json:"objetivos,omitempty" yaml:"objetivos,omitempty"`
	Diretrizes    string          `json:"diretrizes,omitempty" yaml:"diretrizes,omitempty"`
	Actions       []domain.Action `json:"actions,omitempty" yaml:"actions,omitempty"`
}

type ProgramResult struct {
	Program domain.Program `json:"program"`
	Result
}

func (e Engine) validateProgram(in ProgramInput) (ProgramInput, error) {
	in.Programa = strings.TrimSpace(in.Programa)
	in.Secretaria = strings.TrimSpace(in.Secretaria)
	in.Departamento = strings.TrimSpace(in.Departamento)
	in.Eixo = strings.TrimSpace(in.Eixo)
	if in.Programa == "" {
		return in, invalid("programa", "is required")
	}
	if !e.Config.AllowsSecretaria(in.Secretaria) {
		return in, invalid("secretaria", "%q is not in the catalog", in.Secretaria)
	}
	actions := make([]domain.Action, 0, len(in.Actions))
	seen := map[string]bool{}
	for i, a := range in.Actions {
		if strings.TrimSpace(a.Nome) == "" {
			return in, invalid(fmt.Sprintf("actions[%d].nome", i), "is required")
		}
		if !e.Config.AllowsFonte(a.Fonte) {
			return in, invalid(fmt.Sprintf("actions[%d].fonte", i), "%q is not in the catalog", a.Fonte)
		}
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" || seen[a.ID] {
			a.ID = uuid.NewString()
		}
		seen[a.ID] = true
		a.Orcamento = normalizeBudget(a.Orcamento)
		actions = append(actions, a)
	}
	in.Actions = actions
	return in, nil
}

// normalizeBudget rewrites every non-empty yearly value in the R$ format.
func normalizeBudget(a domain.Annual) domain.Annual {
	v := a.Values()
	for i, s := range v {
		if strings.TrimSpace(s) != "" {
			v[i] = budget.FormatAmount(budget.ParseCurrency(s))
		}
	}
	return domain.AnnualFrom(v)
}

// claimActionIDs gives a fresh id to every action whose id is held by another
// program, so actions copied from one program into another are stored as new rows.
func (e Engine) claimActionIDs(ctx context.Context, tx *sql.Tx, programID string, actions []domain.Action) error {
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	owners, err := e.Repo.ActionOwnersTx(ctx, tx, ids)
	if err != nil {
		return err
	}
	for i := range actions {
		if owner, ok := owners[actions[i].ID]; ok && owner != programID {
			actions[i].ID = uuid.NewString()
		}
	}
	return nil
}

func (in ProgramInput) program(id, created, updated string) domain.Program {
	return domain.Program{
		ID:            id,
		Secretaria:    in.Secretaria,
		Departamento:  in.Departamento,
		Eixo:          in.Eixo,
		Programa:      in.Programa,
		Descricao:     in.Descricao,
		Justificativa: in.Justificativa,
		Objetivos:     in.Objetivos,
		Diretrizes:    in.Diretrizes,
		Actions:       in.Actions,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
}

func (e Engine) CreateProgram(ctx context.Context, in ProgramInput, actorID string) (ProgramResult, error) {
	in, err := e.validateProgram(in)
	if err != nil {
		return ProgramResult{}, err
	}
	now := e.timestamp()
	p := in.program(uuid.NewString(), now, now)
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.claimActionIDs(ctx, tx, p.ID, p.Actions); err != nil {
			return err
		}
		if err := e.Repo.InsertProgramTx(ctx, tx, p); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ProgramCreated, "program", p.ID, actorID, events.EventPayload{
			"programa": p.Programa, "actions": len(p.Actions),
		})
	})
	if err != nil {
		return ProgramResult{}, err
	}
	e.Log.Info("program created", "program_id", p.ID, "actions", len(p.Actions))
	res := ProgramResult{Program: p}
	e.reconcileProgram(ctx, nil, p.Actions, &res.Result)
	return res, nil
}

// UpdateProgram replaces the program identified by id with in.
func (e Engine) UpdateProgram(ctx context.Context, id string, in ProgramInput, actorID string) (ProgramResult, error) {
	in, err := e.validateProgram(in)
	if err != nil {
		return ProgramResult{}, err
	}
	var before, after domain.Program
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = e.Repo.GetProgramTx(ctx, tx, id)
		if err != nil {
			return err
		}
		after = in.program(id, before.CreatedAt, e.timestamp())
		if err := e.claimActionIDs(ctx, tx, id, after.Actions); err != nil {
			return err
		}
		if err := e.Repo.ReplaceProgramTx(ctx, tx, after); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ProgramUpdated, "program", id, actorID, events.EventPayload{
			"programa": after.Programa, "actions_before": len(before.Actions), "actions_after": len(after.Actions),
		})
	})
	if err != nil {
		return ProgramResult{}, err
	}
	e.Log.Info("program updated", "program_id", id, "actions", len(after.Actions))
	res := ProgramResult{Program: after}
	e.reconcileProgram(ctx, before.Actions, after.Actions, &res.Result)
	return res, nil
}

func (e Engine) DeleteProgram(ctx context.Context, id, actorID string) (Result, error) {
	var before domain.Program
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = e.Repo.GetProgramTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteProgramTx(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ProgramDeleted, "program", id, actorID, events.EventPayload{"programa": before.Programa})
	})
	if err != nil {
		return Result{}, err
	}
	e.Log.Info("program deleted", "program_id", id)
	var res Result
	e.reconcileProgram(ctx, before.Actions, nil, &res)
	return res, nil
}

// reconcileProgram runs after commit: ideas per changed action, axes by full
// resync. Failures become warnings.
func (e Engine) reconcileProgram(ctx context.Context, before, after []domain.Action, res *Result) {
	if err := e.Reconciler.SyncProgramActions(ctx, before, after); err != nil {
		res.warn(err)
	}
	if err := e.resyncAxes(ctx); err != nil {
		res.warn(err)
	}
}

func (e Engine) GetProgram(ctx context.Context, id string) (domain.Program, error) {
	return e.Repo.GetProgram(ctx, id)
}

func (e Engine) ListPrograms(ctx context.Context, f repo.ProgramFilters) ([]domain.Program, error) {
	return e.Repo.ListPrograms(ctx, f)
}

// ExportProgram renders the program document to w and returns the file name
// a download should use.
func (e Engine) ExportProgram(ctx context.Context, id string, format export.Format, w io.Writer) (string, error) {
	p, err := e.Repo.GetProgram(ctx, id)
	if err != nil {
		return "", err
	}
	if format == "" {
		format = e.DefaultExportFormat()
	}
	if err := export.Render(w, export.Compose(p), format); err != nil {
		return "", err
	}
	return export.FileName(p.Programa, format.Ext()), nil
}

// DefaultExportFormat is the configured export.default_format, text when unset.
func (e Engine) DefaultExportFormat() export.Format {
	if e.Config != nil {
		if f, err := export.ParseFormat(e.Config.Export.DefaultFormat); err == nil {
			return f
		}
	}
	return export.FormatText
}
