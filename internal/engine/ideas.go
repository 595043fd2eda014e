package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"plurianual/internal/domain"
	"plurianual/internal/events"
	"plurianual/internal/repo"
	"plurianual/internal/usage"
)

type IdeaInput struct {
	Nome          string `json:"nome"`
	Produto       string `json:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty"`
	Categoria     string `json:"categoria,omitempty"`
}

type IdeaResult struct {
	Idea domain.Idea `json:"idea"`
	// Created is false when an idea with the same name and product already existed.
	Created bool `json:"created"`
}

// CreateIdea adds an idea to the bank. The used flag starts from the live
// action lookup. An existing idea with the same (nome, produto) is returned
// instead of creating a duplicate.
func (e Engine) CreateIdea(ctx context.Context, in IdeaInput, actorID string) (IdeaResult, error) {
	in.Nome = strings.TrimSpace(in.Nome)
	in.Produto = strings.TrimSpace(in.Produto)
	if in.Nome == "" {
		return IdeaResult{}, invalid("nome", "is required")
	}
	if !e.Config.AllowsCategoria(in.Categoria) {
		return IdeaResult{}, invalid("categoria", "%q is not in the catalog", in.Categoria)
	}
	return e.insertIdea(ctx, in, events.IdeaCreated, "", actorID)
}

// PromoteAction saves an action of a program to the ideas bank.
func (e Engine) PromoteAction(ctx context.Context, programID, actionID, categoria, actorID string) (IdeaResult, error) {
	if !e.Config.AllowsCategoria(categoria) {
		return IdeaResult{}, invalid("categoria", "%q is not in the catalog", categoria)
	}
	p, err := e.Repo.GetProgram(ctx, programID)
	if err != nil {
		return IdeaResult{}, err
	}
	for _, a := range p.Actions {
		if a.ID != actionID {
			continue
		}
		in := IdeaInput{Nome: strings.TrimSpace(a.Nome), Produto: strings.TrimSpace(a.Produto), UnidadeMedida: a.UnidadeMedida, Categoria: categoria}
		return e.insertIdea(ctx, in, events.IdeaPromoted, programID, actorID)
	}
	return IdeaResult{}, repo.ErrNotFound
}

func (e Engine) insertIdea(ctx context.Context, in IdeaInput, evtType, programID, actorID string) (IdeaResult, error) {
	var res IdeaResult
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := e.Repo.IdeaByKeyTx(ctx, tx, in.Nome, in.Produto)
		if err == nil {
			res = IdeaResult{Idea: existing}
			return nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		used, err := e.Repo.ActionExistsTx(ctx, tx, in.Nome, in.Produto)
		if err != nil {
			return err
		}
		idea := domain.Idea{
			ID:            uuid.NewString(),
			Nome:          in.Nome,
			Produto:       in.Produto,
			UnidadeMedida: in.UnidadeMedida,
			Categoria:     in.Categoria,
			IsUsed:        used,
			CreatedAt:     e.timestamp(),
		}
		if err := e.Repo.InsertIdeaTx(ctx, tx, idea); err != nil {
			return err
		}
		payload := events.EventPayload{"nome": idea.Nome, "produto": idea.Produto}
		if programID != "" {
			payload["program_id"] = programID
		}
		if err := e.Events.Append(ctx, tx, evtType, "idea", idea.ID, actorID, payload); err != nil {
			return err
		}
		res = IdeaResult{Idea: idea, Created: true}
		return nil
	})
	if err != nil {
		return IdeaResult{}, err
	}
	if res.Created {
		e.Log.Info("idea created", "idea_id", res.Idea.ID, "is_used", res.Idea.IsUsed)
	}
	return res, nil
}

func (e Engine) GetIdea(ctx context.Context, id string) (domain.Idea, error) {
	return e.Repo.GetIdea(ctx, id)
}

func (e Engine) ListIdeas(ctx context.Context, f repo.IdeaFilters) ([]domain.Idea, error) {
	return e.Repo.ListIdeas(ctx, f)
}

// AvailableIdeas lists ideas no program uses, computed live, minus the ids in hidden.
func (e Engine) AvailableIdeas(ctx context.Context, hidden usage.Hidden) ([]domain.Idea, error) {
	s, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return hidden.Apply(usage.AvailableIdeas(s.Ideas, s.Programs)), nil
}

func (e Engine) IdeaUsage(ctx context.Context, id string) (usage.Usage, error) {
	idea, err := e.Repo.GetIdea(ctx, id)
	if err != nil {
		return usage.Usage{}, err
	}
	programs, err := e.Repo.ListPrograms(ctx, repo.ProgramFilters{})
	if err != nil {
		return usage.Usage{}, err
	}
	return usage.IdeaUsage(idea, programs), nil
}

// DeleteIdea removes an idea no program uses. Usage is checked against the
// actions inside the deleting transaction, never against the cached flag.
func (e Engine) DeleteIdea(ctx context.Context, id, actorID string) error {
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		idea, err := e.Repo.GetIdeaTx(ctx, tx, id)
		if err != nil {
			return err
		}
		names, err := e.Repo.ProgramNamesUsingActionTx(ctx, tx, idea.Nome, idea.Produto)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return &InUseError{Kind: "idea", Name: idea.Nome, Programs: names}
		}
		if err := e.Repo.DeleteIdeaTx(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.IdeaDeleted, "idea", id, actorID, events.EventPayload{"nome": idea.Nome})
	})
	if err != nil {
		return err
	}
	e.Log.Info("idea deleted", "idea_id", id)
	return nil
}

type ResyncResult struct {
	Total int `json:"total"`
	Result
}

// ResyncIdeas rewrites every idea flag from the live computation.
func (e Engine) ResyncIdeas(ctx context.Context, actorID string) (ResyncResult, error) {
	s, err := e.Snapshot(ctx)
	if err != nil {
		return ResyncResult{}, err
	}
	res := ResyncResult{Total: len(s.Ideas)}
	if err := e.Reconciler.ResyncIdeas(ctx, s.Programs, s.Ideas); err != nil {
		res.warn(err)
	}
	if err := e.recordResync(ctx, events.IdeasResynced, "idea", actorID, len(s.Ideas), len(res.Warnings)); err != nil {
		return res, err
	}
	return res, nil
}

func (e Engine) recordResync(ctx context.Context, evtType, kind, actorID string, total, failures int) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		return e.Events.Append(ctx, tx, evtType, kind, "", actorID, events.EventPayload{"total": total, "failures": failures})
	})
}
