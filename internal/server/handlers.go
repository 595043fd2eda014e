package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/export"
	"plurianual/internal/report"
	"plurianual/internal/repo"
	"plurianual/internal/usage"
)

type handlers struct {
	e   engine.Engine
	log *slog.Logger
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type programOutput struct {
	Body ProgramResponse `json:"body"`
}

type warningsOutput struct {
	Body WarningsResponse `json:"body"`
}

func (h handlers) registerPrograms(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-program",
		Method:        http.MethodPost,
		Path:          "/programs",
		Summary:       "Create a program",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ProgramRequest `json:"body"`
	}) (*programOutput, error) {
		res, err := h.e.CreateProgram(ctx, input.Body.input(), actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &programOutput{Body: programResponse(res.Program, res.Warnings)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-programs",
		Method:      http.MethodGet,
		Path:        "/programs",
		Summary:     "List programs",
	}, func(ctx context.Context, input *struct {
		Secretaria   string `query:"secretaria"`
		Departamento string `query:"departamento"`
		Eixo         string `query:"eixo"`
		Search       string `query:"q"`
		Limit        int    `query:"limit" minimum:"0" maximum:"1000"`
	}) (*struct {
		Body ProgramList `json:"body"`
	}, error) {
		ps, err := h.e.ListPrograms(ctx, repo.ProgramFilters{
			Secretaria:   input.Secretaria,
			Departamento: input.Departamento,
			Eixo:         input.Eixo,
			Search:       input.Search,
			Limit:        input.Limit,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		list := ProgramList{Items: make([]ProgramResponse, 0, len(ps)), Total: report.PortfolioTotal(ps)}
		for _, p := range ps {
			list.Items = append(list.Items, programResponse(p, nil))
		}
		return &struct {
			Body ProgramList `json:"body"`
		}{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-program",
		Method:      http.MethodGet,
		Path:        "/programs/{id}",
		Summary:     "Get a program",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*programOutput, error) {
		p, err := h.e.GetProgram(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &programOutput{Body: programResponse(p, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-program",
		Method:      http.MethodPut,
		Path:        "/programs/{id}",
		Summary:     "Replace a program and its actions",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body ProgramRequest `json:"body"`
	}) (*programOutput, error) {
		res, err := h.e.UpdateProgram(ctx, input.ID, input.Body.input(), actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &programOutput{Body: programResponse(res.Program, res.Warnings)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-program",
		Method:      http.MethodDelete,
		Path:        "/programs/{id}",
		Summary:     "Delete a program",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*warningsOutput, error) {
		res, err := h.e.DeleteProgram(ctx, input.ID, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &warningsOutput{Body: WarningsResponse{Warnings: res.Warnings}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-program",
		Method:      http.MethodGet,
		Path:        "/programs/{id}/export",
		Summary:     "Export a program document",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		Format string `query:"format" enum:"text,csv,html,markdown"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		format := h.e.DefaultExportFormat()
		if input.Format != "" {
			f, err := export.ParseFormat(input.Format)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"format": input.Format})
			}
			format = f
		}
		var buf bytes.Buffer
		name, err := h.e.ExportProgram(ctx, input.ID, format, &buf)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        format.ContentType(),
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
			Body:               buf.Bytes(),
		}, nil
	})
}

type ideaOutput struct {
	Body domain.Idea `json:"body"`
}

func (h handlers) registerIdeas(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-idea",
		Method:        http.MethodPost,
		Path:          "/ideas",
		Summary:       "Add an idea to the bank",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body IdeaRequest `json:"body"`
	}) (*ideaOutput, error) {
		res, err := h.e.CreateIdea(ctx, engine.IdeaInput{
			Nome:          input.Body.Nome,
			Produto:       input.Body.Produto,
			UnidadeMedida: input.Body.UnidadeMedida,
			Categoria:     input.Body.Categoria,
		}, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &ideaOutput{Body: res.Idea}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "promote-action",
		Method:        http.MethodPost,
		Path:          "/ideas/promote",
		Summary:       "Save a program action to the ideas bank",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body PromoteRequest `json:"body"`
	}) (*ideaOutput, error) {
		res, err := h.e.PromoteAction(ctx, input.Body.ProgramID, input.Body.ActionID, input.Body.Categoria, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &ideaOutput{Body: res.Idea}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ideas",
		Method:      http.MethodGet,
		Path:        "/ideas",
		Summary:     "List ideas",
	}, func(ctx context.Context, input *struct {
		Categoria string `query:"categoria"`
		Used      string `query:"used" enum:"true,false"`
		Search    string `query:"q"`
		Limit     int    `query:"limit" minimum:"0" maximum:"1000"`
	}) (*struct {
		Body IdeaList `json:"body"`
	}, error) {
		f := repo.IdeaFilters{Categoria: input.Categoria, Search: input.Search, Limit: input.Limit}
		if input.Used != "" {
			used, _ := strconv.ParseBool(input.Used)
			f.Used = &used
		}
		ideas, err := h.e.ListIdeas(ctx, f)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body IdeaList `json:"body"`
		}{Body: IdeaList{Items: ideas}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "available-ideas",
		Method:      http.MethodGet,
		Path:        "/ideas/available",
		Summary:     "List ideas no program uses",
		Description: "Usage is computed from the current programs. Ids listed in hide are dropped afterwards.",
	}, func(ctx context.Context, input *struct {
		Hide string `query:"hide" doc:"comma separated idea ids"`
	}) (*struct {
		Body IdeaList `json:"body"`
	}, error) {
		ideas, err := h.e.AvailableIdeas(ctx, usage.ParseHidden(input.Hide))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body IdeaList `json:"body"`
		}{Body: IdeaList{Items: ideas}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-idea",
		Method:      http.MethodGet,
		Path:        "/ideas/{id}",
		Summary:     "Get an idea",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*ideaOutput, error) {
		idea, err := h.e.GetIdea(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &ideaOutput{Body: idea}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "idea-usage",
		Method:      http.MethodGet,
		Path:        "/ideas/{id}/usage",
		Summary:     "Programs using an idea",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body IdeaUsageResponse `json:"body"`
	}, error) {
		u, err := h.e.IdeaUsage(ctx, input.ID)
		if err != nil {
			return nil, h.handleError(err)
		}
		names := u.ProgramNames
		if names == nil {
			names = []string{}
		}
		return &struct {
			Body IdeaUsageResponse `json:"body"`
		}{Body: IdeaUsageResponse{IdeaID: input.ID, IsUsed: u.IsUsed, ProgramNames: names}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-idea",
		Method:        http.MethodDelete,
		Path:          "/ideas/{id}",
		Summary:       "Delete an unused idea",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := h.e.DeleteIdea(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resync-ideas",
		Method:      http.MethodPost,
		Path:        "/ideas/resync",
		Summary:     "Recompute every idea usage flag",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ResyncResponse `json:"body"`
	}, error) {
		res, err := h.e.ResyncIdeas(ctx, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ResyncResponse `json:"body"`
		}{Body: ResyncResponse{Total: res.Total, Warnings: res.Warnings}}, nil
	})
}

func (h handlers) registerAxes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-axis",
		Method:        http.MethodPost,
		Path:          "/axes",
		Summary:       "Create an axis",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body AxisRequest `json:"body"`
	}) (*struct {
		Body domain.Axis `json:"body"`
	}, error) {
		ax, err := h.e.CreateAxis(ctx, engine.AxisInput{Nome: input.Body.Nome, Descricao: input.Body.Descricao}, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body domain.Axis `json:"body"`
		}{Body: ax}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-axes",
		Method:      http.MethodGet,
		Path:        "/axes",
		Summary:     "List axes",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body AxisList `json:"body"`
	}, error) {
		axes, err := h.e.ListAxes(ctx)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body AxisList `json:"body"`
		}{Body: AxisList{Items: axes}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-axis",
		Method:        http.MethodDelete,
		Path:          "/axes/{id}",
		Summary:       "Delete an axis no program names",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := h.e.DeleteAxis(ctx, input.ID, actorID(ctx)); err != nil {
			return nil, h.handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resync-axes",
		Method:      http.MethodPost,
		Path:        "/axes/resync",
		Summary:     "Rebuild every axis usage flag",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ResyncResponse `json:"body"`
	}, error) {
		res, err := h.e.ResyncAxes(ctx, actorID(ctx))
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body ResyncResponse `json:"body"`
		}{Body: ResyncResponse{Total: res.Total, Warnings: res.Warnings}}, nil
	})
}

func (h handlers) registerReports(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboard",
		Summary:     "Portfolio totals and usage counts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body report.Summary `json:"body"`
	}, error) {
		s, err := h.e.Dashboard(ctx)
		if err != nil {
			return nil, h.handleError(err)
		}
		return &struct {
			Body report.Summary `json:"body"`
		}{Body: s}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"program,idea,axis"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := h.e.Repo.LatestEvents(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Cursor:     cursorID,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, h.handleError(err)
		}
		resp := paginatedEvents{Items: items}
		if len(items) > limit {
			resp.Items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 500 {
		return 500
	}
	return in
}
