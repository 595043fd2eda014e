package server

import (
	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/report"
)

// Request payloads

type ActionRequest struct {
	ID            string        `json:"id,omitempty"`
	Nome          string        `json:"nome"`
	Produto       string        `json:"produto,omitempty"`
	UnidadeMedida string        `json:"unidade_medida,omitempty"`
	Fonte         string        `json:"fonte,omitempty"`
	MetaFisica    domain.Annual `json:"meta_fisica,omitempty"`
	Orcamento     domain.Annual `json:"orcamento,omitempty"`
}

type ProgramRequest struct {
	Secretaria    string          `json:"secretaria,omitempty"`
	Departamento  string          `json:"departamento,omitempty"`
	Eixo          string          `json:"eixo,omitempty"`
	Programa      string          `json:"programa"`
	Descricao     string          `json:"descricao,omitempty"`
	Justificativa string          `json:"justificativa,omitempty"`
	Objetivos     string          `json:"objetivos,omitempty"`
	Diretrizes    string          `json:"diretrizes,omitempty"`
	Actions       []ActionRequest `json:"actions,omitempty"`
}

func (r ProgramRequest) input() engine.ProgramInput {
	in := engine.ProgramInput{
		Secretaria:    r.Secretaria,
		Departamento:  r.Departamento,
		Eixo:          r.Eixo,
		Programa:      r.Programa,
		Descricao:     r.Descricao,
		Justificativa: r.Justificativa,
		Objetivos:     r.Objetivos,
		Diretrizes:    r.Diretrizes,
	}
	for _, a := range r.Actions {
		in.Actions = append(in.Actions, domain.Action{
			ID:            a.ID,
			Nome:          a.Nome,
			Produto:       a.Produto,
			UnidadeMedida: a.UnidadeMedida,
			Fonte:         a.Fonte,
			MetaFisica:    a.MetaFisica,
			Orcamento:     a.Orcamento,
		})
	}
	return in
}

type IdeaRequest struct {
	Nome          string `json:"nome"`
	Produto       string `json:"produto,omitempty"`
	UnidadeMedida string `json:"unidade_medida,omitempty"`
	Categoria     string `json:"categoria,omitempty"`
}

type PromoteRequest struct {
	ProgramID string `json:"program_id"`
	ActionID  string `json:"action_id"`
	Categoria string `json:"categoria,omitempty"`
}

type AxisRequest struct {
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
}

// Response payloads

type ProgramResponse struct {
	domain.Program
	Total    float64  `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
}

func programResponse(p domain.Program, warnings []string) ProgramResponse {
	return ProgramResponse{Program: p, Total: report.ProgramTotal(p), Warnings: warnings}
}

type ProgramList struct {
	Items []ProgramResponse `json:"items"`
	Total float64           `json:"total"`
}

type IdeaList struct {
	Items []domain.Idea `json:"items"`
}

type AxisList struct {
	Items []domain.Axis `json:"items"`
}

type IdeaUsageResponse struct {
	IdeaID       string   `json:"idea_id"`
	IsUsed       bool     `json:"is_used"`
	ProgramNames []string `json:"program_names"`
}

type WarningsResponse struct {
	Warnings []string `json:"warnings,omitempty"`
}

type ResyncResponse struct {
	Total    int      `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
}

type TotalsResponse struct {
	Items []report.Total `json:"items"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
