// Package export turns a program into a flat document model and renders it
// for spreadsheets, printing and plain text.
package export

import (
	"strings"
	"time"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
	"plurianual/internal/report"
)

const (
	NotInformed      = "Não informado"
	NoDescricao      = "Nenhuma descrição fornecida."
	NoJustificativa  = "Nenhuma justificativa fornecida."
	NoObjetivos      = "Nenhum objetivo fornecido."
	NoDiretrizes     = "Nenhuma diretriz fornecida."
	dateLayout       = "02/01/2006"
	emptyMetaDisplay = "-"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// YearCell pairs the physical target and the budget of one fiscal year.
type YearCell struct {
	Year      int     `json:"year"`
	Meta      string  `json:"meta"`
	Orcamento float64 `json:"orcamento"`
}

type Row struct {
	Nome          string     `json:"nome"`
	Produto       string     `json:"produto"`
	UnidadeMedida string     `json:"unidade_medida"`
	Fonte         string     `json:"fonte"`
	Years         []YearCell `json:"years"`
	Total         float64    `json:"total"`
}

// Document is everything a renderer needs; it carries no layout.
type Document struct {
	Title    string    `json:"title"`
	Header   []Field   `json:"header"`
	Sections []Section `json:"sections"`
	Rows     []Row     `json:"rows"`
	Total    float64   `json:"total"`
}

func Compose(p domain.Program) Document {
	created := orDefault(p.CreatedAt, NotInformed)
	if ts, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		created = ts.Format(dateLayout)
	}
	doc := Document{
		Title: orDefault(p.Programa, NotInformed),
		Header: []Field{
			{Label: "Secretaria", Value: orDefault(p.Secretaria, NotInformed)},
			{Label: "Departamento", Value: orDefault(p.Departamento, NotInformed)},
			{Label: "Eixo", Value: orDefault(p.Eixo, NotInformed)},
			{Label: "Programa", Value: orDefault(p.Programa, NotInformed)},
			{Label: "Data de criação", Value: created},
		},
		Sections: []Section{
			{Title: "Descrição", Body: orDefault(p.Descricao, NoDescricao)},
			{Title: "Justificativa", Body: orDefault(p.Justificativa, NoJustificativa)},
			{Title: "Objetivos", Body: orDefault(p.Objetivos, NoObjetivos)},
			{Title: "Diretrizes", Body: orDefault(p.Diretrizes, NoDiretrizes)},
		},
		Rows:  make([]Row, 0, len(p.Actions)),
		Total: report.ProgramTotal(p),
	}
	for _, a := range p.Actions {
		metas := a.MetaFisica.Values()
		budgets := a.Orcamento.Values()
		row := Row{
			Nome:          orDefault(a.Nome, NotInformed),
			Produto:       orDefault(a.Produto, NotInformed),
			UnidadeMedida: orDefault(a.UnidadeMedida, NotInformed),
			Fonte:         orDefault(a.Fonte, NotInformed),
			Years:         make([]YearCell, 0, len(domain.FiscalYears)),
			Total:         report.ActionTotal(a),
		}
		for i, y := range domain.FiscalYears {
			row.Years = append(row.Years, YearCell{
				Year:      y,
				Meta:      orDefault(metas[i], emptyMetaDisplay),
				Orcamento: budget.ParseCurrency(budgets[i]),
			})
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
