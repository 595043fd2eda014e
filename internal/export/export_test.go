package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plurianual/internal/domain"
)

func sampleProgram() domain.Program {
	return domain.Program{
		ID:           "p1",
		Secretaria:   "Educação",
		Departamento: "",
		Eixo:         "Desenvolvimento Social",
		Programa:     "Educação Integral",
		Descricao:    "Ampliação da jornada escolar.",
		CreatedAt:    "2025-03-14T12:00:00Z",
		Actions: []domain.Action{
			{
				Nome:       "Reforma Escola",
				Produto:    "Obra",
				Fonte:      "Tesouro",
				MetaFisica: domain.AnnualFrom([4]string{"2", "", "1", ""}),
				Orcamento:  domain.AnnualFrom([4]string{"R$ 1.000,00", "", "R$ 500,50", ""}),
			},
			{Nome: "Capacitação", Produto: "Curso"},
		},
	}
}

func TestComposeHeaderAndPlaceholders(t *testing.T) {
	doc := Compose(sampleProgram())

	assert.Equal(t, "Educação Integral", doc.Title)
	assert.Equal(t, []Field{
		{Label: "Secretaria", Value: "Educação"},
		{Label: "Departamento", Value: NotInformed},
		{Label: "Eixo", Value: "Desenvolvimento Social"},
		{Label: "Programa", Value: "Educação Integral"},
		{Label: "Data de criação", Value: "14/03/2025"},
	}, doc.Header)
	assert.Equal(t, []Section{
		{Title: "Descrição", Body: "Ampliação da jornada escolar."},
		{Title: "Justificativa", Body: NoJustificativa},
		{Title: "Objetivos", Body: NoObjetivos},
		{Title: "Diretrizes", Body: NoDiretrizes},
	}, doc.Sections)
}

func TestComposeRowsAndTotals(t *testing.T) {
	doc := Compose(sampleProgram())
	require.Len(t, doc.Rows, 2)

	first := doc.Rows[0]
	assert.Equal(t, 1500.5, first.Total)
	require.Len(t, first.Years, 4)
	assert.Equal(t, YearCell{Year: 2026, Meta: "2", Orcamento: 1000}, first.Years[0])
	assert.Equal(t, YearCell{Year: 2027, Meta: "-", Orcamento: 0}, first.Years[1])
	assert.Equal(t, NotInformed, first.UnidadeMedida)

	assert.Equal(t, 0.0, doc.Rows[1].Total)
	assert.Equal(t, 1500.5, doc.Total)
}

func TestComposeEmptyProgram(t *testing.T) {
	doc := Compose(domain.Program{})
	assert.Equal(t, NotInformed, doc.Title)
	assert.Equal(t, NotInformed, doc.Header[4].Value)
	assert.Equal(t, NoDescricao, doc.Sections[0].Body)
	assert.Empty(t, doc.Rows)
	assert.Equal(t, 0.0, doc.Total)
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Educação Integral":         "programa-educacao-integral.pdf",
		"  Saúde & Bem-Estar 2026 ": "programa-saude-bem-estar-2026.pdf",
		"MOBILIDADE URBANA":         "programa-mobilidade-urbana.pdf",
		"":                          "programa-sem-nome.pdf",
		"???":                       "programa-sem-nome.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, FileName(in, "pdf"), in)
	}
	assert.Equal(t, "programa-x.csv", FileName("x", ".csv"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	assert.Equal(t, "md", f.Ext())

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRenderFormats(t *testing.T) {
	doc := Compose(sampleProgram())
	for _, f := range Formats {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, doc, f), f)
		out := buf.String()
		assert.Contains(t, out, "Reforma Escola", f)
		assert.Contains(t, out, "R$ 1.000,00", f)
		assert.Contains(t, out, "R$ 1.500,50", f)
		assert.Contains(t, out, NoJustificativa, f)
	}
}

func TestRenderHTMLEscapes(t *testing.T) {
	p := sampleProgram()
	p.Programa = "<script>alert(1)</script>"
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Compose(p), FormatHTML))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "<table")
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, Document{}, Format("pdf")))
}
