package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plurianual/internal/domain"
)

func budgetAction(nome string, years ...string) domain.Action {
	var v [4]string
	copy(v[:], years)
	return domain.Action{Nome: nome, Orcamento: domain.AnnualFrom(v)}
}

func TestActionTotalSingleYear(t *testing.T) {
	assert.Equal(t, 1000.0, ActionTotal(budgetAction("a", "R$ 1.000,00")))
}

func TestProgramAndPortfolioTotals(t *testing.T) {
	p1 := domain.Program{Programa: "P1", Actions: []domain.Action{
		budgetAction("a", "R$ 100,00", "R$ 200,00"),
		budgetAction("b", "", "", "", "R$ 0,50"),
	}}
	p2 := domain.Program{Programa: "P2"}
	assert.Equal(t, 300.5, ProgramTotal(p1))
	assert.Equal(t, 0.0, ProgramTotal(p2))
	assert.Equal(t, 300.5, PortfolioTotal([]domain.Program{p1, p2}))
}

func TestTotalsByDepartment(t *testing.T) {
	programs := []domain.Program{
		{Departamento: "Y", Actions: []domain.Action{budgetAction("c", "R$ 500,00")}},
		{Departamento: "X", Actions: []domain.Action{budgetAction("a", "R$ 1.000,00")}},
		{Departamento: "X", Actions: []domain.Action{budgetAction("b", "R$ 2.000,00")}},
	}
	got := TotalsByDepartment(programs)
	require.Len(t, got, 2)
	assert.Equal(t, Total{Name: "X", Total: 3000}, got[0])
	assert.Equal(t, Total{Name: "Y", Total: 500}, got[1])

	// independent of processing order
	reversed := []domain.Program{programs[2], programs[1], programs[0]}
	assert.Equal(t, got, TotalsByDepartment(reversed))
}

func TestTotalsByDepartmentUnspecified(t *testing.T) {
	got := TotalsByDepartment([]domain.Program{
		{Actions: []domain.Action{budgetAction("a", "R$ 1,00")}},
		{Departamento: "", Actions: []domain.Action{budgetAction("b", "R$ 2,00")}},
	})
	assert.Equal(t, []Total{{Name: Unspecified, Total: 3}}, got)
	assert.Equal(t, []Total{}, TotalsByDepartment(nil))
}

func TestTotalsByProgramStableTies(t *testing.T) {
	programs := []domain.Program{
		{Programa: "A", Actions: []domain.Action{budgetAction("a", "R$ 10,00")}},
		{Programa: "B", Actions: []domain.Action{budgetAction("b", "R$ 30,00")}},
		{Programa: "C", Actions: []domain.Action{budgetAction("c", "R$ 10,00")}},
		{Programa: "D"},
	}
	got := TotalsByProgram(programs)
	names := make([]string, 0, len(got))
	for _, g := range got {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"B", "A", "C", "D"}, names)
}

func TestTotalsByYear(t *testing.T) {
	programs := []domain.Program{
		{Actions: []domain.Action{budgetAction("a", "R$ 1,00", "R$ 2,00"), budgetAction("b", "R$ 3,00")}},
	}
	assert.Equal(t, []YearTotal{{2026, 4}, {2027, 2}, {2028, 0}, {2029, 0}}, TotalsByYear(programs))
}

func TestDashboardCountsLiveUsage(t *testing.T) {
	programs := []domain.Program{
		{Programa: "P", Eixo: "Educação", Departamento: "D", Actions: []domain.Action{budgetAction("Horta", "R$ 5,00")}},
	}
	ideas := []domain.Idea{{Nome: "horta", IsUsed: false}, {Nome: "Ciclovia", IsUsed: true}}
	axes := []domain.Axis{{Nome: "Educação"}, {Nome: "Saúde", IsUsed: true}}

	s := Dashboard(programs, ideas, axes)
	assert.Equal(t, 1, s.Programs)
	assert.Equal(t, 1, s.Actions)
	assert.Equal(t, 1, s.IdeasInUse)
	assert.Equal(t, 1, s.AxesInUse)
	assert.Equal(t, 5.0, s.PortfolioTotal)
	assert.Equal(t, []Total{{Name: "D", Total: 5}}, s.ByDepartment)
}
