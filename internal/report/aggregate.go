// Package report rolls action budgets up into program and portfolio totals.
// All totals are accumulated in cents.
package report

import (
	"sort"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
	"plurianual/internal/usage"
)

// Unspecified labels programs without a department or secretaria.
const Unspecified = "Não especificado"

type Total struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type YearTotal struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

func ActionTotal(a domain.Action) float64 {
	return budget.FromCents(actionCents(a))
}

func ProgramTotal(p domain.Program) float64 {
	return budget.FromCents(programCents(p))
}

func PortfolioTotal(programs []domain.Program) float64 {
	var c int64
	for _, p := range programs {
		c += programCents(p)
	}
	return budget.FromCents(c)
}

// TotalsByDepartment groups program totals by departamento, largest first.
func TotalsByDepartment(programs []domain.Program) []Total {
	return groupBy(programs, func(p domain.Program) string { return p.Departamento })
}

// TotalsBySecretaria groups program totals by secretaria, largest first.
func TotalsBySecretaria(programs []domain.Program) []Total {
	return groupBy(programs, func(p domain.Program) string { return p.Secretaria })
}

// TotalsByProgram lists one entry per program, largest first. Programs with
// equal totals keep their input order.
func TotalsByProgram(programs []domain.Program) []Total {
	res := make([]Total, 0, len(programs))
	cents := make([]int64, 0, len(programs))
	for _, p := range programs {
		c := programCents(p)
		res = append(res, Total{Name: p.Programa, Total: budget.FromCents(c)})
		cents = append(cents, c)
	}
	sortDesc(res, cents)
	return res
}

// TotalsByYear sums every action's budget per fiscal year.
func TotalsByYear(programs []domain.Program) []YearTotal {
	var cents [len(domain.FiscalYears)]int64
	for _, p := range programs {
		for _, a := range p.Actions {
			for i, v := range a.Orcamento.Values() {
				cents[i] += budget.ToCents(budget.ParseCurrency(v))
			}
		}
	}
	res := make([]YearTotal, 0, len(cents))
	for i, y := range domain.FiscalYears {
		res = append(res, YearTotal{Year: y, Total: budget.FromCents(cents[i])})
	}
	return res
}

type Summary struct {
	Programs       int         `json:"programs"`
	Actions        int         `json:"actions"`
	Ideas          int         `json:"ideas"`
	IdeasInUse     int         `json:"ideas_in_use"`
	Axes           int         `json:"axes"`
	AxesInUse      int         `json:"axes_in_use"`
	PortfolioTotal float64     `json:"portfolio_total"`
	ByYear         []YearTotal `json:"by_year"`
	ByDepartment   []Total     `json:"by_department"`
	BySecretaria   []Total     `json:"by_secretaria"`
	ByProgram      []Total     `json:"by_program"`
}

// Dashboard computes the dashboard figures. Usage counts are computed live
// rather than read from the cached flags.
func Dashboard(programs []domain.Program, ideas []domain.Idea, axes []domain.Axis) Summary {
	s := Summary{
		Programs:       len(programs),
		Ideas:          len(ideas),
		Axes:           len(axes),
		PortfolioTotal: PortfolioTotal(programs),
		ByYear:         TotalsByYear(programs),
		ByDepartment:   TotalsByDepartment(programs),
		BySecretaria:   TotalsBySecretaria(programs),
		ByProgram:      TotalsByProgram(programs),
	}
	for _, p := range programs {
		s.Actions += len(p.Actions)
	}
	for _, idea := range ideas {
		if usage.IdeaUsedInPrograms(idea, programs) {
			s.IdeasInUse++
		}
	}
	for _, ax := range axes {
		if usage.AxisUsed(ax, programs) {
			s.AxesInUse++
		}
	}
	return s
}

func groupBy(programs []domain.Program, label func(domain.Program) string) []Total {
	index := map[string]int{}
	var res []Total
	var cents []int64
	for _, p := range programs {
		name := label(p)
		if name == "" {
			name = Unspecified
		}
		i, ok := index[name]
		if !ok {
			i = len(res)
			index[name] = i
			res = append(res, Total{Name: name})
			cents = append(cents, 0)
		}
		cents[i] += programCents(p)
	}
	for i := range res {
		res[i].Total = budget.FromCents(cents[i])
	}
	sortDesc(res, cents)
	if res == nil {
		res = []Total{}
	}
	return res
}

// sortDesc orders totals by cents, largest first, keeping first-seen order on ties.
func sortDesc(totals []Total, cents []int64) {
	idx := make([]int, len(totals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cents[idx[a]] > cents[idx[b]] })
	sorted := make([]Total, len(totals))
	for i, j := range idx {
		sorted[i] = totals[j]
	}
	copy(totals, sorted)
}

func actionCents(a domain.Action) int64 {
	v := a.Orcamento.Values()
	return budget.ToCents(budget.SumMultiYear(v[:]...))
}

func programCents(p domain.Program) int64 {
	var c int64
	for _, a := range p.Actions {
		c += actionCents(a)
	}
	return c
}
