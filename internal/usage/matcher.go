// Package usage decides whether ideas and axes are referenced by programs.
//
// An idea and an action describe the same conceptual action when their
// (nome, produto) pairs match after trimming and lowercasing. An axis is
// referenced by a program whose eixo equals the axis name exactly.
package usage

import (
	"strings"

	"plurianual/internal/domain"
)

// NormalizeName trims and lowercases s.
func NormalizeName(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// NamesMatch compares two names under NormalizeName.
func NamesMatch(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// ProductsMatch compares products under NormalizeName. An empty product only
// matches another empty product.
func ProductsMatch(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// Key is the canonical form of a (nome, produto) pair. Two pairs match iff
// their keys are equal.
func Key(nome, produto string) string {
	return NormalizeName(nome) + "\x1f" + NormalizeName(produto)
}

// Matches reports whether an idea-shaped (nome, produto) pair matches an action.
func Matches(nome, produto string, a domain.Action) bool {
	return NamesMatch(nome, a.Nome) && ProductsMatch(produto, a.Produto)
}

// IdeaUsedInPrograms reports whether any action of any program matches idea.
func IdeaUsedInPrograms(idea domain.Idea, programs []domain.Program) bool {
	for _, p := range programs {
		if programUses(p, idea.Nome, idea.Produto) {
			return true
		}
	}
	return false
}

// Usage describes where an idea is referenced.
type Usage struct {
	IsUsed       bool     `json:"is_used"`
	ProgramNames []string `json:"program_names"`
}

// IdeaUsage returns the names of the programs holding at least one action that
// matches idea, in program order. A program is listed once even when several
// of its actions match.
func IdeaUsage(idea domain.Idea, programs []domain.Program) Usage {
	u := Usage{ProgramNames: []string{}}
	seen := map[string]bool{}
	for _, p := range programs {
		if !programUses(p, idea.Nome, idea.Produto) {
			continue
		}
		u.IsUsed = true
		if p.ID != "" && seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		u.ProgramNames = append(u.ProgramNames, p.Programa)
	}
	return u
}

// ActionUsedInOtherPrograms reports whether action also appears in a program
// other than currentProgramID.
func ActionUsedInOtherPrograms(action domain.Action, currentProgramID string, programs []domain.Program) bool {
	for _, p := range programs {
		if p.ID == currentProgramID {
			continue
		}
		if programUses(p, action.Nome, action.Produto) {
			return true
		}
	}
	return false
}

// AxisUsed reports whether any program's eixo equals the axis name.
func AxisUsed(axis domain.Axis, programs []domain.Program) bool {
	for _, p := range programs {
		if p.Eixo == axis.Nome {
			return true
		}
	}
	return false
}

// AxesInUse returns the distinct non-empty eixo values in first-seen order.
func AxesInUse(programs []domain.Program) []string {
	var names []string
	seen := map[string]bool{}
	for _, p := range programs {
		if p.Eixo == "" || seen[p.Eixo] {
			continue
		}
		seen[p.Eixo] = true
		names = append(names, p.Eixo)
	}
	return names
}

func programUses(p domain.Program, nome, produto string) bool {
	for _, a := range p.Actions {
		if Matches(nome, produto, a) {
			return true
		}
	}
	return false
}
