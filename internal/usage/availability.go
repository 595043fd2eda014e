package usage

import (
	"strings"

	"plurianual/internal/domain"
)

// AvailableIdeas returns the ideas no program uses, in input order.
func AvailableIdeas(ideas []domain.Idea, programs []domain.Program) []domain.Idea {
	res := make([]domain.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if IdeaAvailable(idea, programs) {
			res = append(res, idea)
		}
	}
	return res
}

// IdeaAvailable is the negation of IdeaUsedInPrograms.
func IdeaAvailable(idea domain.Idea, programs []domain.Program) bool {
	return !IdeaUsedInPrograms(idea, programs)
}

// Hidden is a session-local set of idea ids the user chose to hide. It is
// applied on top of the computed availability and never persisted.
type Hidden map[string]struct{}

// ParseHidden builds a Hidden set from a comma separated id list.
func ParseHidden(csv string) Hidden {
	h := Hidden{}
	for _, id := range strings.Split(csv, ",") {
		h.Hide(id)
	}
	return h
}

func (h Hidden) Hide(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	h[id] = struct{}{}
}

func (h Hidden) Show(id string) {
	delete(h, strings.TrimSpace(id))
}

func (h Hidden) Has(id string) bool {
	_, ok := h[id]
	return ok
}

// Apply drops hidden ideas, keeping order.
func (h Hidden) Apply(ideas []domain.Idea) []domain.Idea {
	if len(h) == 0 {
		return ideas
	}
	res := make([]domain.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if !h.Has(idea.ID) {
			res = append(res, idea)
		}
	}
	return res
}
