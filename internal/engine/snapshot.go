package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"plurianual/internal/domain"
	"plurianual/internal/report"
	"plurianual/internal/repo"
)

// Snapshot is the full registry as loaded at one point in time.
type Snapshot struct {
	Programs []domain.Program
	Ideas    []domain.Idea
	Axes     []domain.Axis
}

// Snapshot loads programs, ideas and axes concurrently.
func (e Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s.Programs, err = e.Repo.ListPrograms(gctx, repo.ProgramFilters{})
		return err
	})
	g.Go(func() error {
		var err error
		s.Ideas, err = e.Repo.ListIdeas(gctx, repo.IdeaFilters{})
		return err
	})
	g.Go(func() error {
		var err error
		s.Axes, err = e.Repo.ListAxes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (e Engine) Dashboard(ctx context.Context) (report.Summary, error) {
	s, err := e.Snapshot(ctx)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Dashboard(s.Programs, s.Ideas, s.Axes), nil
}
