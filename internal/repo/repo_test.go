package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"plurianual/internal/db"
	"plurianual/internal/domain"
	"plurianual/internal/migrate"
	"plurianual/internal/repo"
)

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, ctx
}

func inTx(t *testing.T, r repo.Repo, ctx context.Context, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func program(id, name, created string, actions ...domain.Action) domain.Program {
	return domain.Program{ID: id, Programa: name, Secretaria: "Educação", Eixo: "Educação", CreatedAt: created, UpdatedAt: created, Actions: actions}
}

func TestProgramRoundTripKeepsActionOrder(t *testing.T) {
	r, ctx := newRepo(t)
	p := program("p1", "Educação Integral", "2025-01-01T00:00:00Z",
		domain.Action{ID: "a2", Nome: "Reforma Escola", Produto: "Obra", Orcamento: domain.Annual{Y2026: "R$ 1.000,00"}},
		domain.Action{ID: "a1", Nome: "Capacitação", Produto: "Curso", MetaFisica: domain.Annual{Y2029: "30"}},
	)
	inTx(t, r, ctx, func(tx *sql.Tx) error { return r.InsertProgramTx(ctx, tx, p) })

	got, err := r.GetProgram(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Actions) != 2 || got.Actions[0].ID != "a2" || got.Actions[1].ID != "a1" {
		t.Fatalf("unexpected actions %+v", got.Actions)
	}
	if got.Actions[0].Orcamento.Y2026 != "R$ 1.000,00" || got.Actions[1].MetaFisica.Y2029 != "30" {
		t.Fatalf("annual values lost: %+v", got.Actions)
	}

	p.Programa = "Educação em Tempo Integral"
	p.Actions = []domain.Action{{ID: "a3", Nome: "Horta"}}
	inTx(t, r, ctx, func(tx *sql.Tx) error { return r.ReplaceProgramTx(ctx, tx, p) })
	got, err = r.GetProgram(ctx, "p1")
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if got.Programa != "Educação em Tempo Integral" || len(got.Actions) != 1 || got.Actions[0].ID != "a3" {
		t.Fatalf("replace did not overwrite: %+v", got)
	}
}

func TestGetProgramNotFound(t *testing.T) {
	r, ctx := newRepo(t)
	if _, err := r.GetProgram(ctx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := r.DeleteProgramTx(ctx, tx, "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestListProgramsFilters(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		a := program("p1", "Educação Integral", "2025-01-01T00:00:00Z", domain.Action{ID: "x1", Nome: "A"})
		b := program("p2", "Saúde da Família", "2025-01-02T00:00:00Z", domain.Action{ID: "x2", Nome: "B"})
		b.Secretaria = "Saúde"
		b.Eixo = "Saúde"
		c := program("p3", "Escola Conectada", "2025-01-03T00:00:00Z")
		for _, p := range []domain.Program{a, b, c} {
			if err := r.InsertProgramTx(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})

	all, err := r.ListPrograms(ctx, repo.ProgramFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "p1" || all[2].ID != "p3" {
		t.Fatalf("unexpected order %+v", all)
	}
	if len(all[2].Actions) != 0 || all[2].Actions == nil {
		t.Fatalf("expected empty non-nil actions, got %#v", all[2].Actions)
	}

	edu, err := r.ListPrograms(ctx, repo.ProgramFilters{Secretaria: "Educação"})
	if err != nil || len(edu) != 2 {
		t.Fatalf("secretaria filter: %v %+v", err, edu)
	}
	if len(edu[0].Actions) != 1 || edu[0].Actions[0].ID != "x1" {
		t.Fatalf("filtered list lost actions: %+v", edu[0])
	}
	search, err := r.ListPrograms(ctx, repo.ProgramFilters{Search: "escola"})
	if err != nil || len(search) != 1 || search[0].ID != "p3" {
		t.Fatalf("search filter: %v %+v", err, search)
	}
	limited, err := r.ListPrograms(ctx, repo.ProgramFilters{Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].ID != "p1" {
		t.Fatalf("limit: %v %+v", err, limited)
	}
}

func TestActionExistsUsesNormalizedKey(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.InsertProgramTx(ctx, tx, program("p1", "P", "2025-01-01T00:00:00Z",
			domain.Action{ID: "a1", Nome: " Capacitação ", Produto: "CURSO"}))
	})
	ok, err := r.ActionExists(ctx, "capacitação", "curso")
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = r.ActionExists(ctx, "capacitação", "")
	if err != nil || ok {
		t.Fatalf("empty product must not match, got %v %v", ok, err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	names, err := r.ProgramNamesUsingActionTx(ctx, tx, "CAPACITAÇÃO", "curso")
	if err != nil || len(names) != 1 || names[0] != "P" {
		t.Fatalf("program names: %v %v", names, err)
	}
}

func TestDeleteProgramCascadesActions(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.InsertProgramTx(ctx, tx, program("p1", "P", "2025-01-01T00:00:00Z", domain.Action{ID: "a1", Nome: "Horta"}))
	})
	inTx(t, r, ctx, func(tx *sql.Tx) error { return r.DeleteProgramTx(ctx, tx, "p1") })
	ok, err := r.ActionExists(ctx, "Horta", "")
	if err != nil || ok {
		t.Fatalf("expected actions removed, got %v %v", ok, err)
	}
}

func TestIdeaFlags(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		if err := r.InsertIdeaTx(ctx, tx, domain.Idea{ID: "i1", Nome: "Capacitação", Produto: "Curso", Categoria: "Serviços", CreatedAt: "2025-01-01T00:00:00Z"}); err != nil {
			return err
		}
		return r.InsertIdeaTx(ctx, tx, domain.Idea{ID: "i2", Nome: "Horta", CreatedAt: "2025-01-02T00:00:00Z"})
	})

	n, err := r.SetIdeaUsed(ctx, "  CAPACITAÇÃO", "curso ", true)
	if err != nil || n != 1 {
		t.Fatalf("set used: %d %v", n, err)
	}
	used := true
	ideas, err := r.ListIdeas(ctx, repo.IdeaFilters{Used: &used})
	if err != nil || len(ideas) != 1 || ideas[0].ID != "i1" || !ideas[0].IsUsed {
		t.Fatalf("used filter: %v %+v", err, ideas)
	}
	if err := r.SetIdeaUsedByID(ctx, "i1", false); err != nil {
		t.Fatalf("set by id: %v", err)
	}
	if err := r.SetIdeaUsedByID(ctx, "missing", true); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := r.GetIdea(ctx, "i1")
	if err != nil || got.IsUsed {
		t.Fatalf("expected i1 available: %+v %v", got, err)
	}
	byCat, err := r.ListIdeas(ctx, repo.IdeaFilters{Categoria: "Serviços"})
	if err != nil || len(byCat) != 1 {
		t.Fatalf("categoria filter: %v %+v", err, byCat)
	}
}

func TestAxes(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.InsertAxisTx(ctx, tx, domain.Axis{ID: "ax1", Nome: "Educação", CreatedAt: "2025-01-01T00:00:00Z"})
	})
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = r.InsertAxisTx(ctx, tx, domain.Axis{ID: "ax2", Nome: "Educação", CreatedAt: "2025-01-01T00:00:00Z"})
	tx.Rollback()
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := r.SetAxisUsed(ctx, "ax1", true); err != nil {
		t.Fatalf("set axis used: %v", err)
	}
	axes, err := r.ListAxes(ctx)
	if err != nil || len(axes) != 1 || !axes[0].IsUsed {
		t.Fatalf("list axes: %v %+v", err, axes)
	}
}

func TestEvents(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		for _, typ := range []string{"program.created", "idea.created", "program.deleted"} {
			if _, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
				"2025-01-01T00:00:00Z", typ, "program", "p1", "tester", "{}"); err != nil {
				return err
			}
		}
		return nil
	})
	latest, err := r.LatestEvents(ctx, repo.EventFilters{Limit: 2})
	if err != nil || len(latest) != 2 || latest[0].Type != "program.deleted" {
		t.Fatalf("latest: %v %+v", err, latest)
	}
	older, err := r.LatestEvents(ctx, repo.EventFilters{Cursor: latest[1].ID})
	if err != nil || len(older) != 1 || older[0].Type != "program.created" {
		t.Fatalf("cursor: %v %+v", err, older)
	}
	after, err := r.EventsAfter(ctx, 10, older[0].ID)
	if err != nil || len(after) != 2 {
		t.Fatalf("after: %v %+v", err, after)
	}
	maxID, err := r.LatestEventID(ctx)
	if err != nil || maxID != latest[0].ID {
		t.Fatalf("latest id %d %v", maxID, err)
	}
}

func TestAPIKeys(t *testing.T) {
	r, ctx := newRepo(t)
	hash := repo.HashAPIKey(" secret-key ")
	if hash != repo.HashAPIKey("secret-key") {
		t.Fatalf("hash should ignore surrounding spaces")
	}
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		if err := r.InsertAPIKeyTx(ctx, tx, domain.APIKey{ID: "k1", ActorID: "maria", KeyHash: hash, CreatedAt: "2026-01-01T00:00:00Z"}); err != nil {
			return err
		}
		return r.InsertAPIKeyTx(ctx, tx, domain.APIKey{ID: "k2", ActorID: "joao", Name: "ci", KeyHash: repo.HashAPIKey("other"), CreatedAt: "2026-01-02T00:00:00Z"})
	})

	k, err := r.APIKeyByHash(ctx, hash)
	if err != nil || k.ID != "k1" || k.ActorID != "maria" || k.Name != "" {
		t.Fatalf("unexpected key %+v (%v)", k, err)
	}
	if _, err := r.APIKeyByHash(ctx, repo.HashAPIKey("missing")); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	all, err := r.ListAPIKeys(ctx, "")
	if err != nil || len(all) != 2 || all[0].ID != "k2" {
		t.Fatalf("unexpected keys %+v (%v)", all, err)
	}
	mine, err := r.ListAPIKeys(ctx, "maria")
	if err != nil || len(mine) != 1 {
		t.Fatalf("unexpected filtered keys %+v (%v)", mine, err)
	}

	inTx(t, r, ctx, func(tx *sql.Tx) error { return r.DeleteAPIKeyTx(ctx, tx, "k1") })
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := r.DeleteAPIKeyTx(ctx, tx, "k1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
