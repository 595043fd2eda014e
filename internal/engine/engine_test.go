package engine_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"plurianual/internal/config"
	"plurianual/internal/db"
	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/export"
	"plurianual/internal/migrate"
	"plurianual/internal/repo"
	"plurianual/internal/usage"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir(), BusyTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	eng := engine.New(conn, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	eng.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) createProgram(t *testing.T, name, eixo string, actions ...domain.Action) domain.Program {
	t.Helper()
	res, err := env.Engine.CreateProgram(env.Ctx, engine.ProgramInput{Programa: name, Eixo: eixo, Departamento: "Obras", Actions: actions}, "tester")
	if err != nil {
		t.Fatalf("create program %s: %v", name, err)
	}
	if len(res.Warnings) > 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	return res.Program
}

func (env testEnv) idea(t *testing.T, id string) domain.Idea {
	t.Helper()
	idea, err := env.Engine.GetIdea(env.Ctx, id)
	if err != nil {
		t.Fatalf("get idea: %v", err)
	}
	return idea
}

func TestCreateProgramValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.Engine.CreateProgram(env.Ctx, engine.ProgramInput{Programa: "  "}, "tester")
	var verr *engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "programa" {
		t.Fatalf("expected programa validation error, got %v", err)
	}
	_, err = env.Engine.CreateProgram(env.Ctx, engine.ProgramInput{Programa: "P", Actions: []domain.Action{{Produto: "x"}}}, "tester")
	if !errors.As(err, &verr) || verr.Field != "actions[0].nome" {
		t.Fatalf("expected action nome validation error, got %v", err)
	}
}

func TestCatalogEnforced(t *testing.T) {
	env := newTestEnv(t, config.Default())
	_, err := env.Engine.CreateProgram(env.Ctx, engine.ProgramInput{Programa: "P", Secretaria: "Inventada"}, "tester")
	var verr *engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "secretaria" {
		t.Fatalf("expected secretaria validation error, got %v", err)
	}
	if _, err := env.Engine.CreateProgram(env.Ctx, engine.ProgramInput{Programa: "P", Secretaria: "Saúde"}, "tester"); err != nil {
		t.Fatalf("catalog secretaria rejected: %v", err)
	}
	if _, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "X", Categoria: "Nope"}, "tester"); !errors.As(err, &verr) {
		t.Fatalf("expected categoria validation error, got %v", err)
	}
}

func TestBudgetNormalizedOnSave(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createProgram(t, "P", "", domain.Action{Nome: "A", Orcamento: domain.Annual{Y2026: "1000,5", Y2028: "R$ 2.000,00"}})
	got, err := env.Engine.GetProgram(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	orc := got.Actions[0].Orcamento
	if orc.Y2026 != "R$ 1.000,50" || orc.Y2027 != "" || orc.Y2028 != "R$ 2.000,00" {
		t.Fatalf("unexpected budget %+v", orc)
	}
}

func TestIdeaFlagFollowsProgramLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	created, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Capacitação", Produto: "Curso"}, "tester")
	if err != nil || !created.Created || created.Idea.IsUsed {
		t.Fatalf("create idea: %+v %v", created, err)
	}
	id := created.Idea.ID

	p1 := env.createProgram(t, "Educação Integral", "", domain.Action{Nome: " capacitação", Produto: "CURSO"})
	if !env.idea(t, id).IsUsed {
		t.Fatalf("expected idea used after attach")
	}
	p2 := env.createProgram(t, "Saúde da Família", "", domain.Action{Nome: "Capacitação", Produto: "Curso"})

	// still referenced by p2
	if res, err := env.Engine.DeleteProgram(env.Ctx, p1.ID, "tester"); err != nil || len(res.Warnings) > 0 {
		t.Fatalf("delete p1: %+v %v", res, err)
	}
	if !env.idea(t, id).IsUsed {
		t.Fatalf("expected idea still used while p2 references it")
	}

	// detaching through a full replace
	if _, err := env.Engine.UpdateProgram(env.Ctx, p2.ID, engine.ProgramInput{Programa: "Saúde da Família"}, "tester"); err != nil {
		t.Fatalf("update p2: %v", err)
	}
	if env.idea(t, id).IsUsed {
		t.Fatalf("expected idea available once no action remains")
	}
}

func TestDeleteIdeaInUse(t *testing.T) {
	env := newTestEnv(t, nil)
	created, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Horta"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	env.createProgram(t, "Escola Verde", "", domain.Action{Nome: "horta"})

	err = env.Engine.DeleteIdea(env.Ctx, created.Idea.ID, "tester")
	var inUse *engine.InUseError
	if !errors.Is(err, engine.ErrInUse) || !errors.As(err, &inUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}
	if len(inUse.Programs) != 1 || inUse.Programs[0] != "Escola Verde" {
		t.Fatalf("unexpected programs %v", inUse.Programs)
	}

	free, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Ciclovia"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteIdea(env.Ctx, free.Idea.ID, "tester"); err != nil {
		t.Fatalf("delete free idea: %v", err)
	}
	if err := env.Engine.DeleteIdea(env.Ctx, free.Idea.ID, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateIdeaDeduplicates(t *testing.T) {
	env := newTestEnv(t, nil)
	first, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Horta", Produto: "Canteiro"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	again, err := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: " HORTA ", Produto: "canteiro"}, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if again.Created || again.Idea.ID != first.Idea.ID {
		t.Fatalf("expected existing idea, got %+v", again)
	}
}

func TestPromoteAction(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createProgram(t, "Mobilidade", "", domain.Action{Nome: "Ciclovia", Produto: "Km", UnidadeMedida: "km"})
	res, err := env.Engine.PromoteAction(env.Ctx, p.ID, p.Actions[0].ID, "Infraestrutura", "tester")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if !res.Created || !res.Idea.IsUsed || res.Idea.UnidadeMedida != "km" {
		t.Fatalf("unexpected promoted idea %+v", res)
	}
	if _, err := env.Engine.PromoteAction(env.Ctx, p.ID, "missing", "", "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAvailableIdeasAndUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	used, _ := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Reforma Escola", Produto: "Obra"}, "tester")
	free, _ := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Horta"}, "tester")
	hidden, _ := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Ciclovia"}, "tester")
	env.createProgram(t, "Educação Integral", "", domain.Action{Nome: "Reforma Escola", Produto: "Obra"})
	env.createProgram(t, "Outro", "")

	avail, err := env.Engine.AvailableIdeas(env.Ctx, usage.ParseHidden(hidden.Idea.ID))
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 1 || avail[0].ID != free.Idea.ID {
		t.Fatalf("unexpected available ideas %+v", avail)
	}
	u, err := env.Engine.IdeaUsage(env.Ctx, used.Idea.ID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if !u.IsUsed || len(u.ProgramNames) != 1 || u.ProgramNames[0] != "Educação Integral" {
		t.Fatalf("unexpected usage %+v", u)
	}
}

func TestAxisLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	edu, err := env.Engine.CreateAxis(env.Ctx, engine.AxisInput{Nome: "Educação"}, "tester")
	if err != nil {
		t.Fatalf("create axis: %v", err)
	}
	if _, err := env.Engine.CreateAxis(env.Ctx, engine.AxisInput{Nome: "Educação"}, "tester"); !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	p := env.createProgram(t, "Educação Integral", "Educação")

	axes, err := env.Engine.ListAxes(env.Ctx)
	if err != nil || len(axes) != 1 || !axes[0].IsUsed {
		t.Fatalf("expected axis flagged used: %+v %v", axes, err)
	}
	if err := env.Engine.DeleteAxis(env.Ctx, edu.ID, "tester"); !errors.Is(err, engine.ErrInUse) {
		t.Fatalf("expected in use, got %v", err)
	}

	if _, err := env.Engine.DeleteProgram(env.Ctx, p.ID, "tester"); err != nil {
		t.Fatalf("delete program: %v", err)
	}
	axes, _ = env.Engine.ListAxes(env.Ctx)
	if axes[0].IsUsed {
		t.Fatalf("expected axis unused after program removal")
	}
	if err := env.Engine.DeleteAxis(env.Ctx, edu.ID, "tester"); err != nil {
		t.Fatalf("delete axis: %v", err)
	}
}

func TestResyncRepairsStaleFlags(t *testing.T) {
	env := newTestEnv(t, nil)
	idea, _ := env.Engine.CreateIdea(env.Ctx, engine.IdeaInput{Nome: "Horta"}, "tester")
	ax, _ := env.Engine.CreateAxis(env.Ctx, engine.AxisInput{Nome: "Saúde"}, "tester")
	env.createProgram(t, "P", "Saúde", domain.Action{Nome: "Horta"})

	// corrupt the caches behind the engine's back
	if err := env.Engine.Repo.SetIdeaUsedByID(env.Ctx, idea.Idea.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Repo.SetAxisUsed(env.Ctx, ax.ID, false); err != nil {
		t.Fatal(err)
	}

	res, err := env.Engine.ResyncIdeas(env.Ctx, "tester")
	if err != nil || res.Total != 1 || len(res.Warnings) > 0 {
		t.Fatalf("resync ideas: %+v %v", res, err)
	}
	if !env.idea(t, idea.Idea.ID).IsUsed {
		t.Fatalf("idea flag not repaired")
	}
	if _, err := env.Engine.ResyncAxes(env.Ctx, "tester"); err != nil {
		t.Fatalf("resync axes: %v", err)
	}
	axes, _ := env.Engine.ListAxes(env.Ctx)
	if !axes[0].IsUsed {
		t.Fatalf("axis flag not repaired")
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{Limit: 1})
	if err != nil || len(evts) != 1 || evts[0].Type != "axes.resynced" || evts[0].ActorID != "tester" {
		t.Fatalf("unexpected events %+v %v", evts, err)
	}
}

func TestDashboardAndExport(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createProgram(t, "Educação Integral", "", domain.Action{Nome: "A", Orcamento: domain.Annual{Y2026: "R$ 1.000,00"}})
	env.createProgram(t, "Outro", "", domain.Action{Nome: "B", Orcamento: domain.Annual{Y2027: "R$ 2.000,00"}})

	sum, err := env.Engine.Dashboard(env.Ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if sum.Programs != 2 || sum.PortfolioTotal != 3000 || sum.ByProgram[0].Name != "Outro" {
		t.Fatalf("unexpected summary %+v", sum)
	}

	var buf bytes.Buffer
	name, err := env.Engine.ExportProgram(env.Ctx, p.ID, export.FormatCSV, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "programa-educacao-integral.csv" {
		t.Fatalf("unexpected file name %s", name)
	}
	if !strings.Contains(buf.String(), "R$ 1.000,00") {
		t.Fatalf("export missing budget: %s", buf.String())
	}
}

func TestUpdateMissingProgram(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.Engine.UpdateProgram(env.Ctx, "missing", engine.ProgramInput{Programa: "P"}, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.DeleteProgram(env.Ctx, "missing", "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.Engine.CreateAPIKey(env.Ctx, " ", "ci", "admin"); err == nil {
		t.Fatalf("expected validation error for empty owner")
	}
	res, err := env.Engine.CreateAPIKey(env.Ctx, "maria", "ci", "admin")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if !strings.HasPrefix(res.Key, "ppa_") || res.KeyHash == res.Key {
		t.Fatalf("unexpected key %+v", res)
	}
	k, err := env.Engine.AuthenticateAPIKey(env.Ctx, res.Key)
	if err != nil || k.ActorID != "maria" {
		t.Fatalf("authenticate: %+v (%v)", k, err)
	}
	if _, err := env.Engine.AuthenticateAPIKey(env.Ctx, "ppa_wrong"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for wrong key, got %v", err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, res.ID, "admin"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := env.Engine.AuthenticateAPIKey(env.Ctx, res.Key); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected revoked key to fail, got %v", err)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{EntityKind: "api_key"})
	if err != nil || len(evts) != 2 || evts[0].Type != "api_key.revoked" {
		t.Fatalf("unexpected events %+v (%v)", evts, err)
	}
}

func TestCopiedActionsGetTheirOwnIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.createProgram(t, "Programa A", "",
		domain.Action{Nome: "Capacitação", Produto: "Curso"},
		domain.Action{Nome: "Horta"},
	)

	// the actions of A, ids included, pasted into a new program
	b := env.createProgram(t, "Programa B", "", a.Actions...)
	for i := range b.Actions {
		if b.Actions[i].ID == a.Actions[i].ID {
			t.Fatalf("action %d kept the id owned by program A", i)
		}
	}
	gotA, err := env.Engine.GetProgram(env.Ctx, a.ID)
	if err != nil || len(gotA.Actions) != 2 || gotA.Actions[0].ID != a.Actions[0].ID {
		t.Fatalf("program A changed: %+v (%v)", gotA, err)
	}

	// replacing B with A's actions again behaves the same
	upd, err := env.Engine.UpdateProgram(env.Ctx, b.ID, engine.ProgramInput{Programa: "Programa B", Actions: a.Actions}, "tester")
	if err != nil {
		t.Fatalf("update B: %v", err)
	}
	if upd.Program.Actions[0].ID == a.Actions[0].ID {
		t.Fatalf("update kept an id owned by program A")
	}

	// B's own ids survive a replace
	kept, err := env.Engine.UpdateProgram(env.Ctx, b.ID, engine.ProgramInput{Programa: "Programa B", Actions: upd.Program.Actions}, "tester")
	if err != nil || kept.Program.Actions[0].ID != upd.Program.Actions[0].ID {
		t.Fatalf("expected ids of B to be kept: %+v (%v)", kept.Program.Actions, err)
	}
}

func TestRepeatedActionIDsInOnePayload(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createProgram(t, "Programa", "",
		domain.Action{ID: "x", Nome: "Horta"},
		domain.Action{ID: "x", Nome: "Ciclovia"},
	)
	if len(p.Actions) != 2 || p.Actions[0].ID != "x" || p.Actions[1].ID == "x" || p.Actions[1].ID == "" {
		t.Fatalf("unexpected action ids %+v", p.Actions)
	}
	got, err := env.Engine.GetProgram(env.Ctx, p.ID)
	if err != nil || len(got.Actions) != 2 {
		t.Fatalf("stored program %+v (%v)", got, err)
	}
}
