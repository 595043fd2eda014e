package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"plurianual/internal/engine"
)

func TestProgramFlagsApplyFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.yml")
	content := `programa: Escola Verde
departamento: Educação Infantil
actions:
  - nome: Horta escolar
    produto: Horta
    orcamento:
      "2026": "R$ 1.000,00"
      "2027": "R$ 2.000,00"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	var f programFlags
	cmd := &cobra.Command{Use: "create"}
	f.register(cmd)
	if err := cmd.Flags().Set("file", path); err != nil {
		t.Fatalf("set file: %v", err)
	}
	if err := cmd.Flags().Set("eixo", "Educação"); err != nil {
		t.Fatalf("set eixo: %v", err)
	}

	var in engine.ProgramInput
	if err := f.apply(cmd, &in); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if in.Programa != "Escola Verde" || in.Departamento != "Educação Infantil" || in.Eixo != "Educação" {
		t.Fatalf("unexpected input %+v", in)
	}
	if len(in.Actions) != 1 || in.Actions[0].Produto != "Horta" {
		t.Fatalf("unexpected actions %+v", in.Actions)
	}
	if in.Actions[0].Orcamento.Y2026 != "R$ 1.000,00" || in.Actions[0].Orcamento.Y2027 != "R$ 2.000,00" {
		t.Fatalf("unexpected budget %+v", in.Actions[0].Orcamento)
	}
}

func TestProgramFlagsKeepUnsetFields(t *testing.T) {
	var f programFlags
	cmd := &cobra.Command{Use: "update"}
	f.register(cmd)
	if err := cmd.Flags().Set("programa", "Novo nome"); err != nil {
		t.Fatalf("set programa: %v", err)
	}
	in := engine.ProgramInput{Programa: "Antigo", Secretaria: "Saúde"}
	if err := f.apply(cmd, &in); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if in.Programa != "Novo nome" || in.Secretaria != "Saúde" {
		t.Fatalf("unexpected input %+v", in)
	}
}
