package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/export"
	"plurianual/internal/repo"
	"plurianual/internal/report"
)

func programCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "program", Short: "Manage programs"}
	cmd.AddCommand(programCreateCmd())
	cmd.AddCommand(programListCmd())
	cmd.AddCommand(programShowCmd())
	cmd.AddCommand(programUpdateCmd())
	cmd.AddCommand(programDeleteCmd())
	cmd.AddCommand(programExportCmd())
	return cmd
}

// programFlags are the scalar program fields settable from the command line.
type programFlags struct {
	file          string
	secretaria    string
	departamento  string
	eixo          string
	programa      string
	descricao     string
	justificativa string
	objetivos     string
	diretrizes    string
}

func (f *programFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON file with the program and its actions")
	cmd.Flags().StringVar(&f.secretaria, "secretaria", "", "secretaria")
	cmd.Flags().StringVar(&f.departamento, "departamento", "", "department")
	cmd.Flags().StringVar(&f.eixo, "eixo", "", "strategic axis name")
	cmd.Flags().StringVar(&f.programa, "programa", "", "program name")
	cmd.Flags().StringVar(&f.descricao, "descricao", "", "description")
	cmd.Flags().StringVar(&f.justificativa, "justificativa", "", "justification")
	cmd.Flags().StringVar(&f.objetivos, "objetivos", "", "objectives")
	cmd.Flags().StringVar(&f.diretrizes, "diretrizes", "", "guidelines")
}

// apply loads the file, if any, and overlays the flags the user set.
func (f *programFlags) apply(cmd *cobra.Command, in *engine.ProgramInput) error {
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return err
		}
		var fromFile engine.ProgramInput
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return fmt.Errorf("parse %s: %w", f.file, err)
		}
		*in = fromFile
	}
	set := func(flag string, dst *string, v string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	set("secretaria", &in.Secretaria, f.secretaria)
	set("departamento", &in.Departamento, f.departamento)
	set("eixo", &in.Eixo, f.eixo)
	set("programa", &in.Programa, f.programa)
	set("descricao", &in.Descricao, f.descricao)
	set("justificativa", &in.Justificativa, f.justificativa)
	set("objetivos", &in.Objetivos, f.objetivos)
	set("diretrizes", &in.Diretrizes, f.diretrizes)
	return nil
}

func inputFromProgram(p domain.Program) engine.ProgramInput {
	return engine.ProgramInput{
		Secretaria:    p.Secretaria,
		Departamento:  p.Departamento,
		Eixo:          p.Eixo,
		Programa:      p.Programa,
		Descricao:     p.Descricao,
		Justificativa: p.Justificativa,
		Objetivos:     p.Objetivos,
		Diretrizes:    p.Diretrizes,
		Actions:       p.Actions,
	}
}

func programCreateCmd() *cobra.Command {
	var f programFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a program",
		Long:  "Create a program from flags or from a YAML/JSON file (-f). Actions whose name and product match an idea mark it as in use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in engine.ProgramInput
			if err := f.apply(cmd, &in); err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CreateProgram(ctx, in, actor())
				if err != nil {
					return err
				}
				printWarnings(res.Warnings)
				return printProgram(res.Program)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func programListCmd() *cobra.Command {
	var f repo.ProgramFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				programs, err := e.ListPrograms(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(programs)
				}
				tw := newTable("ID", "Programa", "Secretaria", "Departamento", "Eixo", "Ações", "Total")
				for _, p := range programs {
					tw.AppendRow([]any{p.ID, p.Programa, p.Secretaria, p.Departamento, p.Eixo, len(p.Actions), budget.FormatAmount(report.ProgramTotal(p))})
				}
				tw.AppendFooter([]any{"", "", "", "", "", "Total", budget.FormatAmount(report.PortfolioTotal(programs))})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Secretaria, "secretaria", "", "secretaria filter")
	cmd.Flags().StringVar(&f.Departamento, "departamento", "", "department filter")
	cmd.Flags().StringVar(&f.Eixo, "eixo", "", "axis filter")
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "program name contains")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max programs")
	return cmd
}

func programShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a program and its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.GetProgram(ctx, args[0])
				if err != nil {
					return err
				}
				return printProgram(p)
			})
		},
	}
}

func programUpdateCmd() *cobra.Command {
	var f programFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a program",
		Long:  "Update a program. With -f the file replaces the program and its whole action list; flags alone change single fields.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				current, err := e.GetProgram(ctx, args[0])
				if err != nil {
					return err
				}
				in := inputFromProgram(current)
				if err := f.apply(cmd, &in); err != nil {
					return err
				}
				res, err := e.UpdateProgram(ctx, args[0], in, actor())
				if err != nil {
					return err
				}
				printWarnings(res.Warnings)
				return printProgram(res.Program)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func programDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.DeleteProgram(ctx, args[0], actor())
				if err != nil {
					return err
				}
				printWarnings(res.Warnings)
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func programExportCmd() *cobra.Command {
	var format, out string
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a program document",
		Long:  "Render the program document (text, csv, html, markdown). The file is named after the program unless --out is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f := e.DefaultExportFormat()
				if format != "" {
					parsed, err := export.ParseFormat(format)
					if err != nil {
						return err
					}
					f = parsed
				}
				var buf bytes.Buffer
				name, err := e.ExportProgram(ctx, args[0], f, &buf)
				if err != nil {
					return err
				}
				if toStdout {
					_, err := os.Stdout.Write(buf.Bytes())
					return err
				}
				if out == "" {
					out = name
				} else if info, err := os.Stat(out); err == nil && info.IsDir() {
					out = filepath.Join(out, name)
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "text, csv, html or markdown (default from plurianual.yml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout")
	return cmd
}

func printProgram(p domain.Program) error {
	if viper.GetBool("json") {
		return printJSON(p)
	}
	doc := export.Compose(p)
	return export.Render(os.Stdout, doc, export.FormatText)
}
