package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/repo"
	"plurianual/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Budget totals"}
	cmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Show portfolio counts and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Dashboard(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Programas: %d  Ações: %d\n", s.Programs, s.Actions)
				fmt.Printf("Ideias: %d (%d em uso)  Eixos: %d (%d em uso)\n", s.Ideas, s.IdeasInUse, s.Axes, s.AxesInUse)
				fmt.Printf("Total do PPA: %s\n", budget.FormatAmount(s.PortfolioTotal))
				tw := newTable("Ano", "Total")
				for _, y := range s.ByYear {
					tw.AppendRow([]any{y.Year, budget.FormatAmount(y.Total)})
				}
				tw.Render()
				printTotals("Departamento", s.ByDepartment)
				return nil
			})
		},
	})
	cmd.AddCommand(totalsCmd("departments", "Totals per department", "Departamento", report.TotalsByDepartment))
	cmd.AddCommand(totalsCmd("secretarias", "Totals per secretaria", "Secretaria", report.TotalsBySecretaria))
	cmd.AddCommand(totalsCmd("programs", "Totals per program", "Programa", report.TotalsByProgram))
	return cmd
}

func totalsCmd(use, short, label string, group func([]domain.Program) []report.Total) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				programs, err := e.ListPrograms(ctx, repo.ProgramFilters{})
				if err != nil {
					return err
				}
				totals := group(programs)
				if viper.GetBool("json") {
					return printJSON(totals)
				}
				printTotals(label, totals)
				return nil
			})
		},
	}
}

func printTotals(label string, totals []report.Total) {
	tw := newTable(label, "Total")
	for _, t := range totals {
		tw.AppendRow([]any{t.Name, budget.FormatAmount(t.Total)})
	}
	tw.Render()
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Event log"}
	cmd.AddCommand(logTailCmd())
	return cmd
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "TS", "Type", "Entity", "Actor")
				for _, ev := range items {
					tw.AppendRow([]any{ev.ID, ev.TS, ev.Type, ev.EntityKind + ":" + ev.EntityID, ev.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	return cmd
}
