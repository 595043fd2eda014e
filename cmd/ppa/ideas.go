package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"plurianual/internal/domain"
	"plurianual/internal/engine"
	"plurianual/internal/repo"
	"plurianual/internal/usage"
)

func ideaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "idea", Short: "Manage the idea bank"}
	cmd.AddCommand(ideaCreateCmd())
	cmd.AddCommand(ideaListCmd())
	cmd.AddCommand(ideaAvailableCmd())
	cmd.AddCommand(ideaUsageCmd())
	cmd.AddCommand(ideaPromoteCmd())
	cmd.AddCommand(ideaDeleteCmd())
	return cmd
}

func ideaCreateCmd() *cobra.Command {
	var in engine.IdeaInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add an idea",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.CreateIdea(ctx, in, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if !res.Created {
					fmt.Println("idea already in the bank:", res.Idea.ID)
					return nil
				}
				printIdeas([]domain.Idea{res.Idea})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Nome, "nome", "", "idea name")
	cmd.Flags().StringVar(&in.Produto, "produto", "", "product")
	cmd.Flags().StringVar(&in.UnidadeMedida, "unidade", "", "unit of measure")
	cmd.Flags().StringVar(&in.Categoria, "categoria", "", "category")
	_ = cmd.MarkFlagRequired("nome")
	return cmd
}

func ideaListCmd() *cobra.Command {
	var f repo.IdeaFilters
	var used string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(used) {
			case "":
			case "true", "yes":
				v := true
				f.Used = &v
			case "false", "no":
				v := false
				f.Used = &v
			default:
				return fmt.Errorf("--used must be true or false")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ideas, err := e.ListIdeas(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ideas)
				}
				printIdeas(ideas)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Categoria, "categoria", "", "category filter")
	cmd.Flags().StringVar(&used, "used", "", "true or false")
	cmd.Flags().StringVarP(&f.Search, "search", "q", "", "name contains")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max ideas")
	return cmd
}

func ideaAvailableCmd() *cobra.Command {
	var hide string
	cmd := &cobra.Command{
		Use:   "available",
		Short: "List ideas no program uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ideas, err := e.AvailableIdeas(ctx, usage.ParseHidden(hide))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ideas)
				}
				printIdeas(ideas)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&hide, "hide", "", "comma separated idea ids to hide")
	return cmd
}

func ideaUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <id>",
		Short: "Show which programs use an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.IdeaUsage(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(u)
				}
				if !u.IsUsed {
					fmt.Println("not used by any program")
					return nil
				}
				fmt.Println("used by:")
				for _, name := range u.ProgramNames {
					fmt.Println("  " + name)
				}
				return nil
			})
		},
	}
}

func ideaPromoteCmd() *cobra.Command {
	var programID, actionID, categoria string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Copy a program action into the idea bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.PromoteAction(ctx, programID, actionID, categoria, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printIdeas([]domain.Idea{res.Idea})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&programID, "program", "", "program id")
	cmd.Flags().StringVar(&actionID, "action", "", "action id")
	cmd.Flags().StringVar(&categoria, "categoria", "", "category for the new idea")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func ideaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an idea no program uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteIdea(ctx, args[0], actor()); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reconcile", Short: "Rebuild stored usage flags from programs"}
	cmd.AddCommand(&cobra.Command{
		Use:   "ideas",
		Short: "Rewrite every idea's used flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printResync(e.ResyncIdeas(ctx, actor()))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "axes",
		Short: "Rewrite every axis' used flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printResync(e.ResyncAxes(ctx, actor()))
			})
		},
	})
	return cmd
}

func printResync(res engine.ResyncResult, err error) error {
	if err != nil {
		return err
	}
	printWarnings(res.Warnings)
	if viper.GetBool("json") {
		return printJSON(res)
	}
	fmt.Printf("checked %d, %d failures\n", res.Total, len(res.Warnings))
	return nil
}

func printIdeas(ideas []domain.Idea) {
	tw := newTable("ID", "Nome", "Produto", "Unidade", "Categoria", "Em uso")
	for _, i := range ideas {
		tw.AppendRow([]any{i.ID, i.Nome, i.Produto, i.UnidadeMedida, i.Categoria, yesNo(i.IsUsed)})
	}
	tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}
